package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks a provider-issued payment signature. The provider
// signs the string "<orderID>|<paymentID>" with HMAC-SHA256 under the
// shared secret and hex-encodes the result. Comparison is constant time,
// so a caller probing with partially correct signatures learns nothing.
//
// Returns false on any mismatch, malformed input, or missing secret.
// No side effects, no network calls.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(expected, got)
}

// Sign produces the signature VerifySignature expects. The coordinator
// never calls this in production (the provider signs); it exists for the
// local provider and for tests.
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
