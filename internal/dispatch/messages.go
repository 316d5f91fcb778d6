// Package dispatch implements the real-time channel between the
// coordinator and print agents. Paid jobs are fanned out to every
// connected agent as a broadcast; agents self-filter by printer name and
// push status reports back over the same connection.
package dispatch

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// Coordinator -> agent.
	EventNewPrintJob = "new-print-job"

	// Agent -> coordinator.
	EventPrinterRegistered = "printer-registered"
	EventJobStatusUpdate   = "job-status-update"
)

// Frame is the message envelope for the dispatch channel. Every message
// in either direction is one JSON-encoded Frame.
type Frame struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"ts"`
}

// NewPrintJobData announces a paid job. ArtifactRef is the coordinator
// path the agent downloads the document from; each message is
// self-describing so agents need no prior state to act on it.
type NewPrintJobData struct {
	JobID       string `json:"jobId"`
	PrinterName string `json:"printerName"`
	ArtifactRef string `json:"artifactRef"`
	FileName    string `json:"filename"`
	Copies      int    `json:"copies"`
	PageCount   int    `json:"pageCount"`
}

// PrinterRegisteredData identifies an agent after (re)connecting.
type PrinterRegisteredData struct {
	PrinterName string `json:"printerName"`
	Platform    string `json:"platform"`
	Hostname    string `json:"hostname"`
}

// JobStatusUpdateData reports execution progress for one job.
type JobStatusUpdateData struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Decode unmarshals the frame payload into v.
func (f *Frame) Decode(v any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%s frame has no payload", f.Event)
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("failed to parse %s payload: %w", f.Event, err)
	}
	return nil
}

// EncodeFrame wraps an event payload into a serialized Frame.
func EncodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	frame := Frame{
		Event:     event,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}
	encoded, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame: %w", err)
	}
	return encoded, nil
}

// DecodeFrame parses a serialized Frame.
func DecodeFrame(data []byte) (*Frame, error) {
	frame := &Frame{}
	if err := json.Unmarshal(data, frame); err != nil {
		return nil, fmt.Errorf("failed to parse frame: %w", err)
	}
	if frame.Event == "" {
		return nil, fmt.Errorf("frame has no event")
	}
	return frame, nil
}
