package db

import (
	"time"
)

type PrintJob struct {
	ID            string    `json:"id"`
	FileName      string    `json:"filename"`
	ArtifactPath  string    `json:"-"`
	PrinterName   string    `json:"printer_name"`
	PageCount     int       `json:"page_count"`
	Copies        int       `json:"copies"`
	Amount        int64     `json:"amount"`
	OrderID       string    `json:"order_id,omitempty"`
	PaymentStatus string    `json:"payment_status"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Printer struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Platform    string     `json:"platform"`
	Hostname    string     `json:"hostname"`
	Status      string     `json:"status"`
	LastSeenAt  *time.Time `json:"last_seen_at"`
	TotalPrints int64      `json:"total_prints"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type JobFilter struct {
	PrinterName   string
	Status        string
	PaymentStatus string
	Limit         int
	Offset        int
}
