package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type JobStore struct {
	db *sql.DB
}

func NewJobStore(database *sql.DB) *JobStore {
	return &JobStore{db: database}
}

func (s *JobStore) CreateJob(ctx context.Context, j *PrintJob) error {
	_, err := s.db.ExecContext(ctx, InsertJob,
		j.ID, j.FileName, j.ArtifactPath, j.PrinterName,
		j.PageCount, j.Copies, j.Amount, j.PaymentStatus, j.Status)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *JobStore) GetJobByID(ctx context.Context, id string) (*PrintJob, error) {
	j := &PrintJob{}
	err := s.db.QueryRowContext(ctx, GetJobByID, id).Scan(
		&j.ID, &j.FileName, &j.ArtifactPath, &j.PrinterName,
		&j.PageCount, &j.Copies, &j.Amount, &j.OrderID,
		&j.PaymentStatus, &j.Status, &j.ErrorMessage,
		&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

func (s *JobStore) ListJobs(ctx context.Context, filter JobFilter) ([]*PrintJob, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, filename, artifact_path, printer_name, page_count, copies, amount, order_id, payment_status, status, error_message, created_at, updated_at
		FROM print_jobs WHERE 1=1
	`)
	var args []any

	if filter.PrinterName != "" {
		sb.WriteString(" AND printer_name = ?")
		args = append(args, filter.PrinterName)
	}
	if filter.Status != "" {
		sb.WriteString(" AND status = ?")
		args = append(args, filter.Status)
	}
	if filter.PaymentStatus != "" {
		sb.WriteString(" AND payment_status = ?")
		args = append(args, filter.PaymentStatus)
	}

	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*PrintJob
	for rows.Next() {
		j := &PrintJob{}
		if err := rows.Scan(
			&j.ID, &j.FileName, &j.ArtifactPath, &j.PrinterName,
			&j.PageCount, &j.Copies, &j.Amount, &j.OrderID,
			&j.PaymentStatus, &j.Status, &j.ErrorMessage,
			&j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// AttachOrderID records the provider order id. Returns false when the
// job's payment is no longer pending.
func (s *JobStore) AttachOrderID(ctx context.Context, id, orderID string) (bool, error) {
	return s.guardedExec(ctx, AttachOrderID, orderID, id)
}

// MarkJobPaid performs the atomic pending->paid transition. Exactly one
// caller per job ever gets true back.
func (s *JobStore) MarkJobPaid(ctx context.Context, id string) (bool, error) {
	return s.guardedExec(ctx, MarkJobPaid, id)
}

// MarkPaymentFailed performs the terminal pending->failed payment
// transition.
func (s *JobStore) MarkPaymentFailed(ctx context.Context, id, reason string) (bool, error) {
	return s.guardedExec(ctx, MarkPaymentFailed, reason, id)
}

// UpdateJobStatus writes an execution status. Returns false when the job
// is already terminal, which callers treat as an advisory no-op.
func (s *JobStore) UpdateJobStatus(ctx context.Context, id, status, errMsg string) (bool, error) {
	return s.guardedExec(ctx, UpdateJobStatus, status, errMsg, id)
}

func (s *JobStore) guardedExec(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected == 1, nil
}

func (s *JobStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, CountJobsByStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

type PrinterStore struct {
	db *sql.DB
}

func NewPrinterStore(database *sql.DB) *PrinterStore {
	return &PrinterStore{db: database}
}

func (s *PrinterStore) UpsertPrinter(ctx context.Context, name, platform, hostname string) error {
	_, err := s.db.ExecContext(ctx, UpsertPrinter, name, platform, hostname)
	if err != nil {
		return fmt.Errorf("failed to upsert printer: %w", err)
	}
	return nil
}

func (s *PrinterStore) MarkOffline(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, MarkPrinterOffline, name)
	if err != nil {
		return fmt.Errorf("failed to mark printer offline: %w", err)
	}
	return nil
}

func (s *PrinterStore) ListPrinters(ctx context.Context) ([]*Printer, error) {
	rows, err := s.db.QueryContext(ctx, ListPrinters)
	if err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	defer rows.Close()

	var printers []*Printer
	for rows.Next() {
		p := &Printer{}
		var lastSeen sql.NullTime
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Platform, &p.Hostname, &p.Status,
			&lastSeen, &p.TotalPrints, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan printer: %w", err)
		}
		if lastSeen.Valid {
			p.LastSeenAt = &lastSeen.Time
		}
		printers = append(printers, p)
	}
	return printers, rows.Err()
}

func (s *PrinterStore) IncrementPrintCount(ctx context.Context, name string, count int) error {
	_, err := s.db.ExecContext(ctx, IncrementPrinterPrints, count, name)
	if err != nil {
		return fmt.Errorf("failed to increment print count: %w", err)
	}
	return nil
}

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(database *sql.DB) *SettingsStore {
	return &SettingsStore{db: database}
}

func (s *SettingsStore) GetSetting(ctx context.Context, key string) (*Setting, error) {
	setting := &Setting{}
	err := s.db.QueryRowContext(ctx, GetSetting, key).Scan(
		&setting.Key, &setting.Value, &setting.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return setting, nil
}

func (s *SettingsStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, SetSetting, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}
