package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/printbridge/printbridge/internal/db"
	"github.com/printbridge/printbridge/internal/payment"
)

// Dispatcher announces a newly paid job to connected agents. Delivery is
// fire-and-forget; the state machine never waits on it.
type Dispatcher interface {
	Dispatch(job *db.PrintJob)
}

type ManagerConfig struct {
	// PerPageRate is the price of printing one page once, in minor
	// currency units.
	PerPageRate int64

	// PaymentSecret is the shared secret payment signatures are
	// verified against.
	PaymentSecret string
}

// Manager owns the print-job lifecycle. It is the only writer of job
// state; every transition goes through a guarded store update so
// concurrent confirmations and status reports cannot race each other
// into an invalid state.
type Manager struct {
	jobs       *db.JobStore
	printers   *db.PrinterStore
	dispatcher Dispatcher
	cfg        ManagerConfig
}

func NewManager(jobs *db.JobStore, printers *db.PrinterStore, dispatcher Dispatcher, cfg ManagerConfig) *Manager {
	return &Manager{
		jobs:       jobs,
		printers:   printers,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

// CreateJob validates input, prices the job and persists it with both
// lifecycles at pending. The amount is computed exactly once here and
// never recomputed, so later field edits cannot change the price.
func (m *Manager) CreateJob(ctx context.Context, fileName, artifactPath, printerName string, pageCount, copies int) (*db.PrintJob, error) {
	if strings.TrimSpace(printerName) == "" {
		return nil, &ValidationError{Field: "printerName", Reason: "must not be empty"}
	}
	if pageCount < 0 {
		return nil, &ValidationError{Field: "pageCount", Reason: "must not be negative"}
	}
	if copies < 1 {
		return nil, &ValidationError{Field: "copies", Reason: "must be at least 1"}
	}

	job := &db.PrintJob{
		ID:            uuid.NewString(),
		FileName:      fileName,
		ArtifactPath:  artifactPath,
		PrinterName:   printerName,
		PageCount:     pageCount,
		Copies:        copies,
		Amount:        int64(pageCount) * m.cfg.PerPageRate * int64(copies),
		PaymentStatus: string(PaymentStatusPending),
		Status:        string(JobStatusPending),
	}

	if err := m.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	return m.getJob(ctx, job.ID)
}

// AttachOrder records the provider order id issued for this job.
func (m *Manager) AttachOrder(ctx context.Context, jobID, orderID string) (*db.PrintJob, error) {
	if orderID == "" {
		return nil, &ValidationError{Field: "orderId", Reason: "must not be empty"}
	}

	job, err := m.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	attached, err := m.jobs.AttachOrderID(ctx, jobID, orderID)
	if err != nil {
		return nil, err
	}
	if !attached {
		return nil, &InvalidStateError{JobID: jobID, State: job.PaymentStatus, Op: "attach order to"}
	}

	return m.getJob(ctx, jobID)
}

// ConfirmPayment runs the payment gate and, on success, performs the
// pending->paid transition and emits exactly one dispatch broadcast.
//
// Confirming an already-paid job is a no-op that returns the job
// unchanged: replaying a valid confirmation can neither flip state twice
// nor re-trigger dispatch. A failed verification is terminal; the job
// moves to payment-failed and will never print.
func (m *Manager) ConfirmPayment(ctx context.Context, jobID, orderID, paymentID, signature string) (*db.PrintJob, error) {
	job, err := m.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	switch PaymentStatus(job.PaymentStatus) {
	case PaymentStatusPaid:
		return job, nil
	case PaymentStatusFailed:
		return nil, &InvalidStateError{JobID: jobID, State: job.PaymentStatus, Op: "confirm payment for"}
	}

	if job.OrderID == "" {
		return nil, &InvalidStateError{JobID: jobID, State: "no order attached", Op: "confirm payment for"}
	}

	// The submitted order id must be the one issued for this job; a
	// mismatch is a malformed confirmation, not a failed verification,
	// so the job stays pending.
	if orderID != job.OrderID {
		return nil, &ValidationError{Field: "orderId", Reason: "does not match the job's order"}
	}

	if !payment.VerifySignature(job.OrderID, paymentID, signature, m.cfg.PaymentSecret) {
		if _, ferr := m.jobs.MarkPaymentFailed(ctx, jobID, "payment signature verification failed"); ferr != nil {
			log.Printf("[jobs] failed to record payment failure for job %s: %v", jobID, ferr)
		}
		return nil, ErrSignatureMismatch
	}

	paid, err := m.jobs.MarkJobPaid(ctx, jobID)
	if err != nil {
		return nil, err
	}

	job, err = m.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// Dispatch is gated on the store transition, not on this call:
	// only the confirmation that actually flipped pending->paid emits.
	if paid && m.dispatcher != nil {
		m.dispatcher.Dispatch(job)
	}

	return job, nil
}

// UpdateExecutionStatus applies a status report from an agent. Reports
// arrive over a channel with no ordering guarantee, so they are treated
// as advisory: duplicates and attempts to move a terminal job are
// ignored rather than rejected.
func (m *Manager) UpdateExecutionStatus(ctx context.Context, jobID string, status JobStatus, errMsg string) (*db.PrintJob, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	job, err := m.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// Execution can only leave pending once payment is confirmed. The
	// dispatch channel is unauthenticated, so a report for an unpaid job
	// is discarded like any other stale report.
	if PaymentStatus(job.PaymentStatus) != PaymentStatusPaid {
		log.Printf("[jobs] ignoring status report %q for unpaid job %s (payment %s)", status, jobID, job.PaymentStatus)
		return job, nil
	}

	updated, err := m.jobs.UpdateJobStatus(ctx, jobID, string(status), errMsg)
	if err != nil {
		return nil, err
	}
	if !updated {
		log.Printf("[jobs] ignoring status report %q for terminal job %s (status %s)", status, jobID, job.Status)
		return job, nil
	}

	if status == JobStatusCompleted && m.printers != nil {
		if err := m.printers.IncrementPrintCount(ctx, job.PrinterName, job.Copies); err != nil {
			log.Printf("[jobs] failed to increment print count for %s: %v", job.PrinterName, err)
		}
	}

	return m.getJob(ctx, jobID)
}

func (m *Manager) GetJob(ctx context.Context, jobID string) (*db.PrintJob, error) {
	return m.getJob(ctx, jobID)
}

func (m *Manager) ListJobs(ctx context.Context, filter db.JobFilter) ([]*db.PrintJob, error) {
	return m.jobs.ListJobs(ctx, filter)
}

func (m *Manager) CountByStatus(ctx context.Context) (map[string]int, error) {
	return m.jobs.CountByStatus(ctx)
}

func (m *Manager) getJob(ctx context.Context, jobID string) (*db.PrintJob, error) {
	job, err := m.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{JobID: jobID}
		}
		return nil, err
	}
	return job, nil
}
