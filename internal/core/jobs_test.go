package core

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printbridge/printbridge/internal/db"
	"github.com/printbridge/printbridge/internal/payment"
)

const testSecret = "test-payment-secret"

type dispatchRecorder struct {
	mu   sync.Mutex
	jobs []*db.PrintJob
}

func (d *dispatchRecorder) Dispatch(job *db.PrintJob) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
}

func (d *dispatchRecorder) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

func newTestManager(t *testing.T) (*Manager, *dispatchRecorder) {
	t.Helper()

	database, err := db.Open(db.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	recorder := &dispatchRecorder{}
	manager := NewManager(db.NewJobStore(database), db.NewPrinterStore(database), recorder, ManagerConfig{
		PerPageRate:   2,
		PaymentSecret: testSecret,
	})
	return manager, recorder
}

func createOrderedJob(t *testing.T, m *Manager) *db.PrintJob {
	t.Helper()
	ctx := context.Background()

	job, err := m.CreateJob(ctx, "doc.pdf", "/tmp/doc.pdf", "office-laser", 10, 3)
	require.NoError(t, err)

	job, err = m.AttachOrder(ctx, job.ID, "order_abc")
	require.NoError(t, err)

	return job
}

func createPaidJob(t *testing.T, m *Manager) *db.PrintJob {
	t.Helper()

	job := createOrderedJob(t, m)
	sig := payment.Sign(job.OrderID, "pay_1", testSecret)
	job, err := m.ConfirmPayment(context.Background(), job.ID, job.OrderID, "pay_1", sig)
	require.NoError(t, err)

	return job
}

func TestCreateJob_ComputesAmountOnce(t *testing.T) {
	m, _ := newTestManager(t)

	// 10 pages x rate 2 x 3 copies = 60.
	job, err := m.CreateJob(context.Background(), "doc.pdf", "/tmp/doc.pdf", "office-laser", 10, 3)
	require.NoError(t, err)

	assert.Equal(t, int64(60), job.Amount)
	assert.Equal(t, string(PaymentStatusPending), job.PaymentStatus)
	assert.Equal(t, string(JobStatusPending), job.Status)
	assert.NotEmpty(t, job.ID)
}

func TestCreateJob_Validation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		printerName string
		pageCount   int
		copies      int
	}{
		{"empty printer name", "", 10, 1},
		{"whitespace printer name", "   ", 10, 1},
		{"negative page count", "p1", -1, 1},
		{"zero copies", "p1", 10, 0},
		{"negative copies", "p1", 10, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.CreateJob(ctx, "doc.pdf", "/tmp/doc.pdf", tt.printerName, tt.pageCount, tt.copies)
			assert.True(t, IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestCreateJob_ZeroPagesAllowed(t *testing.T) {
	m, _ := newTestManager(t)

	job, err := m.CreateJob(context.Background(), "doc.pdf", "/tmp/doc.pdf", "p1", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), job.Amount)
}

func TestAttachOrder(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	job, err := m.CreateJob(ctx, "doc.pdf", "/tmp/doc.pdf", "p1", 1, 1)
	require.NoError(t, err)

	job, err = m.AttachOrder(ctx, job.ID, "order_1")
	require.NoError(t, err)
	assert.Equal(t, "order_1", job.OrderID)

	_, err = m.AttachOrder(ctx, "no-such-job", "order_2")
	assert.True(t, IsNotFound(err))
}

func TestAttachOrder_RejectedAfterPaid(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	job := createPaidJob(t, m)

	_, err := m.AttachOrder(ctx, job.ID, "order_other")
	assert.True(t, IsInvalidState(err))
}

func TestConfirmPayment_ValidSignature(t *testing.T) {
	m, recorder := newTestManager(t)
	ctx := context.Background()

	job := createOrderedJob(t, m)
	sig := payment.Sign(job.OrderID, "pay_1", testSecret)

	job, err := m.ConfirmPayment(ctx, job.ID, job.OrderID, "pay_1", sig)
	require.NoError(t, err)

	assert.Equal(t, string(PaymentStatusPaid), job.PaymentStatus)
	// Execution status stays pending until an agent reports processing.
	assert.Equal(t, string(JobStatusPending), job.Status)
	assert.Equal(t, 1, recorder.count())
}

func TestConfirmPayment_IdempotentNoDuplicateDispatch(t *testing.T) {
	m, recorder := newTestManager(t)
	ctx := context.Background()

	job := createOrderedJob(t, m)
	sig := payment.Sign(job.OrderID, "pay_1", testSecret)

	first, err := m.ConfirmPayment(ctx, job.ID, job.OrderID, "pay_1", sig)
	require.NoError(t, err)

	second, err := m.ConfirmPayment(ctx, job.ID, job.OrderID, "pay_1", sig)
	require.NoError(t, err)

	assert.Equal(t, first.PaymentStatus, second.PaymentStatus)
	assert.Equal(t, 1, recorder.count(), "replayed confirmation must not re-dispatch")
}

func TestConfirmPayment_TamperedSignatureIsTerminal(t *testing.T) {
	m, recorder := newTestManager(t)
	ctx := context.Background()

	job := createOrderedJob(t, m)

	_, err := m.ConfirmPayment(ctx, job.ID, job.OrderID, "pay_1", "deadbeef")
	assert.ErrorIs(t, err, ErrSignatureMismatch)
	assert.Equal(t, 0, recorder.count(), "failed verification must never dispatch")

	job, err = m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(PaymentStatusFailed), job.PaymentStatus)

	// The failure is irreversible: even a now-valid signature is refused.
	sig := payment.Sign(job.OrderID, "pay_1", testSecret)
	_, err = m.ConfirmPayment(ctx, job.ID, job.OrderID, "pay_1", sig)
	assert.True(t, IsInvalidState(err))
	assert.Equal(t, 0, recorder.count())
}

func TestConfirmPayment_NoOrderAttached(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	job, err := m.CreateJob(ctx, "doc.pdf", "/tmp/doc.pdf", "p1", 1, 1)
	require.NoError(t, err)

	_, err = m.ConfirmPayment(ctx, job.ID, "order_1", "pay_1", "deadbeef")
	assert.True(t, IsInvalidState(err))
}

func TestConfirmPayment_WrongOrderID(t *testing.T) {
	m, recorder := newTestManager(t)
	ctx := context.Background()

	job := createOrderedJob(t, m)
	sig := payment.Sign(job.OrderID, "pay_1", testSecret)

	_, err := m.ConfirmPayment(ctx, job.ID, "order_other", "pay_1", sig)
	assert.True(t, IsValidation(err))
	assert.Equal(t, 0, recorder.count())

	// The mismatch is not terminal; the correct order still confirms.
	job, err = m.ConfirmPayment(ctx, job.ID, job.OrderID, "pay_1", sig)
	require.NoError(t, err)
	assert.Equal(t, string(PaymentStatusPaid), job.PaymentStatus)
}

func TestConfirmPayment_UnknownJob(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.ConfirmPayment(context.Background(), "missing", "order_1", "pay_1", "deadbeef")
	assert.True(t, IsNotFound(err))
}

func TestUpdateExecutionStatus_Lifecycle(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	job := createPaidJob(t, m)

	job, err := m.UpdateExecutionStatus(ctx, job.ID, JobStatusProcessing, "")
	require.NoError(t, err)
	assert.Equal(t, string(JobStatusProcessing), job.Status)

	job, err = m.UpdateExecutionStatus(ctx, job.ID, JobStatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, string(JobStatusCompleted), job.Status)
}

func TestUpdateExecutionStatus_TerminalIsSticky(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	job := createPaidJob(t, m)
	_, err := m.UpdateExecutionStatus(ctx, job.ID, JobStatusFailed, "paper jam")
	require.NoError(t, err)

	// Duplicate terminal report: accepted as a no-op, not an error.
	job, err = m.UpdateExecutionStatus(ctx, job.ID, JobStatusFailed, "paper jam")
	require.NoError(t, err)
	assert.Equal(t, string(JobStatusFailed), job.Status)

	// Backward move: ignored, job stays terminal.
	job, err = m.UpdateExecutionStatus(ctx, job.ID, JobStatusProcessing, "")
	require.NoError(t, err)
	assert.Equal(t, string(JobStatusFailed), job.Status)
}

func TestUpdateExecutionStatus_IgnoredWhileUnpaid(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	// Order attached but payment never confirmed: execution must not
	// leave pending on any report.
	job := createOrderedJob(t, m)

	for _, status := range []JobStatus{JobStatusProcessing, JobStatusCompleted, JobStatusFailed} {
		job, err := m.UpdateExecutionStatus(ctx, job.ID, status, "")
		require.NoError(t, err)
		assert.Equal(t, string(JobStatusPending), job.Status,
			"report %q for an unpaid job must be discarded", status)
	}
}

func TestUpdateExecutionStatus_Validation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	job := createPaidJob(t, m)

	_, err := m.UpdateExecutionStatus(ctx, job.ID, JobStatus("exploded"), "")
	assert.True(t, IsValidation(err))

	_, err = m.UpdateExecutionStatus(ctx, "missing", JobStatusProcessing, "")
	assert.True(t, IsNotFound(err))
}

func TestListJobs_NewestFirst(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.CreateJob(ctx, "doc.pdf", "/tmp/doc.pdf", "p1", 1, 1)
		require.NoError(t, err)
	}

	jobs, err := m.ListJobs(ctx, db.JobFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.False(t, jobs[0].CreatedAt.Before(jobs[1].CreatedAt))
}
