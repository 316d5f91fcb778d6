package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func seedJob(t *testing.T, store *JobStore, id string) {
	t.Helper()
	err := store.CreateJob(context.Background(), &PrintJob{
		ID:            id,
		FileName:      "doc.pdf",
		ArtifactPath:  "/tmp/doc.pdf",
		PrinterName:   "p1",
		PageCount:     2,
		Copies:        1,
		Amount:        4,
		PaymentStatus: "pending",
		Status:        "pending",
	})
	require.NoError(t, err)
}

func TestJobStore_CreateAndGet(t *testing.T) {
	store := NewJobStore(openTestDB(t))
	seedJob(t, store, "job-1")

	job, err := store.GetJobByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "p1", job.PrinterName)
	assert.Equal(t, int64(4), job.Amount)
	assert.False(t, job.CreatedAt.IsZero())

	_, err = store.GetJobByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestJobStore_MarkJobPaid_ExactlyOnce(t *testing.T) {
	store := NewJobStore(openTestDB(t))
	seedJob(t, store, "job-1")
	ctx := context.Background()

	first, err := store.MarkJobPaid(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.MarkJobPaid(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, second, "pending->paid must only succeed once")
}

func TestJobStore_MarkPaymentFailed_OnlyFromPending(t *testing.T) {
	store := NewJobStore(openTestDB(t))
	seedJob(t, store, "job-1")
	ctx := context.Background()

	_, err := store.MarkJobPaid(ctx, "job-1")
	require.NoError(t, err)

	failed, err := store.MarkPaymentFailed(ctx, "job-1", "bad signature")
	require.NoError(t, err)
	assert.False(t, failed, "a paid job cannot move to payment-failed")
}

func TestJobStore_UpdateJobStatus_RequiresPaid(t *testing.T) {
	store := NewJobStore(openTestDB(t))
	seedJob(t, store, "job-1")
	ctx := context.Background()

	updated, err := store.UpdateJobStatus(ctx, "job-1", "processing", "")
	require.NoError(t, err)
	assert.False(t, updated, "an unpaid job must not leave pending")

	_, err = store.MarkJobPaid(ctx, "job-1")
	require.NoError(t, err)

	updated, err = store.UpdateJobStatus(ctx, "job-1", "processing", "")
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestJobStore_UpdateJobStatus_TerminalGuard(t *testing.T) {
	store := NewJobStore(openTestDB(t))
	seedJob(t, store, "job-1")
	ctx := context.Background()

	_, err := store.MarkJobPaid(ctx, "job-1")
	require.NoError(t, err)

	updated, err := store.UpdateJobStatus(ctx, "job-1", "completed", "")
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = store.UpdateJobStatus(ctx, "job-1", "processing", "")
	require.NoError(t, err)
	assert.False(t, updated, "terminal jobs must not move backward")
}

func TestJobStore_AttachOrderID_PendingOnly(t *testing.T) {
	store := NewJobStore(openTestDB(t))
	seedJob(t, store, "job-1")
	ctx := context.Background()

	attached, err := store.AttachOrderID(ctx, "job-1", "order_1")
	require.NoError(t, err)
	assert.True(t, attached)

	_, err = store.MarkJobPaid(ctx, "job-1")
	require.NoError(t, err)

	attached, err = store.AttachOrderID(ctx, "job-1", "order_2")
	require.NoError(t, err)
	assert.False(t, attached)

	job, err := store.GetJobByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "order_1", job.OrderID)
}

func TestJobStore_ListAndCount(t *testing.T) {
	store := NewJobStore(openTestDB(t))
	ctx := context.Background()

	seedJob(t, store, "job-1")
	seedJob(t, store, "job-2")
	_, err := store.MarkJobPaid(ctx, "job-2")
	require.NoError(t, err)
	updated, err := store.UpdateJobStatus(ctx, "job-2", "failed", "jam")
	require.NoError(t, err)
	require.True(t, updated)

	failed, err := store.ListJobs(ctx, JobFilter{Status: "failed"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "job-2", failed[0].ID)
	assert.Equal(t, "jam", failed[0].ErrorMessage)

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["pending"])
	assert.Equal(t, 1, counts["failed"])
}

func TestPrinterStore_UpsertAndList(t *testing.T) {
	store := NewPrinterStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.UpsertPrinter(ctx, "office-laser", "linux", "host-a"))
	require.NoError(t, store.UpsertPrinter(ctx, "office-laser", "darwin", "host-b"))

	printers, err := store.ListPrinters(ctx)
	require.NoError(t, err)
	require.Len(t, printers, 1, "re-registration must not duplicate the printer")
	assert.Equal(t, "darwin", printers[0].Platform)
	assert.Equal(t, "online", printers[0].Status)
	assert.NotNil(t, printers[0].LastSeenAt)

	require.NoError(t, store.IncrementPrintCount(ctx, "office-laser", 3))
	require.NoError(t, store.MarkOffline(ctx, "office-laser"))

	printers, err = store.ListPrinters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), printers[0].TotalPrints)
	assert.Equal(t, "offline", printers[0].Status)
}

func TestSettingsStore_RoundTrip(t *testing.T) {
	store := NewSettingsStore(openTestDB(t))
	ctx := context.Background()

	_, err := store.GetSetting(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, store.SetSetting(ctx, "k", "v1"))
	require.NoError(t, store.SetSetting(ctx, "k", "v2"))

	setting, err := store.GetSetting(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", setting.Value)
}
