package agent

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/printbridge/printbridge/internal/core"
	"github.com/printbridge/printbridge/internal/dispatch"
)

// Reporter pushes one job-status-update frame back to the coordinator.
type Reporter interface {
	ReportStatus(jobID string, status core.JobStatus, errMsg string) error
}

type RunnerConfig struct {
	PrinterName    string
	CoordinatorURL string
	SpoolDir       string
	FetchTimeout   time.Duration
	PrintTimeout   time.Duration
}

// Runner executes dispatched jobs on this agent. Jobs run independently,
// but the print capability is a single shared spooler, so invocations of
// it are serialized.
type Runner struct {
	cfg     RunnerConfig
	printer Printer
	client  *http.Client

	// printMu serializes access to the spooler across concurrent jobs.
	printMu sync.Mutex
}

func NewRunner(cfg RunnerConfig, printer Printer) *Runner {
	return &Runner{
		cfg:     cfg,
		printer: printer,
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
	}
}

// HandleJob runs the per-job state machine: filter, announce, fetch,
// print per copy, report terminal status. A job targeting a different
// printer is ignored without any report.
func (r *Runner) HandleJob(ctx context.Context, job dispatch.NewPrintJobData, reporter Reporter) {
	if job.PrinterName != r.cfg.PrinterName {
		return
	}

	log.Printf("[agent] job %s: %q x%d (%d pages)", job.JobID, job.FileName, job.Copies, job.PageCount)

	// Announce before any blocking work so the coordinator sees the job
	// picked up even if fetch or print later hangs.
	r.report(reporter, job.JobID, core.JobStatusProcessing, "")

	path, err := r.fetch(ctx, job)
	if err != nil {
		log.Printf("[agent] job %s: fetch failed: %v", job.JobID, err)
		r.report(reporter, job.JobID, core.JobStatusFailed, fmt.Sprintf("fetch failed: %v", err))
		return
	}
	defer os.Remove(path)

	copies := job.Copies
	if copies < 1 {
		copies = 1
	}

	for i := 1; i <= copies; i++ {
		if err := r.printOnce(ctx, path); err != nil {
			log.Printf("[agent] job %s: copy %d/%d failed: %v", job.JobID, i, copies, err)
			r.report(reporter, job.JobID, core.JobStatusFailed, fmt.Sprintf("copy %d of %d failed: %v", i, copies, err))
			return
		}
	}

	log.Printf("[agent] job %s: %d copies printed", job.JobID, copies)
	r.report(reporter, job.JobID, core.JobStatusCompleted, "")
}

func (r *Runner) fetch(ctx context.Context, job dispatch.NewPrintJobData) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, r.cfg.CoordinatorURL+job.ArtifactRef, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download artifact: http %d", resp.StatusCode)
	}

	if err := os.MkdirAll(r.cfg.SpoolDir, 0o755); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}

	name := job.FileName
	if name == "" {
		name = "document.pdf"
	}
	path := filepath.Join(r.cfg.SpoolDir, uuid.NewString()+"_"+filepath.Base(name))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create spool file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write spool file: %w", err)
	}

	return path, nil
}

func (r *Runner) printOnce(ctx context.Context, path string) error {
	r.printMu.Lock()
	defer r.printMu.Unlock()

	printCtx, cancel := context.WithTimeout(ctx, r.cfg.PrintTimeout)
	defer cancel()

	return r.printer.Print(printCtx, path)
}

func (r *Runner) report(reporter Reporter, jobID string, status core.JobStatus, errMsg string) {
	if err := reporter.ReportStatus(jobID, status, errMsg); err != nil {
		log.Printf("[agent] job %s: failed to report %s: %v", jobID, status, err)
	}
}
