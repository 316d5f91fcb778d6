// Package agent implements the worker process attached to a physical
// printer. It holds a persistent dispatch connection to the coordinator,
// filters broadcast jobs by its printer name and executes the matching
// ones against the local spooler.
package agent

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/printbridge/printbridge/internal/backoff"
	"github.com/printbridge/printbridge/internal/core"
	"github.com/printbridge/printbridge/internal/dispatch"
)

type Config struct {
	PrinterName    string
	CoordinatorURL string
	SpoolDir       string
	FetchTimeout   time.Duration
	PrintTimeout   time.Duration
	ReconnectMin   time.Duration
	ReconnectMax   time.Duration
}

type Agent struct {
	cfg     Config
	runner  *Runner
	retries backoff.Strategy
}

func New(cfg Config, printer Printer) *Agent {
	return &Agent{
		cfg: cfg,
		runner: NewRunner(RunnerConfig{
			PrinterName:    cfg.PrinterName,
			CoordinatorURL: cfg.CoordinatorURL,
			SpoolDir:       cfg.SpoolDir,
			FetchTimeout:   cfg.FetchTimeout,
			PrintTimeout:   cfg.PrintTimeout,
		}, printer),
		retries: backoff.NewExponentialWithJitter(cfg.ReconnectMin, cfg.ReconnectMax),
	}
}

// Run connects and serves jobs until ctx is cancelled, reconnecting
// indefinitely with backoff. Jobs broadcast while disconnected are
// missed; there is no catch-up queue.
func (a *Agent) Run(ctx context.Context) error {
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := a.connect(ctx)
		if err != nil {
			attempt++
			delay := a.retries.Delay(attempt)
			log.Printf("[agent] connect failed (attempt %d): %v, retrying in %v", attempt, err, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		attempt = 0
		log.Printf("[agent] connected as printer %q", a.cfg.PrinterName)

		a.serve(ctx, conn)
		conn.close()

		if err := ctx.Err(); err != nil {
			return err
		}
		log.Printf("[agent] connection lost, reconnecting")
	}
}

// connect dials the dispatch channel and re-announces identity, so the
// coordinator's registry shows this printer online again.
func (a *Agent) connect(ctx context.Context) (*wsClient, error) {
	raw, _, _, err := ws.Dial(ctx, dispatchURL(a.cfg.CoordinatorURL))
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	conn := &wsClient{conn: raw}

	hostname, _ := os.Hostname()
	data, err := dispatch.EncodeFrame(dispatch.EventPrinterRegistered, dispatch.PrinterRegisteredData{
		PrinterName: a.cfg.PrinterName,
		Platform:    runtime.GOOS,
		Hostname:    hostname,
	})
	if err != nil {
		conn.close()
		return nil, err
	}
	if err := conn.write(data); err != nil {
		conn.close()
		return nil, fmt.Errorf("send registration: %w", err)
	}

	return conn, nil
}

// serve reads frames until the connection breaks. Each matching job runs
// in its own goroutine; the runner serializes the spooler internally.
func (a *Agent) serve(ctx context.Context, conn *wsClient) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		data, err := conn.read()
		if err != nil {
			return
		}

		frame, err := dispatch.DecodeFrame(data)
		if err != nil {
			log.Printf("[agent] bad frame: %v", err)
			continue
		}

		if frame.Event != dispatch.EventNewPrintJob {
			continue
		}

		var job dispatch.NewPrintJobData
		if err := frame.Decode(&job); err != nil {
			log.Printf("[agent] bad job announcement: %v", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			a.runner.HandleJob(ctx, job, conn)
		}()
	}
}

// dispatchURL maps the coordinator's HTTP base URL onto its dispatch
// channel endpoint.
func dispatchURL(coordinatorURL string) string {
	u := strings.TrimSuffix(coordinatorURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// wsClient serializes writes to the dispatch connection; reads stay on
// the serve loop's single goroutine.
type wsClient struct {
	mu   sync.Mutex
	conn net.Conn
}

func (c *wsClient) read() ([]byte, error) {
	return wsutil.ReadServerText(c.conn)
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wsutil.WriteClientText(c.conn, data)
}

func (c *wsClient) close() {
	c.conn.Close()
}

// ReportStatus implements Reporter over the live connection.
func (c *wsClient) ReportStatus(jobID string, status core.JobStatus, errMsg string) error {
	data, err := dispatch.EncodeFrame(dispatch.EventJobStatusUpdate, dispatch.JobStatusUpdateData{
		JobID:  jobID,
		Status: string(status),
		Error:  errMsg,
	})
	if err != nil {
		return err
	}
	return c.write(data)
}
