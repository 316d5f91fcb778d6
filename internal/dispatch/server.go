package dispatch

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"

	"github.com/printbridge/printbridge/internal/core"
	"github.com/printbridge/printbridge/internal/db"
)

// StatusReporter is the status sink the server feeds agent reports into.
type StatusReporter interface {
	UpdateExecutionStatus(ctx context.Context, jobID string, status core.JobStatus, errMsg string) (*db.PrintJob, error)
}

// Server accepts agent connections, registers them for broadcast and
// forwards inbound frames: identity announcements go to the printer
// registry, status reports go to the status sink.
type Server struct {
	registry *Registry
	sink     StatusReporter
	printers *db.PrinterStore

	// ownersMu guards owners: printer name -> connection id of the most
	// recent registration. A dying connection only marks its printer
	// offline while it still owns the name, so a reconnect that lands
	// before the old connection's teardown is not flipped back offline.
	ownersMu sync.Mutex
	owners   map[string]string
}

func NewServer(registry *Registry, sink StatusReporter, printers *db.PrinterStore) *Server {
	return &Server{
		registry: registry,
		sink:     sink,
		printers: printers,
		owners:   make(map[string]string),
	}
}

// HandleConnection upgrades the request to a WebSocket and runs the read
// loop until the agent disconnects. The connection is eligible for
// broadcasts from the moment it is registered; an agent that wants
// targeted work still receives everything and filters locally.
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("[dispatch] upgrade failed: %v", err)
		return
	}

	connID := uuid.NewString()
	s.registry.Add(connID, &wsSender{conn: conn})
	log.Printf("[dispatch] agent connected (%s), %d total", connID, s.registry.Count())

	s.readLoop(connID, conn)
}

func (s *Server) readLoop(connID string, conn net.Conn) {
	printerName := ""

	defer func() {
		s.registry.Remove(connID)
		conn.Close()
		if printerName != "" {
			s.releasePrinter(connID, printerName)
		}
		log.Printf("[dispatch] agent disconnected (%s), %d remaining", connID, s.registry.Count())
	}()

	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			log.Printf("[dispatch] bad frame from %s: %v", connID, err)
			continue
		}

		switch frame.Event {
		case EventPrinterRegistered:
			var reg PrinterRegisteredData
			if err := frame.Decode(&reg); err != nil {
				log.Printf("[dispatch] bad registration from %s: %v", connID, err)
				continue
			}
			if reg.PrinterName == "" {
				log.Printf("[dispatch] registration without printer name from %s", connID)
				continue
			}
			printerName = reg.PrinterName
			s.registerPrinter(connID, reg)
			log.Printf("[dispatch] printer %q registered (%s on %s)", reg.PrinterName, reg.Platform, reg.Hostname)

		case EventJobStatusUpdate:
			var update JobStatusUpdateData
			if err := frame.Decode(&update); err != nil {
				log.Printf("[dispatch] bad status update from %s: %v", connID, err)
				continue
			}
			s.handleStatusUpdate(update)

		default:
			log.Printf("[dispatch] unknown event %q from %s", frame.Event, connID)
		}
	}
}

// registerPrinter records the connection as the current owner of the
// printer name and marks the printer online.
func (s *Server) registerPrinter(connID string, reg PrinterRegisteredData) {
	s.ownersMu.Lock()
	s.owners[reg.PrinterName] = connID
	s.ownersMu.Unlock()

	if err := s.printers.UpsertPrinter(context.Background(), reg.PrinterName, reg.Platform, reg.Hostname); err != nil {
		log.Printf("[dispatch] failed to record printer %s: %v", reg.PrinterName, err)
	}
}

// releasePrinter marks the printer offline unless another connection has
// registered the name since, in which case the newer registration wins
// and the printer stays online.
func (s *Server) releasePrinter(connID, printerName string) {
	s.ownersMu.Lock()
	owner := s.owners[printerName]
	if owner == connID {
		delete(s.owners, printerName)
	}
	s.ownersMu.Unlock()

	if owner != connID {
		log.Printf("[dispatch] printer %q re-registered on a newer connection, skipping offline mark", printerName)
		return
	}

	if err := s.printers.MarkOffline(context.Background(), printerName); err != nil {
		log.Printf("[dispatch] failed to mark %s offline: %v", printerName, err)
	}
}

// handleStatusUpdate forwards one report into the state machine. Reports
// for unknown or deleted jobs are logged and discarded; the agent is
// never told its report failed.
func (s *Server) handleStatusUpdate(update JobStatusUpdateData) {
	_, err := s.sink.UpdateExecutionStatus(context.Background(), update.JobID, core.JobStatus(update.Status), update.Error)
	if err != nil {
		if core.IsNotFound(err) {
			log.Printf("[dispatch] discarding status report for unknown job %s", update.JobID)
			return
		}
		log.Printf("[dispatch] status report for job %s rejected: %v", update.JobID, err)
	}
}

// wsSender serializes writes to one WebSocket connection.
type wsSender struct {
	mu   sync.Mutex
	conn net.Conn
}

func (s *wsSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wsutil.WriteServerText(s.conn, data)
}
