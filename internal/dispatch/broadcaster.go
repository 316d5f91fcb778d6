package dispatch

import (
	"log"

	"github.com/printbridge/printbridge/internal/db"
)

// Broadcaster fans newly paid jobs out to every connected agent. It is a
// broadcast, not a directed send: the coordinator does not know which
// connection belongs to which printer, and a job announced while zero
// agents are connected is simply not delivered (the job stays paid and
// pending until an agent eventually picks up a later announcement — a
// documented limitation, not an error).
type Broadcaster struct {
	registry *Registry
}

func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

func (b *Broadcaster) Registry() *Registry {
	return b.registry
}

// Dispatch announces a paid job to all connected agents. Write failures
// drop the message for that connection only; there is no retry, no queue
// and no acknowledgment.
func (b *Broadcaster) Dispatch(job *db.PrintJob) {
	payload := NewPrintJobData{
		JobID:       job.ID,
		PrinterName: job.PrinterName,
		ArtifactRef: "/api/jobs/" + job.ID + "/file",
		FileName:    job.FileName,
		Copies:      job.Copies,
		PageCount:   job.PageCount,
	}

	data, err := EncodeFrame(EventNewPrintJob, payload)
	if err != nil {
		log.Printf("[dispatch] failed to encode job %s: %v", job.ID, err)
		return
	}

	conns := b.registry.Snapshot()
	if len(conns) == 0 {
		log.Printf("[dispatch] job %s broadcast with no agents connected", job.ID)
		return
	}

	for _, conn := range conns {
		if err := conn.Send(data); err != nil {
			log.Printf("[dispatch] dropped job %s for one connection: %v", job.ID, err)
		}
	}
}
