// Package queue wraps the NATS connection used for the UTSF repair-all
// fan-out and for broadcasting catalog/UTSF reloads across processes.
package queue

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Manager handles the NATS connection and messaging.
type Manager struct {
	conn *nats.Conn
	url  string
}

// NewManager connects to NATS with the reconnect policy the rest of the
// fleet expects.
func NewManager(natsURL string) (*Manager, error) {
	options := []nats.Option{
		nats.Name("Freight Quote Core"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Println("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(natsURL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Printf("Connected to NATS at %s", natsURL)

	return &Manager{conn: conn, url: natsURL}, nil
}

// Close closes the NATS connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

// Conn returns the underlying NATS connection.
func (m *Manager) Conn() *nats.Conn {
	return m.conn
}

// Publish publishes a message to a subject.
func (m *Manager) Publish(subject string, data []byte) error {
	return m.conn.Publish(subject, data)
}

// Subscribe subscribes to a subject with a handler.
func (m *Manager) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return m.conn.Subscribe(subject, handler)
}

// QueueSubscribe creates a load-balanced queue subscriber.
func (m *Manager) QueueSubscribe(subject, queueGroup string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return m.conn.QueueSubscribe(subject, queueGroup, handler)
}

// NATS subject patterns for the UTSF control plane.
const (
	// SubjectRepairRequest is where a repair-all request is published
	// for the coordinator to pick up. utsfctl's repair-all command does
	// not publish here; it repairs files in-process.
	SubjectRepairRequest = "utsf.repair.request"

	// SubjectRepairJob is the wildcard subject workers queue-subscribe
	// to for per-vendor repair jobs within one repair-all run.
	SubjectRepairJob = "utsf.repair.job.>"

	// SubjectRepairComplete is the per-run subject workers publish
	// completions to; %s is the repair-all run's job id.
	SubjectRepairComplete = "utsf.repair.complete.%s"

	// SubjectRepairCancel is a broadcast subject (not a queue group) so
	// every coordinator sees the cancellation, and the one that owns the
	// run cancels it. Workers do not subscribe to it.
	SubjectRepairCancel = "utsf.repair.cancel.%s"

	// SubjectUTSFReload and SubjectMPCReload broadcast that the UTSF
	// directory or the Master Pincode Catalog changed on disk, so every
	// process serving queries should reload its Service (spec.md 4.3).
	SubjectUTSFReload = "utsf.reload"
	SubjectMPCReload  = "mpc.reload"

	// QueueGroupRepairCoordinator ensures exactly one process in the
	// fleet accepts a given repair-all request.
	QueueGroupRepairCoordinator = "utsf-repair-coordinator"

	// QueueGroupRepairWorkers load-balances per-vendor repair jobs
	// across every running worker.
	QueueGroupRepairWorkers = "utsf-repair-workers"
)

// GetRepairJobSubject returns the subject one repair-all run publishes
// its per-vendor jobs to.
func GetRepairJobSubject(runID string) string {
	return fmt.Sprintf("utsf.repair.job.%s", runID)
}

// GetRepairCompleteSubject returns the subject workers report per-vendor
// completions to for one repair-all run.
func GetRepairCompleteSubject(runID string) string {
	return fmt.Sprintf(SubjectRepairComplete, runID)
}

// GetRepairCancelSubject returns the cancellation broadcast subject for
// one repair-all run.
func GetRepairCancelSubject(runID string) string {
	return fmt.Sprintf(SubjectRepairCancel, runID)
}
