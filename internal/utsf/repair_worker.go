package utsf

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/pinggolf/freight-quote-core/internal/queue"
)

// RepairAllJobMessage requests a repair-all run across every vendor in
// the directory. One coordinator in the fleet picks this up and fans the
// work out across every running RepairWorker.
type RepairAllJobMessage struct {
	RunID    string   `json:"runId"`
	EditorID string   `json:"editorId"`
	VendorID string   `json:"vendorId,omitempty"`
}

// RepairVendorJobMessage is one unit of work within a repair-all run.
type RepairVendorJobMessage struct {
	RunID    string `json:"runId"`
	VendorID string `json:"vendorId"`
	EditorID string `json:"editorId"`
}

// RepairVendorCompleteMessage is published by a worker once it finishes
// (or fails) one vendor's repair.
type RepairVendorCompleteMessage struct {
	RunID    string `json:"runId"`
	VendorID string `json:"vendorId"`
	Error    string `json:"error,omitempty"`
}

// RepairCoordinator accepts repair-all requests, fans per-vendor jobs out
// over NATS, and waits for every worker to report back. Grounded on the
// coordinator/batch/completion-channel pattern workers use for bulk
// operations, adapted to one job per vendor instead of one job per batch
// of production orders.
type RepairCoordinator struct {
	nats    *queue.Manager
	manager *Manager

	jobsMux sync.RWMutex
	jobs    map[string]context.CancelFunc
}

// NewRepairCoordinator builds a coordinator over manager, publishing and
// subscribing through nats.
func NewRepairCoordinator(nats *queue.Manager, manager *Manager) *RepairCoordinator {
	return &RepairCoordinator{
		nats:    nats,
		manager: manager,
		jobs:    make(map[string]context.CancelFunc),
	}
}

// Start subscribes the coordinator to repair-all requests and to the
// per-run cancellation broadcast.
func (c *RepairCoordinator) Start() error {
	_, err := c.nats.QueueSubscribe(queue.SubjectRepairRequest, queue.QueueGroupRepairCoordinator, c.handleRequest)
	if err != nil {
		return fmt.Errorf("utsf: subscribe repair requests: %w", err)
	}

	_, err = c.nats.Subscribe("utsf.repair.cancel.*", c.handleCancel)
	if err != nil {
		return fmt.Errorf("utsf: subscribe repair cancellations: %w", err)
	}

	log.Println("repair coordinator listening for repair-all requests")
	return nil
}

func (c *RepairCoordinator) handleRequest(msg *nats.Msg) {
	var req RepairAllJobMessage
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Printf("repair coordinator: bad request payload: %v", err)
		return
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.registerRun(req.RunID, cancel)
	defer c.unregisterRun(req.RunID)

	if err := c.runAll(ctx, req); err != nil {
		log.Printf("repair run %s failed: %v", req.RunID, err)
	}
}

func (c *RepairCoordinator) runAll(ctx context.Context, req RepairAllJobMessage) error {
	vendorIDs := c.manager.VendorIDsOnDisk()
	if req.VendorID != "" {
		vendorIDs = []string{req.VendorID}
	}
	if len(vendorIDs) == 0 {
		return nil
	}

	completionSubject := queue.GetRepairCompleteSubject(req.RunID)
	completions := make(chan *RepairVendorCompleteMessage, len(vendorIDs))

	sub, err := c.nats.Subscribe(completionSubject, func(msg *nats.Msg) {
		var complete RepairVendorCompleteMessage
		if err := json.Unmarshal(msg.Data, &complete); err != nil {
			log.Printf("repair run %s: bad completion payload: %v", req.RunID, err)
			return
		}
		completions <- &complete
	})
	if err != nil {
		return fmt.Errorf("subscribe completions: %w", err)
	}
	defer sub.Unsubscribe()

	jobSubject := queue.GetRepairJobSubject(req.RunID)
	for _, vendorID := range vendorIDs {
		job := RepairVendorJobMessage{RunID: req.RunID, VendorID: vendorID, EditorID: req.EditorID}
		data, _ := json.Marshal(job)
		if err := c.nats.Publish(jobSubject, data); err != nil {
			log.Printf("repair run %s: failed to publish job for %s: %v", req.RunID, vendorID, err)
		}
	}

	timeout := time.After(30 * time.Minute)
	completed, failed := 0, 0

	for completed+failed < len(vendorIDs) {
		select {
		case c := <-completions:
			if c.Error != "" {
				failed++
				log.Printf("repair run %s: %s failed: %s", req.RunID, c.VendorID, c.Error)
			} else {
				completed++
			}
		case <-timeout:
			return fmt.Errorf("timeout waiting for %d of %d vendor repairs", len(vendorIDs)-completed-failed, len(vendorIDs))
		case <-ctx.Done():
			return fmt.Errorf("repair run %s cancelled", req.RunID)
		}
	}

	log.Printf("repair run %s complete: %d succeeded, %d failed", req.RunID, completed, failed)
	return nil
}

func (c *RepairCoordinator) registerRun(runID string, cancel context.CancelFunc) {
	c.jobsMux.Lock()
	defer c.jobsMux.Unlock()
	c.jobs[runID] = cancel
}

func (c *RepairCoordinator) unregisterRun(runID string) {
	c.jobsMux.Lock()
	defer c.jobsMux.Unlock()
	delete(c.jobs, runID)
}

// Cancel cancels an in-flight repair-all run on this coordinator
// instance, if it owns one by that run id.
func (c *RepairCoordinator) Cancel(runID string) {
	c.jobsMux.RLock()
	cancel, ok := c.jobs[runID]
	c.jobsMux.RUnlock()
	if ok {
		cancel()
	}
}

// handleCancel is the NATS handler backing Cancel for cancellations
// published from another process (e.g. utsfctl) rather than called
// in-process.
func (c *RepairCoordinator) handleCancel(msg *nats.Msg) {
	const prefix = "utsf.repair.cancel."
	if len(msg.Subject) <= len(prefix) {
		return
	}
	runID := msg.Subject[len(prefix):]
	c.Cancel(runID)
}

// RepairWorker is the queue-group side of the fan-out: one instance runs
// in every process that wants to share repair-all load.
type RepairWorker struct {
	nats    *queue.Manager
	manager *Manager
}

// NewRepairWorker builds a worker over manager.
func NewRepairWorker(nats *queue.Manager, manager *Manager) *RepairWorker {
	return &RepairWorker{nats: nats, manager: manager}
}

// Start subscribes the worker to the per-vendor job wildcard.
func (w *RepairWorker) Start() error {
	_, err := w.nats.QueueSubscribe(queue.SubjectRepairJob, queue.QueueGroupRepairWorkers, w.handleJob)
	if err != nil {
		return fmt.Errorf("utsf: subscribe repair jobs: %w", err)
	}
	log.Println("repair worker listening for per-vendor repair jobs")
	return nil
}

func (w *RepairWorker) handleJob(msg *nats.Msg) {
	var job RepairVendorJobMessage
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		log.Printf("repair worker: bad job payload: %v", err)
		return
	}

	complete := RepairVendorCompleteMessage{RunID: job.RunID, VendorID: job.VendorID}
	if _, err := w.manager.Repair(job.VendorID, job.EditorID); err != nil {
		complete.Error = err.Error()
	}

	data, _ := json.Marshal(complete)
	subject := queue.GetRepairCompleteSubject(job.RunID)
	if err := w.nats.Publish(subject, data); err != nil {
		log.Printf("repair worker: failed to publish completion for %s: %v", job.VendorID, err)
	}
}
