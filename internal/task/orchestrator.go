// Package task wraps long-running batch executions in pollable background
// tasks, so HTTP callers get an ID back immediately instead of holding a
// connection open past a gateway timeout. Tasks live in memory only: the
// goal is surviving slow batches, not process crashes.
package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
)

// retention is how long a terminal task stays queryable before the
// janitor collects it.
const retention = 30 * time.Minute

// Work is one batch execution. It must honor ctx cancellation between
// items and report per-item results.
type Work func(ctx context.Context) []model.BatchItemResult

type taskHandle struct {
	task   model.AsyncTask
	cancel context.CancelFunc
}

// Orchestrator runs Work in the background and tracks task records.
type Orchestrator struct {
	mu    sync.RWMutex
	tasks map[string]*taskHandle
	now   func() time.Time

	janitorStop chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// New starts an orchestrator, including its retention janitor.
func New() *Orchestrator {
	o := &Orchestrator{
		tasks:       map[string]*taskHandle{},
		now:         time.Now,
		janitorStop: make(chan struct{}),
	}
	o.wg.Add(1)
	go o.janitor()
	return o
}

// WithClock replaces the orchestrator's clock, for tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Submit starts work in the background and returns its task ID without
// waiting. The background context is detached from the caller's request.
func (o *Orchestrator) Submit(work Work) string {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	o.mu.Lock()
	o.tasks[id] = &taskHandle{
		task:   model.AsyncTask{ID: id, Status: model.TaskRunning, CreatedAt: o.now()},
		cancel: cancel,
	}
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()

		results := work(ctx)

		o.mu.Lock()
		defer o.mu.Unlock()
		h, ok := o.tasks[id]
		if !ok {
			return
		}
		h.task.Results = results
		h.task.FinishedAt = o.now()
		failed := 0
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
		if failed == len(results) && len(results) > 0 {
			h.task.Status = model.TaskFailed
			h.task.Error = results[len(results)-1].Error
		} else {
			// Partial failures still complete; the per-item results carry
			// the detail.
			h.task.Status = model.TaskCompleted
		}
		log.Info().Str("task_id", id).
			Int("items", len(results)).
			Int("failed", failed).
			Str("status", string(h.task.Status)).
			Msg("Batch task finished")
	}()

	return id
}

// Status returns a copy of the task record, or false if the ID is unknown
// or already collected.
func (o *Orchestrator) Status(id string) (model.AsyncTask, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	h, ok := o.tasks[id]
	if !ok {
		return model.AsyncTask{}, false
	}
	out := h.task
	out.Results = append([]model.BatchItemResult(nil), h.task.Results...)
	return out, true
}

// Abandon marks a running task abandoned and cancels its context. The
// cancellation is cooperative: an in-flight browser action still runs to
// its own timeout.
func (o *Orchestrator) Abandon(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.tasks[id]
	if !ok || h.task.Status != model.TaskRunning {
		return false
	}
	h.task.Abandoned = true
	h.cancel()
	return true
}

// Stop cancels every running task and waits for the goroutines.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.janitorStop) })
	o.mu.Lock()
	for _, h := range o.tasks {
		h.cancel()
	}
	o.mu.Unlock()
	o.wg.Wait()
}

func (o *Orchestrator) janitor() {
	defer o.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			o.collect()
		case <-o.janitorStop:
			return
		}
	}
}

// collect drops terminal tasks past the retention window.
func (o *Orchestrator) collect() {
	cutoff := o.now().Add(-retention)
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, h := range o.tasks {
		if h.task.Status == model.TaskRunning {
			continue
		}
		if h.task.FinishedAt.Before(cutoff) {
			delete(o.tasks, id)
		}
	}
}
