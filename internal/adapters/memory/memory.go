// Package memory provides in-process implementations of the settings store
// and execution log ports. They back the test suites and let the daemon
// run without a database for throwaway setups.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
)

// SettingsStore is a map-backed ports.SettingsStore.
type SettingsStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{data: map[string]string{}}
}

func (s *SettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *SettingsStore) List(ctx context.Context, prefix string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]string{}
	for k, v := range s.data {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}

// ExecutionLog is a slice-backed ports.ExecutionLog.
type ExecutionLog struct {
	mu   sync.RWMutex
	recs []model.ExecutionRecord
	next int64
}

func NewExecutionLog() *ExecutionLog {
	return &ExecutionLog{}
}

func (l *ExecutionLog) Append(ctx context.Context, rec model.ExecutionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	rec.ID = l.next
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	l.recs = append(l.recs, rec)
	return nil
}

func (l *ExecutionLog) QueryByDate(ctx context.Context, date string) ([]model.ExecutionRecord, error) {
	return l.QueryRange(ctx, date, date)
}

func (l *ExecutionLog) QueryRange(ctx context.Context, from, to string) ([]model.ExecutionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.ExecutionRecord
	for _, r := range l.recs {
		if r.Date >= from && r.Date <= to {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *ExecutionLog) MarkSuperseded(ctx context.Context, date string, action model.ActionKind) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.recs {
		if l.recs[i].Date == date && l.recs[i].Action == action && l.recs[i].Outcome == model.OutcomeSkip {
			l.recs[i].Superseded = true
		}
	}
	return nil
}
