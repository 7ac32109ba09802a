// Package scheduler drives the automation: a recurring tick that resolves
// each entry's firing time once per day, checks the calendar, detects the
// punch state, plans, and pushes planned actions through the fallback
// engine. Manual triggers run the same pipeline out of band.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sky-zhang01/punchpilot-sub001/internal/calendar"
	"github.com/sky-zhang01/punchpilot-sub001/internal/core"
	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
	"github.com/sky-zhang01/punchpilot-sub001/internal/engine"
	"github.com/sky-zhang01/punchpilot-sub001/internal/ports"
)

const scheduleKeyPrefix = "schedule/"

// Scheduler owns the tick loop. One tick (or manual trigger) runs at a
// time; the engine below serializes the browser tier on its own.
type Scheduler struct {
	entries   []model.ScheduleEntry
	countries []string

	settings ports.SettingsStore
	calendar *calendar.Resolver
	detector *core.Detector
	engine   *engine.Engine
	execLog  ports.ExecutionLog
	notifier ports.Notifier

	Interval time.Duration
	now      func() time.Time
	randInt  func(n int64) int64

	mu       sync.Mutex
	current  model.PunchState
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a scheduler over the configured entries and countries.
func New(entries []model.ScheduleEntry, countries []string, settings ports.SettingsStore,
	cal *calendar.Resolver, detector *core.Detector, eng *engine.Engine,
	execLog ports.ExecutionLog, notifier ports.Notifier) *Scheduler {
	return &Scheduler{
		entries:   entries,
		countries: countries,
		settings:  settings,
		calendar:  cal,
		detector:  detector,
		engine:    eng,
		execLog:   execLog,
		notifier:  notifier,
		Interval:  time.Minute,
		now:       time.Now,
		randInt:   rand.Int63n,
		current:   model.StateUnknown,
		stopCh:    make(chan struct{}),
	}
}

// WithClock replaces the scheduler's clock and random source, for tests.
func (s *Scheduler) WithClock(now func() time.Time, randInt func(n int64) int64) *Scheduler {
	s.now = now
	if randInt != nil {
		s.randInt = randInt
	}
	return s
}

// Start launches the tick loop. The first tick runs immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", s.Interval).Msg("Scheduler started")
		s.Tick(ctx)
		for {
			select {
			case <-ticker.C:
				s.Tick(ctx)
			case <-s.stopCh:
				log.Info().Msg("Scheduler stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// CurrentState is the punch state as of the last detection.
func (s *Scheduler) CurrentState() model.PunchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Tick runs one full pipeline pass. A failed action never stops the loop;
// it is logged and waits for the next opportunity.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickLocked(ctx)
}

func (s *Scheduler) tickLocked(ctx context.Context) {
	now := s.now()
	date := model.DateKey(now)

	entries, err := s.resolveForDate(ctx, now)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to resolve today's schedule")
		return
	}

	skip, skipReason := s.calendar.Explain(now, s.countries)
	state, evidence, reason := s.detector.Detect(ctx, date)
	s.current = state
	log.Ctx(ctx).Debug().
		Str("state", string(state)).
		Str("evidence", evidence.Source).
		Str("reason", reason).
		Bool("skip_day", skip).
		Msg("Tick detection")

	plan := core.Plan(state, entries, now, skip, skipReason)

	for _, sk := range plan.Skip {
		s.recordSkipOnce(ctx, date, sk)
	}

	for _, action := range plan.Execute {
		op := model.Operation{
			Kind:   model.OpClock,
			Action: action,
			Date:   date,
			Time:   now.Format("15:04"),
			Reason: "scheduled automation",
		}
		res := s.engine.Execute(ctx, op)
		if res.Success {
			// A success invalidates any skip recorded earlier today for
			// this action, so the log reflects reality.
			if err := s.execLog.MarkSuperseded(ctx, date, action); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("Failed to supersede stale skips")
			}
			s.notify(ctx, fmt.Sprintf("%s succeeded", action),
				fmt.Sprintf("Automated %s on %s completed via %s.", action, date, res.TierUsed))
			// Re-detect so the cached state reflects reality immediately
			// instead of waiting for the next tick. The log append above
			// happens before this read.
			state, _, _ = s.detector.Detect(ctx, date)
			s.current = state
		} else {
			log.Ctx(ctx).Error().Err(res.Err).
				Str("action", string(action)).
				Msg("Scheduled action failed on every tier")
			s.notify(ctx, fmt.Sprintf("%s failed", action),
				fmt.Sprintf("Automated %s on %s failed: %v", action, date, res.Err))
		}
	}
}

// TriggerAction runs one action through the engine immediately, bypassing
// the plan. Used by the operator; an already-resolved time is left alone.
func (s *Scheduler) TriggerAction(ctx context.Context, action model.ActionKind) engine.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	date := model.DateKey(now)
	op := model.Operation{
		Kind:   model.OpClock,
		Action: action,
		Date:   date,
		Time:   now.Format("15:04"),
		Reason: "manual trigger",
	}
	res := s.engine.Execute(ctx, op)
	if res.Success {
		if err := s.execLog.MarkSuperseded(ctx, date, action); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Failed to supersede stale skips")
		}
		state, _, _ := s.detector.Detect(ctx, date)
		s.current = state
	}
	return res
}

// PlanNow computes the current plan without executing anything.
func (s *Scheduler) PlanNow(ctx context.Context) (model.ActionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entries, err := s.resolveForDate(ctx, now)
	if err != nil {
		return model.ActionPlan{}, err
	}
	skip, skipReason := s.calendar.Explain(now, s.countries)
	state, _, _ := s.detector.Detect(ctx, model.DateKey(now))
	s.current = state
	return core.Plan(state, entries, now, skip, skipReason), nil
}

// ResolvedSchedule returns the entries with their resolved times for day.
func (s *Scheduler) ResolvedSchedule(ctx context.Context, day time.Time) ([]model.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveForDate(ctx, day)
}

// resolveForDate derives each enabled entry's firing instant for day,
// persisting first-time draws so a restart (or a second call the same
// day) sees the same instant. Absence of the key is the "not yet resolved
// today" signal.
func (s *Scheduler) resolveForDate(ctx context.Context, day time.Time) ([]model.ScheduleEntry, error) {
	date := model.DateKey(day)
	out := make([]model.ScheduleEntry, len(s.entries))
	copy(out, s.entries)

	for i := range out {
		e := &out[i]
		if !e.Enabled {
			continue
		}
		key := scheduleKeyPrefix + date + "/" + string(e.Action)

		stored, ok, err := s.settings.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("reading resolved time for %s: %w", e.Action, err)
		}
		if ok {
			t, err := time.ParseInLocation(time.RFC3339, stored, day.Location())
			if err == nil {
				e.ResolvedToday = t
				continue
			}
			log.Ctx(ctx).Warn().Str("key", key).Str("value", stored).
				Msg("Discarding unparseable resolved time")
		}

		resolved, err := s.resolveEntry(*e, day)
		if err != nil {
			return nil, err
		}
		e.ResolvedToday = resolved
		if err := s.settings.Set(ctx, key, resolved.Format(time.RFC3339)); err != nil {
			return nil, fmt.Errorf("persisting resolved time for %s: %w", e.Action, err)
		}
		log.Ctx(ctx).Info().
			Str("action", string(e.Action)).
			Time("resolved", resolved).
			Msg("Resolved today's firing time")
	}
	return out, nil
}

func (s *Scheduler) resolveEntry(e model.ScheduleEntry, day time.Time) (time.Time, error) {
	switch e.Mode {
	case model.ModeFixed:
		t, err := core.TimeOn(day, e.FixedTime)
		if err != nil {
			return time.Time{}, fmt.Errorf("entry %s: %w", e.Action, err)
		}
		return t, nil
	case model.ModeRandom:
		start, err := core.TimeOn(day, e.WindowStart)
		if err != nil {
			return time.Time{}, fmt.Errorf("entry %s: %w", e.Action, err)
		}
		end, err := core.TimeOn(day, e.WindowEnd)
		if err != nil {
			return time.Time{}, fmt.Errorf("entry %s: %w", e.Action, err)
		}
		if !end.After(start) {
			return time.Time{}, fmt.Errorf("entry %s: window end %s not after start %s", e.Action, e.WindowEnd, e.WindowStart)
		}
		span := end.Unix() - start.Unix()
		offset := s.randInt(span + 1)
		return start.Add(time.Duration(offset) * time.Second), nil
	default:
		return time.Time{}, fmt.Errorf("entry %s: unknown mode %q", e.Action, e.Mode)
	}
}

// recordSkipOnce appends a skip record unless today's log already holds an
// identical, non-superseded one. Without the dedupe a minute ticker would
// write the same skip sixty times an hour.
func (s *Scheduler) recordSkipOnce(ctx context.Context, date string, sk model.PlannedSkip) {
	// Ephemeral timing skips are not worth a log entry.
	if sk.Reason == core.ReasonWindowNotReached || sk.Reason == core.ReasonDisabled {
		return
	}
	existing, err := s.execLog.QueryByDate(ctx, date)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Failed to read today's log for skip dedupe")
		return
	}
	for _, r := range existing {
		if r.Outcome == model.OutcomeSkip && r.Action == sk.Action && r.Reason == sk.Reason && !r.Superseded {
			return
		}
	}
	rec := model.ExecutionRecord{
		Date:      date,
		Action:    sk.Action,
		Kind:      model.OpClock,
		Outcome:   model.OutcomeSkip,
		Reason:    sk.Reason,
		CreatedAt: s.now(),
	}
	if err := s.execLog.Append(ctx, rec); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Failed to append skip record")
	}
}

func (s *Scheduler) notify(ctx context.Context, subject, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, subject, body); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Outcome notification failed")
	}
}
