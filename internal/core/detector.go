// Package core holds the read side of the automation: state detection and
// action planning. Both are free of side effects; the scheduler and engine
// own all writes.
package core

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
	"github.com/sky-zhang01/punchpilot-sub001/internal/ports"
	"github.com/sky-zhang01/punchpilot-sub001/internal/remote"
)

// ClockEventSource is the slice of the HR client the detector reads.
type ClockEventSource interface {
	GetClockEvents(ctx context.Context, date string) ([]remote.ClockEvent, error)
}

// Evidence describes what a detection verdict was based on.
type Evidence struct {
	Source string `json:"source"` // "remote", "log" or "none"
	Events int    `json:"events"`
}

var errStillUnknown = errors.New("punch state still unknown")

// Detector determines the subject's punch state for a day. Remote evidence
// wins; the local execution log is the fallback when the backend is
// unreachable or empty-handed. An Unknown verdict is retried a bounded
// number of times before it is accepted, so a transient API hiccup is not
// mistaken for "no evidence of activity".
type Detector struct {
	remote  ClockEventSource
	execLog ports.ExecutionLog

	// MaxTries bounds the Unknown retries, including the first attempt.
	MaxTries uint
	// RetryInterval seeds the backoff between retries.
	RetryInterval time.Duration
}

func NewDetector(remote ClockEventSource, execLog ports.ExecutionLog) *Detector {
	return &Detector{
		remote:        remote,
		execLog:       execLog,
		MaxTries:      3,
		RetryInterval: 2 * time.Second,
	}
}

type detection struct {
	state    model.PunchState
	evidence Evidence
	reason   string
}

// Detect returns the punch state for date with the evidence it rests on.
// Read-only: callers persist nothing from this call directly.
func (d *Detector) Detect(ctx context.Context, date string) (model.PunchState, Evidence, string) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.RetryInterval

	result, err := backoff.Retry(ctx, func() (detection, error) {
		det := d.detectOnce(ctx, date)
		if det.state == model.StateUnknown {
			return det, errStillUnknown
		}
		return det, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(d.MaxTries))

	if err != nil {
		// Surfaced as Unknown rather than guessed.
		log.Ctx(ctx).Warn().Str("date", date).
			Msg("Punch state still unknown after retries")
		return model.StateUnknown, Evidence{Source: "none"}, "state unknown after retries"
	}
	return result.state, result.evidence, result.reason
}

func (d *Detector) detectOnce(ctx context.Context, date string) detection {
	events, remoteErr := d.remote.GetClockEvents(ctx, date)
	if remoteErr == nil {
		if len(events) == 0 {
			return detection{
				state:    model.StateNotCheckedIn,
				evidence: Evidence{Source: "remote"},
				reason:   "no punches recorded",
			}
		}
		if state, ok := stateFromEvents(events); ok {
			return detection{
				state:    state,
				evidence: Evidence{Source: "remote", Events: len(events)},
				reason:   "derived from remote punches",
			}
		}
		// Ambiguous punch sequence: fall through to the log.
		log.Ctx(ctx).Debug().Str("date", date).Int("events", len(events)).
			Msg("Remote punch sequence ambiguous, consulting execution log")
	}

	recs, logErr := d.execLog.QueryByDate(ctx, date)
	if logErr != nil {
		return detection{state: model.StateUnknown}
	}
	if state, n, ok := stateFromLog(recs); ok {
		return detection{
			state:    state,
			evidence: Evidence{Source: "log", Events: n},
			reason:   "derived from local execution log",
		}
	}

	if remoteErr != nil {
		// Neither source has evidence and the backend is unreachable.
		return detection{state: model.StateUnknown}
	}
	if len(events) > 0 {
		// The backend did report activity; an unparseable sequence must
		// not be mistaken for an untouched day.
		return detection{state: model.StateUnknown}
	}
	return detection{
		state:    model.StateNotCheckedIn,
		evidence: Evidence{Source: "none"},
		reason:   "no evidence of activity",
	}
}

// stateFromEvents replays the day's punches. Break cycles are tracked as
// pairs: the verdict follows the most recent open break, not a fixed slot.
func stateFromEvents(events []remote.ClockEvent) (model.PunchState, bool) {
	sorted := make([]remote.ClockEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	state := model.StateNotCheckedIn
	for _, ev := range sorted {
		switch ev.Kind {
		case model.ActionCheckIn:
			if state != model.StateNotCheckedIn {
				return model.StateUnknown, false
			}
			state = model.StateWorking
		case model.ActionBreakStart:
			if state != model.StateWorking {
				return model.StateUnknown, false
			}
			state = model.StateOnBreak
		case model.ActionBreakEnd:
			if state != model.StateOnBreak {
				return model.StateUnknown, false
			}
			state = model.StateWorking
		case model.ActionCheckOut:
			if state != model.StateWorking {
				return model.StateUnknown, false
			}
			state = model.StateCheckedOut
		default:
			return model.StateUnknown, false
		}
	}
	return state, true
}

// stateFromLog maps the day's last successful clock action to the state it
// implies.
func stateFromLog(recs []model.ExecutionRecord) (model.PunchState, int, bool) {
	var last model.ActionKind
	n := 0
	for _, r := range recs {
		if r.Outcome == model.OutcomeSuccess && r.Action != "" {
			last = r.Action
			n++
		}
	}
	if n == 0 {
		return model.StateUnknown, 0, false
	}
	switch last {
	case model.ActionCheckIn, model.ActionBreakEnd:
		return model.StateWorking, n, true
	case model.ActionBreakStart:
		return model.StateOnBreak, n, true
	case model.ActionCheckOut:
		return model.StateCheckedOut, n, true
	}
	return model.StateUnknown, n, false
}
