package core

import (
	"fmt"
	"time"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
)

// fixedGrace is how long after a fixed-time entry's instant the action may
// still fire before it counts as missed for the day.
const fixedGrace = time.Hour

// Skip reasons the planner emits. The scheduler dedupes skip log entries
// on these strings, so they are stable.
const (
	ReasonHolidayWeekend   = "holiday/weekend"
	ReasonWindowNotReached = "window not yet reached"
	ReasonWindowPassed     = "window passed"
	ReasonDayComplete      = "day complete"
	ReasonNotOnBreak       = "not on break"
	ReasonAlreadyOnBreak   = "already on break"
	ReasonStateUnknown     = "punch state unknown"
	ReasonDisabled         = "entry disabled"
)

// Plan partitions the day's schedule entries into execute-now, skipped and
// already-done, given the detected state and the current instant. It is a
// pure function: identical inputs produce identical plans.
func Plan(state model.PunchState, entries []model.ScheduleEntry, now time.Time, skipDay bool, skipReason string) model.ActionPlan {
	plan := model.ActionPlan{
		Execute: []model.ActionKind{},
		Skip:    []model.PlannedSkip{},
		Done:    []model.ActionKind{},
	}

	if skipDay {
		reason := ReasonHolidayWeekend
		if skipReason != "" {
			reason = fmt.Sprintf("%s: %s", ReasonHolidayWeekend, skipReason)
		}
		for _, e := range entries {
			if e.Enabled {
				plan.Skip = append(plan.Skip, model.PlannedSkip{Action: e.Action, Reason: reason})
			}
		}
		return plan
	}

	for _, e := range entries {
		if !e.Enabled {
			plan.Skip = append(plan.Skip, model.PlannedSkip{Action: e.Action, Reason: ReasonDisabled})
			continue
		}

		switch eligibility(state, e.Action) {
		case eligibleDone:
			plan.Done = append(plan.Done, e.Action)
		case eligibleSkip:
			plan.Skip = append(plan.Skip, model.PlannedSkip{Action: e.Action, Reason: stateSkipReason(state, e.Action)})
		case eligibleExecute:
			switch windowVerdict(e, now) {
			case windowOpen:
				plan.Execute = append(plan.Execute, e.Action)
			case windowEarly:
				plan.Skip = append(plan.Skip, model.PlannedSkip{Action: e.Action, Reason: ReasonWindowNotReached})
			case windowLate:
				// Not retried same-day.
				plan.Skip = append(plan.Skip, model.PlannedSkip{Action: e.Action, Reason: ReasonWindowPassed})
			}
		}
	}
	return plan
}

type actionEligibility int

const (
	eligibleExecute actionEligibility = iota
	eligibleDone
	eligibleSkip
)

// eligibility is the (state, action) table. Multiple break cycles per day
// are supported, so break_start stays executable every time the state is
// back to Working.
func eligibility(state model.PunchState, action model.ActionKind) actionEligibility {
	switch state {
	case model.StateNotCheckedIn:
		if action == model.ActionCheckIn {
			return eligibleExecute
		}
		return eligibleSkip
	case model.StateWorking:
		switch action {
		case model.ActionCheckIn:
			return eligibleDone
		case model.ActionBreakStart, model.ActionCheckOut:
			return eligibleExecute
		default: // break_end
			return eligibleSkip
		}
	case model.StateOnBreak:
		switch action {
		case model.ActionBreakEnd:
			return eligibleExecute
		case model.ActionCheckIn:
			return eligibleDone
		default:
			return eligibleSkip
		}
	default: // CheckedOut, Unknown
		return eligibleSkip
	}
}

func stateSkipReason(state model.PunchState, action model.ActionKind) string {
	switch state {
	case model.StateNotCheckedIn:
		return "prerequisite not met: not checked in"
	case model.StateWorking:
		return ReasonNotOnBreak
	case model.StateOnBreak:
		if action == model.ActionBreakStart {
			return ReasonAlreadyOnBreak
		}
		return "prerequisite not met: on break"
	case model.StateCheckedOut:
		return ReasonDayComplete
	default:
		return ReasonStateUnknown
	}
}

type windowState int

const (
	windowOpen windowState = iota
	windowEarly
	windowLate
)

// windowVerdict places now relative to the entry's firing window. Fixed
// entries get a grace period after their instant; random entries close at
// their configured window end.
func windowVerdict(e model.ScheduleEntry, now time.Time) windowState {
	resolved := e.ResolvedToday
	if resolved.IsZero() {
		// Not yet resolved for today: nothing to fire.
		return windowEarly
	}
	if now.Before(resolved) {
		return windowEarly
	}

	end := resolved.Add(fixedGrace)
	if e.Mode == model.ModeRandom && e.WindowEnd != "" {
		if t, err := TimeOn(resolved, e.WindowEnd); err == nil && t.After(resolved) {
			end = t
		}
	}
	if now.After(end) {
		return windowLate
	}
	return windowOpen
}

// TimeOn combines day's date with an "HH:MM" clock time in day's location.
func TimeOn(day time.Time, hhmm string) (time.Time, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad clock time %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}
