package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core"
	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
)

func entry(action model.ActionKind, resolved time.Time) model.ScheduleEntry {
	return model.ScheduleEntry{
		Action:        action,
		Mode:          model.ModeFixed,
		Enabled:       true,
		ResolvedToday: resolved,
	}
}

func randomEntry(action model.ActionKind, resolved time.Time, windowEnd string) model.ScheduleEntry {
	return model.ScheduleEntry{
		Action:        action,
		Mode:          model.ModeRandom,
		WindowEnd:     windowEnd,
		Enabled:       true,
		ResolvedToday: resolved,
	}
}

func skipReasons(plan model.ActionPlan) map[model.ActionKind]string {
	out := map[model.ActionKind]string{}
	for _, s := range plan.Skip {
		out[s.Action] = s.Reason
	}
	return out
}

func TestNotCheckedInAtFixedTimeExecutesCheckin(t *testing.T) {
	now := at("09:00")
	entries := []model.ScheduleEntry{
		entry(model.ActionCheckIn, at("09:00")),
		entry(model.ActionCheckOut, at("18:00")),
	}

	plan := core.Plan(model.StateNotCheckedIn, entries, now, false, "")
	assert.Equal(t, []model.ActionKind{model.ActionCheckIn}, plan.Execute)
	assert.Equal(t, "prerequisite not met: not checked in", skipReasons(plan)[model.ActionCheckOut])
}

func TestWorkingInBreakWindow(t *testing.T) {
	now := at("12:05")
	entries := []model.ScheduleEntry{
		entry(model.ActionCheckIn, at("09:00")),
		randomEntry(model.ActionBreakStart, at("12:00"), "12:30"),
		entry(model.ActionBreakEnd, at("13:00")),
		entry(model.ActionCheckOut, at("18:00")),
	}

	plan := core.Plan(model.StateWorking, entries, now, false, "")
	assert.Equal(t, []model.ActionKind{model.ActionBreakStart}, plan.Execute)
	assert.Contains(t, plan.Done, model.ActionCheckIn)
	reasons := skipReasons(plan)
	assert.Equal(t, core.ReasonNotOnBreak, reasons[model.ActionBreakEnd])
	assert.Equal(t, core.ReasonWindowNotReached, reasons[model.ActionCheckOut])
}

func TestOnBreakOnlyBreakEndExecutes(t *testing.T) {
	now := at("13:01")
	entries := []model.ScheduleEntry{
		entry(model.ActionCheckIn, at("09:00")),
		entry(model.ActionBreakStart, at("12:00")),
		entry(model.ActionBreakEnd, at("13:00")),
		entry(model.ActionCheckOut, at("18:00")),
	}

	plan := core.Plan(model.StateOnBreak, entries, now, false, "")
	assert.Equal(t, []model.ActionKind{model.ActionBreakEnd}, plan.Execute)
	reasons := skipReasons(plan)
	assert.Equal(t, core.ReasonAlreadyOnBreak, reasons[model.ActionBreakStart])
	assert.Equal(t, "prerequisite not met: on break", reasons[model.ActionCheckOut])
}

func TestCheckedOutEverythingIsDayComplete(t *testing.T) {
	now := at("18:30")
	entries := []model.ScheduleEntry{
		entry(model.ActionCheckIn, at("09:00")),
		entry(model.ActionCheckOut, at("18:00")),
	}

	plan := core.Plan(model.StateCheckedOut, entries, now, false, "")
	assert.Empty(t, plan.Execute)
	for _, r := range skipReasons(plan) {
		assert.Equal(t, core.ReasonDayComplete, r)
	}
}

func TestUnknownStateSuppressesEverything(t *testing.T) {
	plan := core.Plan(model.StateUnknown, []model.ScheduleEntry{
		entry(model.ActionCheckIn, at("09:00")),
	}, at("09:00"), false, "")
	assert.Empty(t, plan.Execute)
	assert.Equal(t, core.ReasonStateUnknown, skipReasons(plan)[model.ActionCheckIn])
}

func TestWindowPassedIsNotRetried(t *testing.T) {
	// Fixed entry at 09:00, grace one hour: 10:30 is too late.
	plan := core.Plan(model.StateNotCheckedIn, []model.ScheduleEntry{
		entry(model.ActionCheckIn, at("09:00")),
	}, at("10:30"), false, "")
	assert.Empty(t, plan.Execute)
	assert.Equal(t, core.ReasonWindowPassed, skipReasons(plan)[model.ActionCheckIn])
}

func TestRandomWindowClosesAtWindowEnd(t *testing.T) {
	e := randomEntry(model.ActionCheckIn, at("08:45"), "09:00")

	open := core.Plan(model.StateNotCheckedIn, []model.ScheduleEntry{e}, at("08:50"), false, "")
	assert.Equal(t, []model.ActionKind{model.ActionCheckIn}, open.Execute)

	// The window end itself is still inside the window.
	edge := core.Plan(model.StateNotCheckedIn, []model.ScheduleEntry{e}, at("09:00"), false, "")
	assert.Equal(t, []model.ActionKind{model.ActionCheckIn}, edge.Execute)

	// One minute past the configured end the window is shut; the fixed-time
	// grace does not stretch random windows.
	late := core.Plan(model.StateNotCheckedIn, []model.ScheduleEntry{e}, at("09:01"), false, "")
	assert.Equal(t, core.ReasonWindowPassed, skipReasons(late)[model.ActionCheckIn])
}

func TestSkipDayShortCircuits(t *testing.T) {
	entries := []model.ScheduleEntry{
		entry(model.ActionCheckIn, at("09:00")),
		entry(model.ActionCheckOut, at("18:00")),
	}

	plan := core.Plan(model.StateNotCheckedIn, entries, at("09:00"), true, "CN holiday: National Day")
	assert.Empty(t, plan.Execute)
	assert.Empty(t, plan.Done)
	require.Len(t, plan.Skip, 2)
	for _, s := range plan.Skip {
		assert.Contains(t, s.Reason, core.ReasonHolidayWeekend)
		assert.Contains(t, s.Reason, "National Day")
	}
}

func TestDisabledEntriesAreSkipped(t *testing.T) {
	e := entry(model.ActionBreakStart, at("12:00"))
	e.Enabled = false

	plan := core.Plan(model.StateWorking, []model.ScheduleEntry{e}, at("12:00"), false, "")
	assert.Empty(t, plan.Execute)
	assert.Equal(t, core.ReasonDisabled, skipReasons(plan)[model.ActionBreakStart])
}

func TestPlanIsDeterministic(t *testing.T) {
	entries := []model.ScheduleEntry{
		entry(model.ActionCheckIn, at("09:00")),
		randomEntry(model.ActionBreakStart, at("12:10"), "12:30"),
		entry(model.ActionCheckOut, at("18:00")),
	}
	now := at("12:15")

	first := core.Plan(model.StateWorking, entries, now, false, "")
	second := core.Plan(model.StateWorking, entries, now, false, "")
	assert.Equal(t, first, second)
}
