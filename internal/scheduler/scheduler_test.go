package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sky-zhang01/punchpilot-sub001/internal/adapters/memory"
	"github.com/sky-zhang01/punchpilot-sub001/internal/calendar"
	"github.com/sky-zhang01/punchpilot-sub001/internal/core"
	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
	"github.com/sky-zhang01/punchpilot-sub001/internal/engine"
	"github.com/sky-zhang01/punchpilot-sub001/internal/remote"
	"github.com/sky-zhang01/punchpilot-sub001/internal/scheduler"
	"github.com/sky-zhang01/punchpilot-sub001/internal/strategy"
)

// fakeHR accepts every tier-1 write and serves the punches it received.
type fakeHR struct {
	events []remote.ClockEvent
	writes []model.Operation
	now    func() time.Time
}

func (f *fakeHR) GetClockEvents(ctx context.Context, date string) ([]remote.ClockEvent, error) {
	return f.events, nil
}

func (f *fakeHR) DirectWrite(ctx context.Context, op model.Operation) error {
	f.writes = append(f.writes, op)
	if op.Kind == model.OpClock {
		f.events = append(f.events, remote.ClockEvent{Kind: op.Action, At: f.now()})
	}
	return nil
}
func (f *fakeHR) SubmitApproval(ctx context.Context, op model.Operation) error { return nil }
func (f *fakeHR) PunchEvent(ctx context.Context, op model.Operation) error     { return nil }
func (f *fakeHR) Withdraw(ctx context.Context, op model.Operation) error       { return nil }

type noBrowser struct{}

func (noBrowser) Do(ctx context.Context, op model.Operation) error { return nil }

type fixture struct {
	sched    *scheduler.Scheduler
	settings *memory.SettingsStore
	execLog  *memory.ExecutionLog
	hr       *fakeHR
	now      time.Time
}

// newFixture wires a scheduler around a working Friday morning.
func newFixture(t *testing.T, entries []model.ScheduleEntry, clock string) *fixture {
	t.Helper()
	now, err := time.Parse("2006-01-02 15:04", "2026-08-28 "+clock)
	require.NoError(t, err)

	settings := memory.NewSettingsStore()
	execLog := memory.NewExecutionLog()
	f := &fixture{settings: settings, execLog: execLog, now: now}
	f.hr = &fakeHR{now: func() time.Time { return f.now }}

	detector := core.NewDetector(f.hr, execLog)
	detector.RetryInterval = time.Millisecond
	eng := engine.New(f.hr, noBrowser{}, strategy.NewCache(settings), execLog, remote.DefaultClassifier).
		WithClock(func() time.Time { return f.now })

	f.sched = scheduler.New(entries, []string{"CN"}, settings,
		calendar.NewResolver(nil), detector, eng, execLog, nil).
		WithClock(func() time.Time { return f.now }, func(n int64) int64 { return n / 2 })
	return f
}

func checkinFixed(at string) model.ScheduleEntry {
	return model.ScheduleEntry{Action: model.ActionCheckIn, Mode: model.ModeFixed, FixedTime: at, Enabled: true}
}

func checkinRandom(start, end string) model.ScheduleEntry {
	return model.ScheduleEntry{Action: model.ActionCheckIn, Mode: model.ModeRandom, WindowStart: start, WindowEnd: end, Enabled: true}
}

func TestFixedTimeIsCopied(t *testing.T) {
	f := newFixture(t, []model.ScheduleEntry{checkinFixed("09:00")}, "08:00")

	entries, err := f.sched.ResolvedSchedule(context.Background(), f.now)
	require.NoError(t, err)
	assert.Equal(t, "09:00", entries[0].ResolvedToday.Format("15:04"))
}

func TestRandomDrawIsStableWithinDay(t *testing.T) {
	f := newFixture(t, []model.ScheduleEntry{checkinRandom("08:40", "09:20")}, "08:00")
	ctx := context.Background()

	first, err := f.sched.ResolvedSchedule(ctx, f.now)
	require.NoError(t, err)
	second, err := f.sched.ResolvedSchedule(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, first[0].ResolvedToday, second[0].ResolvedToday)

	// The draw landed inside the window.
	resolved := first[0].ResolvedToday
	assert.False(t, resolved.Before(mustClock(t, f.now, "08:40")))
	assert.False(t, resolved.After(mustClock(t, f.now, "09:20")))
}

func TestRandomDrawSurvivesRestart(t *testing.T) {
	f := newFixture(t, []model.ScheduleEntry{checkinRandom("08:40", "09:20")}, "08:00")
	ctx := context.Background()

	first, err := f.sched.ResolvedSchedule(ctx, f.now)
	require.NoError(t, err)

	// A new scheduler over the same settings store stands in for a
	// process restart mid-day. Its random source is different on purpose.
	hr2 := &fakeHR{now: func() time.Time { return f.now }}
	execLog2 := memory.NewExecutionLog()
	detector := core.NewDetector(hr2, execLog2)
	detector.RetryInterval = time.Millisecond
	eng := engine.New(hr2, noBrowser{}, strategy.NewCache(f.settings), execLog2, remote.DefaultClassifier)
	sched2 := scheduler.New([]model.ScheduleEntry{checkinRandom("08:40", "09:20")}, []string{"CN"},
		f.settings, calendar.NewResolver(nil), detector, eng, execLog2, nil).
		WithClock(func() time.Time { return f.now }, func(n int64) int64 { return 1 })

	second, err := sched2.ResolvedSchedule(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, first[0].ResolvedToday, second[0].ResolvedToday)
}

func TestTickExecutesDueAction(t *testing.T) {
	f := newFixture(t, []model.ScheduleEntry{checkinFixed("09:00")}, "09:00")

	f.sched.Tick(context.Background())

	require.Len(t, f.hr.writes, 1)
	assert.Equal(t, model.ActionCheckIn, f.hr.writes[0].Action)
	// Post-action re-detection saw the new punch.
	assert.Equal(t, model.StateWorking, f.sched.CurrentState())
}

func TestTickBeforeWindowDoesNothing(t *testing.T) {
	f := newFixture(t, []model.ScheduleEntry{checkinFixed("09:00")}, "08:00")

	f.sched.Tick(context.Background())
	assert.Empty(t, f.hr.writes)
	assert.Equal(t, model.StateNotCheckedIn, f.sched.CurrentState())
}

func TestSkipIsRecordedOncePerDay(t *testing.T) {
	f := newFixture(t, []model.ScheduleEntry{checkinFixed("09:00")}, "10:30")
	ctx := context.Background()

	f.sched.Tick(ctx)
	f.sched.Tick(ctx)

	recs, err := f.execLog.QueryByDate(ctx, "2026-08-28")
	require.NoError(t, err)
	skips := 0
	for _, r := range recs {
		if r.Outcome == model.OutcomeSkip {
			skips++
			assert.Equal(t, core.ReasonWindowPassed, r.Reason)
		}
	}
	assert.Equal(t, 1, skips)
}

func TestManualTriggerSupersedesSkip(t *testing.T) {
	f := newFixture(t, []model.ScheduleEntry{checkinFixed("09:00")}, "10:30")
	ctx := context.Background()

	// The morning window passed, a skip was recorded.
	f.sched.Tick(ctx)

	// The operator clocks in manually later.
	res := f.sched.TriggerAction(ctx, model.ActionCheckIn)
	require.True(t, res.Success)
	assert.Equal(t, model.StateWorking, f.sched.CurrentState())

	recs, err := f.execLog.QueryByDate(ctx, "2026-08-28")
	require.NoError(t, err)
	var sawSupersededSkip, sawSuccess bool
	for _, r := range recs {
		if r.Outcome == model.OutcomeSkip && r.Action == model.ActionCheckIn {
			assert.True(t, r.Superseded, "stale skip must be flagged, not deleted")
			sawSupersededSkip = true
		}
		if r.Outcome == model.OutcomeSuccess {
			sawSuccess = true
		}
	}
	assert.True(t, sawSupersededSkip)
	assert.True(t, sawSuccess)
}

func TestManualTriggerDoesNotReRandomize(t *testing.T) {
	f := newFixture(t, []model.ScheduleEntry{checkinRandom("08:40", "09:20")}, "08:50")
	ctx := context.Background()

	before, err := f.sched.ResolvedSchedule(ctx, f.now)
	require.NoError(t, err)

	f.sched.TriggerAction(ctx, model.ActionCheckIn)

	after, err := f.sched.ResolvedSchedule(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, before[0].ResolvedToday, after[0].ResolvedToday)
}

func TestHolidayTickSkipsEverything(t *testing.T) {
	f := newFixture(t, []model.ScheduleEntry{checkinFixed("09:00")}, "09:00")
	// 2026-08-29 is a Saturday.
	f.now = f.now.Add(24 * time.Hour)

	f.sched.Tick(context.Background())
	assert.Empty(t, f.hr.writes)

	recs, err := f.execLog.QueryByDate(context.Background(), "2026-08-29")
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Contains(t, recs[0].Reason, core.ReasonHolidayWeekend)
}

func mustClock(t *testing.T, day time.Time, hhmm string) time.Time {
	t.Helper()
	out, err := core.TimeOn(day, hhmm)
	require.NoError(t, err)
	return out
}
