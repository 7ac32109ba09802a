package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sky-zhang01/punchpilot-sub001/internal/adapters/memory"
	"github.com/sky-zhang01/punchpilot-sub001/internal/core"
	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
	"github.com/sky-zhang01/punchpilot-sub001/internal/remote"
)

type fakeEvents struct {
	events []remote.ClockEvent
	err    error
	calls  int
}

func (f *fakeEvents) GetClockEvents(ctx context.Context, date string) ([]remote.ClockEvent, error) {
	f.calls++
	return f.events, f.err
}

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2026-08-28 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func newDetector(src *fakeEvents, execLog *memory.ExecutionLog) *core.Detector {
	d := core.NewDetector(src, execLog)
	d.RetryInterval = time.Millisecond
	return d
}

func TestDetectFromRemoteEvents(t *testing.T) {
	cases := []struct {
		name   string
		events []remote.ClockEvent
		want   model.PunchState
	}{
		{"checked in", []remote.ClockEvent{
			{Kind: model.ActionCheckIn, At: at("09:00")},
		}, model.StateWorking},
		{"on break", []remote.ClockEvent{
			{Kind: model.ActionCheckIn, At: at("09:00")},
			{Kind: model.ActionBreakStart, At: at("12:00")},
		}, model.StateOnBreak},
		{"second break cycle", []remote.ClockEvent{
			{Kind: model.ActionCheckIn, At: at("09:00")},
			{Kind: model.ActionBreakStart, At: at("12:00")},
			{Kind: model.ActionBreakEnd, At: at("13:00")},
			{Kind: model.ActionBreakStart, At: at("15:00")},
		}, model.StateOnBreak},
		{"checked out", []remote.ClockEvent{
			{Kind: model.ActionCheckIn, At: at("09:00")},
			{Kind: model.ActionBreakStart, At: at("12:00")},
			{Kind: model.ActionBreakEnd, At: at("13:00")},
			{Kind: model.ActionCheckOut, At: at("18:00")},
		}, model.StateCheckedOut},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newDetector(&fakeEvents{events: tc.events}, memory.NewExecutionLog())
			state, ev, _ := d.Detect(context.Background(), "2026-08-28")
			assert.Equal(t, tc.want, state)
			assert.Equal(t, "remote", ev.Source)
		})
	}
}

func TestUnorderedEventsAreSortedFirst(t *testing.T) {
	d := newDetector(&fakeEvents{events: []remote.ClockEvent{
		{Kind: model.ActionCheckOut, At: at("18:00")},
		{Kind: model.ActionCheckIn, At: at("09:00")},
	}}, memory.NewExecutionLog())

	state, _, _ := d.Detect(context.Background(), "2026-08-28")
	assert.Equal(t, model.StateCheckedOut, state)
}

func TestEmptyRemoteMeansNotCheckedIn(t *testing.T) {
	d := newDetector(&fakeEvents{}, memory.NewExecutionLog())
	state, _, reason := d.Detect(context.Background(), "2026-08-28")
	assert.Equal(t, model.StateNotCheckedIn, state)
	assert.Equal(t, "no punches recorded", reason)
}

func TestFallsBackToExecutionLog(t *testing.T) {
	execLog := memory.NewExecutionLog()
	require.NoError(t, execLog.Append(context.Background(), model.ExecutionRecord{
		Date: "2026-08-28", Action: model.ActionCheckIn, Outcome: model.OutcomeSuccess,
	}))
	require.NoError(t, execLog.Append(context.Background(), model.ExecutionRecord{
		Date: "2026-08-28", Action: model.ActionBreakStart, Outcome: model.OutcomeSuccess,
	}))

	d := newDetector(&fakeEvents{err: errors.New("HR API down")}, execLog)
	state, ev, _ := d.Detect(context.Background(), "2026-08-28")
	assert.Equal(t, model.StateOnBreak, state)
	assert.Equal(t, "log", ev.Source)
}

func TestSkipRecordsAreNotEvidence(t *testing.T) {
	execLog := memory.NewExecutionLog()
	require.NoError(t, execLog.Append(context.Background(), model.ExecutionRecord{
		Date: "2026-08-28", Action: model.ActionCheckIn, Outcome: model.OutcomeSkip,
		Reason: "window not yet reached",
	}))

	src := &fakeEvents{err: errors.New("HR API down")}
	d := newDetector(src, execLog)
	state, _, _ := d.Detect(context.Background(), "2026-08-28")
	assert.Equal(t, model.StateUnknown, state)
}

func TestUnknownIsRetriedThenSurfaced(t *testing.T) {
	src := &fakeEvents{err: errors.New("HR API down")}
	d := newDetector(src, memory.NewExecutionLog())

	state, ev, reason := d.Detect(context.Background(), "2026-08-28")
	assert.Equal(t, model.StateUnknown, state, "must be surfaced, not defaulted to NotCheckedIn")
	assert.Equal(t, "none", ev.Source)
	assert.Contains(t, reason, "unknown")
	assert.Equal(t, 3, src.calls, "three bounded attempts")
}

type flakyEvents struct {
	failures int
	calls    int
	events   []remote.ClockEvent
}

func (f *flakyEvents) GetClockEvents(ctx context.Context, date string) ([]remote.ClockEvent, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("gateway timeout")
	}
	return f.events, nil
}

func TestTransientHiccupRecoversWithinRetries(t *testing.T) {
	src := &flakyEvents{
		failures: 2,
		events:   []remote.ClockEvent{{Kind: model.ActionCheckIn, At: at("09:00")}},
	}
	d := core.NewDetector(src, memory.NewExecutionLog())
	d.RetryInterval = time.Millisecond

	state, ev, _ := d.Detect(context.Background(), "2026-08-28")
	assert.Equal(t, model.StateWorking, state)
	assert.Equal(t, "remote", ev.Source)
	assert.Equal(t, 3, src.calls)
}

func TestAmbiguousSequenceWithEmptyLogStaysUnknown(t *testing.T) {
	// A lone break_start cannot be replayed into a state. The backend did
	// report activity, so this must not degrade to NotCheckedIn.
	src := &fakeEvents{events: []remote.ClockEvent{
		{Kind: model.ActionBreakStart, At: at("12:00")},
	}}
	d := newDetector(src, memory.NewExecutionLog())

	state, _, _ := d.Detect(context.Background(), "2026-08-28")
	assert.Equal(t, model.StateUnknown, state)
}

func TestAmbiguousSequenceDefersToLogEvidence(t *testing.T) {
	src := &fakeEvents{events: []remote.ClockEvent{
		{Kind: model.ActionBreakStart, At: at("12:00")},
	}}
	execLog := memory.NewExecutionLog()
	require.NoError(t, execLog.Append(context.Background(), model.ExecutionRecord{
		Date:    "2026-08-28",
		Action:  model.ActionCheckIn,
		Outcome: model.OutcomeSuccess,
	}))
	d := newDetector(src, execLog)

	state, ev, _ := d.Detect(context.Background(), "2026-08-28")
	assert.Equal(t, model.StateWorking, state)
	assert.Equal(t, "log", ev.Source)
}
