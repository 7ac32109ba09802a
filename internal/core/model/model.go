package model

import (
	"time"
)

// PunchState is the subject's punch state for a single day. Transitions are
// driven only by detected remote or log evidence, never inferred from the
// wall clock alone.
type PunchState string

const (
	StateNotCheckedIn PunchState = "NOT_CHECKED_IN"
	StateWorking      PunchState = "WORKING"
	StateOnBreak      PunchState = "ON_BREAK"
	StateCheckedOut   PunchState = "CHECKED_OUT"
	StateUnknown      PunchState = "UNKNOWN"
)

// ActionKind identifies one of the automatable clock actions.
type ActionKind string

const (
	ActionCheckIn    ActionKind = "checkin"
	ActionBreakStart ActionKind = "break_start"
	ActionBreakEnd   ActionKind = "break_end"
	ActionCheckOut   ActionKind = "checkout"
)

// AllActions in the order they normally occur within a day.
var AllActions = []ActionKind{ActionCheckIn, ActionBreakStart, ActionBreakEnd, ActionCheckOut}

// ScheduleMode selects how an entry's firing time for a day is derived.
type ScheduleMode string

const (
	ModeFixed  ScheduleMode = "fixed"
	ModeRandom ScheduleMode = "random"
)

// ScheduleEntry is one configured automated action. Times are "HH:MM" local.
// ResolvedToday is derived once per calendar day and persisted, so a process
// restart mid-day does not re-randomize it.
type ScheduleEntry struct {
	Action      ActionKind   `json:"action" mapstructure:"action"`
	Mode        ScheduleMode `json:"mode" mapstructure:"mode"`
	FixedTime   string       `json:"fixedTime,omitempty" mapstructure:"fixed_time"`
	WindowStart string       `json:"windowStart,omitempty" mapstructure:"window_start"`
	WindowEnd   string       `json:"windowEnd,omitempty" mapstructure:"window_end"`
	Enabled     bool         `json:"enabled" mapstructure:"enabled"`

	ResolvedToday time.Time `json:"resolvedToday,omitempty" mapstructure:"-"`
}

// PlannedSkip is an action the planner decided not to run, with the reason.
type PlannedSkip struct {
	Action ActionKind `json:"action"`
	Reason string     `json:"reason"`
}

// ActionPlan partitions today's configured actions. It is recomputed on
// every tick and never persisted.
type ActionPlan struct {
	Execute []ActionKind  `json:"execute"`
	Skip    []PlannedSkip `json:"skip"`
	Done    []ActionKind  `json:"done"`
}

// StrategyTier is one strategy in the ordered fallback chain for performing
// a remote write. Lower is faster and preferred.
type StrategyTier int

const (
	TierDirectWrite     StrategyTier = 1
	TierApprovalRequest StrategyTier = 2
	TierPunchEvent      StrategyTier = 3
	TierBrowserForm     StrategyTier = 4
)

var tierNames = map[StrategyTier]string{
	TierDirectWrite:     "direct_write",
	TierApprovalRequest: "approval_request",
	TierPunchEvent:      "punch_event",
	TierBrowserForm:     "browser_form",
}

func (t StrategyTier) String() string {
	if n, ok := tierNames[t]; ok {
		return n
	}
	return "unknown"
}

// AllTiers in preference order.
var AllTiers = []StrategyTier{TierDirectWrite, TierApprovalRequest, TierPunchEvent, TierBrowserForm}

// OperationKind classifies a logical write for strategy caching.
type OperationKind string

const (
	OpClock        OperationKind = "clock"
	OpCorrection   OperationKind = "correction"
	OpLeaveRequest OperationKind = "leave_request"
	OpWithdrawal   OperationKind = "withdrawal"
)

// Operation is a single logical write against the HR backend. Which fields
// are meaningful depends on Kind.
type Operation struct {
	Kind   OperationKind `json:"kind"`
	Action ActionKind    `json:"action,omitempty"`
	Date   string        `json:"date"`           // yyyy-mm-dd
	Time   string        `json:"time,omitempty"` // HH:MM, corrections only
	Reason string        `json:"reason,omitempty"`

	// Leave requests.
	HalfDay   bool   `json:"halfDay,omitempty"`
	LeaveType string `json:"leaveType,omitempty"`

	// Withdrawals.
	RequestID string `json:"requestId,omitempty"`
}

// StrategyCacheEntry remembers, for one calendar month and operation kind,
// which fallback tier last worked and which tiers the backend has
// structurally rejected. Entries never span a month boundary.
type StrategyCacheEntry struct {
	Month           string         `json:"month"` // yyyy-mm
	Kind            OperationKind  `json:"kind"`
	LastWorkingTier StrategyTier   `json:"lastWorkingTier,omitempty"`
	FailingTiers    []StrategyTier `json:"failingTiers,omitempty"`
}

// Failing reports whether tier is marked known-failing for the month.
func (e *StrategyCacheEntry) Failing(tier StrategyTier) bool {
	for _, t := range e.FailingTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// TaskStatus is the lifecycle of an async batch task.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "RUNNING"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
)

// BatchItemResult is the per-item outcome of a batch execution. Batches
// report item by item, never all-or-nothing.
type BatchItemResult struct {
	Index    int          `json:"index"`
	Date     string       `json:"date"`
	Success  bool         `json:"success"`
	TierUsed StrategyTier `json:"tierUsed,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// AsyncTask is the pollable status record for a background batch. Tasks are
// in-memory only: they survive gateway timeouts, not process restarts.
type AsyncTask struct {
	ID         string            `json:"id"`
	Status     TaskStatus        `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
	FinishedAt time.Time         `json:"finishedAt,omitzero"`
	Results    []BatchItemResult `json:"results,omitempty"`
	Error      string            `json:"error,omitempty"`
	Abandoned  bool              `json:"abandoned,omitempty"`
}

// ExecutionOutcome is the terminal outcome of one attempted or suppressed
// action, as recorded in the execution log.
type ExecutionOutcome string

const (
	OutcomeSuccess ExecutionOutcome = "SUCCESS"
	OutcomeSkip    ExecutionOutcome = "SKIP"
	OutcomeFailure ExecutionOutcome = "FAILURE"
)

// ExecutionRecord is one append-only execution log entry. Skip records are
// never deleted; a later successful action on the same date and kind marks
// them superseded instead.
type ExecutionRecord struct {
	ID         int64            `json:"id,omitempty"`
	Date       string           `json:"date"` // yyyy-mm-dd
	Action     ActionKind       `json:"action,omitempty"`
	Kind       OperationKind    `json:"kind,omitempty"`
	Outcome    ExecutionOutcome `json:"outcome"`
	Tier       StrategyTier     `json:"tier,omitempty"`
	Duration   time.Duration    `json:"duration,omitempty"`
	Reason     string           `json:"reason"`
	Superseded bool             `json:"superseded,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// FailureClass buckets a tier failure for cache-poisoning purposes.
type FailureClass int

const (
	// FailureTransient is a network-ish failure that may succeed next time.
	// It never poisons the strategy cache.
	FailureTransient FailureClass = iota
	// FailurePermission is an explicit remote rejection. It marks the tier
	// known-failing for the rest of the month.
	FailurePermission
)

func (c FailureClass) String() string {
	if c == FailurePermission {
		return "permission"
	}
	return "transient"
}

// DateKey formats t as the yyyy-mm-dd key used throughout the settings
// store and the execution log.
func DateKey(t time.Time) string { return t.Format("2006-01-02") }

// MonthKey formats t as the yyyy-mm strategy cache scope.
func MonthKey(t time.Time) string { return t.Format("2006-01") }
