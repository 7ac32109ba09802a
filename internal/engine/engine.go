// Package engine orchestrates the ordered fallback chain for a single
// logical write: direct record write, approval request, punch event, and
// finally the browser form. It short-circuits on the first tier that
// works and remembers what it learned in the strategy cache.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
	"github.com/sky-zhang01/punchpilot-sub001/internal/ports"
	"github.com/sky-zhang01/punchpilot-sub001/internal/strategy"
)

// ErrExhausted means every candidate tier failed. The caller must be able
// to report "nothing worked", so it is never swallowed.
var ErrExhausted = errors.New("all fallback tiers exhausted")

// RemoteAPI is the slice of the HR client the engine drives for tiers 1-3.
type RemoteAPI interface {
	DirectWrite(ctx context.Context, op model.Operation) error
	SubmitApproval(ctx context.Context, op model.Operation) error
	PunchEvent(ctx context.Context, op model.Operation) error
	Withdraw(ctx context.Context, op model.Operation) error
}

// BrowserTier is tier 4. The implementation serializes sessions itself.
type BrowserTier interface {
	Do(ctx context.Context, op model.Operation) error
}

// Attempt is one tier try within an Execute call, kept for the trail.
type Attempt struct {
	Tier     model.StrategyTier `json:"tier"`
	Err      string             `json:"error,omitempty"`
	Class    model.FailureClass `json:"-"`
	Duration time.Duration      `json:"duration"`
}

// Result is the outcome of one Execute call.
type Result struct {
	Success  bool
	TierUsed model.StrategyTier
	Attempts []Attempt
	Err      error
}

// Engine runs the fallback chain.
type Engine struct {
	remote   RemoteAPI
	browser  BrowserTier
	cache    *strategy.Cache
	execLog  ports.ExecutionLog
	classify func(error) model.FailureClass
	now      func() time.Time
}

// New wires an engine. classify maps a tier error to the failure taxonomy;
// it is pluggable because the transient/permission boundary is a property
// of the backend's error contract.
func New(remote RemoteAPI, browser BrowserTier, cache *strategy.Cache, execLog ports.ExecutionLog, classify func(error) model.FailureClass) *Engine {
	return &Engine{
		remote:   remote,
		browser:  browser,
		cache:    cache,
		execLog:  execLog,
		classify: classify,
		now:      time.Now,
	}
}

// WithClock replaces the engine's clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Execute performs op through the fallback chain. On success the cache
// records the working tier and the execution log gets a success entry with
// tier and duration; on exhaustion the log gets a failure entry carrying
// the full attempt trail.
func (e *Engine) Execute(ctx context.Context, op model.Operation) Result {
	tracer := otel.Tracer("fallback-engine")
	ctx, span := tracer.Start(ctx, "execute_operation", trace.WithAttributes(
		attribute.String("app.operation_kind", string(op.Kind)),
		attribute.String("app.date", op.Date),
	))
	defer span.End()

	month := model.MonthKey(e.now())
	if err := e.cache.ResetIfNewMonth(ctx, month); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Strategy cache month reset failed, continuing")
	}

	entry, err := e.cache.Get(ctx, month, op.Kind)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Strategy cache read failed, trying tiers in order")
		entry = nil
	}

	candidates := candidateTiers(op, entry)
	if len(candidates) == 0 {
		res := Result{Err: fmt.Errorf("%w: every tier is structurally excluded or known-failing for %s", ErrExhausted, month)}
		e.logFailure(ctx, op, res)
		return res
	}

	var attempts []Attempt
	var lastErr error
	for _, tier := range candidates {
		start := e.now()
		err := e.attempt(ctx, tier, op)
		elapsed := e.now().Sub(start)

		if err == nil {
			if cerr := e.cache.RecordSuccess(ctx, month, op.Kind, tier); cerr != nil {
				log.Ctx(ctx).Warn().Err(cerr).Msg("Failed to record tier success")
			}
			res := Result{Success: true, TierUsed: tier, Attempts: attempts}
			e.logSuccess(ctx, op, tier, elapsed)
			log.Ctx(ctx).Info().
				Str("kind", string(op.Kind)).
				Str("date", op.Date).
				Stringer("tier", tier).
				Dur("elapsed", elapsed).
				Msg("Operation succeeded")
			return res
		}

		class := e.classify(err)
		attempts = append(attempts, Attempt{Tier: tier, Err: err.Error(), Class: class, Duration: elapsed})
		lastErr = err

		if class == model.FailurePermission {
			// Stable for the month: do not pay for this tier again.
			if cerr := e.cache.RecordPermanentFailure(ctx, month, op.Kind, tier); cerr != nil {
				log.Ctx(ctx).Warn().Err(cerr).Msg("Failed to record tier failure")
			}
		}
		log.Ctx(ctx).Warn().Err(err).
			Stringer("tier", tier).
			Stringer("class", class).
			Msg("Tier attempt failed, falling through")
	}

	res := Result{
		Attempts: attempts,
		Err:      fmt.Errorf("%w: last error: %w", ErrExhausted, lastErr),
	}
	e.logFailure(ctx, op, res)
	return res
}

// ExecuteBatch runs ops one by one and reports per-item results rather
// than an all-or-nothing outcome. A canceled context stops between items,
// never mid-item.
func (e *Engine) ExecuteBatch(ctx context.Context, ops []model.Operation) []model.BatchItemResult {
	results := make([]model.BatchItemResult, 0, len(ops))
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			results = append(results, model.BatchItemResult{
				Index: i, Date: op.Date, Error: fmt.Sprintf("batch abandoned: %v", err),
			})
			continue
		}
		res := e.Execute(ctx, op)
		item := model.BatchItemResult{Index: i, Date: op.Date, Success: res.Success, TierUsed: res.TierUsed}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		results = append(results, item)
	}
	return results
}

func (e *Engine) attempt(ctx context.Context, tier model.StrategyTier, op model.Operation) error {
	switch tier {
	case model.TierDirectWrite:
		return e.remote.DirectWrite(ctx, op)
	case model.TierApprovalRequest:
		if op.Kind == model.OpWithdrawal {
			return e.remote.Withdraw(ctx, op)
		}
		return e.remote.SubmitApproval(ctx, op)
	case model.TierPunchEvent:
		return e.remote.PunchEvent(ctx, op)
	case model.TierBrowserForm:
		return e.browser.Do(ctx, op)
	default:
		return fmt.Errorf("unknown tier %d", tier)
	}
}

// candidateTiers builds the ordered attempt list: the structurally usable
// tiers for op, minus the month's known-failing set, starting from the
// last working tier when there is one.
func candidateTiers(op model.Operation, entry *model.StrategyCacheEntry) []model.StrategyTier {
	var usable []model.StrategyTier
	for _, tier := range model.AllTiers {
		if !structurallyAllowed(op, tier) {
			continue
		}
		if entry != nil && entry.Failing(tier) {
			continue
		}
		usable = append(usable, tier)
	}

	if entry == nil || entry.LastWorkingTier == 0 {
		return usable
	}
	ordered := make([]model.StrategyTier, 0, len(usable))
	for _, t := range usable {
		if t == entry.LastWorkingTier {
			ordered = append(ordered, t)
		}
	}
	for _, t := range usable {
		if t != entry.LastWorkingTier {
			ordered = append(ordered, t)
		}
	}
	return ordered
}

// structurallyAllowed encodes which tiers an operation type can use at
// all, independent of this month's permission discoveries.
func structurallyAllowed(op model.Operation, tier model.StrategyTier) bool {
	switch op.Kind {
	case model.OpLeaveRequest:
		// Leave cannot be expressed as a raw punch, and the backend
		// requires the approval route for partial days.
		if tier == model.TierPunchEvent {
			return false
		}
		if tier == model.TierDirectWrite && op.HalfDay {
			return false
		}
	case model.OpWithdrawal:
		// Only the approval route and the web UI can cancel a request.
		return tier == model.TierApprovalRequest || tier == model.TierBrowserForm
	}
	return true
}

func (e *Engine) logSuccess(ctx context.Context, op model.Operation, tier model.StrategyTier, elapsed time.Duration) {
	rec := model.ExecutionRecord{
		Date:      op.Date,
		Action:    op.Action,
		Kind:      op.Kind,
		Outcome:   model.OutcomeSuccess,
		Tier:      tier,
		Duration:  elapsed,
		Reason:    fmt.Sprintf("succeeded via %s", tier),
		CreatedAt: e.now(),
	}
	if err := e.execLog.Append(ctx, rec); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to append success record")
	}
}

func (e *Engine) logFailure(ctx context.Context, op model.Operation, res Result) {
	trail := make([]string, 0, len(res.Attempts))
	for _, a := range res.Attempts {
		trail = append(trail, fmt.Sprintf("%s (%s): %s", a.Tier, a.Class, a.Err))
	}
	reason := "no usable tier"
	if len(trail) > 0 {
		reason = "tried " + strings.Join(trail, "; ")
	}
	rec := model.ExecutionRecord{
		Date:      op.Date,
		Action:    op.Action,
		Kind:      op.Kind,
		Outcome:   model.OutcomeFailure,
		Reason:    reason,
		CreatedAt: e.now(),
	}
	if err := e.execLog.Append(ctx, rec); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to append failure record")
	}
}
