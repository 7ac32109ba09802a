package strategy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sky-zhang01/punchpilot-sub001/internal/adapters/memory"
	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
	"github.com/sky-zhang01/punchpilot-sub001/internal/strategy"
)

func TestNewMonthStartsEmpty(t *testing.T) {
	ctx := context.Background()
	cache := strategy.NewCache(memory.NewSettingsStore())

	require.NoError(t, cache.ResetIfNewMonth(ctx, "2026-08"))
	entry, err := cache.Get(ctx, "2026-08", model.OpCorrection)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestSuccessAndFailureRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSettingsStore()
	cache := strategy.NewCache(store)

	require.NoError(t, cache.RecordPermanentFailure(ctx, "2026-08", model.OpCorrection, model.TierDirectWrite))
	require.NoError(t, cache.RecordSuccess(ctx, "2026-08", model.OpCorrection, model.TierApprovalRequest))

	// A second cache over the same store sees the same state: entries are
	// persisted, not process-local.
	reloaded := strategy.NewCache(store)
	entry, err := reloaded.Get(ctx, "2026-08", model.OpCorrection)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, model.TierApprovalRequest, entry.LastWorkingTier)
	assert.True(t, entry.Failing(model.TierDirectWrite))
	assert.False(t, entry.Failing(model.TierApprovalRequest))
}

func TestSuccessClearsTierFromFailingSet(t *testing.T) {
	ctx := context.Background()
	cache := strategy.NewCache(memory.NewSettingsStore())

	require.NoError(t, cache.RecordPermanentFailure(ctx, "2026-08", model.OpClock, model.TierDirectWrite))
	require.NoError(t, cache.RecordSuccess(ctx, "2026-08", model.OpClock, model.TierDirectWrite))

	entry, err := cache.Get(ctx, "2026-08", model.OpClock)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.False(t, entry.Failing(model.TierDirectWrite))
	assert.Equal(t, model.TierDirectWrite, entry.LastWorkingTier)
}

func TestMonthRolloverClearsFailingSets(t *testing.T) {
	ctx := context.Background()
	cache := strategy.NewCache(memory.NewSettingsStore())

	require.NoError(t, cache.ResetIfNewMonth(ctx, "2026-08"))
	require.NoError(t, cache.RecordPermanentFailure(ctx, "2026-08", model.OpCorrection, model.TierDirectWrite))
	require.NoError(t, cache.RecordPermanentFailure(ctx, "2026-08", model.OpLeaveRequest, model.TierDirectWrite))

	require.NoError(t, cache.ResetIfNewMonth(ctx, "2026-09"))

	for _, kind := range []model.OperationKind{model.OpCorrection, model.OpLeaveRequest} {
		entry, err := cache.Get(ctx, "2026-09", kind)
		require.NoError(t, err)
		assert.Nil(t, entry, "kind %s should start the new month with no entry", kind)
	}
	// The old month's entries are gone too, not just shadowed.
	entry, err := cache.Get(ctx, "2026-08", model.OpCorrection)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestResetIsIdempotentWithinMonth(t *testing.T) {
	ctx := context.Background()
	cache := strategy.NewCache(memory.NewSettingsStore())

	require.NoError(t, cache.ResetIfNewMonth(ctx, "2026-08"))
	require.NoError(t, cache.RecordPermanentFailure(ctx, "2026-08", model.OpCorrection, model.TierPunchEvent))
	require.NoError(t, cache.ResetIfNewMonth(ctx, "2026-08"))

	entry, err := cache.Get(ctx, "2026-08", model.OpCorrection)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Failing(model.TierPunchEvent))
}
