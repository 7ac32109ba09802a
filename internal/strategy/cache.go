// Package strategy remembers which fallback tier worked for each operation
// kind this month. Permission shape is a property of the company
// configuration and is stable within a month, so a tier the backend
// rejected once is not worth paying for again until the month rolls over.
package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
	"github.com/sky-zhang01/punchpilot-sub001/internal/ports"
)

const (
	keyPrefix       = "strategy/"
	currentMonthKey = "strategy-current-month"
)

// Cache is the per-(month, operation kind) tier memory. Entries live in
// the settings store so they survive process restarts within the month;
// the mutex makes each read-modify-write atomic within the process.
type Cache struct {
	mu    sync.Mutex
	store ports.SettingsStore
}

func NewCache(store ports.SettingsStore) *Cache {
	return &Cache{store: store}
}

func entryKey(month string, kind model.OperationKind) string {
	return fmt.Sprintf("%s%s/%s", keyPrefix, month, kind)
}

// Get returns the cache entry for (month, kind), or nil when no write has
// been attempted yet this month.
func (c *Cache) Get(ctx context.Context, month string, kind model.OperationKind) (*model.StrategyCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx, month, kind)
}

// RecordSuccess marks tier as the last working tier for (month, kind) and
// clears it from the failing set if a previous permission error put it
// there (permissions can be granted mid-month too).
func (c *Cache) RecordSuccess(ctx context.Context, month string, kind model.OperationKind, tier model.StrategyTier) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.load(ctx, month, kind)
	if err != nil {
		return err
	}
	if entry == nil {
		entry = &model.StrategyCacheEntry{Month: month, Kind: kind}
	}
	entry.LastWorkingTier = tier
	entry.FailingTiers = removeTier(entry.FailingTiers, tier)
	return c.save(ctx, entry)
}

// RecordPermanentFailure adds tier to the month's failing set. Transient
// failures must never reach here.
func (c *Cache) RecordPermanentFailure(ctx context.Context, month string, kind model.OperationKind, tier model.StrategyTier) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.load(ctx, month, kind)
	if err != nil {
		return err
	}
	if entry == nil {
		entry = &model.StrategyCacheEntry{Month: month, Kind: kind}
	}
	if !entry.Failing(tier) {
		entry.FailingTiers = append(entry.FailingTiers, tier)
	}
	if entry.LastWorkingTier == tier {
		entry.LastWorkingTier = 0
	}
	return c.save(ctx, entry)
}

// ResetIfNewMonth drops every entry from months before month. Scoping the
// keys by an explicit month string instead of a TTL keeps correctness
// independent of process uptime and clock drift.
func (c *Cache) ResetIfNewMonth(ctx context.Context, month string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen, ok, err := c.store.Get(ctx, currentMonthKey)
	if err != nil {
		return fmt.Errorf("reading current strategy month: %w", err)
	}
	if ok && seen >= month {
		return nil
	}

	all, err := c.store.List(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("listing strategy cache entries: %w", err)
	}
	for key := range all {
		rest := strings.TrimPrefix(key, keyPrefix)
		if !strings.HasPrefix(rest, month+"/") {
			if err := c.store.Delete(ctx, key); err != nil {
				return fmt.Errorf("clearing stale strategy entry %s: %w", key, err)
			}
		}
	}

	if err := c.store.Set(ctx, currentMonthKey, month); err != nil {
		return err
	}
	if ok {
		log.Ctx(ctx).Info().Str("from", seen).Str("to", month).
			Msg("Strategy cache reset for new month")
	}
	return nil
}

func (c *Cache) load(ctx context.Context, month string, kind model.OperationKind) (*model.StrategyCacheEntry, error) {
	raw, ok, err := c.store.Get(ctx, entryKey(month, kind))
	if err != nil {
		return nil, fmt.Errorf("reading strategy entry: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var entry model.StrategyCacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("decoding strategy entry: %w", err)
	}
	return &entry, nil
}

func (c *Cache) save(ctx context.Context, entry *model.StrategyCacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding strategy entry: %w", err)
	}
	return c.store.Set(ctx, entryKey(entry.Month, entry.Kind), string(raw))
}

func removeTier(tiers []model.StrategyTier, tier model.StrategyTier) []model.StrategyTier {
	out := tiers[:0]
	for _, t := range tiers {
		if t != tier {
			out = append(out, t)
		}
	}
	return out
}
