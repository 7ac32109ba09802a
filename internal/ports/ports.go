// Package ports holds the driven-side contracts the engine depends on.
// Concrete adapters live under internal/adapters.
package ports

import (
	"context"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
)

// SettingsStore is a small key-value store for durable engine state:
// resolved schedule times, strategy cache entries, month markers.
type SettingsStore interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// List returns all key/value pairs whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string]string, error)
}

// ExecutionLog is the append-only record of every terminal outcome
// (success, skip, failure). Entries are never deleted; skips invalidated
// by a later manual or automated action are marked superseded instead.
type ExecutionLog interface {
	Append(ctx context.Context, rec model.ExecutionRecord) error
	QueryByDate(ctx context.Context, date string) ([]model.ExecutionRecord, error)
	QueryRange(ctx context.Context, from, to string) ([]model.ExecutionRecord, error)
	// MarkSuperseded flags all skip records for the given date and action.
	MarkSuperseded(ctx context.Context, date string, action model.ActionKind) error
}

// Decrypter is the opaque credential decryption capability. How secrets
// are stored and encrypted is not this system's concern.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Notifier delivers a human-readable note about a terminal outcome.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}
