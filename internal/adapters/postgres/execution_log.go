package postgres

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
)

// ExecutionLog is the concrete append-only outcome log for a PostgreSQL
// database. Rows are never deleted; invalidated skips are flagged instead.
type ExecutionLog struct {
	DB *sql.DB
}

// NewExecutionLog create new instance
func NewExecutionLog(db *sql.DB) *ExecutionLog {
	return &ExecutionLog{DB: db}
}

// Append writes one terminal outcome.
func (l *ExecutionLog) Append(ctx context.Context, rec model.ExecutionRecord) error {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("app.date", rec.Date),
		attribute.String("app.outcome", string(rec.Outcome)),
	)

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	query := `INSERT INTO execution_log (date, action, kind, outcome, tier, duration_ms, reason, superseded, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := l.DB.ExecContext(ctx, query,
		rec.Date, string(rec.Action), string(rec.Kind), string(rec.Outcome),
		int(rec.Tier), rec.Duration.Milliseconds(), rec.Reason, rec.Superseded, created)
	return err
}

// QueryByDate fetches every record for one day, oldest first.
func (l *ExecutionLog) QueryByDate(ctx context.Context, date string) ([]model.ExecutionRecord, error) {
	query := `SELECT id, date, action, kind, outcome, tier, duration_ms, reason, superseded, created_at
              FROM execution_log
              WHERE date = $1
              ORDER BY id`

	rows, err := l.DB.QueryContext(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// QueryRange fetches records with from <= date <= to, oldest first.
func (l *ExecutionLog) QueryRange(ctx context.Context, from, to string) ([]model.ExecutionRecord, error) {
	query := `SELECT id, date, action, kind, outcome, tier, duration_ms, reason, superseded, created_at
              FROM execution_log
              WHERE date >= $1 AND date <= $2
              ORDER BY id`

	rows, err := l.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// MarkSuperseded flags all skip records for the given date and action.
func (l *ExecutionLog) MarkSuperseded(ctx context.Context, date string, action model.ActionKind) error {
	query := `UPDATE execution_log
              SET superseded = TRUE
              WHERE date = $1 AND action = $2 AND outcome = $3`

	_, err := l.DB.ExecContext(ctx, query, date, string(action), string(model.OutcomeSkip))
	return err
}

func scanRecords(rows *sql.Rows) ([]model.ExecutionRecord, error) {
	var out []model.ExecutionRecord
	for rows.Next() {
		var (
			rec        model.ExecutionRecord
			action     string
			kind       string
			outcome    string
			tier       int
			durationMS int64
		)
		if err := rows.Scan(&rec.ID, &rec.Date, &action, &kind, &outcome, &tier,
			&durationMS, &rec.Reason, &rec.Superseded, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Action = model.ActionKind(action)
		rec.Kind = model.OperationKind(kind)
		rec.Outcome = model.ExecutionOutcome(outcome)
		rec.Tier = model.StrategyTier(tier)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
