package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habitflow/internal/model"
)

type CompletionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCompletionRepository(db *pgxpool.Pool, logger *zap.Logger) *CompletionRepository {
	return &CompletionRepository{db: db, logger: logger}
}

func (r *CompletionRepository) list(ctx context.Context, query string, args ...any) ([]model.CompletionRecord, error) {
	defer observe("select", "completions", time.Now())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list completions", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	records := []model.CompletionRecord{}
	for rows.Next() {
		var c model.CompletionRecord
		if err := rows.Scan(&c.Date, &c.RoutineID, &c.Completed, &c.Timestamp); err != nil {
			return nil, err
		}
		records = append(records, c)
	}
	return records, rows.Err()
}

// ListByUser returns every record, or only those on date when it is non-empty.
func (r *CompletionRepository) ListByUser(ctx context.Context, userID int, date string) ([]model.CompletionRecord, error) {
	if date != "" {
		return r.list(ctx, `
            SELECT date, routine_id, completed, toggled_at
            FROM completions
            WHERE user_id = $1 AND date = $2
            ORDER BY routine_id
        `, userID, date)
	}
	return r.list(ctx, `
        SELECT date, routine_id, completed, toggled_at
        FROM completions
        WHERE user_id = $1
        ORDER BY date, routine_id
    `, userID)
}

// ListSince returns records dated on or after from (YYYY-MM-DD). ISO dates
// compare correctly as text.
func (r *CompletionRepository) ListSince(ctx context.Context, userID int, from string) ([]model.CompletionRecord, error) {
	return r.list(ctx, `
        SELECT date, routine_id, completed, toggled_at
        FROM completions
        WHERE user_id = $1 AND date >= $2
        ORDER BY date, routine_id
    `, userID, from)
}

// Toggle creates a completed record or flips the existing one. created is
// true when the row was inserted.
func (r *CompletionRepository) Toggle(ctx context.Context, userID int, date, routineID string, now time.Time) (model.CompletionRecord, bool, error) {
	defer observe("upsert", "completions", time.Now())

	query := `
        INSERT INTO completions (user_id, date, routine_id, completed, toggled_at)
        VALUES ($1, $2, $3, TRUE, $4)
        ON CONFLICT (user_id, date, routine_id)
        DO UPDATE SET completed = NOT completions.completed,
                      toggled_at = EXCLUDED.toggled_at
        RETURNING date, routine_id, completed, toggled_at, (xmax = 0) AS inserted
    `
	var c model.CompletionRecord
	var created bool
	err := r.db.QueryRow(ctx, query, userID, date, routineID, now.UnixMilli()).Scan(
		&c.Date, &c.RoutineID, &c.Completed, &c.Timestamp, &created,
	)
	if err != nil {
		r.logger.Error("Failed to toggle completion",
			zap.Int("user_id", userID),
			zap.String("date", date),
			zap.String("routine_id", routineID),
			zap.Error(err),
		)
		return model.CompletionRecord{}, false, err
	}

	r.logger.Debug("Completion toggled",
		zap.Int("user_id", userID),
		zap.String("date", date),
		zap.String("routine_id", routineID),
		zap.Bool("completed", c.Completed),
	)
	return c, created, nil
}

func (r *CompletionRepository) DeleteAllByUser(ctx context.Context, userID int) (int64, error) {
	defer observe("delete", "completions", time.Now())
	tag, err := r.db.Exec(ctx, `DELETE FROM completions WHERE user_id = $1`, userID)
	if err != nil {
		r.logger.Error("Failed to clear history", zap.Int("user_id", userID), zap.Error(err))
		return 0, err
	}
	r.logger.Info("History cleared", zap.Int("user_id", userID), zap.Int64("deleted", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

// InsertBatch bulk loads records with COPY. Used by the seeder on an empty
// history; conflicting rows fail the whole batch.
func (r *CompletionRepository) InsertBatch(ctx context.Context, userID int, records []model.CompletionRecord) (int64, error) {
	defer observe("copy", "completions", time.Now())

	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"completions"},
		[]string{"user_id", "date", "routine_id", "completed", "toggled_at"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			c := records[i]
			return []any{userID, c.Date, c.RoutineID, c.Completed, c.Timestamp}, nil
		}),
	)
	if err != nil {
		r.logger.Error("Failed to insert completions", zap.Int("user_id", userID), zap.Error(err))
		return 0, err
	}
	r.logger.Info("Completions inserted", zap.Int("user_id", userID), zap.Int64("count", n))
	return n, nil
}
