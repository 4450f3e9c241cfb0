package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habitflow/internal/model"
)

type RoutineRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewRoutineRepository(db *pgxpool.Pool, logger *zap.Logger) *RoutineRepository {
	return &RoutineRepository{db: db, logger: logger}
}

const routineColumns = `routine_id, title, category, start_time, end_time, required, sort_order`

func scanRoutine(row pgx.Row) (model.RoutineItem, error) {
	var item model.RoutineItem
	var category string
	err := row.Scan(
		&item.ID,
		&item.Title,
		&category,
		&item.StartTime,
		&item.EndTime,
		&item.Required,
		&item.Order,
	)
	item.Category = model.Category(category)
	return item, err
}

// ListByUser returns the user's routines in display order.
func (r *RoutineRepository) ListByUser(ctx context.Context, userID int) ([]model.RoutineItem, error) {
	defer observe("select", "routines", time.Now())
	query := `
        SELECT ` + routineColumns + `
        FROM routines
        WHERE user_id = $1
        ORDER BY sort_order, id
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list routines", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	routines := []model.RoutineItem{}
	for rows.Next() {
		item, err := scanRoutine(rows)
		if err != nil {
			return nil, err
		}
		routines = append(routines, item)
	}
	return routines, rows.Err()
}

// Create appends item after the user's existing routines; the stored order
// is the previous routine count.
func (r *RoutineRepository) Create(ctx context.Context, userID int, item model.RoutineItem) (model.RoutineItem, error) {
	defer observe("insert", "routines", time.Now())
	r.logger.Debug("Inserting routine",
		zap.Int("user_id", userID),
		zap.String("routine_id", item.ID),
	)

	query := `
        INSERT INTO routines (user_id, routine_id, title, category, start_time, end_time, required, sort_order)
        VALUES ($1, $2, $3, $4, $5, $6, $7,
                (SELECT COUNT(*) FROM routines WHERE user_id = $1))
        RETURNING ` + routineColumns
	created, err := scanRoutine(r.db.QueryRow(ctx, query,
		userID,
		item.ID,
		item.Title,
		string(item.Category),
		item.StartTime,
		item.EndTime,
		item.Required,
	))
	if err != nil {
		r.logger.Error("Failed to insert routine", zap.String("routine_id", item.ID), zap.Error(err))
		return model.RoutineItem{}, err
	}

	r.logger.Info("Routine created",
		zap.Int("user_id", userID),
		zap.String("routine_id", created.ID),
		zap.Int("order", created.Order),
	)
	return created, nil
}

// Update applies the non-nil patch fields. It returns pgx.ErrNoRows when the
// routine does not exist.
func (r *RoutineRepository) Update(ctx context.Context, userID int, routineID string, patch model.RoutinePatch) (model.RoutineItem, error) {
	defer observe("update", "routines", time.Now())

	var category *string
	if patch.Category != nil {
		c := string(*patch.Category)
		category = &c
	}

	query := `
        UPDATE routines SET
            title      = COALESCE($3, title),
            category   = COALESCE($4, category),
            start_time = COALESCE($5, start_time),
            end_time   = COALESCE($6, end_time),
            required   = COALESCE($7, required),
            sort_order = COALESCE($8, sort_order),
            updated_at = NOW()
        WHERE user_id = $1 AND routine_id = $2
        RETURNING ` + routineColumns
	updated, err := scanRoutine(r.db.QueryRow(ctx, query,
		userID,
		routineID,
		patch.Title,
		category,
		patch.StartTime,
		patch.EndTime,
		patch.Required,
		patch.Order,
	))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("Failed to update routine", zap.String("routine_id", routineID), zap.Error(err))
		}
		return model.RoutineItem{}, err
	}
	return updated, nil
}

// Delete removes the routine and all of its completion records in one
// transaction. It returns pgx.ErrNoRows when the routine does not exist.
func (r *RoutineRepository) Delete(ctx context.Context, userID int, routineID string) error {
	defer observe("delete", "routines", time.Now())

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM routines WHERE user_id = $1 AND routine_id = $2`,
			userID, routineID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}

		tag, err = tx.Exec(ctx,
			`DELETE FROM completions WHERE user_id = $1 AND routine_id = $2`,
			userID, routineID,
		)
		if err != nil {
			return err
		}

		r.logger.Info("Routine deleted",
			zap.Int("user_id", userID),
			zap.String("routine_id", routineID),
			zap.Int64("completions_removed", tag.RowsAffected()),
		)
		return nil
	})
}

// ReplaceWithDefaults swaps the user's routines for model.DefaultRoutines.
// Completion history is kept.
func (r *RoutineRepository) ReplaceWithDefaults(ctx context.Context, userID int) (int, error) {
	defer observe("replace", "routines", time.Now())
	defaults := model.DefaultRoutines()

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM routines WHERE user_id = $1`, userID); err != nil {
			return err
		}

		rows := make([][]any, 0, len(defaults))
		for _, d := range defaults {
			rows = append(rows, []any{
				userID, d.ID, d.Title, string(d.Category), d.StartTime, d.EndTime, d.Required, d.Order,
			})
		}
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"routines"},
			[]string{"user_id", "routine_id", "title", "category", "start_time", "end_time", "required", "sort_order"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return err
		}
		if int(n) != len(defaults) {
			return fmt.Errorf("inserted %d of %d default routines", n, len(defaults))
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to reset routines", zap.Int("user_id", userID), zap.Error(err))
		return 0, err
	}

	r.logger.Info("Routines reset to defaults", zap.Int("user_id", userID), zap.Int("count", len(defaults)))
	return len(defaults), nil
}
