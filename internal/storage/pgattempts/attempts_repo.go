package pgattempts

import (
	"context"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// SaveAttempt пишет итог попытки вместе с шагами. Повторная запись той же попытки ничего не меняет.
func (s *Storage) SaveAttempt(ctx context.Context, a models.Attempt) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
INSERT INTO workflow_attempts (
  id, workflow, tracking_number, final_state, failed_in, error_kind, message,
  inconsistent, started_at, finished_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO NOTHING
`, a.ID, a.Workflow, a.TrackingNumber, a.FinalState, a.FailedIn, a.ErrorKind, a.Message,
		a.Inconsistent, a.StartedAt.UTC(), a.FinishedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "insert attempt")
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	for _, st := range a.Steps {
		_, err := tx.Exec(ctx, `
INSERT INTO workflow_steps (attempt_id, from_state, to_state, error, at)
VALUES ($1,$2,$3,$4,$5)
`, a.ID, st.From, st.To, st.Error, st.At.UTC())
		if err != nil {
			return errors.Wrap(err, "insert step")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// ListInconsistent: попытки, оставившие провайдера и бэкенд рассинхронизированными, свежие первыми.
func (s *Storage) ListInconsistent(ctx context.Context, limit int) ([]*models.Attempt, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, `
SELECT
  id::text, workflow, tracking_number, final_state, failed_in, error_kind, message,
  inconsistent, started_at, finished_at
FROM workflow_attempts
WHERE inconsistent
ORDER BY finished_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select attempts")
	}
	defer rows.Close()

	out := []*models.Attempt{}
	for rows.Next() {
		var a models.Attempt
		if err := rows.Scan(
			&a.ID, &a.Workflow, &a.TrackingNumber, &a.FinalState, &a.FailedIn, &a.ErrorKind, &a.Message,
			&a.Inconsistent, &a.StartedAt, &a.FinishedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan attempt")
		}
		out = append(out, &a)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ListSteps возвращает шаги попытки в порядке переходов.
func (s *Storage) ListSteps(ctx context.Context, attemptID string) ([]models.AttemptStep, error) {
	rows, err := s.db.Query(ctx, `
SELECT from_state, to_state, error, at
FROM workflow_steps
WHERE attempt_id = $1
ORDER BY at, id
`, attemptID)
	if err != nil {
		return nil, errors.Wrap(err, "select steps")
	}
	defer rows.Close()

	var out []models.AttemptStep
	for rows.Next() {
		var st models.AttemptStep
		var at time.Time
		if err := rows.Scan(&st.From, &st.To, &st.Error, &at); err != nil {
			return nil, errors.Wrap(err, "scan step")
		}
		st.At = at
		out = append(out, st)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
