package pgattempts

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS workflow_attempts (
  id UUID PRIMARY KEY,
  workflow TEXT NOT NULL,
  tracking_number TEXT NOT NULL,
  final_state TEXT NOT NULL,
  failed_in TEXT NOT NULL DEFAULT '',
  error_kind TEXT NOT NULL DEFAULT '',
  message TEXT NOT NULL DEFAULT '',
  inconsistent BOOLEAN NOT NULL DEFAULT FALSE,
  started_at TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_workflow_attempts_number ON workflow_attempts(tracking_number, finished_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_workflow_attempts_inconsistent ON workflow_attempts(finished_at DESC) WHERE inconsistent`,
		`
CREATE TABLE IF NOT EXISTS workflow_steps (
  id BIGSERIAL PRIMARY KEY,
  attempt_id UUID NOT NULL REFERENCES workflow_attempts(id) ON DELETE CASCADE,
  from_state TEXT NOT NULL,
  to_state TEXT NOT NULL,
  error TEXT NULL,
  at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_workflow_steps_attempt ON workflow_steps(attempt_id, at)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
