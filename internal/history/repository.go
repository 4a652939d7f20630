package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/examroom/internal/models"
)

// Repository archives finished exam sessions in Postgres. The archive is
// write-only from the countdown path; reporting tools query it directly.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session archive backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const insertSessionQuery = `
INSERT INTO exam_sessions (room_key, planned_seconds, elapsed_seconds, completion_reason, started_at, ended_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// RecordFinished inserts one archive row for a session that reached a
// terminal state.
func (r *Repository) RecordFinished(ctx context.Context, record models.SessionRecord) error {
	_, err := r.pool.Exec(ctx, insertSessionQuery,
		record.RoomKey,
		record.PlannedSeconds,
		record.ElapsedSeconds,
		string(record.Reason),
		record.StartedAt,
		record.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exam session: %w", err)
	}

	log.Debug().
		Str("room", record.RoomKey).
		Str("reason", string(record.Reason)).
		Int("elapsed_seconds", record.ElapsedSeconds).
		Msg("archived finished session")
	return nil
}

// Close releases the underlying pool.
func (r *Repository) Close() {
	r.pool.Close()
}
