package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Play is one track start recorded for a guild.
type Play struct {
	// EventID identifies the playback event the row came from. Saving the
	// same event twice keeps the first row.
	EventID     string
	GuildID     string
	Title       string
	Author      string
	URL         string
	SourceRef   string
	Duration    time.Duration
	RequestedBy string
	PlayedAt    time.Time
}

type HistoryPersister interface {
	Save(ctx context.Context, plays ...Play) error
}

type HistoryReader interface {
	Recent(ctx context.Context, guildID string, limit int) ([]Play, error)
}

type PostgresHistoryRepository struct {
	db *pgxpool.Pool
}

func NewPostgresHistoryRepository(db *pgxpool.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

func PlayToRowParams(play Play) []any {
	return []any{
		play.EventID,
		play.GuildID,
		play.Title,
		play.Author,
		play.URL,
		play.SourceRef,
		play.Duration.Milliseconds(),
		play.RequestedBy,
		play.PlayedAt,
	}
}

// Save inserts every play in one transaction.
func (r *PostgresHistoryRepository) Save(ctx context.Context, plays ...Play) error {
	if len(plays) == 0 {
		return nil
	}

	const insertPlayQuery = `
	INSERT INTO play_history (event_id, guild_id, title, author, url, source_ref, duration_ms, requested_by, played_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (event_id) DO NOTHING
	`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Warn("Failed to rollback transaction", "err", err)
		}
	}()

	batch := &pgx.Batch{}
	for _, play := range plays {
		batch.Queue(insertPlayQuery, PlayToRowParams(play)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert plays: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Recent returns up to limit plays for guildID, newest first.
func (r *PostgresHistoryRepository) Recent(ctx context.Context, guildID string, limit int) ([]Play, error) {
	const recentQuery = `
	SELECT event_id, guild_id, title, author, url, source_ref, duration_ms, requested_by, played_at
	FROM play_history
	WHERE guild_id = $1
	ORDER BY played_at DESC, id DESC
	LIMIT $2
	`

	rows, err := r.db.Query(ctx, recentQuery, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query play history: %w", err)
	}

	plays, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Play, error) {
		var p Play
		var durationMs int64
		err := row.Scan(&p.EventID, &p.GuildID, &p.Title, &p.Author, &p.URL, &p.SourceRef, &durationMs, &p.RequestedBy, &p.PlayedAt)
		p.Duration = time.Duration(durationMs) * time.Millisecond
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan play history: %w", err)
	}
	return plays, nil
}

var (
	_ HistoryPersister = (*PostgresHistoryRepository)(nil)
	_ HistoryReader    = (*PostgresHistoryRepository)(nil)
)
