package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository manages consumer-side deduplication checkpoints. A consumer
// records the highest sequence it has processed per partition key and skips
// anything at or below it on redelivery.
type Repository interface {
	Seen(ctx context.Context, consumerName, partitionKey string, seq int64) (bool, error)
	MarkSeen(ctx context.Context, consumerName, partitionKey string, seq int64) error
}

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type repo struct {
	pool DBPool
}

func NewRepository(pool DBPool) Repository {
	return &repo{pool: pool}
}

func (r *repo) Seen(ctx context.Context, consumerName, partitionKey string, seq int64) (bool, error) {
	var last int64
	err := r.pool.QueryRow(ctx, `
		SELECT last_sequence
		FROM event_dedup_checkpoint
		WHERE consumer_name = $1 AND partition_key = $2
	`, consumerName, partitionKey).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("select last_sequence: %w", err)
	}
	return last >= seq, nil
}

func (r *repo) MarkSeen(ctx context.Context, consumerName, partitionKey string, seq int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_dedup_checkpoint (consumer_name, partition_key, last_sequence, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (consumer_name, partition_key)
		DO UPDATE SET
			last_sequence = GREATEST(event_dedup_checkpoint.last_sequence, EXCLUDED.last_sequence),
			updated_at = NOW()
	`, consumerName, partitionKey, seq)
	if err != nil {
		return fmt.Errorf("upsert last_sequence: %w", err)
	}
	return nil
}
