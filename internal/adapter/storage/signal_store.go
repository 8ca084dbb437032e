package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trendpulse/internal/domain/trend"
)

// SignalStore persists emitted trend signals to Postgres so the API can
// serve signal history. The detector itself stays ephemeral; only the
// orchestration layer writes here.
type SignalStore struct {
	db *pgxpool.Pool
}

// NewSignalStore creates a new signal store
func NewSignalStore(db *pgxpool.Pool) *SignalStore {
	return &SignalStore{
		db: db,
	}
}

// SaveSignal upserts one emitted signal, keyed by tag and detection time
func (s *SignalStore) SaveSignal(ctx context.Context, sig trend.Signal) error {
	query := `
		INSERT INTO trend_signals (
			name, current_volume, historical_volume, growth_rate, detected_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
		ON CONFLICT (name, detected_at) DO UPDATE
		SET
			current_volume = $2,
			historical_volume = $3,
			growth_rate = $4
	`

	_, err := s.db.Exec(
		ctx,
		query,
		sig.Name,
		sig.CurrentVolume,
		sig.HistoricalVolume,
		sig.GrowthRate,
		sig.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

// FindSignals returns persisted signals matching the filter, newest first
func (s *SignalStore) FindSignals(ctx context.Context, filter trend.Filter) ([]trend.Signal, error) {
	query := `
		SELECT name, current_volume, historical_volume, growth_rate, detected_at
		FROM trend_signals
		WHERE growth_rate >= $1 AND detected_at >= $2
		ORDER BY detected_at DESC, name
		LIMIT $3
	`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	since := filter.Since
	if since.IsZero() {
		since = time.Unix(0, 0).UTC()
	}

	rows, err := s.db.Query(ctx, query, filter.MinGrowthRate, since, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	signals := []trend.Signal{}
	for rows.Next() {
		var sig trend.Signal
		if err := rows.Scan(
			&sig.Name,
			&sig.CurrentVolume,
			&sig.HistoricalVolume,
			&sig.GrowthRate,
			&sig.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		signals = append(signals, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return signals, nil
}

// GetSignal returns the most recent persisted signal for a tag, or nil
// when the tag has never surged
func (s *SignalStore) GetSignal(ctx context.Context, name string) (*trend.Signal, error) {
	query := `
		SELECT name, current_volume, historical_volume, growth_rate, detected_at
		FROM trend_signals
		WHERE name = $1
		ORDER BY detected_at DESC
		LIMIT 1
	`

	var sig trend.Signal
	err := s.db.QueryRow(ctx, query, name).Scan(
		&sig.Name,
		&sig.CurrentVolume,
		&sig.HistoricalVolume,
		&sig.GrowthRate,
		&sig.DetectedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}

	return &sig, nil
}
