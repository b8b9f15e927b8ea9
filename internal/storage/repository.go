package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"riven-sniper/internal/stats"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	deleteObservationsSQL = `DELETE FROM price_observations;`

	insertObservationSQL = `INSERT INTO price_observations (
        fingerprint,
        ordinal,
        price,
        observed_at
    ) VALUES ($1,$2,$3,$4);`

	listObservationsSQL = `SELECT
        fingerprint,
        price,
        observed_at
    FROM price_observations
    ORDER BY fingerprint, ordinal;`

	listFingerprintObservationsSQL = `SELECT
        price,
        observed_at
    FROM price_observations
    WHERE fingerprint = $1
      AND observed_at >= $2
      AND observed_at < $3
    ORDER BY ordinal;`

	countObservationsSQL = `SELECT COUNT(*) FROM price_observations;`

	deleteSeenSQL = `DELETE FROM seen_listings;`

	insertSeenSQL = `INSERT INTO seen_listings (
        seen_key,
        first_seen
    ) VALUES ($1,$2);`

	listSeenSQL = `SELECT seen_key, first_seen FROM seen_listings;`

	insertDealAlertSQL = `INSERT INTO deal_alerts (
        listing_id,
        marketplace,
        weapon,
        fingerprint,
        price,
        baseline,
        discount,
        seller
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (listing_id) DO NOTHING;`

	listRecentDealAlertsSQL = `SELECT
        id,
        listing_id,
        marketplace,
        weapon,
        fingerprint,
        price,
        baseline,
        discount,
        seller,
        created_at
    FROM deal_alerts
    ORDER BY created_at DESC
    LIMIT $1;`
)

// SnapshotStore persists and restores the engine's in-memory state.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	LoadSnapshot(ctx context.Context) (Snapshot, error)
}

// AlertStore defines operations for deal alert auditing.
type AlertStore interface {
	InsertDealAlert(ctx context.Context, record DealAlertRecord) error
	ListRecentDealAlerts(ctx context.Context, limit int) ([]DealAlertRecord, error)
}

// Store aggregates access to snapshots and alert records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// SaveSnapshot replaces the persisted state with the given snapshot in one
// transaction, preserving each history's observation order via ordinals.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteObservationsSQL); err != nil {
		return fmt.Errorf("clear observations: %w", err)
	}

	batch := &pgx.Batch{}
	for fp, history := range snapshot.Histories {
		for ordinal, obs := range history {
			batch.Queue(insertObservationSQL, string(fp), ordinal, obs.Price.String(), obs.ObservedAt)
		}
	}

	if _, err := tx.Exec(ctx, deleteSeenSQL); err != nil {
		return fmt.Errorf("clear seen keys: %w", err)
	}
	for key, firstSeen := range snapshot.Seen {
		batch.Queue(insertSeenSQL, key, firstSeen)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("write snapshot batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the persisted state back, histories ordered as written.
func (s *Store) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{
		Histories: make(map[stats.Fingerprint][]stats.Observation),
		Seen:      make(map[string]time.Time),
	}

	rows, queryErr := pool.Query(ctx, listObservationsSQL)
	if queryErr != nil {
		return Snapshot{}, fmt.Errorf("list observations: %w", queryErr)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			fingerprint string
			priceStr    string
			observedAt  time.Time
		)
		if err := rows.Scan(&fingerprint, &priceStr, &observedAt); err != nil {
			return Snapshot{}, err
		}
		price, convErr := decimal.NewFromString(priceStr)
		if convErr != nil {
			return Snapshot{}, fmt.Errorf("parse observation price: %w", convErr)
		}
		fp := stats.Fingerprint(fingerprint)
		snapshot.Histories[fp] = append(snapshot.Histories[fp], stats.Observation{Price: price, ObservedAt: observedAt})
	}
	if rows.Err() != nil {
		return Snapshot{}, rows.Err()
	}

	seenRows, queryErr := pool.Query(ctx, listSeenSQL)
	if queryErr != nil {
		return Snapshot{}, fmt.Errorf("list seen keys: %w", queryErr)
	}
	defer seenRows.Close()

	for seenRows.Next() {
		var (
			key       string
			firstSeen time.Time
		)
		if err := seenRows.Scan(&key, &firstSeen); err != nil {
			return Snapshot{}, err
		}
		snapshot.Seen[key] = firstSeen
	}
	if seenRows.Err() != nil {
		return Snapshot{}, seenRows.Err()
	}

	return snapshot, nil
}

// ListFingerprintObservations lists one fingerprint's observations within a
// time window, in recorded order.
func (s *Store) ListFingerprintObservations(ctx context.Context, fingerprint string, from, to time.Time) ([]stats.Observation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listFingerprintObservationsSQL, fingerprint, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list fingerprint observations: %w", queryErr)
	}
	defer rows.Close()

	observations := make([]stats.Observation, 0)
	for rows.Next() {
		var (
			priceStr   string
			observedAt time.Time
		)
		if err := rows.Scan(&priceStr, &observedAt); err != nil {
			return nil, err
		}
		price, convErr := decimal.NewFromString(priceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse observation price: %w", convErr)
		}
		observations = append(observations, stats.Observation{Price: price, ObservedAt: observedAt})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return observations, nil
}

// CountObservations counts stored price observations.
func (s *Store) CountObservations(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countObservationsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count observations: %w", scanErr)
	}
	return count, nil
}

// InsertDealAlert persists an alert emission. Replays of the same listing id
// are ignored.
func (s *Store) InsertDealAlert(ctx context.Context, record DealAlertRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertDealAlertSQL,
		record.ListingID,
		record.Marketplace,
		record.Weapon,
		record.Fingerprint,
		record.Price.String(),
		record.Baseline.String(),
		record.Discount.String(),
		record.Seller,
	)
	if execErr != nil {
		return fmt.Errorf("insert deal alert: %w", execErr)
	}
	return nil
}

// ListRecentDealAlerts lists most recent alerts.
func (s *Store) ListRecentDealAlerts(ctx context.Context, limit int) ([]DealAlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentDealAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent deal alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]DealAlertRecord, 0, limit)
	for rows.Next() {
		var (
			rec         DealAlertRecord
			priceStr    string
			baselineStr string
			discountStr string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.ListingID,
			&rec.Marketplace,
			&rec.Weapon,
			&rec.Fingerprint,
			&priceStr,
			&baselineStr,
			&discountStr,
			&rec.Seller,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		if rec.Price, convErr = decimal.NewFromString(priceStr); convErr != nil {
			return nil, fmt.Errorf("parse alert price: %w", convErr)
		}
		if rec.Baseline, convErr = decimal.NewFromString(baselineStr); convErr != nil {
			return nil, fmt.Errorf("parse alert baseline: %w", convErr)
		}
		if rec.Discount, convErr = decimal.NewFromString(discountStr); convErr != nil {
			return nil, fmt.Errorf("parse alert discount: %w", convErr)
		}

		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

var _ SnapshotStore = (*Store)(nil)
var _ AlertStore = (*Store)(nil)
