package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run id has no ledger entry.
var ErrRunNotFound = errors.New("run not found")

// Run is one association run summary.
type Run struct {
	ID               string
	DataDir          string
	MaxDifference    float64
	FirstCount       int
	SecondCount      int
	AssociationCount int
	MeanGap          float64
	MaxGap           float64
	CreatedAt        time.Time
}

// Pair is one accepted association of a run.
type Pair struct {
	FirstIndex      int
	SecondIndex     int
	FirstTimestamp  float64
	SecondTimestamp float64
	Gap             float64
}

func (r *Run) String() string {
	return fmt.Sprintf("%s  %s  %s  max_diff=%.4f  %d/%d matched (second %d)  mean_gap=%.6f  max_gap=%.6f",
		r.ID, r.CreatedAt.Format(time.RFC3339), r.DataDir, r.MaxDifference,
		r.AssociationCount, r.FirstCount, r.SecondCount, r.MeanGap, r.MaxGap)
}

// RecordRun stores run and its pairs in a single transaction. An empty
// run.ID is filled with a new UUID and a zero CreatedAt with the DB clock.
func (db *DB) RecordRun(ctx context.Context, run *Run, pairs []Pair) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = db.clock.Now().UTC()
	}
	if run.AssociationCount == 0 {
		run.AssociationCount = len(pairs)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO association_runs (
			run_id, data_dir, max_difference, first_count, second_count,
			association_count, mean_gap, max_gap, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.DataDir, run.MaxDifference, run.FirstCount, run.SecondCount,
		run.AssociationCount, run.MeanGap, run.MaxGap, run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO association_pairs (
			run_id, first_index, second_index, first_ts, second_ts, gap
		) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare pair insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pairs {
		if _, err := stmt.ExecContext(ctx, run.ID, p.FirstIndex, p.SecondIndex,
			p.FirstTimestamp, p.SecondTimestamp, p.Gap); err != nil {
			return fmt.Errorf("failed to insert pair (%d, %d): %w", p.FirstIndex, p.SecondIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns
// every run.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx,
		`SELECT run_id, data_dir, max_difference, first_count, second_count,
			association_count, mean_gap, max_gap, created_at
		FROM association_runs
		ORDER BY created_at DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.DataDir, &r.MaxDifference, &r.FirstCount, &r.SecondCount,
			&r.AssociationCount, &r.MeanGap, &r.MaxGap, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunPairs returns the pairs of runID in first-list order.
func (db *DB) RunPairs(ctx context.Context, runID string) ([]Pair, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) > 0 FROM association_runs WHERE run_id = ?`, runID).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT first_index, second_index, first_ts, second_ts, gap
		FROM association_pairs
		WHERE run_id = ?
		ORDER BY first_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.FirstIndex, &p.SecondIndex, &p.FirstTimestamp, &p.SecondTimestamp, &p.Gap); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}
