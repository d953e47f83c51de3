package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// Run is the archived metadata of one simulation run.
type Run struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ModelHash string    `json:"model_hash"`
	Horizon   int       `json:"horizon"`
	Verdict   string    `json:"verdict"`
	CreatedAt time.Time `json:"created_at"`
}

// ValueTable is a run's persisted tick-by-node value table, in the model's
// node declaration order. Values[t][i] is the value of NodeIDs[i] at tick t.
type ValueTable struct {
	NodeIDs []string    `json:"node_ids"`
	Values  [][]float64 `json:"values"`
}

// RunStore archives simulation runs in a SQLite database.
type RunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// Open creates (if needed) and opens the run archive at dir/causaloop.db.
func Open(dir string) (*RunStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dbPath := filepath.Join(dir, "causaloop.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &RunStore{db: db, dbPath: dbPath}, nil
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// NewRunID returns a fresh unique run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// HashModel returns the stable content hash of a model description, used to
// tie archived runs back to the model file that produced them.
func HashModel(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SaveRun archives one run with its full value table in a single
// transaction.
func (s *RunStore) SaveRun(ctx context.Context, run Run, table ValueTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, model_hash, horizon, verdict, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.ModelHash, run.Horizon, run.Verdict, run.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_values (run_id, tick, node_id, node_idx, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing value insert: %w", err)
	}
	defer stmt.Close()

	for tick, row := range table.Values {
		for i, v := range row {
			if _, err := stmt.ExecContext(ctx, run.ID, tick, table.NodeIDs[i], i, v); err != nil {
				return fmt.Errorf("inserting value (tick %d, node %s): %w", tick, table.NodeIDs[i], err)
			}
		}
	}

	return tx.Commit()
}

// GetRun loads one archived run and its value table. It returns sql.ErrNoRows
// when the id is unknown.
func (s *RunStore) GetRun(ctx context.Context, id string) (Run, ValueTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var run Run
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, model_hash, horizon, verdict, created_at FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.Name, &run.ModelHash, &run.Horizon, &run.Verdict, &createdAt)
	if err != nil {
		return Run{}, ValueTable{}, err
	}
	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, ValueTable{}, fmt.Errorf("parsing created_at of run %s: %w", id, err)
	}

	table, err := s.loadValues(ctx, id)
	if err != nil {
		return Run{}, ValueTable{}, err
	}
	return run, table, nil
}

func (s *RunStore) loadValues(ctx context.Context, id string) (ValueTable, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, node_id, node_idx, value FROM run_values WHERE run_id = ? ORDER BY tick, node_idx`, id)
	if err != nil {
		return ValueTable{}, fmt.Errorf("loading values of run %s: %w", id, err)
	}
	defer rows.Close()

	var table ValueTable
	for rows.Next() {
		var tick, idx int
		var nodeID string
		var value float64
		if err := rows.Scan(&tick, &nodeID, &idx, &value); err != nil {
			return ValueTable{}, fmt.Errorf("scanning value row: %w", err)
		}
		if tick == 0 {
			table.NodeIDs = append(table.NodeIDs, nodeID)
		}
		for len(table.Values) <= tick {
			table.Values = append(table.Values, nil)
		}
		table.Values[tick] = append(table.Values[tick], value)
	}
	return table, rows.Err()
}

// ListRuns returns the archived run metadata, newest first.
func (s *RunStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, model_hash, horizon, verdict, created_at FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var createdAt string
		if err := rows.Scan(&run.ID, &run.Name, &run.ModelHash, &run.Horizon, &run.Verdict, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at of run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes an archived run and its values. Deleting an unknown id
// is a no-op.
func (s *RunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	return nil
}
