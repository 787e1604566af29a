//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"evocar/internal/model"

	_ "modernc.org/sqlite"
)

// Run-scoped payload tables, keyed by run id.
const (
	tableFitnessHistory = "fitness_history"
	tableDiagnostics    = "diagnostics"
	tableTopVehicles    = "top_vehicles"
	tableLineage        = "lineage"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveVehicle(ctx context.Context, vehicle model.Vehicle) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeVehicle(vehicle)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO vehicles (id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, vehicle.ID, vehicle.SchemaVersion, vehicle.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetVehicle(ctx context.Context, id string) (model.Vehicle, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Vehicle{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM vehicles WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Vehicle{}, false, nil
		}
		return model.Vehicle{}, false, err
	}

	vehicle, err := DecodeVehicle(payload)
	if err != nil {
		return model.Vehicle{}, false, fmt.Errorf("decode vehicle %s: %w", id, err)
	}
	return vehicle, true, nil
}

func (s *SQLiteStore) SaveFitnessHistory(ctx context.Context, runID string, history []float64) error {
	payload, err := EncodeFitnessHistory(history)
	if err != nil {
		return err
	}
	return s.putRunPayload(ctx, tableFitnessHistory, runID, payload)
}

func (s *SQLiteStore) GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error) {
	payload, ok, err := s.getRunPayload(ctx, tableFitnessHistory, runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	history, err := DecodeFitnessHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode fitness history %s: %w", runID, err)
	}
	return history, true, nil
}

func (s *SQLiteStore) SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	payload, err := EncodeGenerationDiagnostics(diagnostics)
	if err != nil {
		return err
	}
	return s.putRunPayload(ctx, tableDiagnostics, runID, payload)
}

func (s *SQLiteStore) GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	payload, ok, err := s.getRunPayload(ctx, tableDiagnostics, runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	diagnostics, err := DecodeGenerationDiagnostics(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode diagnostics %s: %w", runID, err)
	}
	return diagnostics, true, nil
}

func (s *SQLiteStore) SaveTopVehicles(ctx context.Context, runID string, top []model.TopVehicleRecord) error {
	payload, err := EncodeTopVehicles(top)
	if err != nil {
		return err
	}
	return s.putRunPayload(ctx, tableTopVehicles, runID, payload)
}

func (s *SQLiteStore) GetTopVehicles(ctx context.Context, runID string) ([]model.TopVehicleRecord, bool, error) {
	payload, ok, err := s.getRunPayload(ctx, tableTopVehicles, runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	top, err := DecodeTopVehicles(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode top vehicles %s: %w", runID, err)
	}
	return top, true, nil
}

func (s *SQLiteStore) SaveLineage(ctx context.Context, runID string, lineage []model.LineageRecord) error {
	payload, err := EncodeLineage(lineage)
	if err != nil {
		return err
	}
	return s.putRunPayload(ctx, tableLineage, runID, payload)
}

func (s *SQLiteStore) GetLineage(ctx context.Context, runID string) ([]model.LineageRecord, bool, error) {
	payload, ok, err := s.getRunPayload(ctx, tableLineage, runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	lineage, err := DecodeLineage(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode lineage %s: %w", runID, err)
	}
	return lineage, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// putRunPayload upserts one run-scoped payload. table is always one of the
// package constants above and never user input.
func (s *SQLiteStore) putRunPayload(ctx context.Context, table, runID string, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO `+table+` (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET payload = excluded.payload
	`, runID, payload)
	return err
}

func (s *SQLiteStore) getRunPayload(ctx context.Context, table, runID string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}
	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM `+table+` WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS vehicles (
			id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create vehicles table: %w", err)
	}
	for _, table := range []string{tableFitnessHistory, tableDiagnostics, tableTopVehicles, tableLineage} {
		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS `+table+` (
				run_id TEXT PRIMARY KEY,
				payload BLOB NOT NULL
			)
		`); err != nil {
			return fmt.Errorf("create %s table: %w", table, err)
		}
	}
	return nil
}
