//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"evocar/internal/config"
	"evocar/internal/model"
)

func newInitializedSQLiteStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(path)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSQLiteStoreVehicleRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newInitializedSQLiteStore(t, filepath.Join(t.TempDir(), "evocar.db"))

	vehicle := sampleVehicle("flatground-1-g3-i0")
	if err := store.SaveVehicle(ctx, vehicle); err != nil {
		t.Fatalf("save vehicle: %v", err)
	}
	vehicle.FrontSpeed = 20
	vehicle.Bodies[0].AngularVelocity = 20
	if err := store.SaveVehicle(ctx, vehicle); err != nil {
		t.Fatalf("upsert vehicle: %v", err)
	}

	loaded, ok, err := store.GetVehicle(ctx, vehicle.ID)
	if err != nil {
		t.Fatalf("get vehicle: %v", err)
	}
	if !ok {
		t.Fatal("expected vehicle to exist")
	}
	if !reflect.DeepEqual(vehicle, loaded) {
		t.Fatalf("vehicle mismatch:\n%+v\n%+v", vehicle, loaded)
	}

	if _, ok, err := store.GetVehicle(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing vehicle, ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStoreRunRecordsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newInitializedSQLiteStore(t, filepath.Join(t.TempDir(), "evocar.db"))

	history := []float64{150, 180, 180}
	diagnostics := []model.GenerationDiagnostics{{Generation: 1, PopulationSize: 4, Evaluations: 4, Survivors: 2, BestFitness: 150, BestVehicleID: "a"}}
	top := []model.TopVehicleRecord{{VersionedRecord: versioned(), Rank: 1, Fitness: 180, Vehicle: sampleVehicle("a")}}
	lineage := []model.LineageRecord{{VersionedRecord: versioned(), VehicleID: "a", Operation: "seed", BodyCount: 3}}

	if err := store.SaveFitnessHistory(ctx, "run-1", history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	if err := store.SaveGenerationDiagnostics(ctx, "run-1", diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	if err := store.SaveTopVehicles(ctx, "run-1", top); err != nil {
		t.Fatalf("save top vehicles: %v", err)
	}
	if err := store.SaveLineage(ctx, "run-1", lineage); err != nil {
		t.Fatalf("save lineage: %v", err)
	}

	gotHistory, ok, err := store.GetFitnessHistory(ctx, "run-1")
	if err != nil || !ok || !reflect.DeepEqual(history, gotHistory) {
		t.Fatalf("unexpected history: ok=%t err=%v %+v", ok, err, gotHistory)
	}
	gotDiagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "run-1")
	if err != nil || !ok || !reflect.DeepEqual(diagnostics, gotDiagnostics) {
		t.Fatalf("unexpected diagnostics: ok=%t err=%v %+v", ok, err, gotDiagnostics)
	}
	gotTop, ok, err := store.GetTopVehicles(ctx, "run-1")
	if err != nil || !ok || !reflect.DeepEqual(top, gotTop) {
		t.Fatalf("unexpected top vehicles: ok=%t err=%v %+v", ok, err, gotTop)
	}
	gotLineage, ok, err := store.GetLineage(ctx, "run-1")
	if err != nil || !ok || !reflect.DeepEqual(lineage, gotLineage) {
		t.Fatalf("unexpected lineage: ok=%t err=%v %+v", ok, err, gotLineage)
	}

	if _, ok, err := store.GetLineage(ctx, "run-2"); err != nil || ok {
		t.Fatalf("expected missing run, ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "evocar.db")

	first := NewSQLiteStore(dbPath)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := first.SaveFitnessHistory(ctx, "run-1", []float64{1, 2}); err != nil {
		t.Fatalf("save history: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := newInitializedSQLiteStore(t, dbPath)
	history, ok, err := second.GetFitnessHistory(ctx, "run-1")
	if err != nil || !ok || len(history) != 2 {
		t.Fatalf("expected history after reopen: ok=%t err=%v %+v", ok, err, history)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "evocar.db"))
	if err := store.SaveFitnessHistory(context.Background(), "run-1", nil); err == nil {
		t.Fatal("expected error before init")
	}
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNewStoreSQLite(t *testing.T) {
	store, err := NewStore(config.Storage{Kind: KindSQLite, DBPath: filepath.Join(t.TempDir(), "evocar.db")})
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	if _, ok := store.(*SQLiteStore); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close sqlite store: %v", err)
	}
}
