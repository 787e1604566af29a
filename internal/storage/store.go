package storage

import (
	"context"

	"evocar/internal/model"
)

// Store persists the history of finished runs: champion vehicles, per
// generation fitness, diagnostics, lineage and the final ranking. Populations
// themselves are never stored, so a run cannot be resumed from a store.
type Store interface {
	Init(ctx context.Context) error
	SaveVehicle(ctx context.Context, vehicle model.Vehicle) error
	GetVehicle(ctx context.Context, id string) (model.Vehicle, bool, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	SaveTopVehicles(ctx context.Context, runID string, top []model.TopVehicleRecord) error
	GetTopVehicles(ctx context.Context, runID string) ([]model.TopVehicleRecord, bool, error)
	SaveLineage(ctx context.Context, runID string, lineage []model.LineageRecord) error
	GetLineage(ctx context.Context, runID string) ([]model.LineageRecord, bool, error)
}
