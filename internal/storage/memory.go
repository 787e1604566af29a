package storage

import (
	"context"
	"sync"

	"evocar/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	vehicles    map[string]model.Vehicle
	history     map[string][]float64
	diagnostics map[string][]model.GenerationDiagnostics
	topVehicles map[string][]model.TopVehicleRecord
	lineage     map[string][]model.LineageRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.vehicles = make(map[string]model.Vehicle)
	s.history = make(map[string][]float64)
	s.diagnostics = make(map[string][]model.GenerationDiagnostics)
	s.topVehicles = make(map[string][]model.TopVehicleRecord)
	s.lineage = make(map[string][]model.LineageRecord)
	return nil
}

func (s *MemoryStore) SaveVehicle(_ context.Context, vehicle model.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vehicles[vehicle.ID] = copyVehicle(vehicle)
	return nil
}

func (s *MemoryStore) GetVehicle(_ context.Context, id string) (model.Vehicle, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vehicle, ok := s.vehicles[id]
	if !ok {
		return model.Vehicle{}, false, nil
	}
	return copyVehicle(vehicle), true, nil
}

func (s *MemoryStore) SaveFitnessHistory(_ context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[runID] = append([]float64(nil), history...)
	return nil
}

func (s *MemoryStore) GetFitnessHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), history...), true, nil
}

func (s *MemoryStore) SaveGenerationDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.diagnostics[runID] = append([]model.GenerationDiagnostics(nil), diagnostics...)
	return nil
}

func (s *MemoryStore) GetGenerationDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.GenerationDiagnostics(nil), diagnostics...), true, nil
}

func (s *MemoryStore) SaveTopVehicles(_ context.Context, runID string, top []model.TopVehicleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.topVehicles[runID] = copyTopVehicles(top)
	return nil
}

func (s *MemoryStore) GetTopVehicles(_ context.Context, runID string) ([]model.TopVehicleRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	top, ok := s.topVehicles[runID]
	if !ok {
		return nil, false, nil
	}
	return copyTopVehicles(top), true, nil
}

func (s *MemoryStore) SaveLineage(_ context.Context, runID string, lineage []model.LineageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lineage[runID] = append([]model.LineageRecord(nil), lineage...)
	return nil
}

func (s *MemoryStore) GetLineage(_ context.Context, runID string) ([]model.LineageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lineage, ok := s.lineage[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.LineageRecord(nil), lineage...), true, nil
}

func copyVehicle(v model.Vehicle) model.Vehicle {
	v.Bodies = append([]model.Body(nil), v.Bodies...)
	v.Links = append([]model.Link(nil), v.Links...)
	return v
}

func copyTopVehicles(top []model.TopVehicleRecord) []model.TopVehicleRecord {
	out := make([]model.TopVehicleRecord, len(top))
	for i, record := range top {
		record.Vehicle = copyVehicle(record.Vehicle)
		out[i] = record
	}
	return out
}
