package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"evocar/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeVehicle(v model.Vehicle) ([]byte, error) {
	return json.Marshal(v)
}

func DecodeVehicle(data []byte) (model.Vehicle, error) {
	var vehicle model.Vehicle
	if err := json.Unmarshal(data, &vehicle); err != nil {
		return model.Vehicle{}, err
	}
	if err := checkVersion(vehicle.VersionedRecord); err != nil {
		return model.Vehicle{}, fmt.Errorf("vehicle %s: %w", vehicle.ID, err)
	}
	if err := validateVehicle(vehicle); err != nil {
		return model.Vehicle{}, err
	}
	return vehicle, nil
}

func EncodeLineage(records []model.LineageRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodeLineage(data []byte) ([]model.LineageRecord, error) {
	var records []model.LineageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func EncodeTopVehicles(top []model.TopVehicleRecord) ([]byte, error) {
	return json.Marshal(top)
}

func DecodeTopVehicles(data []byte) ([]model.TopVehicleRecord, error) {
	var top []model.TopVehicleRecord
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	for _, record := range top {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
		if err := checkVersion(record.Vehicle.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return top, nil
}

func EncodeFitnessHistory(history []float64) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeFitnessHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func EncodeGenerationDiagnostics(diagnostics []model.GenerationDiagnostics) ([]byte, error) {
	return json.Marshal(diagnostics)
}

func DecodeGenerationDiagnostics(data []byte) ([]model.GenerationDiagnostics, error) {
	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, err
	}
	return diagnostics, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

// validateVehicle rejects payloads whose wheel or link indices point outside
// the body list.
func validateVehicle(v model.Vehicle) error {
	n := len(v.Bodies)
	if n == 0 {
		return fmt.Errorf("vehicle %s has no bodies", v.ID)
	}
	if v.FrontWheel < 0 || v.FrontWheel >= n {
		return fmt.Errorf("vehicle %s front wheel %d out of range", v.ID, v.FrontWheel)
	}
	if v.RearWheel != model.NoWheel && !v.HasRearWheel() {
		return fmt.Errorf("vehicle %s rear wheel %d out of range", v.ID, v.RearWheel)
	}
	for i, link := range v.Links {
		if link.A < 0 || link.A >= n || link.B < 0 || link.B >= n {
			return fmt.Errorf("vehicle %s link %d references missing body", v.ID, i)
		}
	}
	return nil
}
