package stats

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"evocar/internal/config"
	"evocar/internal/model"
)

const (
	runIndexFile       = "run_index.json"
	configFile         = "config.json"
	fitnessHistoryFile = "fitness_history.json"
	fitnessSeriesFile  = "fitness_history.csv"
	diagnosticsFile    = "generation_diagnostics.json"
	topVehiclesFile    = "top_vehicles.json"
	lineageFile        = "lineage.json"
)

// exportedFiles lists the artifacts every run directory must contain.
var exportedFiles = []string{configFile, fitnessHistoryFile, fitnessSeriesFile, diagnosticsFile, topVehiclesFile, lineageFile}

type RunConfig struct {
	RunID          string        `json:"run_id"`
	Scape          string        `json:"scape"`
	PopulationSize int           `json:"population_size"`
	Survivors      int           `json:"survivors"`
	Generations    int           `json:"generations"`
	Seed           int64         `json:"seed"`
	Workers        int           `json:"workers"`
	Settings       config.Config `json:"settings"`
}

type RunArtifacts struct {
	Config                RunConfig                     `json:"config"`
	BestByGeneration      []float64                     `json:"best_by_generation"`
	GenerationDiagnostics []model.GenerationDiagnostics `json:"generation_diagnostics"`
	FinalBestFitness      float64                       `json:"final_best_fitness"`
	TopVehicles           []model.TopVehicleRecord      `json:"top_vehicles"`
	Lineage               []model.LineageRecord         `json:"lineage"`
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Scape            string  `json:"scape"`
	PopulationSize   int     `json:"population_size"`
	Survivors        int     `json:"survivors"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	Workers          int     `json:"workers"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	BestVehicleID    string  `json:"best_vehicle_id,omitempty"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	files := []struct {
		name  string
		value any
	}{
		{configFile, artifacts.Config},
		{fitnessHistoryFile, map[string]any{"best_by_generation": artifacts.BestByGeneration, "final_best_fitness": artifacts.FinalBestFitness}},
		{diagnosticsFile, artifacts.GenerationDiagnostics},
		{topVehiclesFile, artifacts.TopVehicles},
		{lineageFile, artifacts.Lineage},
	}
	for _, file := range files {
		if err := writeJSON(filepath.Join(runDir, file.name), file.value); err != nil {
			return "", fmt.Errorf("write %s: %w", file.name, err)
		}
	}
	if err := WriteFitnessSeries(runDir, artifacts.GenerationDiagnostics); err != nil {
		return "", fmt.Errorf("write %s: %w", fitnessSeriesFile, err)
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns indexed runs, newest first. Entries sharing a
// timestamp keep the most recently appended one first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := entries[order[i]], entries[order[j]]
		if a.CreatedAtUTC == b.CreatedAtUTC {
			return order[i] > order[j]
		}
		return a.CreatedAtUTC > b.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(entries))
	for _, idx := range order {
		sorted = append(sorted, entries[idx])
	}
	return sorted, nil
}

// readRunIndex returns the index in append order.
func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ExportRunArtifacts copies one run directory from baseDir into outDir.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range exportedFiles {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadTopVehicles(baseDir, runID string) ([]model.TopVehicleRecord, bool, error) {
	var top []model.TopVehicleRecord
	ok, err := readJSON(filepath.Join(baseDir, runID, topVehiclesFile), &top)
	return top, ok, err
}

func ReadGenerationDiagnostics(baseDir, runID string) ([]model.GenerationDiagnostics, bool, error) {
	var diagnostics []model.GenerationDiagnostics
	ok, err := readJSON(filepath.Join(baseDir, runID, diagnosticsFile), &diagnostics)
	return diagnostics, ok, err
}

func ReadLineage(baseDir, runID string) ([]model.LineageRecord, bool, error) {
	var lineage []model.LineageRecord
	ok, err := readJSON(filepath.Join(baseDir, runID, lineageFile), &lineage)
	return lineage, ok, err
}

// WriteFitnessSeries writes one CSV row per generation with the best, mean
// and worst fitness.
func WriteFitnessSeries(runDir string, diagnostics []model.GenerationDiagnostics) error {
	file, err := os.Create(filepath.Join(runDir, fitnessSeriesFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_fitness", "mean_fitness", "min_fitness", "best_vehicle_id"}); err != nil {
		return err
	}
	for _, diag := range diagnostics {
		if err := writer.Write([]string{
			strconv.Itoa(diag.Generation),
			strconv.FormatFloat(diag.BestFitness, 'f', -1, 64),
			strconv.FormatFloat(diag.MeanFitness, 'f', -1, 64),
			strconv.FormatFloat(diag.MinFitness, 'f', -1, 64),
			diag.BestVehicleID,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadFitnessSeries returns the best fitness column of a run's CSV series.
func ReadFitnessSeries(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, fitnessSeriesFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("fitness series header must have at least 2 columns")
	}

	series := make([]float64, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse generation %s: %w", record[0], err)
		}
		series = append(series, value)
	}
	return series, true, nil
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
