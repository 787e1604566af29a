package evocar

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"evocar/internal/config"
	"evocar/internal/evo"
	"evocar/internal/model"
	"evocar/internal/scape"
	"evocar/internal/stats"
	"evocar/internal/storage"
)

type Options struct {
	// Config is used as given; callers load and override it beforehand.
	Config   config.Config
	Logger   zerolog.Logger
	Observer scape.Observer
}

type Client struct {
	cfg      config.Config
	store    storage.Store
	logger   zerolog.Logger
	observer scape.Observer
	metrics  *evo.Metrics
	now      func() time.Time

	mu          sync.Mutex
	initialized bool
}

// RunRequest overrides parts of the client configuration for one run. Zero
// values keep the configured setting.
type RunRequest struct {
	RunID       string
	Population  int
	Survivors   int
	Generations int
	Steps       int
	Workers     int
	Seed        int64
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	BestByGeneration []float64
	FinalBestFitness float64
	BestVehicleID    string
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Scape            string
	Seed             int64
	Population       int
	Survivors        int
	Generations      int
	FinalBestFitness float64
	BestVehicleID    string
}

// QueryRequest addresses one stored run, either by id or as the most recent
// entry of the run index.
type QueryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	metrics, err := evo.NewMetrics()
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:      cfg,
		store:    store,
		logger:   opts.Logger,
		observer: opts.Observer,
		metrics:  metrics,
		now:      time.Now,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init %s store: %w", c.cfg.Storage.Kind, err)
	}
	c.initialized = true
	return nil
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg := c.runConfig(req)
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, err
	}
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	flat := scape.NewFlatGroundScape(cfg)
	flat.Observer = c.observer

	now := c.now().UTC()
	runID := req.RunID
	if runID == "" {
		runID = fmt.Sprintf("%s-%d-%d", flat.Name(), cfg.Evolution.Seed, now.Unix())
	}
	logger := c.logger.With().Str("run_id", runID).Logger()

	rng := rand.New(rand.NewSource(cfg.Evolution.Seed))
	initial := evo.SeedPopulation(cfg.Vehicle, rng, cfg.Evolution.PopulationSize, runID)

	monitor, err := evo.NewPopulationMonitor(evo.MonitorConfig{
		Scape: flat,
		Mutation: &evo.SpeedMutation{
			Rand: rng,
			Span: cfg.Evolution.MutationSpan,
			Min:  cfg.Vehicle.MinWheelSpeed,
			Max:  cfg.Vehicle.MaxWheelSpeed,
		},
		Selector:       evo.TruncationSelector{},
		PopulationSize: cfg.Evolution.PopulationSize,
		SurvivorCount:  cfg.Evolution.Survivors,
		Generations:    cfg.Evolution.Generations,
		Workers:        cfg.Evolution.Workers,
		IDPrefix:       runID,
		Logger:         logger,
		Metrics:        c.metrics,
	})
	if err != nil {
		return RunSummary{}, err
	}

	logger.Info().
		Int64("seed", cfg.Evolution.Seed).
		Int("population", cfg.Evolution.PopulationSize).
		Int("survivors", cfg.Evolution.Survivors).
		Int("generations", cfg.Evolution.Generations).
		Msg("run started")

	result, err := monitor.Run(ctx, initial)
	if err != nil {
		return RunSummary{}, fmt.Errorf("run %s: %w", runID, err)
	}

	top := topVehicles(result.FinalRanked, cfg.Evolution.Survivors)
	best := result.FinalRanked[0]
	if err := c.persist(ctx, runID, result, top); err != nil {
		return RunSummary{}, fmt.Errorf("persist run %s: %w", runID, err)
	}

	runDir, err := stats.WriteRunArtifacts(cfg.Storage.BenchmarksDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:          runID,
			Scape:          flat.Name(),
			PopulationSize: cfg.Evolution.PopulationSize,
			Survivors:      cfg.Evolution.Survivors,
			Generations:    cfg.Evolution.Generations,
			Seed:           cfg.Evolution.Seed,
			Workers:        cfg.Evolution.Workers,
			Settings:       cfg,
		},
		BestByGeneration:      result.BestByGeneration,
		GenerationDiagnostics: result.GenerationDiagnostics,
		FinalBestFitness:      best.Fitness,
		TopVehicles:           top,
		Lineage:               result.Lineage,
	})
	if err != nil {
		return RunSummary{}, err
	}

	if err := stats.AppendRunIndex(cfg.Storage.BenchmarksDir, stats.RunIndexEntry{
		RunID:            runID,
		Scape:            flat.Name(),
		PopulationSize:   cfg.Evolution.PopulationSize,
		Survivors:        cfg.Evolution.Survivors,
		Generations:      cfg.Evolution.Generations,
		Seed:             cfg.Evolution.Seed,
		Workers:          cfg.Evolution.Workers,
		FinalBestFitness: best.Fitness,
		BestVehicleID:    best.Vehicle.ID,
		CreatedAtUTC:     now.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}

	logger.Info().
		Str("best_id", best.Vehicle.ID).
		Float64("best_fitness", best.Fitness).
		Str("artifacts", runDir).
		Msg("run finished")

	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     filepath.Clean(runDir),
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		FinalBestFitness: best.Fitness,
		BestVehicleID:    best.Vehicle.ID,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.cfg.Storage.BenchmarksDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     e.CreatedAtUTC,
			Scape:            e.Scape,
			Seed:             e.Seed,
			Population:       e.PopulationSize,
			Survivors:        e.Survivors,
			Generations:      e.Generations,
			FinalBestFitness: e.FinalBestFitness,
			BestVehicleID:    e.BestVehicleID,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.cfg.Storage.ExportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.cfg.Storage.BenchmarksDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req QueryRequest) ([]float64, error) {
	runID, err := c.prepareQuery(ctx, req, "fitness history")
	if err != nil {
		return nil, err
	}
	history, ok, err := lookup(
		func() ([]float64, bool, error) { return c.store.GetFitnessHistory(ctx, runID) },
		func() ([]float64, bool, error) { return stats.ReadFitnessSeries(c.cfg.Storage.BenchmarksDir, runID) },
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	return limit(history, req.Limit), nil
}

func (c *Client) Diagnostics(ctx context.Context, req QueryRequest) ([]model.GenerationDiagnostics, error) {
	runID, err := c.prepareQuery(ctx, req, "diagnostics")
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := lookup(
		func() ([]model.GenerationDiagnostics, bool, error) { return c.store.GetGenerationDiagnostics(ctx, runID) },
		func() ([]model.GenerationDiagnostics, bool, error) { return stats.ReadGenerationDiagnostics(c.cfg.Storage.BenchmarksDir, runID) },
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	return limit(diagnostics, req.Limit), nil
}

func (c *Client) Lineage(ctx context.Context, req QueryRequest) ([]model.LineageRecord, error) {
	runID, err := c.prepareQuery(ctx, req, "lineage")
	if err != nil {
		return nil, err
	}
	lineage, ok, err := lookup(
		func() ([]model.LineageRecord, bool, error) { return c.store.GetLineage(ctx, runID) },
		func() ([]model.LineageRecord, bool, error) { return stats.ReadLineage(c.cfg.Storage.BenchmarksDir, runID) },
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("lineage not found for run id: %s", runID)
	}
	return limit(lineage, req.Limit), nil
}

func (c *Client) TopVehicles(ctx context.Context, req QueryRequest) ([]model.TopVehicleRecord, error) {
	runID, err := c.prepareQuery(ctx, req, "top vehicles")
	if err != nil {
		return nil, err
	}
	top, ok, err := lookup(
		func() ([]model.TopVehicleRecord, bool, error) { return c.store.GetTopVehicles(ctx, runID) },
		func() ([]model.TopVehicleRecord, bool, error) { return stats.ReadTopVehicles(c.cfg.Storage.BenchmarksDir, runID) },
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("top vehicles not found for run id: %s", runID)
	}
	return limit(top, req.Limit), nil
}

// Vehicle loads a stored champion by id.
func (c *Client) Vehicle(ctx context.Context, id string) (model.Vehicle, error) {
	if id == "" {
		return model.Vehicle{}, errors.New("vehicle id is required")
	}
	if err := c.Init(ctx); err != nil {
		return model.Vehicle{}, err
	}
	v, ok, err := c.store.GetVehicle(ctx, id)
	if err != nil {
		return model.Vehicle{}, err
	}
	if !ok {
		return model.Vehicle{}, fmt.Errorf("vehicle not found: %s", id)
	}
	return v, nil
}

func (c *Client) runConfig(req RunRequest) config.Config {
	cfg := c.cfg
	if req.Population > 0 {
		cfg.Evolution.PopulationSize = req.Population
	}
	if req.Survivors > 0 {
		cfg.Evolution.Survivors = req.Survivors
	}
	if req.Generations > 0 {
		cfg.Evolution.Generations = req.Generations
	}
	if req.Steps > 0 {
		cfg.Episode.Steps = req.Steps
	}
	if req.Workers > 0 {
		cfg.Evolution.Workers = req.Workers
	}
	if req.Seed != 0 {
		cfg.Evolution.Seed = req.Seed
	}
	return cfg
}

func (c *Client) persist(ctx context.Context, runID string, result evo.RunResult, top []model.TopVehicleRecord) error {
	if err := c.store.SaveFitnessHistory(ctx, runID, result.BestByGeneration); err != nil {
		return err
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, result.GenerationDiagnostics); err != nil {
		return err
	}
	if err := c.store.SaveLineage(ctx, runID, result.Lineage); err != nil {
		return err
	}
	if err := c.store.SaveTopVehicles(ctx, runID, top); err != nil {
		return err
	}
	for _, record := range top {
		if err := c.store.SaveVehicle(ctx, record.Vehicle); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) prepareQuery(ctx context.Context, req QueryRequest, what string) (string, error) {
	if req.Limit < 0 {
		return "", errors.New("limit must be >= 0")
	}
	if req.RunID == "" && !req.Latest {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return "", err
	}
	if err := c.Init(ctx); err != nil {
		return "", err
	}
	return runID, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if !latest {
		return runID, nil
	}
	entries, err := stats.ListRunIndex(c.cfg.Storage.BenchmarksDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func topVehicles(ranked []evo.Individual, n int) []model.TopVehicleRecord {
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]model.TopVehicleRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.TopVehicleRecord{
			VersionedRecord: model.VersionedRecord{
				SchemaVersion: storage.CurrentSchemaVersion,
				CodecVersion:  storage.CurrentCodecVersion,
			},
			Rank:    i + 1,
			Fitness: ranked[i].Fitness,
			Vehicle: ranked[i].Vehicle,
		})
	}
	return out
}

// lookup prefers the store and falls back to the run's artifact files, which
// outlive an in-memory store.
// lookup prefers the store and falls back to the run's on-disk artifacts,
// which outlive a memory store.
func lookup[T any](fromStore, fromArtifacts func() (T, bool, error)) (T, bool, error) {
	value, ok, err := fromStore()
	if err != nil || ok {
		return value, ok, err
	}
	return fromArtifacts()
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return append([]T(nil), items...)
}
