package evo

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"evocar/internal/model"
	"evocar/internal/scape"
	"evocar/internal/storage"
	"evocar/internal/vehicle"
)

type RunResult struct {
	BestByGeneration      []float64
	GenerationDiagnostics []model.GenerationDiagnostics
	Lineage               []model.LineageRecord
	// FinalRanked is the last evaluated generation, best first.
	FinalRanked []Individual
	// Population is the generation produced after the last selection; its
	// offspring are still unscored.
	Population []Individual
}

type MonitorConfig struct {
	Scape          scape.Scape
	Mutation       Operator
	Selector       Selector
	PopulationSize int
	SurvivorCount  int
	Generations    int
	Workers        int
	// IDPrefix namespaces offspring ids, typically with the run id.
	IDPrefix string
	Logger   zerolog.Logger
	Metrics  *Metrics
}

type PopulationMonitor struct {
	cfg MonitorConfig
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.Scape == nil {
		return nil, fmt.Errorf("scape is required")
	}
	if cfg.Mutation == nil {
		return nil, fmt.Errorf("mutation operator is required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.SurvivorCount <= 0 {
		return nil, fmt.Errorf("survivor count must be > 0")
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("generations must be > 0")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Selector == nil {
		cfg.Selector = TruncationSelector{}
	}
	return &PopulationMonitor{cfg: cfg}, nil
}

func (m *PopulationMonitor) Run(ctx context.Context, initial []Individual) (RunResult, error) {
	if len(initial) != m.cfg.PopulationSize {
		return RunResult{}, fmt.Errorf("initial population mismatch: got=%d want=%d", len(initial), m.cfg.PopulationSize)
	}

	population := make([]Individual, len(initial))
	copy(population, initial)

	bestHistory := make([]float64, 0, m.cfg.Generations)
	diagnostics := make([]model.GenerationDiagnostics, 0, m.cfg.Generations)
	lineage := make([]model.LineageRecord, 0, len(initial)*(m.cfg.Generations+1))
	for _, item := range population {
		lineage = append(lineage, lineageRecord(item.Vehicle, "", 0, "seed"))
	}

	var ranked []Individual
	for gen := 0; gen < m.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		evaluations, err := m.evaluatePopulation(ctx, population)
		if err != nil {
			return RunResult{}, err
		}

		ranked = Rank(population)
		survivors, err := m.cfg.Selector.Select(population, m.cfg.SurvivorCount)
		if err != nil {
			return RunResult{}, err
		}

		best := ranked[0]
		bestHistory = append(bestHistory, best.Fitness)
		summary := summarizeGeneration(ranked, gen+1, evaluations, len(survivors))
		diagnostics = append(diagnostics, summary)
		m.cfg.Logger.Info().
			Int("generation", summary.Generation).
			Str("best_id", best.Vehicle.ID).
			Float64("best_fitness", best.Fitness).
			Float64("mean_fitness", summary.MeanFitness).
			Int("population", len(population)).
			Int("evaluations", evaluations).
			Msg("generation complete")

		var generationLineage []model.LineageRecord
		population, generationLineage, err = m.nextGeneration(ctx, survivors, gen)
		if err != nil {
			return RunResult{}, err
		}
		lineage = append(lineage, generationLineage...)
		m.cfg.Metrics.recordGeneration(ctx, m.cfg.Scape.Name())
	}

	return RunResult{
		BestByGeneration:      bestHistory,
		GenerationDiagnostics: diagnostics,
		Lineage:               lineage,
		FinalRanked:           ranked,
		Population:            population,
	}, nil
}

func summarizeGeneration(ranked []Individual, generation, evaluations, survivors int) model.GenerationDiagnostics {
	if len(ranked) == 0 {
		return model.GenerationDiagnostics{Generation: generation}
	}

	total := 0.0
	minFitness := ranked[0].Fitness
	for _, item := range ranked {
		total += item.Fitness
		if item.Fitness < minFitness {
			minFitness = item.Fitness
		}
	}

	return model.GenerationDiagnostics{
		Generation:     generation,
		PopulationSize: len(ranked),
		Evaluations:    evaluations,
		Survivors:      survivors,
		BestFitness:    ranked[0].Fitness,
		MeanFitness:    total / float64(len(ranked)),
		MinFitness:     minFitness,
		BestVehicleID:  ranked[0].Vehicle.ID,
	}
}

// evaluatePopulation scores every unscored individual in place and returns
// how many episodes were run. Each evaluated vehicle is replaced by its
// settled form, so survivors and their offspring continue from where the
// episode left the bodies. With one worker the episodes run in population
// order; each worker writes only the slot it was handed.
func (m *PopulationMonitor) evaluatePopulation(ctx context.Context, population []Individual) (int, error) {
	pending := unscoredIndices(population)
	if len(pending) == 0 {
		return 0, nil
	}

	jobs := make(chan int)
	errs := make([]error, len(population))

	workerCount := m.cfg.Workers
	if workerCount > len(pending) {
		workerCount = len(pending)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					errs[idx] = err
					continue
				}
				errs[idx] = m.evaluateIndividual(ctx, &population[idx])
			}
		}()
	}

	for _, idx := range pending {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	for _, idx := range pending {
		if errs[idx] != nil {
			return 0, errs[idx]
		}
	}
	return len(pending), nil
}

func (m *PopulationMonitor) evaluateIndividual(ctx context.Context, item *Individual) error {
	result, err := m.cfg.Scape.Evaluate(ctx, item.Vehicle)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", item.Vehicle.ID, err)
	}
	if result.Final != nil {
		settled, err := vehicle.Settle(item.Vehicle, result.Final)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", item.Vehicle.ID, err)
		}
		item.Vehicle = settled
	}
	item.Fitness = float64(result.Fitness)
	item.Trace = result.Trace
	item.Scored = true

	m.cfg.Metrics.recordEpisode(ctx, m.cfg.Scape.Name(), item.Fitness)
	m.cfg.Logger.Debug().
		Str("vehicle", item.Vehicle.ID).
		Int("bodies", len(item.Vehicle.Bodies)).
		Float64("fitness", item.Fitness).
		Msg("episode complete")
	return nil
}

// nextGeneration interleaves each survivor with one mutated offspring.
func (m *PopulationMonitor) nextGeneration(ctx context.Context, survivors []Individual, generation int) ([]Individual, []model.LineageRecord, error) {
	next := make([]Individual, 0, 2*len(survivors))
	lineage := make([]model.LineageRecord, 0, 2*len(survivors))
	nextGeneration := generation + 1

	for _, survivor := range survivors {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		next = append(next, survivor)
		lineage = append(lineage, lineageRecord(survivor.Vehicle, survivor.Vehicle.ID, nextGeneration, "survivor"))

		child, record, err := m.mutateFromParent(ctx, survivor.Vehicle, nextGeneration, len(next))
		if err != nil {
			return nil, nil, err
		}
		next = append(next, Individual{Vehicle: child})
		lineage = append(lineage, record)
	}
	return next, lineage, nil
}

func (m *PopulationMonitor) mutateFromParent(ctx context.Context, parent model.Vehicle, generation, nextIndex int) (model.Vehicle, model.LineageRecord, error) {
	child := vehicle.Clone(parent, VehicleID(m.cfg.IDPrefix, generation, nextIndex))
	child.Generation = parent.Generation + 1

	mutated, err := m.cfg.Mutation.Apply(ctx, child)
	if err != nil {
		return model.Vehicle{}, model.LineageRecord{}, fmt.Errorf("mutate %s: %w", parent.ID, err)
	}
	return mutated, lineageRecord(mutated, parent.ID, generation, m.cfg.Mutation.Name()), nil
}

func lineageRecord(v model.Vehicle, parentID string, generation int, operation string) model.LineageRecord {
	return model.LineageRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		VehicleID:  v.ID,
		ParentID:   parentID,
		Generation: generation,
		Operation:  operation,
		BodyCount:  len(v.Bodies),
		FrontSpeed: v.FrontSpeed,
		RearSpeed:  v.RearSpeed,
	}
}
