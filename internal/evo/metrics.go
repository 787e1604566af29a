package evo

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "evocar/internal/evo"

// Metrics reports evaluation progress through the global OTel meter, which
// is a no-op unless a provider has been installed.
type Metrics struct {
	episodes    metric.Int64Counter
	fitness     metric.Float64Histogram
	generations metric.Int64Counter
}

func NewMetrics() (*Metrics, error) {
	m := otel.Meter(instrumentationName)

	episodes, err := m.Int64Counter(
		"evocar.episodes.completed",
		metric.WithDescription("Simulation episodes run to completion"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating episodes counter: %w", err)
	}

	fitness, err := m.Float64Histogram(
		"evocar.episode.fitness",
		metric.WithDescription("Fitness scored by each simulation episode"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fitness histogram: %w", err)
	}

	generations, err := m.Int64Counter(
		"evocar.generations.completed",
		metric.WithDescription("Generations evaluated and reproduced"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating generations counter: %w", err)
	}

	return &Metrics{episodes: episodes, fitness: fitness, generations: generations}, nil
}

func (m *Metrics) recordEpisode(ctx context.Context, scapeName string, fitness float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("scape", scapeName))
	m.episodes.Add(ctx, 1, attrs)
	m.fitness.Record(ctx, fitness, attrs)
}

func (m *Metrics) recordGeneration(ctx context.Context, scapeName string) {
	if m == nil {
		return
	}
	m.generations.Add(ctx, 1, metric.WithAttributes(attribute.String("scape", scapeName)))
}
