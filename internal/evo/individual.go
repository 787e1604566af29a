package evo

import (
	"fmt"
	"math/rand"

	"evocar/internal/config"
	"evocar/internal/model"
	"evocar/internal/scape"
	"evocar/internal/vehicle"
)

// Individual is one population slot. Fitness is meaningful only once Scored
// is set; a scored individual is never simulated again.
type Individual struct {
	Vehicle model.Vehicle
	Fitness float64
	Scored  bool
	Trace   scape.Trace
}

const defaultIDPrefix = "vehicle"

// VehicleID formats the id of the idx-th vehicle entering the population at
// the given loop generation.
func VehicleID(prefix string, generation, idx int) string {
	if prefix == "" {
		prefix = defaultIDPrefix
	}
	return fmt.Sprintf("%s-g%d-i%d", prefix, generation, idx)
}

// SeedPopulation builds size fresh random vehicles. All draws come from rng,
// in population order.
func SeedPopulation(cfg config.Vehicle, rng *rand.Rand, size int, prefix string) []Individual {
	population := make([]Individual, size)
	for i := range population {
		population[i] = Individual{Vehicle: vehicle.New(cfg, rng, VehicleID(prefix, 0, i))}
	}
	return population
}

func unscoredIndices(population []Individual) []int {
	out := make([]int, 0, len(population))
	for i, item := range population {
		if !item.Scored {
			out = append(out, i)
		}
	}
	return out
}
