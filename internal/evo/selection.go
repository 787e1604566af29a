package evo

import (
	"fmt"
	"sort"
)

// Selector picks the individuals that survive into the next generation.
type Selector interface {
	Name() string
	Select(population []Individual, k int) ([]Individual, error)
}

// TruncationSelector keeps the k best scored individuals. Ties keep their
// population order.
type TruncationSelector struct{}

func (TruncationSelector) Name() string {
	return "truncation"
}

func (TruncationSelector) Select(population []Individual, k int) ([]Individual, error) {
	if k <= 0 {
		return nil, fmt.Errorf("invalid survivor count: %d", k)
	}
	for _, item := range population {
		if !item.Scored {
			return nil, fmt.Errorf("individual %s has not been evaluated", item.Vehicle.ID)
		}
	}
	ranked := Rank(population)
	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k], nil
}

// Rank returns a copy of population ordered by fitness, best first.
func Rank(population []Individual) []Individual {
	ranked := make([]Individual, len(population))
	copy(ranked, population)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})
	return ranked
}
