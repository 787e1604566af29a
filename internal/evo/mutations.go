package evo

import (
	"context"
	"errors"
	"math/rand"

	"evocar/internal/model"
	"evocar/internal/vehicle"
)

var ErrNoBodies = errors.New("vehicle has no bodies")

// SpeedMutation perturbs both drive speeds by an integer drawn from
// [-Span, Span) and clamps the result to [Min, Max]. Geometry is untouched.
type SpeedMutation struct {
	Rand *rand.Rand
	Span int
	Min  int
	Max  int
}

func (o *SpeedMutation) Name() string {
	return "speed_mutation"
}

func (o *SpeedMutation) Apply(_ context.Context, v model.Vehicle) (model.Vehicle, error) {
	if o.Rand == nil {
		return model.Vehicle{}, errors.New("random source is required")
	}
	if len(v.Bodies) == 0 {
		return model.Vehicle{}, ErrNoBodies
	}

	mutated := vehicle.Clone(v, v.ID)
	mutated.RearSpeed = o.perturb(v.RearSpeed)
	mutated.FrontSpeed = o.perturb(v.FrontSpeed)
	return mutated, nil
}

func (o *SpeedMutation) perturb(speed float64) float64 {
	if o.Span > 0 {
		speed += float64(o.Rand.Intn(2*o.Span) - o.Span)
	}
	return clamp(speed, float64(o.Min), float64(o.Max))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
