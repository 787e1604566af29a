package scape

import (
	"context"

	"evocar/internal/model"
	"evocar/internal/physics"
)

type Fitness float64

type Trace map[string]any

// Result is the outcome of one episode.
type Result struct {
	Fitness Fitness
	Trace   Trace
	// Final is the state of every body after the last step, in body order.
	// Scapes that do not simulate bodies leave it nil.
	Final []physics.BodyState
}

// Scape scores one vehicle by simulating it in an environment. The vehicle
// argument is never modified; its end state is reported in Result.Final.
type Scape interface {
	Name() string
	Evaluate(ctx context.Context, vehicle model.Vehicle) (Result, error)
}

// Observer receives a snapshot of every body after each physics step. The
// bodies slice is owned by the caller only for the duration of the call.
type Observer interface {
	Observe(step int, ground model.Ground, bodies []physics.BodyState)
}

type ObserverFunc func(step int, ground model.Ground, bodies []physics.BodyState)

func (f ObserverFunc) Observe(step int, ground model.Ground, bodies []physics.BodyState) {
	f(step, ground, bodies)
}
