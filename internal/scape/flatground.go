package scape

import (
	"context"
	"fmt"

	"evocar/internal/config"
	"evocar/internal/model"
	"evocar/internal/physics"
	"evocar/internal/vehicle"
)

// FlatGroundScape runs a fixed-length rollout of a vehicle over a flat ground
// plane and scores it by the rearmost body's final x position.
type FlatGroundScape struct {
	World    config.World
	Episode  config.Episode
	Observer Observer
	// NewWorld builds the solver for each episode; nil means physics.NewWorld.
	NewWorld func(gravity model.Vec2) physics.World
}

func NewFlatGroundScape(cfg config.Config) FlatGroundScape {
	return FlatGroundScape{World: cfg.World, Episode: cfg.Episode}
}

func (FlatGroundScape) Name() string {
	return "flatground"
}

func (s FlatGroundScape) Evaluate(ctx context.Context, v model.Vehicle) (Result, error) {
	if len(v.Bodies) == 0 {
		return Result{}, fmt.Errorf("vehicle %s has no bodies", v.ID)
	}

	ground := NewGround(s.World)
	world := s.newWorld()
	world.AddStatic(groundSegment(ground))

	ids := make([]physics.BodyID, len(v.Bodies))
	for i, body := range v.Bodies {
		ids[i] = world.AddBody(body)
	}
	for i, link := range v.Links {
		if link.A < 0 || link.A >= len(ids) || link.B < 0 || link.B >= len(ids) {
			return Result{}, fmt.Errorf("vehicle %s link %d: %w", v.ID, i, physics.ErrUnknownBody)
		}
		if err := world.AddPin(ids[link.A], ids[link.B], link.Distance); err != nil {
			return Result{}, fmt.Errorf("vehicle %s link %d: %w", v.ID, i, err)
		}
	}

	positions := vehicle.InitialPositions(v)
	states := make([]physics.BodyState, len(ids))
	for i, body := range v.Bodies {
		states[i] = physics.BodyState{
			Position:        body.Position,
			Velocity:        body.Velocity,
			Angle:           body.Angle,
			AngularVelocity: body.AngularVelocity,
			Radius:          body.Radius,
		}
	}
	for step := 0; step < s.Episode.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		forces, err := vehicle.DriveForces(v, positions, ground.Height, s.Episode.WheelContactThreshold)
		if err != nil {
			return Result{}, err
		}
		for i, force := range forces {
			if err := world.SetForce(ids[i], force); err != nil {
				return Result{}, fmt.Errorf("vehicle %s step %d: %w", v.ID, step, err)
			}
		}
		if err := world.Step(s.Episode.StepDuration); err != nil {
			return Result{}, fmt.Errorf("vehicle %s step %d: %w", v.ID, step, err)
		}

		for i, id := range ids {
			state, err := world.State(id)
			if err != nil {
				return Result{}, fmt.Errorf("vehicle %s step %d: %w", v.ID, step, err)
			}
			states[i] = state
			positions[i] = state.Position
		}
		if s.Observer != nil {
			s.Observer.Observe(step, ground, states)
		}
	}

	fitness := vehicle.Score(positions)
	maxX, meanY := positions[0].X, 0.0
	for _, p := range positions {
		if p.X > maxX {
			maxX = p.X
		}
		meanY += p.Y
	}
	meanY /= float64(len(positions))

	return Result{
		Fitness: Fitness(fitness),
		Trace: Trace{
			"steps":       s.Episode.Steps,
			"final_min_x": fitness,
			"final_max_x": maxX,
			"mean_y":      meanY,
		},
		Final: states,
	}, nil
}

func (s FlatGroundScape) newWorld() physics.World {
	gravity := model.Vec2{Y: -s.World.Gravity}
	if s.NewWorld != nil {
		return s.NewWorld(gravity)
	}
	return physics.NewWorld(gravity)
}
