package physics

import (
	"errors"

	"evocar/internal/model"
)

var (
	// ErrSolverDiverged reports a body whose state became non-finite during a step.
	ErrSolverDiverged = errors.New("physics solver diverged")
	ErrUnknownBody    = errors.New("unknown body")
)

// BodyID indexes a body inside one World, in insertion order.
type BodyID int

// BodyState is the runtime snapshot of a dynamic body.
type BodyState struct {
	Position        model.Vec2 `json:"position"`
	Velocity        model.Vec2 `json:"velocity"`
	Angle           float64    `json:"angle"`
	AngularVelocity float64    `json:"angular_velocity"`
	Radius          float64    `json:"radius"`
}

// Segment is a static line shape, used for the ground.
type Segment struct {
	A        model.Vec2
	B        model.Vec2
	Friction float64
}

// World is the rigid-body solver contract the simulation relies on. A World
// is owned by a single episode and is not safe for concurrent use.
type World interface {
	AddStatic(seg Segment)
	AddBody(body model.Body) BodyID
	AddPin(a, b BodyID, distance float64) error
	SetForce(id BodyID, force model.Vec2) error
	Step(dt float64) error
	State(id BodyID) (BodyState, error)
	BodyCount() int
}
