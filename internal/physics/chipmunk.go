package physics

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"

	"evocar/internal/model"
)

// ChipmunkWorld implements World on top of a chipmunk2d space.
type ChipmunkWorld struct {
	space  *cp.Space
	bodies []*cp.Body
	radii  []float64
}

var _ World = (*ChipmunkWorld)(nil)

func NewWorld(gravity model.Vec2) *ChipmunkWorld {
	space := cp.NewSpace()
	space.SetGravity(toVector(gravity))
	return &ChipmunkWorld{space: space}
}

func (w *ChipmunkWorld) AddStatic(seg Segment) {
	shape := w.space.AddShape(cp.NewSegment(w.space.StaticBody, toVector(seg.A), toVector(seg.B), 0))
	shape.SetFriction(seg.Friction)
}

func (w *ChipmunkWorld) AddBody(body model.Body) BodyID {
	b := cp.NewBody(body.Mass, body.Moment)
	b.SetPosition(toVector(body.Position))
	b.SetVelocityVector(toVector(body.Velocity))
	b.SetAngle(body.Angle)
	b.SetAngularVelocity(body.AngularVelocity)
	w.space.AddBody(b)

	shape := w.space.AddShape(cp.NewCircle(b, body.Radius, cp.Vector{}))
	shape.SetFriction(body.Friction)

	w.bodies = append(w.bodies, b)
	w.radii = append(w.radii, body.Radius)
	return BodyID(len(w.bodies) - 1)
}

func (w *ChipmunkWorld) AddPin(a, b BodyID, distance float64) error {
	ba, err := w.body(a)
	if err != nil {
		return err
	}
	bb, err := w.body(b)
	if err != nil {
		return err
	}
	if a == b {
		return fmt.Errorf("pin joint requires two distinct bodies, got %d twice", a)
	}
	constraint := w.space.AddConstraint(cp.NewPinJoint(ba, bb, cp.Vector{}, cp.Vector{}))
	constraint.Class.(*cp.PinJoint).Dist = distance
	return nil
}

// SetForce replaces the force accumulator of a body; the solver consumes it
// during the next Step.
func (w *ChipmunkWorld) SetForce(id BodyID, force model.Vec2) error {
	b, err := w.body(id)
	if err != nil {
		return err
	}
	b.SetForce(toVector(force))
	return nil
}

func (w *ChipmunkWorld) Step(dt float64) error {
	w.space.Step(dt)
	for i, b := range w.bodies {
		pos := b.Position()
		vel := b.Velocity()
		if !finite(pos.X, pos.Y, vel.X, vel.Y, b.Angle(), b.AngularVelocity()) {
			return fmt.Errorf("body %d: %w", i, ErrSolverDiverged)
		}
	}
	return nil
}

func (w *ChipmunkWorld) State(id BodyID) (BodyState, error) {
	b, err := w.body(id)
	if err != nil {
		return BodyState{}, err
	}
	pos := b.Position()
	vel := b.Velocity()
	return BodyState{
		Position:        model.Vec2{X: pos.X, Y: pos.Y},
		Velocity:        model.Vec2{X: vel.X, Y: vel.Y},
		Angle:           b.Angle(),
		AngularVelocity: b.AngularVelocity(),
		Radius:          w.radii[id],
	}, nil
}

func (w *ChipmunkWorld) BodyCount() int {
	return len(w.bodies)
}

func (w *ChipmunkWorld) body(id BodyID) (*cp.Body, error) {
	if id < 0 || int(id) >= len(w.bodies) {
		return nil, fmt.Errorf("body %d: %w", id, ErrUnknownBody)
	}
	return w.bodies[id], nil
}

func toVector(v model.Vec2) cp.Vector {
	return cp.Vector{X: v.X, Y: v.Y}
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
