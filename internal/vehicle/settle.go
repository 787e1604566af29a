package vehicle

import (
	"fmt"

	"evocar/internal/model"
	"evocar/internal/physics"
)

// Settle returns a copy of v whose bodies carry the final solver states of an
// episode, so an offspring cloned from it starts where v stopped. states must
// list one entry per body, in body order.
func Settle(v model.Vehicle, states []physics.BodyState) (model.Vehicle, error) {
	if len(states) != len(v.Bodies) {
		return model.Vehicle{}, fmt.Errorf("vehicle %s: %d final states for %d bodies", v.ID, len(states), len(v.Bodies))
	}
	out := Clone(v, v.ID)
	for i, state := range states {
		body := &out.Bodies[i]
		body.Position = state.Position
		body.Velocity = state.Velocity
		body.Angle = state.Angle
		body.AngularVelocity = state.AngularVelocity
	}
	return out, nil
}
