package vehicle

import (
	"fmt"
	"math"

	"evocar/internal/model"
)

// DriveForces returns the horizontal traction force for every body of v given
// the current body positions, one per body. A wheel only pushes when its
// underside is within threshold of the ground; non-wheel bodies never
// receive force.
func DriveForces(v model.Vehicle, positions []model.Vec2, groundHeight, threshold float64) ([]model.Vec2, error) {
	if len(positions) != len(v.Bodies) {
		return nil, fmt.Errorf("vehicle %s: %d positions for %d bodies", v.ID, len(positions), len(v.Bodies))
	}
	forces := make([]model.Vec2, len(v.Bodies))
	if v.HasRearWheel() {
		forces[v.RearWheel] = wheelForce(v.Bodies[v.RearWheel], positions[v.RearWheel], v.RearSpeed, groundHeight, threshold)
	}
	if v.FrontWheel >= 0 && v.FrontWheel < len(v.Bodies) {
		forces[v.FrontWheel] = wheelForce(v.Bodies[v.FrontWheel], positions[v.FrontWheel], v.FrontSpeed, groundHeight, threshold)
	}
	return forces, nil
}

func wheelForce(body model.Body, pos model.Vec2, speed, groundHeight, threshold float64) model.Vec2 {
	gap := math.Abs(pos.Y - body.Radius - groundHeight)
	if gap >= threshold {
		return model.Vec2{}
	}
	return model.Vec2{X: speed * body.Radius}
}

// Score is the fitness of a finished episode: the smallest x among the final
// body positions.
func Score(positions []model.Vec2) float64 {
	if len(positions) == 0 {
		return math.Inf(-1)
	}
	best := positions[0].X
	for _, p := range positions[1:] {
		if p.X < best {
			best = p.X
		}
	}
	return best
}

// InitialPositions lists the starting position of every body.
func InitialPositions(v model.Vehicle) []model.Vec2 {
	out := make([]model.Vec2, len(v.Bodies))
	for i, b := range v.Bodies {
		out[i] = b.Position
	}
	return out
}
