package scape

import (
	"evocar/internal/config"
	"evocar/internal/model"
	"evocar/internal/physics"
)

func NewGround(world config.World) model.Ground {
	return model.Ground{
		Height:   world.GroundHeight,
		Width:    world.WindowWidth,
		Friction: world.GroundFriction,
	}
}

func groundSegment(g model.Ground) physics.Segment {
	return physics.Segment{
		A:        model.Vec2{X: 0, Y: g.Height},
		B:        model.Vec2{X: g.Width, Y: g.Height},
		Friction: g.Friction,
	}
}
