package vehicle

import (
	"math/rand"

	"evocar/internal/config"
	"evocar/internal/model"
	"evocar/internal/storage"
)

// New builds a random vehicle within the bounds of cfg. rng is the only
// source of randomness, so the same seed yields the same vehicle.
func New(cfg config.Vehicle, rng *rand.Rand, id string) model.Vehicle {
	count := intIn(rng, cfg.MinBodyParts, cfg.MaxBodyParts)

	bodies := make([]model.Body, count)
	for i := range bodies {
		dx := intIn(rng, -cfg.InitJitter, cfg.InitJitter)
		dy := intIn(rng, -cfg.InitJitter, cfg.InitJitter)
		bodies[i] = model.Body{
			Mass:     cfg.BodyMass,
			Moment:   cfg.BodyMoment,
			Position: model.Vec2{X: cfg.InitX + float64(dx), Y: cfg.InitY + float64(dy)},
			Radius:   float64(intIn(rng, cfg.MinBodyRadius, cfg.MaxBodyRadius)),
			Friction: cfg.BodyFriction,
		}
	}

	v := model.Vehicle{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:         id,
		Bodies:     bodies,
		FrontWheel: 0,
		RearWheel:  model.NoWheel,
	}

	if count > 1 {
		v.RearWheel = count - 1
		v.RearSpeed = float64(intIn(rng, cfg.MinWheelSpeed, cfg.MaxWheelSpeed))
		makeWheel(&v.Bodies[v.RearWheel], v.RearSpeed, cfg.WheelFriction)
	}
	v.FrontSpeed = float64(intIn(rng, cfg.MinWheelSpeed, cfg.MaxWheelSpeed))
	makeWheel(&v.Bodies[v.FrontWheel], v.FrontSpeed, cfg.WheelFriction)

	v.Links = chainLinks(v.Bodies)
	return v
}

func makeWheel(body *model.Body, speed, friction float64) {
	body.AngularVelocity = speed
	body.Friction = friction
}

// chainLinks joins consecutive bodies, each link resting at the sum of the
// two radii plus model.LinkMargin.
func chainLinks(bodies []model.Body) []model.Link {
	if len(bodies) < 2 {
		return nil
	}
	links := make([]model.Link, 0, len(bodies)-1)
	for i := 0; i < len(bodies)-1; i++ {
		links = append(links, model.Link{
			A:        i,
			B:        i + 1,
			Distance: bodies[i].Radius + bodies[i+1].Radius + model.LinkMargin,
		})
	}
	return links
}

// intIn draws an integer uniformly from [lo, hi).
func intIn(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo)
}
