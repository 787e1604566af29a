package physics

import (
	"errors"
	"math"
	"testing"

	"evocar/internal/model"
)

func newGroundedWorld(groundHeight float64) *ChipmunkWorld {
	w := NewWorld(model.Vec2{Y: -900})
	w.AddStatic(Segment{
		A:        model.Vec2{X: 0, Y: groundHeight},
		B:        model.Vec2{X: 1200, Y: groundHeight},
		Friction: 0.5,
	})
	return w
}

func testBody(x, y, radius float64) model.Body {
	return model.Body{
		Mass:     10,
		Moment:   2000,
		Position: model.Vec2{X: x, Y: y},
		Radius:   radius,
	}
}

func TestWorldBodyFallsOntoGround(t *testing.T) {
	w := newGroundedWorld(80)
	id := w.AddBody(testBody(300, 200, 10))

	for i := 0; i < 200; i++ {
		if err := w.Step(0.02); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	state, err := w.State(id)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if math.Abs(state.Position.Y-90) > 1.0 {
		t.Fatalf("expected body resting on ground near y=90, got %f", state.Position.Y)
	}
	if math.Abs(state.Position.X-300) > 1e-6 {
		t.Fatalf("expected no horizontal drift, got x=%f", state.Position.X)
	}
	if state.Radius != 10 {
		t.Fatalf("unexpected radius: %f", state.Radius)
	}
}

func TestWorldForceIsConsumedPerStep(t *testing.T) {
	w := NewWorld(model.Vec2{})
	id := w.AddBody(testBody(0, 0, 5))

	if err := w.SetForce(id, model.Vec2{X: 100}); err != nil {
		t.Fatalf("set force: %v", err)
	}
	if err := w.Step(0.1); err != nil {
		t.Fatalf("step: %v", err)
	}
	first, _ := w.State(id)
	if first.Velocity.X <= 0 {
		t.Fatalf("expected positive x velocity after push, got %f", first.Velocity.X)
	}

	if err := w.Step(0.1); err != nil {
		t.Fatalf("step: %v", err)
	}
	second, _ := w.State(id)
	if math.Abs(second.Velocity.X-first.Velocity.X) > 1e-9 {
		t.Fatalf("expected force to apply for one step only: v1=%f v2=%f", first.Velocity.X, second.Velocity.X)
	}
}

func TestWorldPinKeepsDistance(t *testing.T) {
	w := NewWorld(model.Vec2{Y: -900})
	a := w.AddBody(testBody(0, 100, 10))
	b := w.AddBody(testBody(21, 100, 10))
	if err := w.AddPin(a, b, 21); err != nil {
		t.Fatalf("add pin: %v", err)
	}
	if err := w.SetForce(b, model.Vec2{X: 5000}); err != nil {
		t.Fatalf("set force: %v", err)
	}
	for i := 0; i < 50; i++ {
		if err := w.Step(0.02); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	sa, _ := w.State(a)
	sb, _ := w.State(b)
	dist := math.Hypot(sb.Position.X-sa.Position.X, sb.Position.Y-sa.Position.Y)
	if math.Abs(dist-21) > 0.5 {
		t.Fatalf("expected pinned distance ~21, got %f", dist)
	}
}

func TestWorldUnknownBody(t *testing.T) {
	w := NewWorld(model.Vec2{})
	a := w.AddBody(testBody(0, 0, 1))
	if err := w.AddPin(a, BodyID(3), 2); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("expected ErrUnknownBody, got %v", err)
	}
	if err := w.AddPin(a, a, 2); err == nil {
		t.Fatal("expected error when pinning a body to itself")
	}
	if _, err := w.State(BodyID(-1)); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("expected ErrUnknownBody, got %v", err)
	}
	if w.BodyCount() != 1 {
		t.Fatalf("unexpected body count: %d", w.BodyCount())
	}
}
