package evo

import (
	"context"

	"evocar/internal/model"
)

// Operator derives a new vehicle from a parent. Implementations must not
// modify the parent's bodies or links.
type Operator interface {
	Name() string
	Apply(ctx context.Context, vehicle model.Vehicle) (model.Vehicle, error)
}
