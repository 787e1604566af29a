package vehicle

import "evocar/internal/model"

// Clone deep-copies v under a new id. Bodies and links are plain values, so
// copying the slices detaches the clone from the original.
func Clone(v model.Vehicle, id string) model.Vehicle {
	out := v
	out.ID = id
	out.Bodies = append([]model.Body(nil), v.Bodies...)
	out.Links = append([]model.Link(nil), v.Links...)
	return out
}
