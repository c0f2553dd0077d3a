package workflow

import "github.com/AlviRownok/NAPOLI-GIS/internal/polygons"

// Event is one user interaction.
type Event interface {
	Name() string
}

type SubmitIdentity struct {
	Identity polygons.Identity
}

// DrawPolygon replaces any earlier drawing; the last one drawn is kept.
type DrawPolygon struct {
	Ring polygons.Ring
}

type Confirm struct{}

type RetrySave struct{}

// Back steps out of the map, or dismisses the last saved result.
type Back struct{}

// ResetAll wipes the stored table and the session. Developer only.
type ResetAll struct{}

func (SubmitIdentity) Name() string { return "submit_identity" }
func (DrawPolygon) Name() string    { return "draw_polygon" }
func (Confirm) Name() string        { return "confirm" }
func (RetrySave) Name() string      { return "retry_save" }
func (Back) Name() string           { return "back" }
func (ResetAll) Name() string       { return "reset_all" }
