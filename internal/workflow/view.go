package workflow

import (
	"context"

	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
)

// View is what a page needs to render the current step.
type View struct {
	Phase     Phase
	Identity  polygons.Identity
	Color     string
	Ring      polygons.Ring
	Pending   *polygons.Record
	LastSaved *polygons.Record
	Notices   []Notice
	// Records are the saved polygons drawn under the user's own. Only loaded
	// while a map is shown.
	Records     []polygons.Record
	Submissions int
}

// View prepares st for display. Saved records are loaded when the map is
// visible and their colours merged into the session. Notices are handed to
// the view and cleared from the returned state.
func (w *Workflow) View(ctx context.Context, st State) (State, View) {
	next := st.Clone()
	if next.Phase == "" {
		next.Phase = AwaitingIdentity
	}

	var records []polygons.Record
	if next.Phase == AwaitingPolygon || next.Phase == Persisting {
		records = w.mergePersisted(ctx, &next)
		if next.Phase == AwaitingPolygon && !next.Identity.IsZero() {
			next.Color = next.Colors.Resolve(next.Identity.Key(), w.rnd)
		}
	}

	v := View{
		Phase:       next.Phase,
		Identity:    next.Identity,
		Color:       next.Color,
		Ring:        next.Ring,
		Pending:     next.Pending,
		LastSaved:   next.LastSaved,
		Notices:     next.Notices,
		Records:     records,
		Submissions: next.Submissions,
	}
	next.Notices = nil
	return next, v
}
