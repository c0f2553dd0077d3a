// Package workflow drives one user from identity entry to a saved polygon.
//
// The whole per-session state lives in State. Handle takes the current state
// and an event and returns the next state; it keeps nothing between calls.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/AlviRownok/NAPOLI-GIS/internal/color"
	"github.com/AlviRownok/NAPOLI-GIS/internal/enrich"
	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
	"github.com/AlviRownok/NAPOLI-GIS/internal/metrics"
	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
	"github.com/AlviRownok/NAPOLI-GIS/internal/store"
)

var (
	ErrMissingIdentity = errors.New("please fill in all the user information")
	ErrEmptyPolygon    = errors.New("please draw a polygon before clicking done")
	ErrUnexpectedEvent = errors.New("action not available at this step")
)

// IsValidation reports whether err was caused by user input rather than by a
// backend.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingIdentity) ||
		errors.Is(err, ErrEmptyPolygon) ||
		errors.Is(err, polygons.ErrInvalidRing)
}

// RecordStore is the part of store.Store the workflow needs.
type RecordStore interface {
	LoadAll(ctx context.Context) ([]polygons.Record, error)
	AppendAndSave(ctx context.Context, rec polygons.Record) error
	ResetAll(ctx context.Context) error
}

// Gateway is the part of enrich.Client the workflow needs.
type Gateway interface {
	FindFeatures(ctx context.Context, ring polygons.Ring) (enrich.Features, error)
	ReverseGeocode(ctx context.Context, p polygons.Point) (string, error)
}

type Workflow struct {
	store   RecordStore
	gateway Gateway
	rnd     *rand.Rand
	log     *logger.Logger
}

type Option func(*Workflow)

// WithRand fixes the source used for colours beyond the palette.
func WithRand(rnd *rand.Rand) Option {
	return func(w *Workflow) { w.rnd = rnd }
}

func New(s RecordStore, g Gateway, log *logger.Logger, opts ...Option) *Workflow {
	if log == nil {
		log = logger.Nop()
	}
	w := &Workflow{store: s, gateway: g, log: log}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Handle applies ev to st. Notices from the previous step are dropped. On a
// validation or phase error the returned state differs from st only by its
// notices.
func (w *Workflow) Handle(ctx context.Context, st State, ev Event) (State, error) {
	next := st.Clone()
	next.Notices = nil
	if next.Phase == "" {
		next.Phase = AwaitingIdentity
	}

	switch ev := ev.(type) {
	case SubmitIdentity:
		return w.submitIdentity(ctx, next, ev)
	case DrawPolygon:
		return w.drawPolygon(next, ev)
	case Confirm:
		return w.confirm(ctx, next)
	case RetrySave:
		if next.Phase != Persisting || next.Pending == nil {
			return w.unexpected(next, ev)
		}
		return w.persist(ctx, next)
	case Back:
		return w.back(next, ev)
	case ResetAll:
		return w.resetAll(ctx)
	default:
		return w.unexpected(next, ev)
	}
}

func (w *Workflow) unexpected(st State, ev Event) (State, error) {
	w.log.Debug("event_out_of_phase", "event", ev.Name(), "phase", st.Phase)
	st.notify(LevelWarning, "That action is not available right now.")
	return st, fmt.Errorf("%s in %s: %w", ev.Name(), st.Phase, ErrUnexpectedEvent)
}

func (w *Workflow) submitIdentity(ctx context.Context, st State, ev SubmitIdentity) (State, error) {
	if st.Phase != AwaitingIdentity {
		return w.unexpected(st, ev)
	}
	id := ev.Identity.Normalize()
	if !id.Complete() {
		st.notify(LevelWarning, "Please fill in all the user information.")
		return st, ErrMissingIdentity
	}

	w.mergePersisted(ctx, &st)
	st.Identity = id
	st.Color = st.Colors.Resolve(id.Key(), w.rnd)
	st.Ring = nil
	st.LastSaved = nil
	st.Submissions++
	st.Phase = AwaitingPolygon
	return st, nil
}

func (w *Workflow) drawPolygon(st State, ev DrawPolygon) (State, error) {
	if st.Phase != AwaitingPolygon {
		return w.unexpected(st, ev)
	}
	if len(ev.Ring) == 0 {
		st.notify(LevelWarning, "Please draw a polygon before clicking Done.")
		return st, ErrEmptyPolygon
	}
	st.Ring = append(polygons.Ring(nil), ev.Ring...)
	return st, nil
}

func (w *Workflow) confirm(ctx context.Context, st State) (State, error) {
	if st.Phase != AwaitingPolygon {
		return w.unexpected(st, Confirm{})
	}
	if len(st.Ring) == 0 {
		st.notify(LevelWarning, "Please draw a polygon before clicking Done.")
		return st, ErrEmptyPolygon
	}
	if err := st.Ring.Validate(); err != nil {
		st.notify(LevelWarning, "The polygon needs at least three valid points.")
		return st, err
	}

	st.Phase = Enriching
	rec := w.buildRecord(ctx, &st)
	st.Pending = &rec
	st.Phase = Persisting
	return w.persist(ctx, st)
}

// buildRecord enriches the current ring. Gateway failures leave warnings on
// st and fall back to empty names and UnknownArea.
func (w *Workflow) buildRecord(ctx context.Context, st *State) polygons.Record {
	ring := append(polygons.Ring(nil), st.Ring...)

	features, err := w.gateway.FindFeatures(ctx, ring)
	if err != nil {
		w.log.Warn("feature_lookup_failed", "identity", st.Identity.Key(), "error", err)
		st.notify(LevelWarning, "Failed to fetch streets and places for this area.")
		features = enrich.Features{}
	}

	label, err := w.gateway.ReverseGeocode(ctx, ring[0])
	if err != nil {
		w.log.Warn("reverse_geocode_failed", "identity", st.Identity.Key(), "error", err)
		st.notify(LevelWarning, "Failed to fetch the area name.")
	}
	if err != nil || label == "" {
		label = enrich.UnknownArea
	}

	// View may have merged stored colours since the identity was entered.
	st.Color = st.Colors.Resolve(st.Identity.Key(), w.rnd)

	return polygons.Record{
		Identity:     st.Identity,
		AreaName:     label,
		AreaSqMeters: polygons.AreaSqMeters(ring),
		Streets:      features.Streets,
		Places:       features.Places,
		Color:        st.Color,
		Ring:         ring,
	}
}

func (w *Workflow) persist(ctx context.Context, st State) (State, error) {
	if err := w.store.AppendAndSave(ctx, *st.Pending); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		w.log.Error("submission_save_failed", "identity", st.Pending.IdentityKey(), "error", err)
		st.notify(LevelError, storeMessage("Error saving data", err))
		return st, err
	}
	metrics.SubmissionsTotal.WithLabelValues("saved").Inc()
	w.log.Info("submission_saved",
		"identity", st.Pending.IdentityKey(),
		"area_name", st.Pending.AreaName,
		"area_size", st.Pending.AreaSize(),
	)

	st.LastSaved = st.Pending
	st.Pending = nil
	st.Identity = polygons.Identity{}
	st.Ring = nil
	st.Color = ""
	st.Phase = AwaitingIdentity
	st.notify(LevelSuccess, "Polygon data saved successfully.")
	st.notify(LevelInfo, "Thank you! You can enter a new user.")
	return st, nil
}

func (w *Workflow) back(st State, ev Back) (State, error) {
	switch st.Phase {
	case AwaitingPolygon:
		st.Ring = nil
		st.Color = ""
		st.Phase = AwaitingIdentity
		return st, nil
	case Persisting:
		// Give up on the failed save but keep the drawing so it can be sent again.
		st.Pending = nil
		st.Phase = AwaitingPolygon
		return st, nil
	case AwaitingIdentity:
		if st.LastSaved == nil {
			return w.unexpected(st, ev)
		}
		st.LastSaved = nil
		return st, nil
	default:
		return w.unexpected(st, ev)
	}
}

func (w *Workflow) resetAll(ctx context.Context) (State, error) {
	fresh := NewState()
	if err := w.store.ResetAll(ctx); err != nil {
		w.log.Error("reset_failed", "error", err)
		fresh.notify(LevelError, storeMessage("Error resetting data", err))
		return fresh, err
	}
	w.log.Warn("session_reset")
	fresh.notify(LevelSuccess, "All entries have been reset.")
	fresh.notify(LevelInfo, "Application state has been reset.")
	return fresh, nil
}

// mergePersisted folds stored colours into st. A load failure is reported
// but does not stop the caller.
func (w *Workflow) mergePersisted(ctx context.Context, st *State) []polygons.Record {
	records, err := w.store.LoadAll(ctx)
	if err != nil {
		w.log.Error("records_load_failed", "error", err)
		st.notify(LevelError, storeMessage("Error loading saved areas", err))
		return nil
	}
	color.MergePersisted(&st.Colors, records)
	return records
}

func storeMessage(prefix string, err error) string {
	switch {
	case errors.Is(err, store.ErrCredentials):
		return "Storage credentials not available."
	case errors.Is(err, store.ErrCorrupt):
		return prefix + ": the saved table could not be read."
	default:
		return prefix + ": storage is unreachable, please try again."
	}
}
