package workflow

import (
	"maps"
	"slices"

	"github.com/AlviRownok/NAPOLI-GIS/internal/color"
	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
)

type Phase string

const (
	AwaitingIdentity Phase = "awaiting_identity"
	AwaitingPolygon  Phase = "awaiting_polygon"
	Enriching        Phase = "enriching"
	// Persisting holds a built record whose save failed; RetrySave tries again.
	Persisting Phase = "persisting"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a one-shot message for the user.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// State is everything one browser session carries between interactions.
// It round-trips through JSON so any session store can hold it.
type State struct {
	Phase     Phase             `json:"phase"`
	Identity  polygons.Identity `json:"identity"`
	Color     string            `json:"color,omitempty"`
	Ring      polygons.Ring     `json:"ring,omitempty"`
	Pending   *polygons.Record  `json:"pending,omitempty"`
	LastSaved *polygons.Record  `json:"last_saved,omitempty"`
	Colors    color.Assignments `json:"colors"`
	// Submissions counts identities entered this session.
	Submissions int      `json:"submissions"`
	Notices     []Notice `json:"notices,omitempty"`
}

func NewState() State {
	return State{Phase: AwaitingIdentity}
}

// Clone returns a deep copy so transitions never mutate their input.
func (s State) Clone() State {
	out := s
	out.Ring = slices.Clone(s.Ring)
	out.Notices = slices.Clone(s.Notices)
	out.Colors = color.Assignments{
		ByIdentity: maps.Clone(s.Colors.ByIdentity),
		Used:       maps.Clone(s.Colors.Used),
	}
	if s.Pending != nil {
		p := cloneRecord(*s.Pending)
		out.Pending = &p
	}
	if s.LastSaved != nil {
		l := cloneRecord(*s.LastSaved)
		out.LastSaved = &l
	}
	return out
}

func cloneRecord(r polygons.Record) polygons.Record {
	r.Ring = slices.Clone(r.Ring)
	r.Streets = slices.Clone(r.Streets)
	r.Places = slices.Clone(r.Places)
	return r
}

func (s *State) notify(level Level, msg string) {
	s.Notices = append(s.Notices, Notice{Level: level, Message: msg})
}
