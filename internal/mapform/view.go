package mapform

import (
	"github.com/AlviRownok/NAPOLI-GIS/internal/config"
	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
	"github.com/AlviRownok/NAPOLI-GIS/internal/workflow"
)

type recordOut struct {
	Nome        string        `json:"nome"`
	Cognome     string        `json:"cognome"`
	NomeImpresa string        `json:"nome_impresa"`
	Label       string        `json:"label"`
	AreaName    string        `json:"area_name"`
	AreaSize    string        `json:"area_size"`
	Streets     []string      `json:"streets"`
	Places      []string      `json:"places"`
	Color       string        `json:"color"`
	Coordinates polygons.Ring `json:"coordinates"`
}

type viewOut struct {
	Phase       workflow.Phase    `json:"phase"`
	Identity    polygons.Identity `json:"identity"`
	Label       string            `json:"label,omitempty"`
	Color       string            `json:"color,omitempty"`
	Ring        polygons.Ring     `json:"ring,omitempty"`
	Pending     *recordOut        `json:"pending,omitempty"`
	LastSaved   *recordOut        `json:"last_saved,omitempty"`
	Notices     []workflow.Notice `json:"notices"`
	Records     []recordOut       `json:"records"`
	Submissions int               `json:"submissions"`
}

type pageData struct {
	View    viewOut
	Map     config.Map
	Base    string
	DevMode bool
}

func toRecordOut(r polygons.Record) recordOut {
	return recordOut{
		Nome:        r.Identity.GivenName,
		Cognome:     r.Identity.FamilyName,
		NomeImpresa: r.Identity.CompanyName,
		Label:       r.Identity.Label(),
		AreaName:    r.AreaName,
		AreaSize:    r.AreaSize(),
		Streets:     nonNil(r.Streets),
		Places:      nonNil(r.Places),
		Color:       r.Color,
		Coordinates: r.Ring,
	}
}

func toViewOut(v workflow.View) viewOut {
	out := viewOut{
		Phase:       v.Phase,
		Identity:    v.Identity,
		Color:       v.Color,
		Ring:        v.Ring,
		Notices:     v.Notices,
		Records:     make([]recordOut, 0, len(v.Records)),
		Submissions: v.Submissions,
	}
	if out.Notices == nil {
		out.Notices = []workflow.Notice{}
	}
	if v.Identity.Complete() {
		out.Label = v.Identity.Label()
	}
	if v.Pending != nil {
		p := toRecordOut(*v.Pending)
		out.Pending = &p
	}
	if v.LastSaved != nil {
		l := toRecordOut(*v.LastSaved)
		out.LastSaved = &l
	}
	for _, r := range v.Records {
		out.Records = append(out.Records, toRecordOut(r))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// CurrentRing is the user's drawing as [lon, lat] pairs for the page script.
func (p pageData) CurrentRing() [][2]float64 {
	out := make([][2]float64, 0, len(p.View.Ring))
	for _, pt := range p.View.Ring {
		out = append(out, [2]float64{pt.Lon, pt.Lat})
	}
	return out
}
