package polygons

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Identity is the client who owns a polygon.
type Identity struct {
	GivenName   string `json:"nome"`
	FamilyName  string `json:"cognome"`
	CompanyName string `json:"nome_impresa"`
}

// Normalize trims each field and puts it in Unicode NFC form, so "Nicolò"
// typed with a combining accent keys the same as the precomposed form.
func (id Identity) Normalize() Identity {
	clean := func(s string) string { return norm.NFC.String(strings.TrimSpace(s)) }
	return Identity{
		GivenName:   clean(id.GivenName),
		FamilyName:  clean(id.FamilyName),
		CompanyName: clean(id.CompanyName),
	}
}

// Complete reports whether all three fields are filled in.
func (id Identity) Complete() bool {
	return id.GivenName != "" && id.FamilyName != "" && id.CompanyName != ""
}

func (id Identity) IsZero() bool {
	return id == Identity{}
}

// Key groups submissions and colours by client.
func (id Identity) Key() string {
	return id.GivenName + "_" + id.FamilyName + "_" + id.CompanyName
}

// Label is what the map tooltip shows.
func (id Identity) Label() string {
	return id.GivenName + " " + id.FamilyName + " - " + id.CompanyName
}
