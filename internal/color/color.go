// Package color hands out one display colour per client identity.
package color

import (
	"fmt"
	"math/rand/v2"
)

// Palette is scanned in order; the first unused entry wins.
var Palette = [16]string{
	"#FF0000", "#0000FF", "#008000", "#FFFF00",
	"#FFA500", "#800080", "#00FFFF", "#FFC0CB",
	"#A52A2A", "#000000", "#808080", "#00FF00",
	"#800000", "#808000", "#008080", "#000080",
}

// Set is a set of "#RRGGBB" strings.
type Set map[string]bool

// NextColor returns the first palette colour not in used. Once the palette is
// exhausted it returns a random colour; that colour is not checked against used.
// A nil rnd falls back to the package-level source.
func NextColor(used Set, rnd *rand.Rand) string {
	for _, c := range Palette {
		if !used[c] {
			return c
		}
	}
	var b [3]byte
	for i := range b {
		if rnd != nil {
			b[i] = byte(rnd.IntN(256))
		} else {
			b[i] = byte(rand.IntN(256))
		}
	}
	return fmt.Sprintf("#%02x%02x%02x", b[0], b[1], b[2])
}

// Assignments maps identity keys to colours and tracks every colour handed out.
// The zero value is ready to use.
type Assignments struct {
	ByIdentity map[string]string `json:"by_identity,omitempty"`
	Used       Set               `json:"used,omitempty"`
}

func (a *Assignments) init() {
	if a.ByIdentity == nil {
		a.ByIdentity = map[string]string{}
	}
	if a.Used == nil {
		a.Used = Set{}
	}
}

// Lookup returns the colour assigned to key, if any.
func (a Assignments) Lookup(key string) (string, bool) {
	c, ok := a.ByIdentity[key]
	return c, ok
}

// Resolve returns key's colour, allocating and recording a new one if needed.
func (a *Assignments) Resolve(key string, rnd *rand.Rand) string {
	a.init()
	if c, ok := a.ByIdentity[key]; ok {
		return c
	}
	c := NextColor(a.Used, rnd)
	a.ByIdentity[key] = c
	a.Used[c] = true
	return c
}

// Owned is the minimum a persisted record must expose to seed assignments.
type Owned interface {
	IdentityKey() string
	DisplayColor() string
}

// MergePersisted folds stored colours in. A stored colour replaces whatever the
// session assigned; within the table the first record for a key wins.
func MergePersisted[T Owned](a *Assignments, records []T) {
	a.init()
	seen := map[string]bool{}
	for _, r := range records {
		key, c := r.IdentityKey(), r.DisplayColor()
		if c == "" {
			continue
		}
		a.Used[c] = true
		if seen[key] {
			continue
		}
		seen[key] = true
		a.ByIdentity[key] = c
	}
}
