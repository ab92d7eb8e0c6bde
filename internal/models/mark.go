// Package models defines the domain types for versemark.
package models

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/versemark/internal/verse"
)

// Kind distinguishes the two mark variants.
type Kind string

// Mark kinds.
const (
	KindHighlight Kind = "highlight"
	KindNote      Kind = "note"
)

// MarkedVerse joins one mark to one verse. An empty ID means the verse has
// not been persisted yet.
type MarkedVerse struct {
	ID    string    `json:"id"`
	Verse verse.Ref `json:"verse"`
}

// Key returns the versioned verse id the marked verse is stored under.
func (mv MarkedVerse) Key() string {
	return mv.Verse.VersionedID()
}

// MarkedVerses is an insertion-ordered map from versioned verse id to MarkedVerse.
type MarkedVerses struct {
	m *orderedmap.OrderedMap[string, MarkedVerse]
}

// NewMarkedVerses returns a map holding mvs in order. Later duplicates
// overwrite earlier ones in place.
func NewMarkedVerses(mvs ...MarkedVerse) *MarkedVerses {
	v := &MarkedVerses{m: orderedmap.New[string, MarkedVerse]()}
	for _, mv := range mvs {
		v.Set(mv)
	}
	return v
}

// Set stores mv under its versioned verse id.
func (v *MarkedVerses) Set(mv MarkedVerse) {
	v.m.Set(mv.Key(), mv)
}

// Get returns the marked verse stored under key.
func (v *MarkedVerses) Get(key string) (MarkedVerse, bool) {
	if v == nil {
		return MarkedVerse{}, false
	}
	return v.m.Get(key)
}

// Has reports whether key is present.
func (v *MarkedVerses) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (v *MarkedVerses) Delete(key string) bool {
	if v == nil {
		return false
	}
	_, ok := v.m.Delete(key)
	return ok
}

// FindByID looks up a marked verse by its own id.
func (v *MarkedVerses) FindByID(id string) (MarkedVerse, bool) {
	if v == nil || id == "" {
		return MarkedVerse{}, false
	}
	for p := v.m.Oldest(); p != nil; p = p.Next() {
		if p.Value.ID == id {
			return p.Value, true
		}
	}
	return MarkedVerse{}, false
}

// Len returns the number of marked verses. A nil map is empty.
func (v *MarkedVerses) Len() int {
	if v == nil {
		return 0
	}
	return v.m.Len()
}

// All returns the marked verses in insertion order.
func (v *MarkedVerses) All() []MarkedVerse {
	if v == nil {
		return nil
	}
	out := make([]MarkedVerse, 0, v.m.Len())
	for p := v.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// Keys returns the versioned verse ids in insertion order.
func (v *MarkedVerses) Keys() []string {
	if v == nil {
		return nil
	}
	out := make([]string, 0, v.m.Len())
	for p := v.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Refs returns the verse of every marked verse in insertion order.
func (v *MarkedVerses) Refs() []verse.Ref {
	all := v.All()
	out := make([]verse.Ref, len(all))
	for i, mv := range all {
		out[i] = mv.Verse
	}
	return out
}

// Clone returns an independent copy.
func (v *MarkedVerses) Clone() *MarkedVerses {
	return NewMarkedVerses(v.All()...)
}

// Mark is either a *Highlight or a *Note. The interface is sealed so no
// other variant can exist.
type Mark interface {
	Kind() Kind
	Common() *Base
	sealed()
}

// Base holds the fields every mark carries.
type Base struct {
	ID        string
	Reference string
	Verses    *MarkedVerses
	CreatedAt time.Time
}

// Common returns the shared fields.
func (b *Base) Common() *Base { return b }

func (*Base) sealed() {}

// Highlight colors a set of verses.
type Highlight struct {
	Base
	Color string
}

// Kind implements Mark.
func (*Highlight) Kind() Kind { return KindHighlight }

// Note attaches free text to a set of verses.
type Note struct {
	Base
	Text string
}

// Kind implements Mark.
func (*Note) Kind() Kind { return KindNote }

// Clone returns a deep copy of m, or nil for a nil mark.
func Clone(m Mark) Mark {
	switch v := m.(type) {
	case *Highlight:
		if v == nil {
			return nil
		}
		c := *v
		c.Verses = v.Verses.Clone()
		return &c
	case *Note:
		if v == nil {
			return nil
		}
		c := *v
		c.Verses = v.Verses.Clone()
		return &c
	default:
		return nil
	}
}

// IsNil reports whether m is nil or a typed nil pointer.
func IsNil(m Mark) bool {
	switch v := m.(type) {
	case *Highlight:
		return v == nil
	case *Note:
		return v == nil
	default:
		return true
	}
}
