package services

import (
	"iter"

	"github.com/rotisserie/eris"
	"github.com/terratensor/geohierarchy/internal/core/domain"
)

// Overrides maps geoname ids to hand-maintained canonical names.
type Overrides map[int64]string

// DefaultOverrides returns the built-in override table.
func DefaultOverrides() Overrides {
	return Overrides{
		6252001: "United States of America",
	}
}

// NameResolver picks display names: override table first, then the English
// preferred/short alternate name, then the raw gazetteer name.
type NameResolver struct {
	overrides  Overrides
	alternates map[int64]string
	normalize  bool
}

func NewNameResolver(overrides Overrides) *NameResolver {
	if overrides == nil {
		overrides = Overrides{}
	}
	return &NameResolver{
		overrides:  overrides,
		alternates: make(map[int64]string),
	}
}

// WithNormalization strips combining diacritics from every resolved name.
func (r *NameResolver) WithNormalization(enabled bool) *NameResolver {
	r.normalize = enabled
	return r
}

// Collect records alt if it is an English preferred or short name.
// Later records for the same geoname replace earlier ones.
func (r *NameResolver) Collect(alt domain.AlternateName) bool {
	if !alt.IsEnglishPreferred() {
		return false
	}
	r.alternates[alt.GeonameID] = alt.AlternateName
	return true
}

// LoadAlternateNames drains seq into the resolver and stops at the first error.
// It returns the number of lines read and the number of names kept.
func (r *NameResolver) LoadAlternateNames(seq iter.Seq2[domain.AlternateName, error]) (read, kept int64, err error) {
	for alt, err := range seq {
		if err != nil {
			return read, kept, eris.Wrap(err, "failed to load alternate names")
		}
		read++
		if r.Collect(alt) {
			kept++
		}
	}
	return read, kept, nil
}

// Len returns the number of distinct geonames with an alternate display name.
func (r *NameResolver) Len() int {
	return len(r.alternates)
}

func (r *NameResolver) Resolve(id int64, fallback string) string {
	name := r.lookup(id, fallback)
	if r.normalize {
		return normalizeDiacritics(name)
	}
	return name
}

func (r *NameResolver) lookup(id int64, fallback string) string {
	if name, ok := r.overrides[id]; ok {
		return name
	}
	if name, ok := r.alternates[id]; ok {
		return name
	}
	return fallback
}
