package services

import (
	"time"

	"go.uber.org/zap"

	"github.com/terratensor/geohierarchy/internal/core/domain"
)

const earthName = "Earth"

// Stats summarises one Build.
type Stats struct {
	Classified       int
	Continents       int
	Countries        int
	States           int
	StatesAttached   int
	CitiesAttached   int
	CitiesUnparented int
	CitiesDropped    int
	Gaps             int
}

// Result is the output of a Build.
type Result struct {
	Hierarchy  *domain.Tree
	Unparented *domain.Tree
	Countries  *CodeIndex
	States     *CodeIndex
	Stats      Stats
}

// HierarchyBuilder joins countries, states and cities into the
// Earth -> Country -> State -> City tree.
type HierarchyBuilder struct {
	names *NameResolver

	// Классифицированные записи в порядке чтения; дубликаты id сохраняются
	records []domain.Geoname
	// id -> позиция последней записи с этим id
	entries map[int64]int
}

func NewHierarchyBuilder(names *NameResolver) *HierarchyBuilder {
	return &HierarchyBuilder{
		names:   names,
		entries: make(map[int64]int),
	}
}

// Add keeps g if it is a continent, country, state or city. Other records are ignored.
func (b *HierarchyBuilder) Add(g domain.Geoname) bool {
	if g.Class() == domain.ClassUnclassified {
		return false
	}
	b.entries[g.ID] = len(b.records)
	b.records = append(b.records, g)
	return true
}

// Len returns the number of classified records added so far.
func (b *HierarchyBuilder) Len() int {
	return len(b.records)
}

func (b *HierarchyBuilder) lookup(id int64) (domain.Geoname, bool) {
	i, ok := b.entries[id]
	if !ok {
		return domain.Geoname{}, false
	}
	return b.records[i], true
}

func (b *HierarchyBuilder) nameOf(g domain.Geoname) func() string {
	return func() string {
		return b.names.Resolve(g.ID, g.Name)
	}
}

// Build runs the seed, top-level, state and city passes in that order.
// It does not modify the builder, so repeated calls give identical results.
func (b *HierarchyBuilder) Build() *Result {
	start := time.Now()
	res := &Result{
		Hierarchy:  domain.NewTree(),
		Unparented: domain.NewTree(),
		Countries:  NewCodeIndex(),
		States:     NewCodeIndex(),
	}
	res.Stats.Classified = len(b.records)

	earth := res.Hierarchy.GetOrCreate(domain.EarthID, func() string { return earthName })

	cities := b.topLevelPass(res, earth)
	b.attachStates(res)
	b.attachCities(res, cities)

	zap.L().Info("hierarchy built",
		zap.Int("classified", res.Stats.Classified),
		zap.Int("countries", res.Stats.Countries),
		zap.Int("states", res.Stats.States),
		zap.Int("cities_attached", res.Stats.CitiesAttached),
		zap.Int("cities_unparented", res.Stats.CitiesUnparented),
		zap.Int("cities_dropped", res.Stats.CitiesDropped),
		zap.Int("gaps", res.Stats.Gaps),
		zap.Duration("elapsed", time.Since(start)),
	)

	return res
}

// topLevelPass hangs countries under Earth, creates country and state nodes,
// fills both indexes and returns the city worklist.
func (b *HierarchyBuilder) topLevelPass(res *Result, earth *domain.Node) []int64 {
	var cities []int64

	for _, g := range b.records {
		switch g.Class() {
		case domain.ClassContinent:
			// пока не участвуют в иерархии
			res.Stats.Continents++
		case domain.ClassCountry:
			earth.AddChild(g.ID, b.names.Resolve(g.ID, g.Name))
			res.Hierarchy.GetOrCreate(g.ID, b.nameOf(g))
			res.Countries.Put(g.CountryCode, g.ID)
			res.Stats.Countries++
		case domain.ClassStateRegion:
			res.Hierarchy.GetOrCreate(g.ID, b.nameOf(g))
			res.States.Put(g.StateKey(), g.ID)
			res.Stats.States++
		case domain.ClassCityTown:
			cities = append(cities, g.ID)
		}
	}

	return cities
}

func (b *HierarchyBuilder) attachStates(res *Result) {
	for key, stateID := range res.States.All() {
		state, ok := b.lookup(stateID)
		if !ok {
			b.gap(res, "state", stateID, key)
			continue
		}

		countryID, ok := res.Countries.Get(state.CountryCode)
		if !ok {
			continue
		}
		country, ok := b.lookup(countryID)
		if !ok {
			b.gap(res, "country", countryID, state.CountryCode)
			continue
		}

		res.Hierarchy.GetOrCreate(countryID, b.nameOf(country)).
			AddChild(state.ID, b.names.Resolve(state.ID, state.Name))
		res.Stats.StatesAttached++
	}
}

func (b *HierarchyBuilder) attachCities(res *Result, cities []int64) {
	for _, cityID := range cities {
		city, ok := b.lookup(cityID)
		if !ok {
			b.gap(res, "city", cityID, "")
			continue
		}
		label := b.names.Resolve(city.ID, city.Name)

		if stateID, ok := res.States.Get(city.StateKey()); ok {
			if state, ok := b.lookup(stateID); ok {
				res.Hierarchy.GetOrCreate(stateID, b.nameOf(state)).AddChild(city.ID, label)
				res.Stats.CitiesAttached++
			} else {
				b.gap(res, "state", stateID, city.StateKey())
			}
			continue
		}

		if countryID, ok := res.Countries.Get(city.CountryCode); ok {
			if country, ok := b.lookup(countryID); ok {
				res.Unparented.GetOrCreate(countryID, b.nameOf(country)).AddChild(city.ID, label)
				res.Stats.CitiesUnparented++
			} else {
				b.gap(res, "country", countryID, city.CountryCode)
			}
			continue
		}

		res.Stats.CitiesDropped++
		zap.L().Debug("city has no country", zap.Int64("id", city.ID), zap.String("country_code", city.CountryCode))
	}
}

// gap records an index entry whose record is missing; it is skipped, not fatal.
func (b *HierarchyBuilder) gap(res *Result, kind string, id int64, key string) {
	res.Stats.Gaps++
	zap.L().Debug("referential gap", zap.String("kind", kind), zap.Int64("id", id), zap.String("key", key))
}
