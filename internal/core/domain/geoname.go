package domain

import "fmt"

const (
	FeatureClassA byte = 'A' // country, state, region
	FeatureClassL byte = 'L' // parks,area, continents
	FeatureClassP byte = 'P' // city, village
)

// Class is the hierarchy role of a gazetteer record.
type Class int

const (
	ClassUnclassified Class = iota
	ClassContinent
	ClassCountry
	ClassStateRegion
	ClassCityTown
)

func (c Class) String() string {
	switch c {
	case ClassContinent:
		return "continent"
	case ClassCountry:
		return "country"
	case ClassStateRegion:
		return "state"
	case ClassCityTown:
		return "city"
	default:
		return "unclassified"
	}
}

// Geoname is the subset of an allCountries.txt row the hierarchy needs.
type Geoname struct {
	ID           int64
	Name         string
	FeatureClass byte
	FeatureCode  string
	CountryCode  string
	Admin1Code   string
}

func (g *Geoname) IsContinent() bool {
	return g.FeatureClass == FeatureClassL && g.FeatureCode == "CONT"
}

func (g *Geoname) IsCountry() bool {
	if g.FeatureClass != FeatureClassA {
		return false
	}
	switch g.FeatureCode {
	case "PCLI", "PCLF", "PCLS":
		return true
	}
	return false
}

func (g *Geoname) IsStateRegion() bool {
	return g.FeatureClass == FeatureClassA && g.FeatureCode == "ADM1"
}

func (g *Geoname) IsCityTown() bool {
	return g.FeatureClass == FeatureClassP && g.FeatureCode == "PPL"
}

// Class classifies the record into exactly one hierarchy role.
func (g *Geoname) Class() Class {
	switch {
	case g.IsContinent():
		return ClassContinent
	case g.IsCountry():
		return ClassCountry
	case g.IsStateRegion():
		return ClassStateRegion
	case g.IsCityTown():
		return ClassCityTown
	default:
		return ClassUnclassified
	}
}

// StateKey returns the "country.admin1" composite key.
func (g *Geoname) StateKey() string {
	return StateKey(g.CountryCode, g.Admin1Code)
}

func StateKey(countryCode, admin1Code string) string {
	return countryCode + "." + admin1Code
}

// String returns a string representation of the geoname
func (g *Geoname) String() string {
	return fmt.Sprintf("%d: %s (%s, %c%s)", g.ID, g.Name, g.CountryCode, g.FeatureClass, g.FeatureCode)
}
