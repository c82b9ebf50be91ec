package pipeline

import (
	"iter"

	"github.com/terratensor/geohierarchy/internal/config"
	"github.com/terratensor/geohierarchy/internal/core/domain"
)

// Column positions in allCountries.txt
const (
	colGeonameID    = 0
	colName         = 1
	colFeatureClass = 6
	colFeatureCode  = 7
	colCountryCode  = 8
	colAdmin1Code   = 10
)

// GeonameParser handles parsing of allCountries.txt
type GeonameParser struct {
	*BaseParser
}

func NewGeonameParser(cfg *config.Config) *GeonameParser {
	return &GeonameParser{
		BaseParser: NewBaseParser(cfg),
	}
}

// Records streams the gazetteer at filePath, one record per line.
func (p *GeonameParser) Records(filePath string) iter.Seq2[domain.Geoname, error] {
	return records(p.BaseParser, filePath, ParseGeonameLine)
}

// ParseGeonameLine parses one gazetteer line. Only the id is validated;
// missing trailing columns become empty strings.
func ParseGeonameLine(line string) (domain.Geoname, error) {
	fields := splitTabs(line)

	id, err := parseID("geoname_id", fields[colGeonameID])
	if err != nil {
		return domain.Geoname{}, err
	}

	featureClass := byte(' ')
	if fc := field(fields, colFeatureClass); fc != "" {
		featureClass = fc[0]
	}

	return domain.Geoname{
		ID:           id,
		Name:         field(fields, colName),
		FeatureClass: featureClass,
		FeatureCode:  field(fields, colFeatureCode),
		CountryCode:  field(fields, colCountryCode),
		Admin1Code:   field(fields, colAdmin1Code),
	}, nil
}
