package pipeline

import (
	"iter"

	"github.com/rotisserie/eris"
	"github.com/terratensor/geohierarchy/internal/config"
	"github.com/terratensor/geohierarchy/internal/core/domain"
)

const minAlternateNameFields = 4

// AlternateNameParser handles parsing of alternateNamesV2.txt
type AlternateNameParser struct {
	*BaseParser
}

func NewAlternateNameParser(cfg *config.Config) *AlternateNameParser {
	return &AlternateNameParser{
		BaseParser: NewBaseParser(cfg),
	}
}

// Records streams the alternate names file at filePath, one record per line.
func (p *AlternateNameParser) Records(filePath string) iter.Seq2[domain.AlternateName, error] {
	return records(p.BaseParser, filePath, ParseAlternateNameLine)
}

// ParseAlternateNameLine parses one alternateNamesV2.txt line.
//
// Columns: 0 id, 1 geonameid, 2 isolanguage, 3 alternate name,
// 4 isPreferredName, 5 isShortName, 6 isColloquial, 7 isHistoric, 8 from, 9 to.
// Flag columns are "1" for true; any other present value is false and an
// absent column leaves the flag nil.
func ParseAlternateNameLine(line string) (domain.AlternateName, error) {
	fields := splitTabs(line)
	if len(fields) < minAlternateNameFields {
		return domain.AlternateName{}, &ParseError{
			Field: "line",
			Value: line,
			Err:   eris.Errorf("too few fields: got %d, want at least %d", len(fields), minAlternateNameFields),
		}
	}

	id, err := parseID("alternate_name_id", fields[0])
	if err != nil {
		return domain.AlternateName{}, err
	}

	geonameID, err := parseID("geoname_id", fields[1])
	if err != nil {
		return domain.AlternateName{}, err
	}

	return domain.AlternateName{
		ID:              id,
		GeonameID:       geonameID,
		ISOLanguage:     fields[2],
		AlternateName:   fields[3],
		IsPreferredName: flagAt(fields, 4),
		IsShortName:     flagAt(fields, 5),
		IsColloquial:    flagAt(fields, 6),
		IsHistoric:      flagAt(fields, 7),
		From:            optionalAt(fields, 8),
		To:              optionalAt(fields, 9),
	}, nil
}

func flagAt(fields []string, i int) *bool {
	if i >= len(fields) {
		return nil
	}
	v := fields[i] == "1"
	return &v
}

func optionalAt(fields []string, i int) *string {
	if i >= len(fields) {
		return nil
	}
	v := fields[i]
	return &v
}
