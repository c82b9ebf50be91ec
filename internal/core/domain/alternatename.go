package domain

// AlternateName is one row of alternateNamesV2.txt. Flag fields are nil when
// the column is absent from the line.
type AlternateName struct {
	ID              int64
	GeonameID       int64
	ISOLanguage     string
	AlternateName   string
	IsPreferredName *bool
	IsShortName     *bool
	IsColloquial    *bool
	IsHistoric      *bool
	From            *string
	To              *string
}

func (a *AlternateName) IsEnglish() bool {
	return a.ISOLanguage == "en"
}

// IsEnglishPreferred reports whether the name is an English preferred or short name.
func (a *AlternateName) IsEnglishPreferred() bool {
	return a.IsEnglish() && (isSet(a.IsPreferredName) || isSet(a.IsShortName))
}

func isSet(flag *bool) bool {
	return flag != nil && *flag
}
