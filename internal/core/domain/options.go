package domain

// OptionKind names one of the tag taxonomies.
type OptionKind string

// Option kinds.
const (
	OptionTypes             OptionKind = "types"
	OptionAffiliations      OptionKind = "affiliations"
	OptionIndustryInterests OptionKind = "industryInterests"
)

// OptionKinds lists every kind in display order.
var OptionKinds = []OptionKind{OptionTypes, OptionAffiliations, OptionIndustryInterests}

// IsValid returns true if the kind is recognised.
func (k OptionKind) IsValid() bool {
	switch k {
	case OptionTypes, OptionAffiliations, OptionIndustryInterests:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k OptionKind) String() string {
	return string(k)
}

// Options holds the allowed tag values. It only grows unless cleaned up explicitly.
type Options struct {
	Types             []string `json:"types"`
	Affiliations      []string `json:"affiliations"`
	IndustryInterests []string `json:"industryInterests"`
}

// Values returns the values for a kind.
func (o *Options) Values(kind OptionKind) []string {
	switch kind {
	case OptionTypes:
		return o.Types
	case OptionAffiliations:
		return o.Affiliations
	case OptionIndustryInterests:
		return o.IndustryInterests
	default:
		return nil
	}
}

// SetValues replaces the values for a kind.
func (o *Options) SetValues(kind OptionKind, values []string) {
	switch kind {
	case OptionTypes:
		o.Types = values
	case OptionAffiliations:
		o.Affiliations = values
	case OptionIndustryInterests:
		o.IndustryInterests = values
	}
}
