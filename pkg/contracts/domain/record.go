package domain

// Mandatory identifying columns present in every extract.
const (
	ColumnInstitution = "INSTNM"
	ColumnState       = "STABBR"
)

// BaseYear is the academic year assigned to the oldest extract when years
// are assigned from an ordered source list.
const BaseYear = 1996

// InstitutionRecord is one institution in one year's extract.
type InstitutionRecord struct {
	InstitutionName   string `json:"institution_name"`
	StateAbbreviation string `json:"state_abbreviation"`
	Year              int    `json:"year"`

	attributes map[string]Value
}

// NewInstitutionRecord builds a record. The attribute map is copied.
func NewInstitutionRecord(name, state string, year int, attrs map[string]Value) InstitutionRecord {
	cp := make(map[string]Value, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	return InstitutionRecord{
		InstitutionName:   name,
		StateAbbreviation: state,
		Year:              year,
		attributes:        cp,
	}
}

// Value returns the named attribute. Attributes the record was not loaded
// with are reported as missing.
func (r InstitutionRecord) Value(attr string) Value {
	if v, ok := r.attributes[attr]; ok {
		return v
	}
	return Missing()
}

// HasAttribute reports whether the record was loaded with attr.
func (r InstitutionRecord) HasAttribute(attr string) bool {
	_, ok := r.attributes[attr]
	return ok
}

// Attributes returns the number of attributes carried by the record.
func (r InstitutionRecord) Attributes() int {
	return len(r.attributes)
}
