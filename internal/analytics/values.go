package analytics

import "scorecard/pkg/contracts/domain"

// numeric reads attr from rec. ok is false for missing cells; a present
// non-numeric cell is an error.
func numeric(rec domain.InstitutionRecord, attr string) (v float64, ok bool, err error) {
	val := rec.Value(attr)
	switch val.Kind() {
	case domain.KindMissing:
		return 0, false, nil
	case domain.KindNumeric:
		f, _ := val.Float()
		return f, true, nil
	default:
		return 0, false, &NonNumericError{
			Attribute:   attr,
			Year:        rec.Year,
			Institution: rec.InstitutionName,
			Value:       val.String(),
		}
	}
}

// stateYear keys per-state, per-year partitions.
type stateYear struct {
	state string
	year  int
}
