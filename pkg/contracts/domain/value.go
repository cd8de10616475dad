package domain

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind classifies a raw extract cell.
type ValueKind int

const (
	// KindMissing is an absent or suppressed cell
	KindMissing ValueKind = iota
	// KindNumeric is a cell that parses as a finite float
	KindNumeric
	// KindText is a present, non-numeric cell (categorical attribute)
	KindText
)

// MissingReason records why a cell is missing. Both reasons are treated
// identically by every aggregate; the reason only survives for provenance.
type MissingReason string

const (
	MissingNone              MissingReason = ""
	MissingAbsent            MissingReason = "absent"
	MissingPrivacySuppressed MissingReason = "privacy_suppressed"
)

// PrivacySuppressed is the sentinel the extracts use for suppressed cells.
const PrivacySuppressed = "PrivacySuppressed"

// absentTokens are the textual NA markers found in the extracts.
var absentTokens = map[string]struct{}{
	"":         {},
	"NULL":     {},
	"null":     {},
	"NA":       {},
	"N/A":      {},
	"n/a":      {},
	"NaN":      {},
	"nan":      {},
	"-NaN":     {},
	"-nan":     {},
	"None":     {},
	"<NA>":     {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"1.#IND":   {},
	"-1.#QNAN": {},
	"1.#QNAN":  {},
}

// Value is one attribute cell after normalization.
type Value struct {
	kind   ValueKind
	num    float64
	text   string
	reason MissingReason
}

// Missing returns a structurally absent value.
func Missing() Value {
	return Value{kind: KindMissing, reason: MissingAbsent}
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{kind: KindNumeric, num: f, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// ParseValue normalizes a raw cell. NA tokens and the privacy-suppression
// sentinel both become missing.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if _, ok := absentTokens[s]; ok {
		return Missing()
	}
	if isPrivacySuppressed(s) {
		return Value{kind: KindMissing, reason: MissingPrivacySuppressed}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !isNonFinite(f) {
		return Value{kind: KindNumeric, num: f, text: s}
	}
	return Value{kind: KindText, text: s}
}

func isPrivacySuppressed(s string) bool {
	if s == PrivacySuppressed {
		return true
	}
	return strings.EqualFold(strings.ReplaceAll(s, " ", ""), PrivacySuppressed)
}

func isNonFinite(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}

// Kind returns the value kind.
func (v Value) Kind() ValueKind { return v.kind }

// IsMissing reports whether the value is absent or privacy suppressed.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Reason returns the missing reason, MissingNone for present values.
func (v Value) Reason() MissingReason {
	if v.kind != KindMissing {
		return MissingNone
	}
	if v.reason == "" {
		return MissingAbsent
	}
	return v.reason
}

// Float returns the numeric value and true when the value is numeric.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumeric {
		return 0, false
	}
	return v.num, true
}

// String returns the cell text; missing values render as "".
func (v Value) String() string {
	if v.kind == KindMissing {
		return ""
	}
	return v.text
}
