package domain

import "sort"

// stateUniverse holds the 50 states plus DC. Territories (PR, GU, VI, AS, MP, FM,
// MH, PW) and anything else are outside it. It is built once and never mutated.
var stateUniverse = func() map[string]struct{} {
	codes := []string{
		"AK", "AL", "AR", "AZ", "CA", "CO", "CT", "DC", "DE", "FL", "GA",
		"HI", "IA", "ID", "IL", "IN", "KS", "KY", "LA", "MA", "MD", "ME",
		"MI", "MN", "MO", "MS", "MT", "NC", "ND", "NE", "NH", "NJ", "NM",
		"NV", "NY", "OH", "OK", "OR", "PA", "RI", "SC", "SD", "TN", "TX",
		"UT", "VA", "VT", "WA", "WI", "WV", "WY",
	}
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}()

// sortedStates is the universe in alphabetical order.
var sortedStates = func() []string {
	out := make([]string, 0, len(stateUniverse))
	for c := range stateUniverse {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}()

// StateCount is the size of the fixed state universe.
const StateCount = 51

// IsState reports whether code is one of the 50 states or DC.
// Matching is exact: " CA" and "ca" are not states.
func IsState(code string) bool {
	_, ok := stateUniverse[code]
	return ok
}

// States returns the state universe in alphabetical order. The slice is a copy.
func States() []string {
	out := make([]string, len(sortedStates))
	copy(out, sortedStates)
	return out
}
