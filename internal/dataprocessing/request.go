package dataprocessing

import (
	"sort"

	"scorecard/pkg/contracts/domain"
)

// LoadRequest is the immutable set of attributes to read from every extract.
// The identifying columns are always read and never part of the request.
type LoadRequest struct {
	attributes []string
}

// NewLoadRequest builds a request from attribute names. Names are matched
// exactly against extract headers; duplicates and empty names are dropped.
func NewLoadRequest(attributes ...string) LoadRequest {
	seen := make(map[string]struct{}, len(attributes))
	out := make([]string, 0, len(attributes))
	for _, a := range attributes {
		if a == "" || a == domain.ColumnInstitution || a == domain.ColumnState {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Strings(out)
	return LoadRequest{attributes: out}
}

// Attributes returns the requested attribute names in sorted order.
// The slice is a copy.
func (r LoadRequest) Attributes() []string {
	out := make([]string, len(r.attributes))
	copy(out, r.attributes)
	return out
}

// Len is the number of requested attributes.
func (r LoadRequest) Len() int { return len(r.attributes) }

// Contains reports whether attr was requested.
func (r LoadRequest) Contains(attr string) bool {
	i := sort.SearchStrings(r.attributes, attr)
	return i < len(r.attributes) && r.attributes[i] == attr
}
