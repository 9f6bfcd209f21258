package assets

import "strings"

// All is the filter wildcard.
const All = "all"

// Filter narrows the asset list. Query matches name or location case-insensitively; Type
// and Status accept All or an empty string as wildcard.
type Filter struct {
	Query  string
	Type   string
	Status string
}

// Matches applies the three predicates with AND.
func (f Filter) Matches(asset Asset) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(asset.Name), q) && !strings.Contains(strings.ToLower(asset.Location), q) {
			return false
		}
	}
	if !wildcard(f.Type) && string(asset.Type) != f.Type {
		return false
	}
	if !wildcard(f.Status) && string(asset.Status) != f.Status {
		return false
	}
	return true
}

// Apply returns the matching assets in input order. The input is not modified.
func (f Filter) Apply(list []Asset) []Asset {
	out := make([]Asset, 0, len(list))
	for _, asset := range list {
		if f.Matches(asset) {
			out = append(out, asset)
		}
	}
	return out
}

func wildcard(value string) bool {
	return value == "" || value == All
}
