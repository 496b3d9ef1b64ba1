package stats

import "github.com/ChicagoDave/casemap/pkg/region"

// KeyIndex reports whether a geographic feature exists for a key.
type KeyIndex interface {
	Has(region.Key) bool
}

// Normalizer maps raw statistics country/state names onto the keys used by
// the geography.
type Normalizer struct {
	// Aliases renames countries, e.g. "US" -> "United States of America".
	Aliases map[string]string
	// SubnationalOnly lists raw country names whose country-level rows are
	// dropped because their sub-national rows are ingested separately.
	SubnationalOnly []string
	// Features, when set, folds states without a feature of their own into
	// their country, provided the country has a feature.
	Features KeyIndex
}

// Normalize returns the region key for a raw row, or false when the row
// must be dropped.
func (n Normalizer) Normalize(country, state string) (region.Key, bool) {
	if state == "" {
		for _, c := range n.SubnationalOnly {
			if c == country {
				return region.Key{}, false
			}
		}
	}
	if alias, ok := n.Aliases[country]; ok {
		country = alias
	}
	key := region.K(country, state)
	if key.HasState() && n.Features != nil &&
		!n.Features.Has(key) && n.Features.Has(key.CountryKey()) {
		key = key.CountryKey()
	}
	return key, true
}
