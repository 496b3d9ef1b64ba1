package features

import "github.com/ChicagoDave/casemap/pkg/region"

// Index resolves features by exact region key. When a key occurs more than
// once, the first feature in collection order wins.
type Index struct {
	col   Collection
	byKey map[region.Key]int
}

// NewIndex builds an index over c.
func NewIndex(c Collection) *Index {
	ix := &Index{col: c, byKey: make(map[region.Key]int, len(c.Features))}
	for i, f := range c.Features {
		if _, ok := ix.byKey[f.Key]; !ok {
			ix.byKey[f.Key] = i
		}
	}
	return ix
}

// Has reports whether a feature exists for k.
func (ix *Index) Has(k region.Key) bool {
	_, ok := ix.byKey[k]
	return ok
}

// Lookup returns the feature for k.
func (ix *Index) Lookup(k region.Key) (*Feature, bool) {
	i, ok := ix.byKey[k]
	if !ok {
		return nil, false
	}
	return &ix.col.Features[i], true
}

// Keys returns the distinct keys in collection order.
func (ix *Index) Keys() []region.Key {
	keys := make([]region.Key, 0, len(ix.byKey))
	for i, f := range ix.col.Features {
		if ix.byKey[f.Key] == i {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Collection returns the indexed collection.
func (ix *Index) Collection() Collection {
	return ix.col
}
