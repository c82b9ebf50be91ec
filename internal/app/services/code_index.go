package services

import "iter"

// CodeIndex maps natural keys (country code, "country.admin1") to geoname ids.
// A repeated key keeps its first position but takes the latest id.
type CodeIndex struct {
	ids  map[string]int64
	keys []string
}

func NewCodeIndex() *CodeIndex {
	return &CodeIndex{ids: make(map[string]int64)}
}

func (ix *CodeIndex) Put(key string, id int64) {
	if _, ok := ix.ids[key]; !ok {
		ix.keys = append(ix.keys, key)
	}
	ix.ids[key] = id
}

func (ix *CodeIndex) Get(key string) (int64, bool) {
	id, ok := ix.ids[key]
	return id, ok
}

func (ix *CodeIndex) Len() int {
	return len(ix.keys)
}

// All iterates entries in first-insertion order.
func (ix *CodeIndex) All() iter.Seq2[string, int64] {
	return func(yield func(string, int64) bool) {
		for _, k := range ix.keys {
			if !yield(k, ix.ids[k]) {
				return
			}
		}
	}
}
