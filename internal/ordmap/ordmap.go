// Package ordmap implements the "multi-valued map" data model spec'd for
// query parameters and path parameters: entries ordered by key under a
// caller-supplied comparator, O(log N) lookup via binary search, and
// per-key values that preserve insertion order.
package ordmap

import "sort"

// Comparator orders two keys the way strings.Compare would: negative if
// a < b, zero if equal, positive if a > b.
type Comparator func(a, b string) int

// Ordinal is the default comparator: plain byte-wise ordering.
func Ordinal(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type entry struct {
	key    string
	values []string
}

// Map is an ordered multi-valued string map.
type Map struct {
	cmp     Comparator
	entries []entry
	sorted  bool
}

// New returns an empty Map ordered by cmp.
func New(cmp Comparator) *Map {
	if cmp == nil {
		cmp = Ordinal
	}
	return &Map{cmp: cmp, sorted: true}
}

func (m *Map) ensureSorted() {
	if m.sorted {
		return
	}
	sort.Slice(m.entries, func(i, j int) bool {
		return m.cmp(m.entries[i].key, m.entries[j].key) < 0
	})
	m.sorted = true
}

// search returns the index of key if present, or the insertion point and
// false if not.
func (m *Map) search(key string) (int, bool) {
	m.ensureSorted()
	lo, hi := 0, len(m.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		c := m.cmp(m.entries[mid].key, key)
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

// Add appends value under key, preserving insertion order within the key.
func (m *Map) Add(key, value string) {
	i, ok := m.search(key)
	if ok {
		m.entries[i].values = append(m.entries[i].values, value)
		return
	}
	e := entry{key: key, values: []string{value}}
	m.entries = append(m.entries, entry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = e
}

// Get returns the first value stored under key, or "" if absent.
func (m *Map) Get(key string) string {
	if i, ok := m.search(key); ok && len(m.entries[i].values) > 0 {
		return m.entries[i].values[0]
	}
	return ""
}

// Values returns all values stored under key, in insertion order.
func (m *Map) Values(key string) []string {
	if i, ok := m.search(key); ok {
		return m.entries[i].values
	}
	return nil
}

// Del removes key and all its values.
func (m *Map) Del(key string) {
	if i, ok := m.search(key); ok {
		m.entries = append(m.entries[:i], m.entries[i+1:]...)
	}
}

// Len returns the number of distinct keys.
func (m *Map) Len() int {
	return len(m.entries)
}

// Each calls fn once per (key, value) pair, grouped by key, keys in sorted order.
func (m *Map) Each(fn func(key, value string)) {
	m.ensureSorted()
	for _, e := range m.entries {
		for _, v := range e.values {
			fn(e.key, v)
		}
	}
}

// Builder accumulates (key, value) pairs without sorting on every Add; the
// sort happens once, in Build.
type Builder struct {
	cmp     Comparator
	entries []entry
}

// NewBuilder returns a Builder that will order its Map by cmp.
func NewBuilder(cmp Comparator) *Builder {
	if cmp == nil {
		cmp = Ordinal
	}
	return &Builder{cmp: cmp}
}

// Add appends value under key. Lookup is a linear scan — builders are
// expected to be populated once, in a single pass, then built.
func (b *Builder) Add(key, value string) *Builder {
	for i := range b.entries {
		if b.cmp(b.entries[i].key, key) == 0 {
			b.entries[i].values = append(b.entries[i].values, value)
			return b
		}
	}
	b.entries = append(b.entries, entry{key: key, values: []string{value}})
	return b
}

// Build sorts the accumulated entries once and returns the resulting Map.
func (b *Builder) Build() *Map {
	entries := b.entries
	sort.Slice(entries, func(i, j int) bool {
		return b.cmp(entries[i].key, entries[j].key) < 0
	})
	return &Map{cmp: b.cmp, entries: entries, sorted: true}
}
