package reactive

import (
	"encoding/json"
	"iter"
	"maps"
)

// Map is a copy-on-write map for use inside snapshots.
//
// The zero value is an empty map ready to use. Reads never copy. A write
// outside a draft clones the backing map first, so snapshots that shared the
// old backing map keep seeing the old entries. Inside a Draft recipe the
// first write clones and later writes reuse that private clone.
//
// Two Maps compare equal under shallow equality only if they share a backing
// map, so a write that actually happened is always seen as a change.
type Map[K comparable, V any] struct {
	entries map[K]V
	session *draftSession
	owned   bool
}

// MapOf returns a Map holding a copy of entries.
func MapOf[K comparable, V any](entries map[K]V) Map[K, V] {
	return Map[K, V]{entries: maps.Clone(entries)}
}

// Get returns the value stored under k.
func (m Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.entries[k]
	return v, ok
}

// Has reports whether k is present.
func (m Map[K, V]) Has(k K) bool {
	_, ok := m.entries[k]
	return ok
}

// Len returns the number of entries.
func (m Map[K, V]) Len() int {
	return len(m.entries)
}

// All iterates over the entries in unspecified order.
func (m Map[K, V]) All() iter.Seq2[K, V] {
	return maps.All(m.entries)
}

// Keys returns the keys in unspecified order.
func (m Map[K, V]) Keys() []K {
	keys := make([]K, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Values returns the values in unspecified order.
func (m Map[K, V]) Values() []V {
	values := make([]V, 0, len(m.entries))
	for _, v := range m.entries {
		values = append(values, v)
	}
	return values
}

// ToMap returns a plain copy of the entries.
func (m Map[K, V]) ToMap() map[K]V {
	out := make(map[K]V, len(m.entries))
	maps.Copy(out, m.entries)
	return out
}

// Clone returns a Map with its own copy of the entries.
func (m Map[K, V]) Clone() Map[K, V] {
	return MapOf(m.entries)
}

// Set stores v under k.
func (m *Map[K, V]) Set(k K, v V) {
	m.writable()[k] = v
}

// Update applies fn to the value stored under k and reports whether k was
// present. Missing keys leave the map untouched.
func (m *Map[K, V]) Update(k K, fn func(*V)) bool {
	v, ok := m.entries[k]
	if !ok {
		return false
	}
	fn(&v)
	m.writable()[k] = v
	return true
}

// Delete removes k and reports whether it was present.
func (m *Map[K, V]) Delete(k K) bool {
	if _, ok := m.entries[k]; !ok {
		return false
	}
	delete(m.writable(), k)
	return true
}

// MarshalJSON encodes the entries as a JSON object. An empty map encodes as {}.
func (m Map[K, V]) MarshalJSON() ([]byte, error) {
	if m.entries == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.entries)
}

// UnmarshalJSON replaces the entries with the decoded object.
func (m *Map[K, V]) UnmarshalJSON(data []byte) error {
	var entries map[K]V
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*m = Map[K, V]{entries: entries}
	return nil
}

// writable returns a backing map that is safe to write.
func (m *Map[K, V]) writable() map[K]V {
	if m.owned && m.session != nil && m.session.active {
		return m.entries
	}
	clone := make(map[K]V, len(m.entries)+1)
	maps.Copy(clone, m.entries)
	m.entries = clone
	m.owned = m.session != nil && m.session.active
	return clone
}

func (m *Map[K, V]) attachDraft(s *draftSession) {
	m.session = s
	m.owned = false
}

func (m *Map[K, V]) detachDraft() {
	m.session = nil
	m.owned = false
}
