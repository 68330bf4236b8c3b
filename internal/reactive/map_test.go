package reactive

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_ZeroValue(t *testing.T) {
	var m Map[string, int]

	assert.Equal(t, 0, m.Len())
	_, ok := m.Get("a")
	assert.False(t, ok)

	m.Set("a", 1)
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestMap_WriteDoesNotAffectCopies(t *testing.T) {
	original := MapOf(map[string]int{"a": 1})
	copied := original

	copied.Set("b", 2)
	copied.Delete("a")

	assert.Equal(t, map[string]int{"a": 1}, original.ToMap())
	assert.Equal(t, map[string]int{"b": 2}, copied.ToMap())
}

func TestMap_MapOfCopiesInput(t *testing.T) {
	src := map[string]int{"a": 1}
	m := MapOf(src)
	src["a"] = 2

	v, _ := m.Get("a")
	assert.Equal(t, 1, v)
}

func TestMap_Update(t *testing.T) {
	m := MapOf(map[string]int{"a": 1})
	before := m

	assert.True(t, m.Update("a", func(v *int) { *v += 10 }))
	assert.False(t, m.Update("missing", func(v *int) { *v = 5 }))

	v, _ := m.Get("a")
	assert.Equal(t, 11, v)
	assert.False(t, m.Has("missing"))

	old, _ := before.Get("a")
	assert.Equal(t, 1, old)
}

func TestMap_DeleteMissingKeepsIdentity(t *testing.T) {
	m := MapOf(map[string]int{"a": 1})
	before := m

	assert.False(t, m.Delete("missing"))
	assert.True(t, ShallowEqual(before, m))

	assert.True(t, m.Delete("a"))
	assert.False(t, ShallowEqual(before, m))
}

func TestMap_KeysValues(t *testing.T) {
	m := MapOf(map[string]int{"a": 1, "b": 2})

	keys := m.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b"}, keys)

	values := m.Values()
	sort.Ints(values)
	assert.Equal(t, []int{1, 2}, values)

	seen := map[string]int{}
	for k, v := range m.All() {
		seen[k] = v
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, seen)
}

func TestMap_JSON(t *testing.T) {
	var empty Map[string, int]
	out, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(out))

	m := MapOf(map[string]int{"b": 2, "a": 1})
	out, err = json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, string(out))

	var decoded Map[string, int]
	require.NoError(t, json.Unmarshal([]byte(`{"x":9}`), &decoded))
	assert.Equal(t, map[string]int{"x": 9}, decoded.ToMap())
}

func TestMap_JSONInStruct(t *testing.T) {
	type doc struct {
		Items Map[string, string] `json:"items"`
	}

	var d doc
	require.NoError(t, json.Unmarshal([]byte(`{"items":{"k":"v"}}`), &d))
	v, ok := d.Items.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `{"items":{"k":"v"}}`, string(out))
}
