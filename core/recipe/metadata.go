package recipe

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Well-known metadata keys.
const (
	KeySource      = "source"
	KeyTitle       = "title"
	KeyAuthor      = "author"
	KeyDescription = "description"
	KeyServings    = "servings"
	KeyCourse      = "course"
	KeyPrepTime    = "prep_time"
	KeyCookTime    = "cook_time"
	KeyTotalTime   = "total_time"
	KeyCuisine     = "cuisine"
	KeyDiet        = "diet"
	KeyTags        = "tags"
	KeyImage       = "image"
	KeyNotes       = "notes"
)

// Metadata is an insertion-ordered string mapping. Empty values are never
// stored: setting a key to a blank value leaves the mapping untouched.
// The zero value is ready to use.
type Metadata struct {
	keys   []string
	values map[string]string
}

// Set stores value under key. Values are trimmed; blank values are ignored.
// Re-setting an existing key replaces the value and keeps its position.
func (m *Metadata) Set(key, value string) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// SetDefault stores value only when key is not present yet.
func (m *Metadata) SetDefault(key, value string) {
	if _, ok := m.Get(key); ok {
		return
	}
	m.Set(key, value)
}

// Get returns the value for key.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Delete removes key if present.
func (m *Metadata) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// SortedKeys returns the keys in lexical order.
func (m Metadata) SortedKeys() []string {
	out := m.Keys()
	sort.Strings(out)
	return out
}

// Len returns the number of entries.
func (m Metadata) Len() int {
	return len(m.keys)
}

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata {
	var c Metadata
	for _, k := range m.keys {
		c.Set(k, m.values[k])
	}
	return c
}

// Map returns a plain map copy.
func (m Metadata) Map() map[string]string {
	out := make(map[string]string, len(m.keys))
	for _, k := range m.keys {
		out[k] = m.values[k]
	}
	return out
}

// MarshalJSON encodes the metadata as a JSON object in insertion order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
