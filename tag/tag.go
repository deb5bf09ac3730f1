// Package tag provides an implementation of a nostr tag list, an array of
// strings with a usually single letter first "key" field.
package tag

import (
	"nostrbird.lol/text"
)

// T is a list of strings, the first of which is the key.
type T struct {
	field [][]byte
}

// New creates a new tag.T from a variadic parameter of strings or byte slices.
func New[V string | []byte](fields ...V) (t *T) {
	t = &T{field: make([][]byte, len(fields))}
	for i, field := range fields {
		t.field[i] = []byte(field)
	}
	return
}

// Len returns the number of fields in the tag.
func (t *T) Len() int {
	if t == nil {
		return 0
	}
	return len(t.field)
}

// ToStringSlice converts a tag to a slice of strings.
func (t *T) ToStringSlice() (s []string) {
	s = make([]string, 0, t.Len())
	for i := range t.field {
		s = append(s, string(t.field[i]))
	}
	return
}

// Marshal encodes a tag.T as a minified JSON array of strings.
func (t *T) Marshal(dst []byte) (b []byte) {
	dst = append(dst, '[')
	for i, s := range t.field {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = text.AppendQuote(dst, s, text.NostrEscape)
	}
	dst = append(dst, ']')
	return dst
}
