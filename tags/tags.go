// Package tags is the ordered list of tags carried by an event.
package tags

import (
	"nostrbird.lol/tag"
)

// T is a list of tag.T, which are lists of string elements.
type T struct {
	t []*tag.T
}

// New creates a tags.T from the given tags.
func New(fields ...*tag.T) (t *T) { return &T{t: fields} }

// FromStrings builds a tags.T from its decoded JSON form.
func FromStrings(s ...[]string) (t *T) {
	t = &T{t: make([]*tag.T, 0, len(s))}
	for _, f := range s {
		t.t = append(t.t, tag.New(f...))
	}
	return
}

func (t *T) Len() int {
	if t == nil {
		return 0
	}
	return len(t.t)
}

// ToStringSlice returns the tags as a slice of slices of strings, never nil so
// it encodes as [] in JSON.
func (t *T) ToStringSlice() (b [][]string) {
	b = make([][]string, 0, t.Len())
	if t == nil {
		return
	}
	for _, tt := range t.t {
		b = append(b, tt.ToStringSlice())
	}
	return
}

// Marshal encodes the tags as a minified JSON array of arrays. A nil or empty
// tags.T encodes as [].
func (t *T) Marshal(dst []byte) (b []byte) {
	b = append(dst, '[')
	if t != nil {
		for i, s := range t.t {
			if i > 0 {
				b = append(b, ',')
			}
			b = s.Marshal(b)
		}
	}
	b = append(b, ']')
	return
}
