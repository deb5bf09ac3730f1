// Package envelopes holds the framing shared by the nostr "envelope" messages:
// a JSON array whose first element is an upper case label.
package envelopes

import (
	"encoding/json"
)

type Marshaler func(dst []byte) (b []byte)

// Marshal writes ["<label>",<m's output>] to dst.
func Marshal(dst []byte, label string, m Marshaler) (b []byte) {
	b = dst
	b = append(b, '[', '"')
	b = append(b, label...)
	b = append(b, '"', ',')
	b = m(b)
	b = append(b, ']')
	return
}

// Elements splits an envelope into its label and the raw JSON of the
// remaining elements.
func Elements(b []byte) (label string, rest []json.RawMessage, err error) {
	var raw []json.RawMessage
	if err = json.Unmarshal(b, &raw); err != nil {
		return
	}
	if len(raw) == 0 {
		err = &json.UnmarshalTypeError{Value: "empty array", Type: nil}
		return
	}
	if err = json.Unmarshal(raw[0], &label); err != nil {
		return
	}
	rest = raw[1:]
	return
}
