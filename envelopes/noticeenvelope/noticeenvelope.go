package noticeenvelope

import (
	"encoding/json"

	"nostrbird.lol/envelopes"
	"nostrbird.lol/errorf"
	"nostrbird.lol/text"
)

const L = "NOTICE"

// T is a human readable message from a relay.
type T struct {
	Message []byte
}

func New() *T                             { return &T{} }
func NewFrom[V string | []byte](msg V) *T { return &T{Message: []byte(msg)} }
func (en *T) Label() string               { return L }

func (en *T) Marshal(dst []byte) (b []byte) {
	b = envelopes.Marshal(dst, L,
		func(bst []byte) (o []byte) {
			return text.AppendQuote(bst, en.Message, text.NostrEscape)
		})
	return
}

// Unmarshal decodes the elements following the label of a NOTICE frame.
func (en *T) Unmarshal(rest []json.RawMessage) (err error) {
	if len(rest) < 1 {
		return errorf.D("NOTICE envelope has no message")
	}
	var msg string
	if err = json.Unmarshal(rest[0], &msg); err != nil {
		return
	}
	en.Message = []byte(msg)
	return
}
