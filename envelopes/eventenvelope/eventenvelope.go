package eventenvelope

import (
	"encoding/json"

	"nostrbird.lol/envelopes"
	"nostrbird.lol/errorf"
	"nostrbird.lol/event"
)

const L = "EVENT"

// Submission is a request from a client for a relay to store an event.
type Submission struct {
	*event.T
}

func NewSubmission() *Submission                { return &Submission{T: &event.T{}} }
func NewSubmissionWith(ev *event.T) *Submission { return &Submission{T: ev} }
func (en *Submission) Label() string            { return L }

// Marshal appends ["EVENT",{...}] to dst.
func (en *Submission) Marshal(dst []byte) (b []byte) {
	b = envelopes.Marshal(dst, L,
		func(bst []byte) (o []byte) {
			return en.T.Marshal(bst)
		})
	return
}

// Unmarshal decodes a whole ["EVENT",{...}] frame.
func (en *Submission) Unmarshal(b []byte) (err error) {
	var label string
	var rest []json.RawMessage
	if label, rest, err = envelopes.Elements(b); err != nil {
		return
	}
	if label != L || len(rest) != 1 {
		return errorf.D("not an %s submission: %s", L, b)
	}
	en.T = event.New()
	return en.T.Unmarshal(rest[0])
}

// ParseSubmission decodes an EVENT frame sent by a client.
func ParseSubmission(b []byte) (t *Submission, err error) {
	t = NewSubmission()
	if err = t.Unmarshal(b); err != nil {
		return
	}
	return
}
