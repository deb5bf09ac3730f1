package okenvelope

import (
	"encoding/json"

	"nostrbird.lol/envelopes"
	"nostrbird.lol/errorf"
	"nostrbird.lol/hex"
	"nostrbird.lol/text"
)

const (
	L = "OK"
)

// T is a relay's acknowledgement of an EVENT: ["OK","<id>",<accepted>,"<reason>"].
type T struct {
	EventID []byte
	OK      bool
	Reason  []byte
}

func New() *T { return &T{} }
func NewFrom(eid []byte, ok bool, msg ...[]byte) *T {
	var m []byte
	if len(msg) > 0 {
		m = msg[0]
	}
	return &T{EventID: eid, OK: ok, Reason: m}
}
func (en *T) Label() string        { return L }
func (en *T) ReasonString() string { return string(en.Reason) }

func (en *T) Marshal(dst []byte) (b []byte) {
	b = envelopes.Marshal(dst, L,
		func(bst []byte) (o []byte) {
			o = bst
			o = text.AppendQuote(o, en.EventID, hex.EncAppend)
			o = append(o, ',')
			if en.OK {
				o = append(o, "true"...)
			} else {
				o = append(o, "false"...)
			}
			o = append(o, ',')
			o = text.AppendQuote(o, en.Reason, text.NostrEscape)
			return
		})
	return
}

// Unmarshal decodes the elements following the label of an OK frame.
func (en *T) Unmarshal(rest []json.RawMessage) (err error) {
	if len(rest) < 2 {
		return errorf.D("OK envelope has %d elements, want 3", len(rest)+1)
	}
	var id string
	if err = json.Unmarshal(rest[0], &id); err != nil {
		return
	}
	if en.EventID, err = hex.Dec(id); err != nil {
		return
	}
	if err = json.Unmarshal(rest[1], &en.OK); err != nil {
		return
	}
	if len(rest) > 2 {
		var reason string
		if err = json.Unmarshal(rest[2], &reason); err != nil {
			return
		}
		en.Reason = []byte(reason)
	}
	return
}
