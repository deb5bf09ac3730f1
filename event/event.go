// Package event is the nostr event: its canonical form, content addressed
// identifier, signature and JSON encoding.
package event

import (
	"nostrbird.lol/hex"
	"nostrbird.lol/kind"
	"nostrbird.lol/sha256"
	"nostrbird.lol/tags"
	"nostrbird.lol/timestamp"
)

// T is the primary datatype of nostr. This is the form of the structure that
// defines its JSON string based format.
type T struct {
	// ID is the SHA256 hash of the canonical encoding of the event in binary format
	ID []byte
	// PubKey is the public key of the event creator in binary format
	PubKey []byte
	// CreatedAt is the UNIX timestamp of the event according to the event
	// creator (never trust a timestamp!)
	CreatedAt *timestamp.T
	// Kind is the nostr protocol code for the type of event. See kind.T
	Kind *kind.T
	// Tags are a list of tags, which are a list of strings usually structured
	// as a 3 layer scheme indicating specific features of an event.
	Tags *tags.T
	// Content is an arbitrary string that can contain anything, but usually
	// following the conventions of its Kind and Tags.
	Content []byte
	// Sig is the signature on the ID hash that validates as coming from the
	// Pubkey in binary format.
	Sig []byte
}

func New() (ev *T) { return &T{} }

func (ev *T) Serialize() (b []byte) { return ev.Marshal(nil) }

// stringy/numbery functions for other libraries

func (ev *T) IDString() (s string)       { return hex.Enc(ev.ID) }
func (ev *T) PubKeyString() (s string)   { return hex.Enc(ev.PubKey) }
func (ev *T) SigString() (s string)      { return hex.Enc(ev.Sig) }
func (ev *T) TagStrings() (s [][]string) { return ev.Tags.ToStringSlice() }
func (ev *T) ContentString() (s string)  { return string(ev.Content) }

// J is the event in the shape encoding/json produces and consumes.
type J struct {
	Id        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int32      `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

func (ev *T) ToEventJ() (j *J) {
	j = &J{}
	j.Id = ev.IDString()
	j.Pubkey = ev.PubKeyString()
	j.CreatedAt = ev.CreatedAt.I64()
	j.Kind = ev.Kind.ToI32()
	j.Content = ev.ContentString()
	j.Tags = ev.Tags.ToStringSlice()
	j.Sig = ev.SigString()
	return
}

// ToEvent converts this above format to the native form.
func (e J) ToEvent() (ev *T, err error) {
	ev = &T{}
	if ev.ID, err = hex.Dec(e.Id); err != nil {
		return
	}
	if ev.PubKey, err = hex.Dec(e.Pubkey); err != nil {
		return
	}
	if ev.Sig, err = hex.Dec(e.Sig); err != nil {
		return
	}
	ev.CreatedAt = timestamp.FromUnix(e.CreatedAt)
	ev.Kind = kind.New(e.Kind)
	ev.Tags = tags.FromStrings(e.Tags...)
	ev.Content = []byte(e.Content)
	return
}

func Hash(in []byte) (out []byte) {
	h := sha256.Sum256(in)
	return h[:]
}
