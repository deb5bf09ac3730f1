package event

import (
	"bytes"

	"nostrbird.lol/chk"
	"nostrbird.lol/errorf"
	"nostrbird.lol/p256k"
	"nostrbird.lol/signer"
)

// Sign the event using the signer.I.
//
// Note that this only populates the PubKey, ID and Sig. The caller must
// set the CreatedAt timestamp as intended.
func (ev *T) Sign(keys signer.I) (err error) {
	ev.PubKey = keys.Pub()
	ev.ID = ev.GetIDBytes()
	if ev.Sig, err = keys.Sign(ev.ID); chk.E(err) {
		return
	}
	return
}

// Verify an event is signed by the pubkey it contains, and that its ID is the
// hash of its canonical form.
func (ev *T) Verify() (valid bool, err error) {
	if id := ev.GetIDBytes(); !bytes.Equal(id, ev.ID) {
		err = errorf.D("event id %0x does not match canonical hash %0x", ev.ID, id)
		return
	}
	keys := &p256k.Signer{}
	if err = keys.InitPub(ev.PubKey); chk.D(err) {
		return
	}
	if valid, err = keys.Verify(ev.ID, ev.Sig); chk.D(err) {
		return
	}
	return
}
