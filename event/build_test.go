package event

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nostrbird.lol/kind"
	"nostrbird.lol/p256k"
	"nostrbird.lol/timestamp"
)

func newSigner(t *testing.T) *p256k.Signer {
	s := &p256k.Signer{}
	require.NoError(t, s.Generate())
	return s
}

func TestBuildTextNote(t *testing.T) {
	s := newSigner(t)
	b := NewBuilder(s)
	b.Now = func() *timestamp.T { return timestamp.FromUnix(1700000000) }
	ev, err := b.TextNote("Hello, nostr!")
	require.NoError(t, err)
	assert.Equal(t, kind.TextNote.K, ev.Kind.K)
	assert.Equal(t, 0, ev.Tags.Len())
	assert.Equal(t, "Hello, nostr!", ev.ContentString())
	assert.Equal(t, int64(1700000000), ev.CreatedAt.I64())
	assert.Equal(t, s.Pub(), ev.PubKey)
	assert.Equal(t, ev.GetIDBytes(), ev.ID)
	valid, err := ev.Verify()
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestVerifyDetectsTampering(t *testing.T) {
	ev, err := NewBuilder(newSigner(t)).TextNote("original")
	require.NoError(t, err)
	ev.Content = []byte("tampered")
	valid, err := ev.Verify()
	assert.False(t, valid)
	assert.Error(t, err)

	ev, err = NewBuilder(newSigner(t)).TextNote("original")
	require.NoError(t, err)
	// same id, signature by somebody else
	other, err := NewBuilder(newSigner(t)).TextNote("original")
	require.NoError(t, err)
	ev.Sig = other.Sig
	valid, _ = ev.Verify()
	assert.False(t, valid)
}

func TestJSONRoundTrip(t *testing.T) {
	ev, err := NewBuilder(newSigner(t)).TextNote("line\nbreak \"quote\" \x01 ✓")
	require.NoError(t, err)
	b := ev.Serialize()
	var generic map[string]any
	require.NoError(t, json.Unmarshal(b, &generic))
	for _, k := range []string{"id", "pubkey", "created_at", "kind", "tags", "content", "sig"} {
		assert.Contains(t, generic, k)
	}
	assert.Equal(t, []any{}, generic["tags"])
	back := New()
	require.NoError(t, back.Unmarshal(b))
	assert.Equal(t, ev.Content, back.Content)
	valid, err := back.Verify()
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, string(b), string(back.Serialize()))
}

// brokenSigner signs with one key and claims another as its public identity,
// the way corrupted key material would behave.
type brokenSigner struct {
	*p256k.Signer
	pub []byte
}

func (b *brokenSigner) Pub() []byte { return b.pub }

func TestBuildAbortsOnSelfVerificationFailure(t *testing.T) {
	bs := &brokenSigner{Signer: newSigner(t), pub: newSigner(t).Pub()}
	ev, err := NewBuilder(bs).TextNote("never sent")
	assert.Nil(t, ev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSigning))
}

func TestBuildFailsWithoutSecret(t *testing.T) {
	s := &p256k.Signer{}
	require.NoError(t, s.InitPub(newSigner(t).Pub()))
	_, err := NewBuilder(s).TextNote("x")
	assert.True(t, errors.Is(err, ErrSigning))
}

func TestBuildRejectsInvalidUTF8(t *testing.T) {
	b := NewBuilder(newSigner(t))
	for _, content := range []string{"caf\xe9", "\xff", "ok \xed\xa0\x80 surrogate"} {
		ev, err := b.TextNote(content)
		assert.Nil(t, ev, "%q", content)
		assert.True(t, errors.Is(err, ErrSigning), "%q", content)
	}
	// every event that is built survives a JSON decode with its id intact
	ev, err := b.TextNote("café ☕ 𝄞")
	require.NoError(t, err)
	back := New()
	require.NoError(t, back.Unmarshal(ev.Serialize()))
	assert.Equal(t, "café ☕ 𝄞", back.ContentString())
	valid, err := back.Verify()
	require.NoError(t, err)
	assert.True(t, valid)
}
