package event

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"nostrbird.lol/kind"
	"nostrbird.lol/signer"
	"nostrbird.lol/tags"
	"nostrbird.lol/timestamp"
)

// ErrSigning is returned when an event cannot be signed, or when a freshly
// signed event fails its own verification. The latter means the key material or
// the canonical encoding is broken and the event must not be sent.
var ErrSigning = errors.New("signing error")

// Builder constructs signed events for one author. Now is the clock used for
// created_at and defaults to timestamp.Now.
type Builder struct {
	Signer signer.I
	Now    func() *timestamp.T
}

// NewBuilder returns a Builder that signs as sign.
func NewBuilder(sign signer.I) *Builder { return &Builder{Signer: sign, Now: timestamp.Now} }

// Build assembles an event of kind k with empty tags and the given content,
// computes its ID, signs it and verifies the result before returning it.
// Content must be valid UTF-8, since JSON decoders replace invalid bytes and
// the ID would no longer match.
func (b *Builder) Build(k *kind.T, content []byte) (ev *T, err error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrSigning)
	}
	now := timestamp.Now
	if b.Now != nil {
		now = b.Now
	}
	ev = &T{
		CreatedAt: now(),
		Kind:      k,
		Tags:      tags.New(),
		Content:   content,
	}
	if err = ev.Sign(b.Signer); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	var valid bool
	if valid, err = ev.Verify(); err != nil || !valid {
		if err == nil {
			err = errors.New("signature does not verify")
		}
		return nil, fmt.Errorf("%w: self verification failed: %w", ErrSigning, err)
	}
	return
}

// TextNote builds a signed kind 1 text note.
func (b *Builder) TextNote(content string) (ev *T, err error) {
	return b.Build(kind.TextNote, []byte(content))
}
