// Package keys loads the identity the bridge publishes as from its configured
// secret material.
package keys

import (
	"errors"
	"strings"

	"nostrbird.lol/bech32encoding"
	"nostrbird.lol/hex"
	"nostrbird.lol/p256k"
	"nostrbird.lol/signer"
)

// ErrInvalidKeyEncoding is returned for secret material that is neither a
// valid nsec nor 64 characters of hex encoding a valid secret key.
var ErrInvalidKeyEncoding = errors.New("invalid key encoding")

// Load decodes secret material in either nsec or hex form and returns the
// signer for it. The secret never appears in the returned error.
func Load(secret string) (sign signer.I, err error) {
	secret = strings.TrimSpace(secret)
	var skb []byte
	switch {
	case secret == "":
		return nil, redacted("empty secret")
	case strings.HasPrefix(strings.ToLower(secret), bech32encoding.SecHRP+"1"):
		if skb, err = bech32encoding.NsecToBytes(secret); err != nil {
			return nil, redacted(err.Error())
		}
	case len(secret) == bech32encoding.HexKeyLen:
		if skb, err = hex.Dec(secret); err != nil {
			return nil, redacted("not hexadecimal")
		}
	default:
		return nil, redacted("expected nsec or 64 character hex")
	}
	s := &p256k.Signer{}
	if err = s.InitSec(skb); err != nil {
		return nil, redacted(err.Error())
	}
	for i := range skb {
		skb[i] = 0
	}
	return s, nil
}

// PublicKeyHex returns the hex form of the signer's public identity as used on
// the wire.
func PublicKeyHex(sign signer.I) string { return hex.Enc(sign.Pub()) }

// Npub returns the bech32 form of the signer's public identity, for operators.
func Npub(sign signer.I) string {
	npub, err := bech32encoding.BinToNpub(sign.Pub())
	if err != nil {
		return PublicKeyHex(sign)
	}
	return npub
}

func redacted(reason string) error {
	return &keyError{reason: reason}
}

type keyError struct{ reason string }

func (e *keyError) Error() string { return ErrInvalidKeyEncoding.Error() + ": <redacted>: " + e.reason }
func (e *keyError) Unwrap() error { return ErrInvalidKeyEncoding }
