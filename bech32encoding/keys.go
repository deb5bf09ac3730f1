// Package bech32encoding implements the NIP-19 nsec and npub encodings of
// nostr keys.
package bech32encoding

import (
	"github.com/btcsuite/btcd/btcutil/bech32"

	"nostrbird.lol/chk"
	"nostrbird.lol/errorf"
)

const (
	// MinKeyStringLen is 56 because Bech32 needs 52 characters plus 4 for the HRP,
	// any string shorter than this cannot be a nostr key.
	MinKeyStringLen = 56
	HexKeyLen       = 64
	Bech32HRPLen    = 4
)

var (
	SecHRP = "nsec"
	PubHRP = "npub"
)

// ConvertForBech32 performs the bit expansion required for encoding into Bech32.
func ConvertForBech32(b8 []byte) (b5 []byte, err error) { return bech32.ConvertBits(b8, 8, 5, true) }

// ConvertFromBech32 collapses together the bit expanded 5 bit numbers encoded in bech32.
func ConvertFromBech32(b5 []byte) (b8 []byte, err error) { return bech32.ConvertBits(b5, 5, 8, false) }

// BinToNsec encodes a raw secret key as a Bech32 string (nsec).
func BinToNsec(sk []byte) (nsec string, err error) { return encode(SecHRP, sk) }

// BinToNpub encodes a raw x-only public key as a Bech32 string (npub).
func BinToNpub(pk []byte) (npub string, err error) { return encode(PubHRP, pk) }

// NsecToBytes decodes a nostr secret key (nsec) to its raw 32 bytes.
//
// The errors returned do not carry any part of the input, as bech32 checksum
// errors would otherwise echo the tail of the secret.
func NsecToBytes(nsec string) (sk []byte, err error) { return decode(SecHRP, nsec) }

// NpubToBytes decodes a nostr public key (npub) to its raw 32 bytes.
func NpubToBytes(npub string) (pk []byte, err error) { return decode(PubHRP, npub) }

func encode(hrp string, b []byte) (s string, err error) {
	var b5 []byte
	if b5, err = ConvertForBech32(b); chk.E(err) {
		return
	}
	return bech32.Encode(hrp, b5)
}

func decode(hrp, s string) (b []byte, err error) {
	var got string
	var b5 []byte
	if got, b5, err = bech32.Decode(s); err != nil {
		err = errorf.D("invalid bech32 %s encoding", hrp)
		return
	}
	if got != hrp {
		err = errorf.D("wrong human readable part, got '%s' want '%s'", got, hrp)
		return
	}
	if b, err = ConvertFromBech32(b5); err != nil {
		err = errorf.D("invalid bech32 %s payload", hrp)
		return
	}
	if len(b) != 32 {
		err = errorf.D("%s payload must be 32 bytes, got %d", hrp, len(b))
		return
	}
	return
}
