package p256k

import (
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"nostrbird.lol/chk"
	"nostrbird.lol/errorf"
	"nostrbird.lol/signer"
)

// SecKeyBytesLen is the length of a raw secret key.
const SecKeyBytesLen = 32

// Signer is an implementation of signer.I that uses the btcec library.
//
// Either the SecretKey or PublicKey must be populated, the former is for
// generating signatures, the latter is for verifying them.
type Signer struct {
	SecretKey *btcec.PrivateKey
	PublicKey *btcec.PublicKey
	pkb, skb  []byte
}

var _ signer.I = &Signer{}

// Generate creates a new Signer.
func (s *Signer) Generate() (err error) {
	if s.SecretKey, err = btcec.NewPrivateKey(); chk.E(err) {
		return
	}
	s.skb = s.SecretKey.Serialize()
	s.PublicKey = s.SecretKey.PubKey()
	s.pkb = schnorr.SerializePubKey(s.PublicKey)
	return
}

// InitSec initialises a Signer using raw secret key bytes. The bytes must be a
// valid scalar, that is, not zero and less than the curve order.
//
// The error never contains the key bytes.
func (s *Signer) InitSec(sec []byte) (err error) {
	if len(sec) != SecKeyBytesLen {
		err = errorf.E("sec key must be %d bytes, got %d", SecKeyBytesLen, len(sec))
		return
	}
	n := new(big.Int).SetBytes(sec)
	if n.Sign() == 0 || n.Cmp(btcec.S256().Params().N) >= 0 {
		err = errorf.E("sec key is not a valid secp256k1 scalar")
		return
	}
	s.skb = append(s.skb[:0], sec...)
	s.SecretKey, s.PublicKey = btcec.PrivKeyFromBytes(s.skb)
	s.pkb = schnorr.SerializePubKey(s.PublicKey)
	return
}

// InitPub initializes a signature verifier Signer from raw x-only public key
// bytes.
func (s *Signer) InitPub(pub []byte) (err error) {
	if s.PublicKey, err = schnorr.ParsePubKey(pub); chk.D(err) {
		return
	}
	s.pkb = append(s.pkb[:0], pub...)
	return
}

// Sec returns the raw secret key bytes.
func (s *Signer) Sec() (b []byte) { return s.skb }

// Pub returns the raw BIP-340 schnorr public key bytes.
func (s *Signer) Pub() (b []byte) { return s.pkb }

// Sign a message with the Signer. Requires an initialised secret key. The
// message must be a 32 byte hash.
func (s *Signer) Sign(msg []byte) (sig []byte, err error) {
	if s.SecretKey == nil {
		err = errorf.E("p256k: Signer not initialized")
		return
	}
	var si *schnorr.Signature
	if si, err = schnorr.Sign(s.SecretKey, msg); chk.E(err) {
		return
	}
	sig = si.Serialize()
	return
}

// Verify a message signature, only requires the public key is initialised.
func (s *Signer) Verify(msg, sig []byte) (valid bool, err error) {
	if s.PublicKey == nil {
		err = errorf.E("p256k: Pubkey not initialized")
		return
	}
	var si *schnorr.Signature
	if si, err = schnorr.ParseSignature(sig); chk.D(err) {
		err = errorf.E("failed to parse signature of length %d: %w", len(sig), err)
		return
	}
	valid = si.Verify(msg, s.PublicKey)
	return
}

// Zero wipes the bytes of the secret key.
func (s *Signer) Zero() {
	if s.SecretKey != nil {
		s.SecretKey.Zero()
	}
	for i := range s.skb {
		s.skb[i] = 0
	}
}
