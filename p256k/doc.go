// Package p256k is the signer.I implementation for the BIP-340 nostr x-only
// signatures and public keys, built on github.com/btcsuite/btcd/btcec/v2.
package p256k
