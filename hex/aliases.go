// Package hex is a set of aliases and helpers for hexadecimal encoding, using a
// SIMD codec for the append variants used on hot paths.
package hex

import (
	"encoding/hex"

	"github.com/templexxx/xhex"

)

var Enc = hex.EncodeToString
var EncBytes = hex.Encode
var Dec = hex.DecodeString
var DecBytes = hex.Decode

var DecLen = hex.DecodedLen

type InvalidByteError = hex.InvalidByteError

// EncAppend appends the hex encoding of src to dst.
func EncAppend(dst, src []byte) (b []byte) {
	l := len(dst)
	dst = append(dst, make([]byte, len(src)*2)...)
	xhex.Encode(dst[l:], src)
	return dst
}
