// Package codec provides the fixed-ratio block codecs used to persist
// binary data as ASCII text. Every codec maps a fixed number of decoded
// bytes to a fixed number of encoded characters, so byte offsets can be
// translated to character offsets with pure arithmetic.
package codec

import "errors"

var (
	ErrInvalidLength = errors.New("encoded length is not valid for this codec")
	ErrInvalidByte   = errors.New("invalid byte in encoded input")
)

// Codec is a stateless encoder/decoder for one encoding variant.
//
// Encode accepts any number of whole blocks plus at most one trailing
// partial block (the final block of a stream). Decode accepts exactly
// what Encode produces and is its left inverse. Implementations must be
// safe to share between streams.
type Codec interface {
	// Name identifies the variant, e.g. for tooling output.
	Name() string

	// DecodedBlockSize returns the number of raw bytes per block.
	DecodedBlockSize() int

	// EncodedBlockSize returns the number of ASCII characters per block.
	EncodedBlockSize() int

	// Encode encodes src into ASCII text. A full block always encodes
	// to exactly EncodedBlockSize characters.
	Encode(src []byte) []byte

	// Decode decodes a run of whole encoded blocks, optionally followed
	// by a single trailing partial block.
	Decode(src []byte) ([]byte, error)
}
