package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// Base64DecodedBlockSize is the number of raw bytes per base64 block.
	Base64DecodedBlockSize = 3
	// Base64EncodedBlockSize is the number of characters per base64 block.
	Base64EncodedBlockSize = 4

	stdAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
)

// base64Codec is the padded 3:4 variant. A final partial block is padded
// to a full EncodedBlockSize characters with '=', so the encoded stream
// length is always a multiple of the encoded block size.
type base64Codec struct {
	enc  *base64.Encoding
	name string
}

// NewBase64 returns the standard-alphabet base64 codec.
func NewBase64() Codec {
	return &base64Codec{enc: base64.StdEncoding.Strict(), name: "base64"}
}

// NewBase64Alphabet returns a base64 codec with the '+' and '/' characters
// replaced by the two given characters, e.g. '-' and '_' for the URL-safe
// alphabet. The replacements must be distinct ASCII characters not already
// present in the standard alphabet.
func NewBase64Alphabet(plus, slash byte) (Codec, error) {
	if plus == slash || plus > 0x7f || slash > 0x7f {
		return nil, fmt.Errorf("invalid alternate characters %q, %q", plus, slash)
	}
	if strings.ContainsAny(stdAlphabet[:62], string([]byte{plus, slash})) || plus == '=' || slash == '=' {
		return nil, fmt.Errorf("alternate characters %q, %q collide with the base alphabet", plus, slash)
	}
	alphabet := stdAlphabet[:62] + string([]byte{plus, slash})
	return &base64Codec{
		enc:  base64.NewEncoding(alphabet).Strict(),
		name: fmt.Sprintf("base64[%c%c]", plus, slash),
	}, nil
}

func (c *base64Codec) Name() string          { return c.name }
func (c *base64Codec) DecodedBlockSize() int { return Base64DecodedBlockSize }
func (c *base64Codec) EncodedBlockSize() int { return Base64EncodedBlockSize }

func (c *base64Codec) Encode(src []byte) []byte {
	dst := make([]byte, c.enc.EncodedLen(len(src)))
	c.enc.Encode(dst, src)
	return dst
}

func (c *base64Codec) Decode(src []byte) ([]byte, error) {
	if len(src)%Base64EncodedBlockSize != 0 {
		return nil, fmt.Errorf("%w: %d characters", ErrInvalidLength, len(src))
	}
	dst := make([]byte, c.enc.DecodedLen(len(src)))
	n, err := c.enc.Decode(dst, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidByte, err)
	}
	return dst[:n], nil
}
