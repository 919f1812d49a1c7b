package codec

import "fmt"

const (
	// Base85DecodedBlockSize is the number of raw bytes per base85 block.
	Base85DecodedBlockSize = 4
	// Base85EncodedBlockSize is the number of characters per base85 block.
	Base85EncodedBlockSize = 5

	// rfc1924Alphabet is the character set used by RFC 1924 base85.
	rfc1924Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
		"abcdefghijklmnopqrstuvwxyz!#$%&()*+-;<=>?@^_`{|}~"
)

// radix85 is the unpadded 4:5 codec shared by the RFC 1924 and Ascii85
// variants; only the alphabet differs. A final partial block of n bytes
// (1..3) encodes to exactly n+1 characters, which keeps the congruence
// (-decodedLen) mod 4 == (-encodedLen) mod 5 on every input. Unlike
// encoding/ascii85, an all-zero group is never folded to 'z': folding
// would break the fixed ratio the stream offset arithmetic depends on.
type radix85 struct {
	name     string
	alphabet [85]byte
	index    [256]int16 // -1 for bytes outside the alphabet
}

func newRadix85(name, alphabet string) *radix85 {
	c := &radix85{name: name}
	copy(c.alphabet[:], alphabet)
	for i := range c.index {
		c.index[i] = -1
	}
	for i := 0; i < 85; i++ {
		c.index[alphabet[i]] = int16(i)
	}
	return c
}

// NewBase85 returns the RFC 1924 base85 codec.
func NewBase85() Codec {
	return newRadix85("base85", rfc1924Alphabet)
}

// NewAscii85 returns the Ascii85 ('!'..'u') codec.
func NewAscii85() Codec {
	var alphabet [85]byte
	for i := range alphabet {
		alphabet[i] = '!' + byte(i)
	}
	return newRadix85("ascii85", string(alphabet[:]))
}

func (c *radix85) Name() string          { return c.name }
func (c *radix85) DecodedBlockSize() int { return Base85DecodedBlockSize }
func (c *radix85) EncodedBlockSize() int { return Base85EncodedBlockSize }

func (c *radix85) Encode(src []byte) []byte {
	dst := make([]byte, 0, (len(src)/4)*5+5)
	for len(src) > 0 {
		n := len(src)
		if n > 4 {
			n = 4
		}
		var group [4]byte
		copy(group[:], src[:n])
		v := uint32(group[0])<<24 | uint32(group[1])<<16 | uint32(group[2])<<8 | uint32(group[3])
		var digits [5]byte
		for i := 4; i >= 0; i-- {
			digits[i] = c.alphabet[v%85]
			v /= 85
		}
		if n == 4 {
			dst = append(dst, digits[:]...)
		} else {
			// Partial final block: n bytes become n+1 characters.
			dst = append(dst, digits[:n+1]...)
		}
		src = src[n:]
	}
	return dst
}

func (c *radix85) Decode(src []byte) ([]byte, error) {
	if len(src)%5 == 1 {
		return nil, fmt.Errorf("%w: %d characters", ErrInvalidLength, len(src))
	}
	dst := make([]byte, 0, (len(src)/5)*4+4)
	for len(src) > 0 {
		n := len(src)
		if n > 5 {
			n = 5
		}
		// A truncated final group is completed with the highest digit;
		// the low-order bytes it influences are discarded below, and
		// the encoder zero-padded them, so the kept bytes are exact.
		v := uint64(0)
		for i := 0; i < 5; i++ {
			d := int16(84)
			if i < n {
				d = c.index[src[i]]
				if d < 0 {
					return nil, fmt.Errorf("%w: %q", ErrInvalidByte, src[i])
				}
			}
			v = v*85 + uint64(d)
		}
		if v > 0xffffffff {
			return nil, fmt.Errorf("%w: group value overflows 32 bits", ErrInvalidByte)
		}
		group := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		if n == 5 {
			dst = append(dst, group[:]...)
		} else {
			dst = append(dst, group[:n-1]...)
		}
		src = src[n:]
	}
	return dst, nil
}
