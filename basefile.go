// Package basefile reads and writes binary data transparently encoded
// as ASCII text. A basefile stream behaves like an ordinary random-
// access file of raw bytes while the backing file stays printable:
// base64 by default, with RFC 1924 base85 and Ascii85 variants.
package basefile

import (
	"github.com/basefile/basefile/pkg/codec"
	"github.com/basefile/basefile/pkg/stream"
)

// Option configures how a stream is opened.
type Option func(*options) error

type options struct {
	codec codec.Codec
}

// WithCodec selects the encoding variant; the default is base64.
func WithCodec(c codec.Codec) Option {
	return func(o *options) error {
		o.codec = c
		return nil
	}
}

// WithBase64Alphabet replaces the base64 '+' and '/' characters, e.g.
// WithBase64Alphabet('-', '_') for the URL-safe alphabet.
func WithBase64Alphabet(plus, slash byte) Option {
	return func(o *options) error {
		c, err := codec.NewBase64Alphabet(plus, slash)
		if err != nil {
			return err
		}
		o.codec = c
		return nil
	}
}

func buildOptions(opts []Option) (options, error) {
	o := options{codec: codec.NewBase64()}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return o, err
		}
	}
	return o, nil
}

// Open opens the named encoded file. The mode string is one of "r",
// "w", "a" or "x", optionally with "+" (and an ignored "b"); an empty
// mode defaults to "r". The returned stream owns the file handle.
func Open(name, mode string, opts ...Option) (*stream.Stream, error) {
	if mode == "" {
		mode = "r"
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return stream.Open(name, mode, o.codec)
}

// NewStream attaches a stream to a caller-supplied handle at its
// current position, so an encoded stream can live after an arbitrary
// header. The handle stays owned by the caller; Close only flushes.
func NewStream(h stream.Handle, mode string, opts ...Option) (*stream.Stream, error) {
	if mode == "" {
		mode = "r"
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return stream.New(h, mode, o.codec)
}
