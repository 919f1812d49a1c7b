// Package cipher provides a strictly sequential encrypted file adapter:
// bytes are XChaCha20-encrypted on write and decrypted on read. There
// is no block buffering and no seeking; each file is one-directional.
// The per-file nonce is stored as a fixed-size unencrypted prefix, so
// only the 32-byte key has to be shared out of band.
package cipher

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/chacha20"
)

const (
	// KeySize is the required secret key length in bytes.
	KeySize = chacha20.KeySize
	// NonceSize is the length of the unencrypted nonce prefix.
	NonceSize = chacha20.NonceSizeX
)

var (
	// ErrInvalidKeySize is returned when the key is not KeySize bytes.
	ErrInvalidKeySize = errors.New("secret key must be 32 bytes")
	// ErrClosed is returned by operations on a closed reader or writer.
	ErrClosed = errors.New("cipher stream is closed")
)

// Writer encrypts everything written to it and passes the ciphertext
// to the underlying writer. Not safe for concurrent use.
type Writer struct {
	w      io.Writer
	cipher *chacha20.Cipher
	owned  *os.File
	buf    []byte
	closed bool
}

// NewWriter wraps w, generating a fresh random nonce and writing it as
// the file prefix before any payload bytes.
func NewWriter(w io.Writer, key []byte) (*Writer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidKeySize, len(key))
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(nonce); err != nil {
		return nil, fmt.Errorf("write nonce prefix: %w", err)
	}
	return &Writer{w: w, cipher: c}, nil
}

// OpenWriter creates the named file for writing; the file handle is
// owned and closed by Close.
func OpenWriter(name string, key []byte) (*Writer, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, key)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.owned = f
	return w, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if cap(w.buf) < len(p) {
		w.buf = make([]byte, len(p))
	}
	ct := w.buf[:len(p)]
	w.cipher.XORKeyStream(ct, p)
	n, err := w.w.Write(ct)
	if err != nil {
		return n, fmt.Errorf("write ciphertext: %w", err)
	}
	return n, nil
}

// Flush syncs the underlying file, if there is one to sync.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	if sy, ok := w.w.(interface{ Sync() error }); ok {
		return sy.Sync()
	}
	return nil
}

// Close releases the writer. It closes the underlying file only if
// OpenWriter created it. Idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.owned != nil {
		err := w.owned.Close()
		w.owned = nil
		return err
	}
	return nil
}

// Reader decrypts everything read from the underlying reader. Not safe
// for concurrent use.
type Reader struct {
	r      io.Reader
	cipher *chacha20.Cipher
	owned  *os.File
	closed bool
}

// NewReader wraps r, consuming the nonce prefix the writer stored.
func NewReader(r io.Reader, key []byte) (*Reader, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidKeySize, len(key))
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, fmt.Errorf("read nonce prefix: %w", err)
	}
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, cipher: c}, nil
}

// OpenReader opens the named file for reading; the file handle is
// owned and closed by Close.
func OpenReader(name string, key []byte) (*Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f, key)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.owned = f
	return r, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	n, err := r.r.Read(p)
	if n > 0 {
		r.cipher.XORKeyStream(p[:n], p[:n])
	}
	return n, err
}

// Close releases the reader. It closes the underlying file only if
// OpenReader created it. Idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.owned != nil {
		err := r.owned.Close()
		r.owned = nil
		return err
	}
	return nil
}
