package basefile

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/basefile/basefile/pkg/codec"
	"github.com/basefile/basefile/pkg/stream"
)

func TestOpenDefaultBase64(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.b64")

	s, err := Open(path, "w")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	payload := []byte{0x00, 0x01, 0xfe, 0xff, 'h', 'i'}
	if _, err := s.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// The file on disk is printable base64.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	for _, ch := range raw {
		if ch < '!' || ch > '~' {
			t.Fatalf("non-printable byte %q in encoded file %q", ch, raw)
		}
	}

	// Empty mode defaults to read.
	s, err = Open(path, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got %x, want %x", got, payload)
	}
}

func TestOpenWithCodec(t *testing.T) {
	for _, c := range []codec.Codec{codec.NewBase85(), codec.NewAscii85()} {
		path := filepath.Join(t.TempDir(), "data."+c.Name())

		s, err := Open(path, "w", WithCodec(c))
		if err != nil {
			t.Fatalf("%s: open: %v", c.Name(), err)
		}
		if _, err := s.Write([]byte("variant payload")); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}

		s, err = Open(path, "r", WithCodec(c))
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		got, err := io.ReadAll(s)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.Equal(got, []byte("variant payload")) {
			t.Errorf("%s: got %q", c.Name(), got)
		}
		s.Close()
	}
}

func TestWithBase64Alphabet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.b64url")

	s, err := Open(path, "w", WithBase64Alphabet('-', '_'))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data := []byte{0xfb, 0xff, 0xfe, 0xfb, 0xff, 0xfe}
	if _, err := s.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if bytes.ContainsAny(raw, "+/") {
		t.Errorf("url-safe file contains +/: %q", raw)
	}

	s, err = Open(path, "r", WithBase64Alphabet('-', '_'))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := io.ReadAll(s)
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("round trip: %x, %v", got, err)
	}

	if _, err := Open(path, "r", WithBase64Alphabet('-', '-')); err == nil {
		t.Errorf("duplicate alternate characters accepted")
	}
}

// A stream attached to a caller handle must leave the handle open and
// honor its position as the base offset.
func TestNewStreamBorrowedHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framed.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("HDR")); err != nil {
		t.Fatalf("write header: %v", err)
	}
	s, err := NewStream(f, "w")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := s.Write([]byte("payload")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close stream: %v", err)
	}

	// The handle survives the stream's Close.
	if _, err := f.Seek(3, io.SeekStart); err != nil {
		t.Fatalf("handle closed by stream: %v", err)
	}
	r, err := NewStream(f, "r")
	if err != nil {
		t.Fatalf("attach reader: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil || !bytes.Equal(got, []byte("payload")) {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestOpenInvalidMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.b64")
	if _, err := Open(path, "rw"); err == nil {
		t.Errorf("conflicting mode accepted")
	}
	if _, err := Open(path, "z"); err == nil {
		t.Errorf("invalid mode accepted")
	}
	var zero stream.Mode
	if zero.Readable() || zero.Writable() {
		t.Errorf("zero mode should have no capabilities")
	}
}
