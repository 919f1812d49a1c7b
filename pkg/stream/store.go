package stream

import (
	"fmt"
	"io"
)

// Handle is the minimal contract for a backing store: a byte-oriented
// handle holding ASCII text with a single read/write position. Handles
// that additionally implement io.Seeker are randomly addressable, which
// a stream requires for seeking, overwriting and dirty-block reconcile;
// a plain sequential handle supports append-only writing. Handles that
// implement Sync (e.g. *os.File) are synced on Flush.
type Handle interface {
	io.Reader
	io.Writer
}

type syncer interface {
	Sync() error
}

// MemStore is an in-memory backing store, usable anywhere a seekable
// Handle is. The zero value is an empty store.
type MemStore struct {
	data []byte
	pos  int64
}

// NewMemStore returns a store seeded with data, positioned at 0.
func NewMemStore(data []byte) *MemStore {
	return &MemStore{data: append([]byte(nil), data...)}
}

// Bytes returns the store's current contents.
func (m *MemStore) Bytes() []byte { return m.data }

// Len returns the store's current length.
func (m *MemStore) Len() int { return len(m.data) }

func (m *MemStore) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *MemStore) Write(p []byte) (int, error) {
	if gap := m.pos - int64(len(m.data)); gap > 0 {
		m.data = append(m.data, make([]byte, gap)...)
	}
	n := copy(m.data[m.pos:], p)
	m.data = append(m.data, p[n:]...)
	m.pos += int64(len(p))
	return len(p), nil
}

func (m *MemStore) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = m.pos + offset
	case io.SeekEnd:
		pos = int64(len(m.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeOffset, pos)
	}
	m.pos = pos
	return pos, nil
}
