// Package stream implements a random-access byte stream that is
// persisted as ASCII text through a fixed-ratio block codec.
//
// A Stream translates every logical byte offset into a block-aligned
// character offset on a backing store, holding at most one uncommitted
// partial block in memory. Reads, writes and seeks may be freely
// interleaved; the stream reconciles the partial block against the
// store so data is never corrupted or duplicated. Streams are not safe
// for concurrent use.
package stream

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/basefile/basefile/pkg/codec"
)

// Stream is the block-buffering engine. It owns a logical cursor into
// the decoded stream, a buffer holding the trailing partial block, and
// a dirty flag marking buffered bytes not yet on the backing store.
//
// Invariants held at the boundary of every operation:
//   - 0 <= bufCursor <= len(buf) <= DecodedBlockSize
//   - (cursor - bufCursor) is a whole number of blocks
//   - when dirty, the store is positioned at the start of the
//     uncommitted block so the next write lands correctly
type Stream struct {
	codec codec.Codec
	h     Handle
	sk    io.Seeker // non-nil if h supports seeking
	owned *os.File  // closed by Close if the stream opened it itself

	mode Mode
	draw int // decoded block size
	denc int // encoded block size

	base      int64 // store offset where this stream's data begins
	spos      int64 // current store position, mirrored locally
	cursor    int64 // logical position in decoded bytes
	buf       []byte
	bufCursor int

	dirty   bool // buf holds bytes not yet written to the store
	flushed bool // the dirty tail has been persisted by Flush
	closed  bool
}

// New attaches a stream to a caller-supplied handle. The stream's data
// begins at the handle's current position, which allows embedding an
// encoded stream after an arbitrary header. Close flushes but does not
// close the handle; its lifecycle stays with the caller.
//
// The mode string declares the capabilities the stream honors, exactly
// one of "r", "w", "a" or "x", optionally with "+" (and an ignored
// "b"). It must not promise more than the handle can deliver.
func New(h Handle, mode string, c codec.Codec) (*Stream, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return newStream(h, nil, m, c)
}

// Open opens the named file and wraps it in a stream. The file handle
// is owned by the stream and closed by Close. Mode "a" positions the
// stream at its current end, realizing a trailing partial block so
// appended bytes continue it rather than corrupting it.
func Open(name, mode string, c codec.Codec) (*Stream, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(name, m.openFlag(), 0644)
	if err != nil {
		return nil, err
	}
	s, err := newStream(f, f, m, c)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func newStream(h Handle, owned *os.File, m Mode, c codec.Codec) (*Stream, error) {
	if h == nil {
		return nil, errors.New("backing handle cannot be nil")
	}
	if c == nil {
		return nil, errors.New("codec cannot be nil")
	}
	if c.DecodedBlockSize() <= 0 || c.EncodedBlockSize() <= 0 {
		return nil, fmt.Errorf("codec %s has invalid block sizes", c.Name())
	}
	s := &Stream{
		codec: c,
		h:     h,
		owned: owned,
		mode:  m,
		draw:  c.DecodedBlockSize(),
		denc:  c.EncodedBlockSize(),
	}
	if sk, ok := h.(io.Seeker); ok {
		s.sk = sk
		pos, err := sk.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, fmt.Errorf("locate base offset: %w", err)
		}
		s.base, s.spos = pos, pos
	}
	if m.Append && s.sk != nil {
		if _, err := s.realizeEnd(); err != nil {
			return nil, fmt.Errorf("position at end of stream: %w", err)
		}
	}
	return s, nil
}

// Codec returns the codec the stream was built with.
func (s *Stream) Codec() codec.Codec { return s.codec }

// Mode returns the stream's parsed mode.
func (s *Stream) Mode() Mode { return s.mode }

// Tell returns the logical cursor: the caller-visible position in
// decoded bytes.
func (s *Stream) Tell() int64 { return s.cursor }

// Readable reports whether the stream accepts reads.
func (s *Stream) Readable() bool { return !s.closed && s.mode.Readable() }

// Writable reports whether the stream accepts writes.
func (s *Stream) Writable() bool { return !s.closed && s.mode.Writable() }

// Seekable reports whether the backing store supports repositioning.
func (s *Stream) Seekable() bool { return !s.closed && s.sk != nil }

// blockStart returns the store offset of the block containing the
// first uncommitted byte. Everything before it is whole blocks.
func (s *Stream) blockStart() int64 {
	committed := s.cursor - int64(s.bufCursor)
	return s.base + int64(s.denc)*(committed/int64(s.draw))
}

func (s *Stream) check() {
	if s.bufCursor < 0 || s.bufCursor > len(s.buf) || len(s.buf) > s.draw ||
		(s.cursor-int64(s.bufCursor))%int64(s.draw) != 0 {
		panic(fmt.Sprintf("stream: corrupt state: cursor=%d bufCursor=%d len(buf)=%d draw=%d",
			s.cursor, s.bufCursor, len(s.buf), s.draw))
	}
}

// repositionStore seeks the backing store to pos if it is not already
// there. A mismatch only happens after read-ahead, so a non-seekable
// store is only rejected when repositioning is actually needed.
func (s *Stream) repositionStore(pos int64) error {
	if s.spos == pos {
		return nil
	}
	if s.sk == nil {
		return ErrNotSeekable
	}
	if _, err := s.sk.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("seek backing store: %w", err)
	}
	s.spos = pos
	return nil
}

func (s *Stream) writeStore(enc []byte) error {
	n, err := s.h.Write(enc)
	if err != nil {
		return fmt.Errorf("write backing store: %w", err)
	}
	if n < len(enc) {
		return io.ErrShortWrite
	}
	s.spos += int64(n)
	return nil
}

// fillBlock reads one encoded block at the store's current position and
// merges it into the buffer. Bytes already staged at buf[:bufCursor]
// take precedence over what is on the store; only the portion beyond
// the staged bytes is filled in. At end of stream the block may come
// back short or empty.
func (s *Stream) fillBlock() error {
	enc := make([]byte, s.denc)
	n, err := io.ReadFull(s.h, enc)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("read backing store: %w", err)
	}
	s.spos += int64(n)
	dec, err := s.codec.Decode(enc[:n])
	if err != nil {
		return err
	}
	if len(dec) > s.bufCursor {
		s.buf = append(s.buf[:s.bufCursor], dec[s.bufCursor:]...)
	} else {
		s.buf = s.buf[:s.bufCursor]
	}
	return nil
}

// Write splices p into the stream at the logical cursor. Whole blocks
// are encoded and committed immediately; a trailing partial block stays
// buffered until it can be completed, flushed or closed out. Buffered
// bytes beyond the end of p, staged by an earlier read, are preserved.
// The write either fully applies or fails.
func (s *Stream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if !s.mode.Writable() {
		return 0, ErrNotWritable
	}
	s.check()
	if len(p) == 0 {
		return 0, nil
	}

	// A prior read may have advanced the store past the write point.
	if err := s.repositionStore(s.blockStart()); err != nil {
		return 0, err
	}

	if s.bufCursor+len(p) >= len(s.buf) {
		s.buf = append(s.buf[:s.bufCursor], p...)
	} else {
		copy(s.buf[s.bufCursor:], p)
	}
	s.bufCursor += len(p)
	s.cursor += int64(len(p))

	if whole := s.draw * (s.bufCursor / s.draw); whole > 0 {
		if err := s.writeStore(s.codec.Encode(s.buf[:whole])); err != nil {
			return 0, err
		}
		s.buf = append(s.buf[:0], s.buf[whole:]...)
		s.bufCursor -= whole
	}
	s.dirty = s.bufCursor != 0
	s.flushed = false

	s.check()
	return len(p), nil
}

// Read reads up to len(p) decoded bytes at the logical cursor. It
// returns io.EOF only when no bytes remain.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if !s.mode.Readable() {
		return 0, ErrNotReadable
	}
	if len(p) == 0 {
		return 0, nil
	}
	s.check()
	n, err := s.read(p)
	if err != nil {
		return n, err
	}
	s.check()
	return n, nil
}

func (s *Stream) read(p []byte) (int, error) {
	size := len(p)

	if s.dirty {
		if s.sk == nil {
			return 0, ErrNotSeekable
		}
		blockStart := s.blockStart()
		if len(s.buf) < s.draw {
			if err := s.fillBlock(); err != nil {
				return 0, err
			}
		}
		if len(s.buf) < s.draw || s.bufCursor+size < s.draw {
			// The block is still short (end of stream) or the request
			// fits inside it: serve from the buffer without committing
			// and leave the store at the block start so a later write
			// still lands correctly.
			if err := s.repositionStore(blockStart); err != nil {
				return 0, err
			}
			out := len(s.buf) - s.bufCursor
			if out > size {
				out = size
			}
			copy(p, s.buf[s.bufCursor:s.bufCursor+out])
			s.bufCursor += out
			s.cursor += int64(out)
			if out == 0 {
				return 0, io.EOF
			}
			return out, nil
		}
		// The block is complete: commit it and continue as a normal read.
		if err := s.repositionStore(blockStart); err != nil {
			return 0, err
		}
		if err := s.writeStore(s.codec.Encode(s.buf[:s.draw])); err != nil {
			return 0, err
		}
		s.dirty = false
	}

	if avail := len(s.buf) - s.bufCursor; avail < size {
		need := size - avail
		blocks := (need + s.draw - 1) / s.draw
		enc := make([]byte, blocks*s.denc)
		n, err := io.ReadFull(s.h, enc)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, fmt.Errorf("read backing store: %w", err)
		}
		s.spos += int64(n)
		dec, err := s.codec.Decode(enc[:n])
		if err != nil {
			return 0, err
		}
		s.buf = append(s.buf, dec...)
	}

	out := len(s.buf) - s.bufCursor
	if out > size {
		out = size
	}
	copy(p, s.buf[s.bufCursor:s.bufCursor+out])
	s.bufCursor += out
	s.cursor += int64(out)

	// Drop consumed whole blocks, keeping only a trailing partial one.
	if drop := s.draw * (s.bufCursor / s.draw); drop > 0 {
		s.buf = append(s.buf[:0], s.buf[drop:]...)
		s.bufCursor -= drop
	}

	if out == 0 {
		return 0, io.EOF
	}
	return out, nil
}

// Seek moves the logical cursor. Any dirty partial block is flushed
// first. Seek requires a readable stream over a seekable store: landing
// inside a block means reading that block, and write-only streams are
// append-only by design. Seek(0, io.SeekCurrent) reports the cursor
// without side effects on any stream.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if whence == io.SeekCurrent && offset == 0 {
		return s.cursor, nil
	}
	if !s.mode.Readable() {
		return 0, ErrNotReadable
	}
	if s.sk == nil {
		return 0, ErrNotSeekable
	}
	s.check()
	if err := s.flush(); err != nil {
		return 0, err
	}

	switch whence {
	case io.SeekStart:
		return s.seekStart(offset)
	case io.SeekCurrent:
		target := s.cursor + offset
		if target < 0 {
			return 0, fmt.Errorf("%w: %d from current %d", ErrNegativeOffset, offset, s.cursor)
		}
		return s.seekStart(target)
	case io.SeekEnd:
		end, err := s.realizeEnd()
		if err != nil {
			return 0, err
		}
		if offset == 0 {
			return end, nil
		}
		target := end + offset
		if target < 0 {
			return 0, fmt.Errorf("%w: %d from end %d", ErrNegativeOffset, offset, end)
		}
		return s.seekStart(target)
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
}

// seekStart positions the stream at the given logical offset. The store
// is positioned at the enclosing block boundary; if the offset lands
// inside a block, that block is pulled into the buffer so the cursor
// ends exactly on the offset (or at end of stream, if shorter).
func (s *Stream) seekStart(offset int64) (int64, error) {
	if offset < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeOffset, offset)
	}
	draw, denc := int64(s.draw), int64(s.denc)
	blocks := offset / draw
	target := s.base + denc*blocks
	if _, err := s.sk.Seek(target, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek backing store: %w", err)
	}
	s.spos = target
	s.cursor = draw * blocks
	s.buf = s.buf[:0]
	s.bufCursor = 0
	s.dirty = false
	s.flushed = false

	if rem := int(offset % draw); rem > 0 {
		discard := make([]byte, rem)
		if _, err := s.read(discard); err != nil && err != io.EOF {
			return 0, err
		}
	}
	return s.cursor, nil
}

// realizeEnd positions the stream at its logical end. The final block
// is always re-read into the buffer: for a padded codec the last
// encoded block may decode to fewer than a full block of bytes, and
// appends must continue that block rather than write past it.
func (s *Stream) realizeEnd() (int64, error) {
	end, err := s.sk.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek backing store: %w", err)
	}
	encLen := end - s.base
	if encLen < 0 {
		encLen = 0
	}
	blocks := encLen / int64(s.denc)
	if encLen%int64(s.denc) == 0 && blocks > 0 {
		blocks--
	}
	target := s.base + int64(s.denc)*blocks
	if _, err := s.sk.Seek(target, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek backing store: %w", err)
	}
	s.spos = target
	s.cursor = int64(s.draw) * blocks
	s.buf = s.buf[:0]
	s.bufCursor = 0
	s.dirty = false
	s.flushed = false

	discard := make([]byte, s.draw)
	if _, err := s.read(discard); err != nil && err != io.EOF {
		return 0, err
	}
	return s.cursor, nil
}

// Flush commits the dirty partial block and syncs the backing store.
// On a readable stream the block is first reconciled with what is on
// the store, so bytes beyond the buffered portion are preserved; on a
// write-only stream the buffer is taken as the true tail. Flush is
// idempotent: repeated calls issue no further store writes until the
// stream is mutated again.
func (s *Stream) Flush() error {
	if s.closed {
		return ErrClosed
	}
	s.check()
	return s.flush()
}

func (s *Stream) flush() error {
	if s.dirty && !s.flushed {
		if s.mode.Readable() && s.sk != nil {
			blockStart := s.blockStart()
			if len(s.buf) < s.draw {
				if err := s.fillBlock(); err != nil {
					return err
				}
			}
			if err := s.repositionStore(blockStart); err != nil {
				return err
			}
			if len(s.buf) == s.draw {
				if err := s.writeStore(s.codec.Encode(s.buf[:s.draw])); err != nil {
					return err
				}
				s.dirty = false
			} else {
				// Final short block: persist it, then return the store
				// to the block start so later writes still land there.
				if err := s.writeStore(s.codec.Encode(s.buf)); err != nil {
					return err
				}
				if err := s.repositionStore(blockStart); err != nil {
					return err
				}
				s.flushed = true
			}
		} else {
			// Write-only stream: the buffer is the true tail.
			if err := s.writeStore(s.codec.Encode(s.buf)); err != nil {
				return err
			}
			s.flushed = true
		}
	}
	if sy, ok := s.h.(syncer); ok && s.mode.Writable() {
		if err := sy.Sync(); err != nil {
			return fmt.Errorf("sync backing store: %w", err)
		}
	}
	return nil
}

// Close flushes the stream and releases the backing store: a handle the
// stream opened itself is closed, a caller-supplied handle is left
// open. Close is idempotent; any other operation after Close fails
// with ErrClosed.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	err := s.flush()
	s.closed = true
	if s.owned != nil {
		if cerr := s.owned.Close(); err == nil {
			err = cerr
		}
		s.owned = nil
	}
	return err
}
