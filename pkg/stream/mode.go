package stream

import (
	"fmt"
	"os"
)

// Mode is a parsed file mode. Streams only operate in binary mode; the
// 'b' flag is accepted for familiarity and 't' is rejected.
type Mode struct {
	Read      bool // 'r': read existing
	Write     bool // 'w': create or truncate
	Append    bool // 'a': create if needed, position at end of stream
	Exclusive bool // 'x': create, failing if the file exists
	Update    bool // '+': add the missing read or write capability
}

// ParseMode parses a Python-style mode string: exactly one of r/w/a/x,
// optionally followed by '+' and/or 'b' in any order.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return Mode{}, fmt.Errorf("%w: empty", ErrInvalidMode)
	}
	var m Mode
	primaries := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'r':
			m.Read = true
			primaries++
		case 'w':
			m.Write = true
			primaries++
		case 'a':
			m.Append = true
			primaries++
		case 'x':
			m.Exclusive = true
			primaries++
		case '+':
			m.Update = true
		case 'b':
			// implied
		default:
			return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, s)
		}
	}
	if primaries == 0 {
		return Mode{}, fmt.Errorf("%w: %q has no primary mode", ErrInvalidMode, s)
	}
	if primaries > 1 {
		return Mode{}, fmt.Errorf("%w: %q", ErrModeConflict, s)
	}
	return m, nil
}

// Readable reports whether the mode permits reading.
func (m Mode) Readable() bool { return m.Read || m.Update }

// Writable reports whether the mode permits writing.
func (m Mode) Writable() bool { return m.Write || m.Append || m.Exclusive || m.Update }

// openFlag returns the os.OpenFile flags for the mode. Append mode opens
// the file read-write underneath even when the stream itself is
// write-only: realizing the trailing partial block requires reading it.
func (m Mode) openFlag() int {
	flag := 0
	switch {
	case m.Read:
		flag = os.O_RDONLY
		if m.Update {
			flag = os.O_RDWR
		}
	case m.Write:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if m.Update {
			flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
		}
	case m.Append:
		flag = os.O_RDWR | os.O_CREATE
	case m.Exclusive:
		flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
		if m.Update {
			flag = os.O_RDWR | os.O_CREATE | os.O_EXCL
		}
	}
	return flag
}

func (m Mode) String() string {
	var b []byte
	switch {
	case m.Read:
		b = append(b, 'r')
	case m.Write:
		b = append(b, 'w')
	case m.Append:
		b = append(b, 'a')
	case m.Exclusive:
		b = append(b, 'x')
	}
	if m.Update {
		b = append(b, '+')
	}
	return string(b)
}
