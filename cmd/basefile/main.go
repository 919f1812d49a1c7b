package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/basefile/basefile/pkg/codec"
	"github.com/basefile/basefile/pkg/common/log"
	"github.com/basefile/basefile/pkg/stream"
)

// Command completer for readline
var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".open"),
	readline.PcItem(".close"),
	readline.PcItem(".info"),
	readline.PcItem(".exit"),
	readline.PcItem("READ"),
	readline.PcItem("WRITE"),
	readline.PcItem("SEEK",
		readline.PcItem("SET"),
		readline.PcItem("CUR"),
		readline.PcItem("END"),
	),
	readline.PcItem("TELL"),
	readline.PcItem("FLUSH"),
)

const helpText = `
basefile - inspector shell for block-encoded streams

Usage:
  basefile [-verbose] [file]

Commands:
  .help                     - Show this help message
  .open PATH MODE [VARIANT] - Open an encoded file (variant: base64,
                              base85, ascii85; default base64)
  .close                    - Close the current stream
  .info                     - Show stream state
  .exit                     - Exit the program

  READ N                    - Read N decoded bytes at the cursor
  READ                      - Read everything from the cursor on
  WRITE TEXT                - Write TEXT at the cursor
  SEEK OFF [SET|CUR|END]    - Move the cursor (default SET)
  TELL                      - Show the cursor position
  FLUSH                     - Commit the pending partial block
`

var verbose = flag.Bool("verbose", false, "Log every stream operation")

func pickCodec(name string) (codec.Codec, error) {
	switch strings.ToLower(name) {
	case "", "base64":
		return codec.NewBase64(), nil
	case "base85":
		return codec.NewBase85(), nil
	case "ascii85":
		return codec.NewAscii85(), nil
	default:
		return nil, fmt.Errorf("unknown variant %q", name)
	}
}

func main() {
	flag.Parse()

	level := log.LevelWarn
	if *verbose {
		level = log.LevelDebug
	}
	logger := log.NewStandardLogger(log.WithLevel(level))

	var s *stream.Stream
	var path string

	// An optional file argument opens it read-only up front.
	if flag.NArg() > 0 {
		path = flag.Arg(0)
		var err error
		s, err = stream.Open(path, "r", codec.NewBase64())
		if err != nil {
			logger.Error("open %s: %v", path, err)
			os.Exit(1)
		}
		fmt.Printf("Opened %s (base64, read-only)\n", path)
	}

	historyFile := filepath.Join(os.TempDir(), ".basefile_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "basefile> ",
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		logger.Error("initialize readline: %v", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("basefile inspector")
	fmt.Println("Enter .help for usage hints.")

	for {
		if s != nil {
			rl.SetPrompt(fmt.Sprintf("basefile:%s@%d> ", path, s.Tell()))
		} else {
			rl.SetPrompt("basefile> ")
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := strings.ToUpper(fields[0])

		switch cmd {
		case ".HELP":
			fmt.Print(helpText)

		case ".EXIT":
			if s != nil {
				if err := s.Close(); err != nil {
					logger.Error("close: %v", err)
				}
			}
			return

		case ".OPEN":
			if len(fields) < 3 {
				fmt.Println("Usage: .open PATH MODE [VARIANT]")
				continue
			}
			variant := ""
			if len(fields) > 3 {
				variant = fields[3]
			}
			c, err := pickCodec(variant)
			if err != nil {
				logger.Error("%v", err)
				continue
			}
			if s != nil {
				if err := s.Close(); err != nil {
					logger.Error("close previous stream: %v", err)
				}
				s = nil
			}
			ns, err := stream.Open(fields[1], fields[2], c)
			if err != nil {
				logger.Error("open %s: %v", fields[1], err)
				continue
			}
			s, path = ns, fields[1]
			fmt.Printf("Opened %s (%s, mode %s)\n", path, c.Name(), s.Mode())

		case ".CLOSE":
			if s == nil {
				fmt.Println("No stream open")
				continue
			}
			if err := s.Close(); err != nil {
				logger.Error("close: %v", err)
			} else {
				fmt.Printf("Closed %s\n", path)
			}
			s = nil

		case ".INFO":
			if s == nil {
				fmt.Println("No stream open")
				continue
			}
			fmt.Printf("file:     %s\n", path)
			fmt.Printf("variant:  %s (%d:%d)\n", s.Codec().Name(),
				s.Codec().DecodedBlockSize(), s.Codec().EncodedBlockSize())
			fmt.Printf("mode:     %s\n", s.Mode())
			fmt.Printf("cursor:   %d\n", s.Tell())
			fmt.Printf("seekable: %v\n", s.Seekable())

		case "READ":
			if s == nil {
				fmt.Println("No stream open")
				continue
			}
			var data []byte
			var err error
			if len(fields) > 1 {
				n, perr := strconv.Atoi(fields[1])
				if perr != nil || n < 0 {
					fmt.Println("Usage: READ [N]")
					continue
				}
				data = make([]byte, n)
				var m int
				m, err = io.ReadFull(s, data)
				data = data[:m]
				if err == io.ErrUnexpectedEOF {
					err = nil
				}
			} else {
				data, err = io.ReadAll(s)
			}
			if err != nil && err != io.EOF {
				logger.Error("read: %v", err)
				continue
			}
			logger.Debug("read %d bytes, cursor now %d", len(data), s.Tell())
			fmt.Println(hex.Dump(data))

		case "WRITE":
			if s == nil {
				fmt.Println("No stream open")
				continue
			}
			text := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
			n, err := s.Write([]byte(text))
			if err != nil {
				logger.Error("write: %v", err)
				continue
			}
			logger.Debug("wrote %d bytes, cursor now %d", n, s.Tell())
			fmt.Printf("Wrote %d bytes\n", n)

		case "SEEK":
			if s == nil {
				fmt.Println("No stream open")
				continue
			}
			if len(fields) < 2 {
				fmt.Println("Usage: SEEK OFF [SET|CUR|END]")
				continue
			}
			off, perr := strconv.ParseInt(fields[1], 10, 64)
			if perr != nil {
				fmt.Println("Usage: SEEK OFF [SET|CUR|END]")
				continue
			}
			whence := io.SeekStart
			if len(fields) > 2 {
				switch strings.ToUpper(fields[2]) {
				case "SET":
					whence = io.SeekStart
				case "CUR":
					whence = io.SeekCurrent
				case "END":
					whence = io.SeekEnd
				default:
					fmt.Println("Usage: SEEK OFF [SET|CUR|END]")
					continue
				}
			}
			pos, err := s.Seek(off, whence)
			if err != nil {
				logger.Error("seek: %v", err)
				continue
			}
			fmt.Printf("Cursor at %d\n", pos)

		case "TELL":
			if s == nil {
				fmt.Println("No stream open")
				continue
			}
			fmt.Printf("Cursor at %d\n", s.Tell())

		case "FLUSH":
			if s == nil {
				fmt.Println("No stream open")
				continue
			}
			if err := s.Flush(); err != nil {
				logger.Error("flush: %v", err)
				continue
			}
			fmt.Println("Flushed")

		default:
			fmt.Printf("Unknown command %q, try .help\n", fields[0])
		}
	}

	if s != nil {
		if err := s.Close(); err != nil {
			logger.Error("close: %v", err)
		}
	}
}
