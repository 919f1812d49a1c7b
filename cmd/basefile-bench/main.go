package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/basefile/basefile/pkg/codec"
	"github.com/basefile/basefile/pkg/common/log"
	"github.com/basefile/basefile/pkg/stream"
)

const (
	defaultPayload   = 16 * 1024 * 1024 // 16MB of decoded data
	defaultChunkSize = 32 * 1024
)

var (
	// Command line flags
	variantNames = flag.String("variants", "base64,base85,ascii85", "Comma-separated variants to benchmark")
	payloadSize  = flag.Int("size", defaultPayload, "Decoded payload size in bytes")
	chunkSize    = flag.Int("chunk", defaultChunkSize, "Read/write chunk size in bytes")
	seekCount    = flag.Int("seeks", 1000, "Number of random seek+read operations")
	dataDir      = flag.String("data-dir", "", "Directory for benchmark files (default: a temp dir)")
	seed         = flag.Int64("seed", 1, "Seed for the payload generator")
	verbose      = flag.Bool("verbose", false, "Log progress")
)

var logger log.Logger

func main() {
	flag.Parse()

	level := log.LevelInfo
	if *verbose {
		level = log.LevelDebug
	}
	logger = log.NewStandardLogger(log.WithLevel(level))

	dir := *dataDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "basefile-bench")
		if err != nil {
			logger.Error("create benchmark directory: %v", err)
			os.Exit(1)
		}
		defer os.RemoveAll(dir)
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("create benchmark directory: %v", err)
		os.Exit(1)
	}

	payload := make([]byte, *payloadSize)
	rand.New(rand.NewSource(*seed)).Read(payload)
	wantDigest := xxhash.Sum64(payload)

	fmt.Printf("Benchmark Report (%s)\n", time.Now().Format(time.RFC3339))
	fmt.Printf("Payload: %d bytes, Chunk: %d bytes, Seeks: %d\n\n",
		*payloadSize, *chunkSize, *seekCount)

	for _, name := range strings.Split(*variantNames, ",") {
		c, err := pickCodec(strings.TrimSpace(name))
		if err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
		if err := runVariant(dir, c, payload, wantDigest); err != nil {
			logger.Error("%s: %v", c.Name(), err)
			os.Exit(1)
		}
	}
}

func pickCodec(name string) (codec.Codec, error) {
	switch name {
	case "base64":
		return codec.NewBase64(), nil
	case "base85":
		return codec.NewBase85(), nil
	case "ascii85":
		return codec.NewAscii85(), nil
	default:
		return nil, fmt.Errorf("unknown variant %q", name)
	}
}

func runVariant(dir string, c codec.Codec, payload []byte, wantDigest uint64) error {
	path := filepath.Join(dir, "bench."+c.Name())
	logger.Debug("writing %s", path)

	// Sequential write.
	start := time.Now()
	s, err := stream.Open(path, "w", c)
	if err != nil {
		return err
	}
	for off := 0; off < len(payload); off += *chunkSize {
		end := off + *chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		if _, err := s.Write(payload[off:end]); err != nil {
			s.Close()
			return fmt.Errorf("write at %d: %w", off, err)
		}
	}
	if err := s.Close(); err != nil {
		return err
	}
	writeDur := time.Since(start)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	// Sequential read, digesting on the way through so the whole
	// payload never has to be held twice.
	start = time.Now()
	s, err = stream.Open(path, "r", c)
	if err != nil {
		return err
	}
	digest := xxhash.New()
	readBytes, err := io.Copy(digest, s)
	if err != nil {
		s.Close()
		return fmt.Errorf("read back: %w", err)
	}
	if err := s.Close(); err != nil {
		return err
	}
	readDur := time.Since(start)

	if readBytes != int64(len(payload)) {
		return fmt.Errorf("read %d bytes, wrote %d", readBytes, len(payload))
	}
	if digest.Sum64() != wantDigest {
		return fmt.Errorf("round-trip digest mismatch: %x != %x", digest.Sum64(), wantDigest)
	}

	// Random seek+read.
	start = time.Now()
	s, err = stream.Open(path, "r", c)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(0xbeef))
	buf := make([]byte, 64)
	seeks := *seekCount
	if len(payload) <= len(buf) {
		seeks = 0 // payload too small to be worth seeking around in
	}
	for i := 0; i < seeks; i++ {
		off := rng.Int63n(int64(len(payload) - len(buf)))
		if _, err := s.Seek(off, io.SeekStart); err != nil {
			s.Close()
			return fmt.Errorf("seek to %d: %w", off, err)
		}
		n, err := io.ReadFull(s, buf)
		if err != nil && err != io.ErrUnexpectedEOF {
			s.Close()
			return fmt.Errorf("read at %d: %w", off, err)
		}
		if got, want := xxhash.Sum64(buf[:n]), xxhash.Sum64(payload[off:off+int64(n)]); got != want {
			s.Close()
			return fmt.Errorf("random read at %d: digest mismatch", off)
		}
	}
	if err := s.Close(); err != nil {
		return err
	}
	seekDur := time.Since(start)

	mb := float64(len(payload)) / (1024 * 1024)
	fmt.Printf("%-8s  write %8.2f MB/s  read %8.2f MB/s  %8.1f seeks/s  overhead %.2fx\n",
		c.Name(),
		mb/writeDur.Seconds(),
		mb/readDur.Seconds(),
		float64(seeks)/seekDur.Seconds(),
		float64(info.Size())/float64(len(payload)))
	return nil
}
