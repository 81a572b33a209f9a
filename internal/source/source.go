// ABOUTME: Upstream PCM producers that feed the playback engine
// ABOUTME: Opens tones, raw streams and encoded files as fixed-format byte readers
package source

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sendspin/audiosink/pkg/audio"
)

// Source produces interleaved PCM bytes in a fixed format
type Source interface {
	io.Reader

	// Format returns the format of every byte Read produces
	Format() audio.Format

	// Metadata returns title, artist, album
	Metadata() (title, artist, album string)

	// Close closes the source
	Close() error
}

// Kinds accepted by Open
const (
	KindTone = "tone"
	KindRaw  = "raw"
	KindWAV  = "wav"
	KindAIFF = "aiff"
	KindMP3  = "mp3"
	KindOgg  = "ogg"
	KindFLAC = "flac"
)

// Options configures Open
type Options struct {
	// Kind selects the producer; empty picks one from the file extension
	Kind string

	// Path is the input file; "-" or empty reads raw PCM from stdin
	Path string

	// Format describes raw input and the tone output
	Format audio.Format

	// Frequency of the test tone in Hz (default: 440)
	Frequency float64

	// Loop restarts file sources at end of stream
	Loop bool
}

// Open creates the source described by opts
func Open(opts Options) (Source, error) {
	kind := strings.ToLower(opts.Kind)
	if kind == "" {
		kind = kindFromPath(opts.Path)
	}

	switch kind {
	case KindTone:
		return asSource(NewTone(opts.Format, opts.Frequency, 0))
	case KindRaw:
		if opts.Path == "" || opts.Path == "-" {
			return asSource(NewRaw(io.NopCloser(os.Stdin), opts.Format, "stdin"))
		}
		f, err := os.Open(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open raw input: %w", err)
		}
		src, err := NewRaw(f, opts.Format, titleFromPath(opts.Path))
		if err != nil {
			f.Close()
			return nil, err
		}
		return src, nil
	}

	var open func() (Source, error)
	switch kind {
	case KindWAV:
		open = func() (Source, error) { return asSource(OpenWAV(opts.Path)) }
	case KindAIFF:
		open = func() (Source, error) { return asSource(OpenAIFF(opts.Path)) }
	case KindMP3:
		open = func() (Source, error) { return asSource(OpenMP3(opts.Path)) }
	case KindOgg:
		open = func() (Source, error) { return asSource(OpenOgg(opts.Path)) }
	case KindFLAC:
		open = func() (Source, error) { return asSource(OpenFLAC(opts.Path)) }
	default:
		return nil, fmt.Errorf("unsupported source: %q (supported: tone, raw, wav, aiff, mp3, ogg, flac)", kind)
	}

	if _, err := os.Stat(opts.Path); err != nil {
		return nil, fmt.Errorf("audio file not found: %s", opts.Path)
	}

	if opts.Loop {
		return newLooping(open)
	}
	return open()
}

// asSource keeps a nil concrete pointer from becoming a non-nil Source
func asSource(src Source, err error) (Source, error) {
	if err != nil {
		return nil, err
	}
	return src, nil
}

func kindFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return KindWAV
	case ".aif", ".aiff":
		return KindAIFF
	case ".mp3":
		return KindMP3
	case ".ogg", ".oga":
		return KindOgg
	case ".flac":
		return KindFLAC
	case "":
		if path == "" {
			return KindTone
		}
		return KindRaw
	default:
		return KindRaw
	}
}

func titleFromPath(path string) string {
	filename := filepath.Base(path)
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// chunkReader serves Read from chunks produced by a decoder
type chunkReader struct {
	next    func() ([]byte, error)
	pending []byte
	err     error
}

func (c *chunkReader) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		c.pending, c.err = c.next()
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// looping reopens a file source each time it reaches the end
type looping struct {
	open    func() (Source, error)
	current Source
}

func newLooping(open func() (Source, error)) (Source, error) {
	src, err := open()
	if err != nil {
		return nil, err
	}
	return &looping{open: open, current: src}, nil
}

func (l *looping) Read(p []byte) (int, error) {
	n, err := l.current.Read(p)
	if !errors.Is(err, io.EOF) {
		return n, err
	}

	format := l.current.Format()
	if cerr := l.current.Close(); cerr != nil {
		log.Printf("Warning: failed to close source before looping: %v", cerr)
	}

	next, oerr := l.open()
	if oerr != nil {
		return n, fmt.Errorf("failed to reopen source: %w", oerr)
	}
	if next.Format() != format {
		next.Close()
		return n, fmt.Errorf("source format changed on reopen: %s -> %s", format, next.Format())
	}
	l.current = next
	return n, nil
}

func (l *looping) Format() audio.Format               { return l.current.Format() }
func (l *looping) Metadata() (string, string, string) { return l.current.Metadata() }
func (l *looping) Close() error                       { return l.current.Close() }
