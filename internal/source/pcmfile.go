// ABOUTME: WAV and AIFF file sources built on go-audio decoders
// ABOUTME: Emits S16LE for 16-bit files and S32LE for 24/32-bit files
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Sendspin/audiosink/pkg/audio"
	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	// ErrUnsupportedFile is returned for files that are not valid PCM containers
	ErrUnsupportedFile = errors.New("unsupported audio file")
	// ErrUnsupportedBitDepth is returned for PCM depths other than 16, 24 and 32
	ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32-bit PCM is supported")
)

// pcmBufferReader is the decoding half of wav.Decoder and aiff.Decoder
type pcmBufferReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// PCMFile is a decoded WAV or AIFF file
type PCMFile struct {
	*chunkReader
	file   *os.File
	format audio.Format
	title  string
}

// OpenWAV opens a PCM WAV file
func OpenWAV(path string) (*PCMFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not a PCM WAV file", ErrUnsupportedFile, path)
	}
	dec.ReadInfo()

	return newPCMFile(f, dec, int(dec.SampleRate), int(dec.NumChans), int(dec.BitDepth), path, "WAV")
}

// OpenAIFF opens a PCM AIFF file
func OpenAIFF(path string) (*PCMFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open AIFF file: %w", err)
	}

	dec := aiff.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not an AIFF file", ErrUnsupportedFile, path)
	}
	dec.ReadInfo()

	return newPCMFile(f, dec, dec.SampleRate, int(dec.NumChans), int(dec.BitDepth), path, "AIFF")
}

func newPCMFile(f *os.File, dec pcmBufferReader, sampleRate, channels, bitDepth int, path, kind string) (*PCMFile, error) {
	var sf audio.SampleFormat
	switch bitDepth {
	case 16:
		sf = audio.S16LE
	case 24, 32:
		sf = audio.S32LE
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %s has %d bits", ErrUnsupportedBitDepth, path, bitDepth)
	}

	format := audio.Format{SampleFormat: sf, Channels: channels, SampleRate: sampleRate}
	if err := format.Validate(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	}

	s := &PCMFile{
		file:   f,
		format: format,
		title:  titleFromPath(path),
	}

	// roughly 20ms per decode at 48kHz
	intBuf := &goaudio.IntBuffer{
		Data:   make([]int, 1024*channels),
		Format: &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
	}
	var out []byte
	width := sf.Width()

	s.chunkReader = &chunkReader{next: func() ([]byte, error) {
		n, err := dec.PCMBuffer(intBuf)
		if n == 0 {
			if err != nil {
				return nil, err
			}
			return nil, io.EOF
		}

		if cap(out) < n*width {
			out = make([]byte, n*width)
		}
		out = out[:n*width]
		for i, v := range intBuf.Data[:n] {
			switch bitDepth {
			case 16:
				binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
			case 24:
				binary.LittleEndian.PutUint32(out[i*4:], uint32(int32(v)<<8))
			default:
				binary.LittleEndian.PutUint32(out[i*4:], uint32(int32(v)))
			}
		}
		return out, nil
	}}

	log.Printf("Loaded %s: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		kind, s.title, sampleRate, channels, bitDepth)

	return s, nil
}

func (s *PCMFile) Format() audio.Format { return s.format }
func (s *PCMFile) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *PCMFile) Close() error { return s.file.Close() }
