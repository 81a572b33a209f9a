// ABOUTME: Compressed file sources: MP3, Ogg Vorbis and FLAC
// ABOUTME: Decoding happens here so the engine only ever sees PCM
package source

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/Sendspin/audiosink/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// MP3 reads from an MP3 file. go-mp3 always produces 16-bit stereo.
type MP3 struct {
	file    *os.File
	decoder *mp3.Decoder
	format  audio.Format
	title   string
}

// OpenMP3 opens an MP3 file
func OpenMP3(path string) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	title := titleFromPath(path)
	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", title, decoder.SampleRate())

	return &MP3{
		file:    f,
		decoder: decoder,
		format:  audio.Format{SampleFormat: audio.S16LE, Channels: 2, SampleRate: decoder.SampleRate()},
		title:   title,
	}, nil
}

func (s *MP3) Read(p []byte) (int, error) { return s.decoder.Read(p) }
func (s *MP3) Format() audio.Format       { return s.format }
func (s *MP3) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *MP3) Close() error { return s.file.Close() }

// Ogg reads from an Ogg Vorbis file as F32LE
type Ogg struct {
	*chunkReader
	file   *os.File
	format audio.Format
	title  string
}

// OpenOgg opens an Ogg Vorbis file
func OpenOgg(path string) (*Ogg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Ogg file: %w", err)
	}

	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode Ogg Vorbis: %w", err)
	}

	channels := reader.Channels()
	s := &Ogg{
		file:   f,
		format: audio.Format{SampleFormat: audio.F32LE, Channels: channels, SampleRate: reader.SampleRate()},
		title:  titleFromPath(path),
	}

	samples := make([]float32, 1024*channels)
	var out []byte
	s.chunkReader = &chunkReader{next: func() ([]byte, error) {
		n, err := reader.Read(samples)
		n -= n % channels
		if n == 0 {
			return nil, err
		}

		if cap(out) < n*4 {
			out = make([]byte, n*4)
		}
		out = out[:n*4]
		for i, v := range samples[:n] {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
		return out, err
	}}

	log.Printf("Loaded Ogg Vorbis: %s (sample rate: %d Hz, channels: %d)", s.title, reader.SampleRate(), channels)

	return s, nil
}

func (s *Ogg) Format() audio.Format { return s.format }
func (s *Ogg) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *Ogg) Close() error { return s.file.Close() }

// FLAC reads from a FLAC file. Depths up to 16 bits come out as S16LE,
// deeper streams as S32LE.
type FLAC struct {
	*chunkReader
	file   *os.File
	stream *flac.Stream
	format audio.Format
	title  string
}

// OpenFLAC opens a FLAC file
func OpenFLAC(path string) (*FLAC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	sampleRate := int(info.SampleRate)
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)

	sf := audio.S16LE
	if bitDepth > 16 {
		sf = audio.S32LE
	}
	width := sf.Width()
	shift := width*8 - bitDepth

	s := &FLAC{
		file:   f,
		stream: stream,
		format: audio.Format{SampleFormat: sf, Channels: channels, SampleRate: sampleRate},
		title:  titleFromPath(path),
	}
	if err := s.format.Validate(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	}

	var out []byte
	s.chunkReader = &chunkReader{next: func() ([]byte, error) {
		frame, err := stream.ParseNext()
		if err != nil {
			return nil, err
		}

		n := int(frame.BlockSize) * channels
		if cap(out) < n*width {
			out = make([]byte, n*width)
		}
		out = out[:n*width]

		off := 0
		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				v := frame.Subframes[ch].Samples[i] << shift
				if width == 2 {
					binary.LittleEndian.PutUint16(out[off:], uint16(int16(v)))
				} else {
					binary.LittleEndian.PutUint32(out[off:], uint32(v))
				}
				off += width
			}
		}
		return out, nil
	}}

	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		s.title, sampleRate, channels, bitDepth)

	return s, nil
}

func (s *FLAC) Format() audio.Format { return s.format }
func (s *FLAC) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *FLAC) Close() error { return s.file.Close() }
