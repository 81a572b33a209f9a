// ABOUTME: Raw PCM source reading headerless bytes
// ABOUTME: Used for stdin pipes and .pcm/.raw files
package source

import (
	"fmt"
	"io"

	"github.com/Sendspin/audiosink/pkg/audio"
)

// Raw passes bytes through from a reader whose format is known out of band
type Raw struct {
	r      io.ReadCloser
	format audio.Format
	title  string
}

// NewRaw wraps r; format must describe its contents
func NewRaw(r io.ReadCloser, format audio.Format, title string) (*Raw, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid raw format: %w", err)
	}
	return &Raw{r: r, format: format, title: title}, nil
}

func (s *Raw) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *Raw) Format() audio.Format       { return s.format }
func (s *Raw) Metadata() (string, string, string) {
	return s.title, "Raw PCM", ""
}
func (s *Raw) Close() error { return s.r.Close() }
