// ABOUTME: Offline inspection of an upstream source
// ABOUTME: Analyzes every packet without a device and writes the debug history
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/Sendspin/audiosink/internal/debug"
	"github.com/Sendspin/audiosink/internal/source"
	"github.com/Sendspin/audiosink/pkg/audio"
)

var (
	input   = flag.String("input", "", "Input file; \"-\" reads raw PCM from stdin")
	kind    = flag.String("source", "", "Source kind (default: from -input extension)")
	format  = flag.String("format", "S16LE", "Sample format of raw input")
	rate    = flag.Int("rate", 48000, "Sample rate of raw input")
	chans   = flag.Int("channels", 1, "Channels of raw input")
	packet  = flag.Duration("packet", source.DefaultPacketDuration, "Packet duration")
	outFile = flag.String("out", debug.DefaultFile, "Debug history file")
	entries = flag.Int("entries", debug.DefaultMaxEntries, "Packets kept in the history")
)

func main() {
	flag.Parse()

	if *input == "" {
		log.Fatalf("-input is required")
	}

	sf, err := audio.ParseSampleFormat(*format)
	if err != nil {
		log.Fatalf("Invalid format: %v", err)
	}

	src, err := source.Open(source.Options{
		Kind:   *kind,
		Path:   *input,
		Format: audio.Format{SampleFormat: sf, Channels: *chans, SampleRate: *rate},
	})
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}
	defer src.Close()

	recorder := debug.New(debug.Config{
		Enabled:    true,
		File:       *outFile,
		MaxEntries: *entries,
		Format:     src.Format(),
	})

	pump := &source.Pump{
		Source:         src,
		PacketDuration: *packet,
		Unpaced:        true,
		Push:           func([]byte) bool { return true },
		OnPacket:       recorder.Observe,
	}

	n, err := pump.Run(context.Background())
	if err != nil {
		log.Printf("Source error: %v", err)
	}
	if err := recorder.Close(); err != nil {
		log.Fatalf("Failed to write history: %v", err)
	}

	s := recorder.Summary()
	fmt.Printf("%s: %d packets, %d bytes, last packet %.1f dBFS\n", src.Format(), n, s.Bytes, s.Last.DBFS)
}
