// ABOUTME: Entry point for the audio sink
// ABOUTME: Pumps an upstream source into the playback engine with a TUI or streaming logs
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Sendspin/audiosink/internal/config"
	"github.com/Sendspin/audiosink/internal/debug"
	"github.com/Sendspin/audiosink/internal/source"
	"github.com/Sendspin/audiosink/internal/ui"
	"github.com/Sendspin/audiosink/internal/version"
	"github.com/Sendspin/audiosink/pkg/audio/output"
	"github.com/Sendspin/audiosink/pkg/sink"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	cfg, err := config.Parse(os.Args[0], os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Printf("Invalid configuration: %v", err)
		os.Exit(2)
	}

	useTUI := !cfg.NoTUI

	// Set up logging
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		multiWriter := io.MultiWriter(os.Stdout, f)
		log.SetOutput(multiWriter)
	}

	log.Printf("Starting %s %s", version.Product, version.Version)

	src, err := source.Open(cfg.SourceOptions())
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}
	defer src.Close()

	var out output.Output
	if cfg.Playback {
		out, err = output.New(cfg.Backend)
		if err != nil {
			log.Fatalf("Failed to create output: %v", err)
		}
	}

	engine, err := sink.New(cfg.Engine(src.Format(), func(err error) {
		log.Printf("Engine error: %v", err)
	}), out)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	recorder := debug.New(cfg.Recorder(src.Format(), engine.ID()))

	// TUI setup
	var tuiProg *tea.Program
	var ctrl *ui.Control

	if useTUI {
		ctrl = ui.NewControl()
		tuiProg, err = ui.Run(ctrl)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go tuiProg.Run()
	}

	// Helper to update TUI
	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		if tuiProg != nil {
			tuiProg.Quit()
		}
		log.Fatalf("Failed to start engine: %v", err)
	}

	title, artist, album := src.Metadata()
	log.Printf("Playing %q from %s (%s)", title, artist, src.Format())
	updateTUI(ui.StatusMsg{Title: title, Artist: artist, Album: album})

	pump := &source.Pump{
		Source:         src,
		PacketDuration: cfg.PacketDuration,
		Push:           engine.Push,
		OnPacket:       recorder.Observe,
	}
	pumpDone := make(chan error, 1)
	go func() {
		n, err := pump.Run(ctx)
		log.Printf("Source finished after %d packets", n)
		pumpDone <- err
	}()

	if ctrl != nil {
		go handleControl(ctx, engine, ctrl)
	}
	if tuiProg != nil {
		go statsUpdateLoop(ctx, engine, recorder, updateTUI)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var quit chan ui.QuitMsg
	if ctrl != nil {
		quit = ctrl.Quit
	}

	select {
	case <-quit:
		log.Printf("Received quit signal from TUI")
	case <-sigChan:
		log.Printf("Shutdown signal received")
	case err := <-pumpDone:
		if err != nil {
			log.Printf("Source error: %v", err)
		} else {
			drain(engine, sigChan, quit)
		}
	}

	cancel()

	if err := engine.Close(); err != nil {
		log.Printf("Error closing engine: %v", err)
	}
	if err := recorder.Close(); err != nil {
		log.Printf("Error writing debug history: %v", err)
	}

	stats := engine.Stats()
	log.Printf("Audio sink stopped: received %d packets (%d bytes), dropped %d, discarded %d, underruns %d",
		stats.Received, stats.ReceivedBytes, stats.Dropped, stats.Discarded, stats.Underruns)

	if tuiProg != nil {
		tuiProg.Quit()
	}
}

// drain waits for queued and buffered audio to play out after the source
// ends. A tail shorter than the prefill is never played, so it also stops
// once the buffer stops shrinking.
func drain(engine *sink.Engine, sigChan <-chan os.Signal, quit <-chan ui.QuitMsg) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	last := -1
	for {
		stats := engine.Stats()
		if stats.State != sink.StateRunning {
			return
		}
		if stats.QueueDepth == 0 {
			if stats.BufferedFrames == 0 || stats.BufferedFrames == last {
				return
			}
			last = stats.BufferedFrames
		}
		select {
		case <-sigChan:
			return
		case <-quit:
			return
		case <-ticker.C:
		}
	}
}

// handleControl applies requests from the TUI
func handleControl(ctx context.Context, engine *sink.Engine, ctrl *ui.Control) {
	for {
		select {
		case <-ctrl.Flush:
			n := engine.Flush()
			log.Printf("Flushed %d queued packets", n)
		case <-ctx.Done():
			return
		}
	}
}

// statsUpdateLoop periodically updates TUI with engine statistics
func statsUpdateLoop(ctx context.Context, engine *sink.Engine, recorder *debug.Recorder, updateTUI func(ui.StatusMsg)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	// Use a slower ticker for expensive runtime stats to avoid GC pauses
	runtimeStatsTicker := time.NewTicker(2 * time.Second)
	defer runtimeStatsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-runtimeStatsTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			updateTUI(ui.StatusMsg{
				Goroutines: runtime.NumGoroutine(),
				MemAlloc:   m.Alloc,
				MemSys:     m.Sys,
			})

		case <-ticker.C:
			stats := engine.Stats()
			packets := recorder.Summary()
			updateTUI(ui.StatusMsg{
				Engine:  &stats,
				Packets: &packets,
			})
		}
	}
}
