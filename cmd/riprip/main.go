// Command riprip is a thin wiring demo for the ripcore engine. It is not a
// full-featured ripper: argument parsing, progress display, disc
// enumeration, and TOC acquisition are all out of the engine's scope
// (§1), so this binary exists only to show how the external collaborators
// plug together, driven by a minimal flag set and an options YAML file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/rabidaudio/ripcore/ripcore"
)

// fileOptions mirrors RipOptions' tunable fields for YAML loading; the
// bitmap-backed track selection and a couple of internal fields aren't
// exposed here since this binary only rips one track per invocation.
type fileOptions struct {
	Offset     int16  `yaml:"offset"`
	CacheKiB   int    `yaml:"cache_kib"`
	Confidence uint8  `yaml:"confidence"`
	RereadAbs  uint8  `yaml:"reread_abs"`
	RereadRel  uint8  `yaml:"reread_rel"`
	Passes     uint8  `yaml:"passes"`
	Backwards  bool   `yaml:"backwards"`
	FlipFlop   bool   `yaml:"flip_flop"`
	Reset      bool   `yaml:"reset"`
	Resume     bool   `yaml:"resume"`
	Strict     bool   `yaml:"strict"`
	Sync       bool   `yaml:"sync"`
	Verbose    bool   `yaml:"verbose"`
}

func (f fileOptions) toRipOptions() ripcore.RipOptions {
	opts := ripcore.NewRipOptions()
	opts.Offset = f.Offset
	opts.CacheKiB = f.CacheKiB
	if f.Confidence != 0 {
		opts.Confidence = f.Confidence
	}
	if f.RereadAbs != 0 {
		opts.Rereads.Abs = f.RereadAbs
	}
	if f.RereadRel != 0 {
		opts.Rereads.Rel = f.RereadRel
	}
	if f.Passes != 0 {
		opts.Passes = f.Passes
	}
	opts.Backwards = f.Backwards
	opts.FlipFlop = f.FlipFlop
	opts.Reset = f.Reset
	opts.Resume = f.Resume
	opts.Strict = f.Strict
	opts.Sync = f.Sync
	opts.Verbose = f.Verbose
	return opts
}

func main() {
	var (
		optionsPath = pflag.StringP("options", "o", "", "path to a YAML options file")
		track       = pflag.IntP("track", "t", 1, "track number to rip (0 = HTOA)")
		cacheDir    = pflag.StringP("cache-dir", "c", ".riprip-cache", "cache root for state/checksum blobs")
		verbose     = pflag.BoolP("verbose", "v", false, "emit problem-sector logging")
	)
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.InfoLevel})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	opts := ripcore.NewRipOptions()
	if *optionsPath != "" {
		raw, err := os.ReadFile(*optionsPath)
		if err != nil {
			logger.Fatal("reading options file", "err", err)
		}
		var fo fileOptions
		if err := yaml.Unmarshal(raw, &fo); err != nil {
			logger.Fatal("parsing options file", "err", err)
		}
		opts = fo.toRipOptions()
	}
	opts.Verbose = opts.Verbose || *verbose

	if err := opts.Validate(); err != nil {
		logger.Fatal("invalid options", "err", err)
	}

	store, err := ripcore.NewFileBlobStore(*cacheDir)
	if err != nil {
		logger.Fatal("creating cache directory", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cancel := ripcore.NewCancelFlag()
	go func() {
		<-ctx.Done()
		cancel.Cancel()
	}()

	// A real caller supplies its own DiscReader talking to an optical
	// drive; disc enumeration and the TOC are out of scope here too, so
	// this demo only wires the shapes together and cannot actually rip
	// without a concrete DiscReader implementation plugged in below.
	var reader ripcore.DiscReader
	if reader == nil {
		fmt.Fprintln(os.Stderr, "riprip: no DiscReader wired in this demo binary; see ripcore.DiscReader")
		os.Exit(1)
	}

	ripper := &ripcore.Ripper{
		Reader:    reader,
		Store:     store,
		Fetcher:   ripcore.NewDefaultHTTPFetcher(),
		Canceller: cancel,
		Options:   opts,
	}
	_ = track

	result, err := ripper.Run(ctx)
	if err != nil {
		logger.Fatal("rip failed", "err", err)
	}

	logger.Info("rip finished", "passes", result.PassesRun, "done", result.Done, "cancelled", result.Cancelled, "confidence", result.Confidence)
}
