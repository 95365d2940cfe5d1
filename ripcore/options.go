package ripcore

import "fmt"

// trackBitmap is a 128-bit set of track numbers 0..=99 (0 is the HTOA),
// stored as two uint64 words rather than a slice or map -- it is copied by
// value alongside RipOptions and never escapes to the heap on its own.
type trackBitmap [2]uint64

func (b *trackBitmap) set(track int) {
	if track < 0 || track > 99 {
		return
	}
	b[track/64] |= 1 << uint(track%64)
}

func (b trackBitmap) has(track int) bool {
	if track < 0 || track > 99 {
		return false
	}
	return b[track/64]&(1<<uint(track%64)) != 0
}

func (b trackBitmap) isEmpty() bool { return b[0] == 0 && b[1] == 0 }

// RipOptions is the engine's configuration surface, per §3.4. It is a plain
// struct built programmatically -- there is no config-loading layer in the
// core; the cmd/riprip demo binary is what reads a YAML file and populates
// one of these (see fileOptions in cmd/riprip/main.go).
type RipOptions struct {
	// Offset is the signed per-drive read-offset correction, in samples.
	// Range -5880..=5880 (§9 design note: ±5880 is authoritative).
	Offset int16

	// CacheKiB is the drive's internal read-ahead cache size, used to size
	// cache-busting reads. Zero means the cache size is unknown and cache
	// busting is skipped.
	CacheKiB int

	// Confidence is the minimum AR/CTDB confidence that promotes a track to
	// Confirmed. Clamped to 3..=10.
	Confidence uint8

	// Rereads holds the (abs, rel) likelihood thresholds.
	Rereads Rereads

	// Passes is the maximum number of rip passes per invocation. Clamped to
	// 1..=16.
	Passes uint8

	// Backwards iterates sectors last-to-first.
	Backwards bool

	// FlipFlop alternates iteration direction every pass.
	FlipFlop bool

	// Reset decrements all Maybe counts to 1 on load, before ripping.
	Reset bool

	// Resume attempts to load serialized state before ripping; if false, a
	// fresh state is always constructed.
	Resume bool

	// Strict treats any C2 error within a sector as marking all 588 of its
	// samples bad.
	Strict bool

	// Sync requires the subchannel-Q timecode to match the requested LSN.
	Sync bool

	tracks trackBitmap

	// Verbose emits a problem-sector log after each pass.
	Verbose bool
}

// NewRipOptions returns the documented defaults: offset 0, confidence 3,
// rereads (2,2), passes 1, resume true, everything else false/zero.
func NewRipOptions() RipOptions {
	return RipOptions{
		Confidence: 3,
		Rereads:    DefaultRereads,
		Passes:     1,
		Resume:     true,
	}
}

// WithTracks replaces the selected-track set. Track numbers outside 0..=99
// are silently ignored, mirroring the bitmap's fixed range.
func (o RipOptions) WithTracks(tracks ...int) RipOptions {
	var b trackBitmap
	for _, t := range tracks {
		b.set(t)
	}
	o.tracks = b
	return o
}

// WantsTrack reports whether track is selected, or true for every track if
// no selection was made (the empty set means "all tracks").
func (o RipOptions) WantsTrack(track int) bool {
	if o.tracks.isEmpty() {
		return true
	}
	return o.tracks.has(track)
}

// Validate clamps Confidence and Passes to the documented bounds, raises a
// zero Rereads.Abs or Rereads.Rel to 1, and reports an error only for an
// offset outside -5880..=5880, which is not clamped.
func (o *RipOptions) Validate() error {
	if o.Offset < -5880 || o.Offset > 5880 {
		return &RipError{Kind: ErrOverflow, cause: fmt.Errorf("offset %d out of range [-5880, 5880]", o.Offset)}
	}
	if o.Confidence < 3 {
		o.Confidence = 3
	} else if o.Confidence > 10 {
		o.Confidence = 10
	}
	if o.Passes < 1 {
		o.Passes = 1
	} else if o.Passes > 16 {
		o.Passes = 16
	}
	if o.Rereads.Abs == 0 {
		o.Rereads.Abs = 1
	}
	if o.Rereads.Rel == 0 {
		o.Rereads.Rel = 1
	}
	return nil
}

// directionFor reports whether pass (0-indexed) should iterate backwards,
// per §4.2: Backwards XOR (FlipFlop AND pass is odd).
func (o RipOptions) directionFor(pass int) bool {
	return o.Backwards != (o.FlipFlop && pass%2 == 1)
}
