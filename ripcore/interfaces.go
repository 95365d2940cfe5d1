package ripcore

import "context"

// DiscReader is the sole collaborator that talks to physical media. It reads
// exactly one sector of audio data, optionally alongside the C2 error
// pointers and/or the subchannel Q timecode, depending on which flags are
// set.
//
// buf must be sized for what was requested: 2352 bytes for audio alone,
// +294 for C2, +16 for subchannel Q, or both. Implementations should return
// *RipError with a matching Kind (ErrReadFailed, ErrReadUnsupported,
// ErrSubchannelDesync) on failure so the acquisition loop can apply the
// right recovery policy.
type DiscReader interface {
	ReadSector(ctx context.Context, lsn int32, wantC2, wantSubchannel bool, buf []byte) error
}

// BlobStore persists and retrieves opaque byte blobs (serialized rip state,
// cached checksum-database responses, problem-sector logs) relative to some
// cache root the implementation owns.
type BlobStore interface {
	// Read returns (data, true, nil) if path exists, or (nil, false, nil) if
	// it does not. A non-nil error indicates an I/O failure distinct from
	// absence.
	Read(ctx context.Context, path string) ([]byte, bool, error)
	// Write atomically replaces the contents at path.
	Write(ctx context.Context, path string, data []byte) error
}

// HTTPFetcher performs the single external network operation the engine
// needs: fetching an AccurateRip or CTDB checksum blob.
type HTTPFetcher interface {
	Get(ctx context.Context, url, userAgent string) ([]byte, error)
}

// Canceller exposes a monotonic, one-shot cancellation flag. Once Cancelled
// reports true it must never report false again.
type Canceller interface {
	Cancelled() bool
}

// CancelFlag is a minimal, goroutine-safe Canceller a caller can flip from a
// signal handler or UI thread.
type CancelFlag struct {
	flag chan struct{}
}

// NewCancelFlag returns a ready-to-use CancelFlag.
func NewCancelFlag() *CancelFlag {
	return &CancelFlag{flag: make(chan struct{})}
}

// Cancel sets the flag. Safe to call more than once; only the first call has
// an effect.
func (c *CancelFlag) Cancel() {
	select {
	case <-c.flag:
	default:
		close(c.flag)
	}
}

// Cancelled implements Canceller.
func (c *CancelFlag) Cancelled() bool {
	select {
	case <-c.flag:
		return true
	default:
		return false
	}
}

var _ Canceller = (*CancelFlag)(nil)
