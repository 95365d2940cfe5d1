package ripcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDiscReader always returns a deterministic, clean sector: every sample
// is derived from the LSN so repeated passes agree with each other.
type fakeDiscReader struct {
	failLSN int32 // if set, ReadSector errors for this LSN
}

func (f *fakeDiscReader) ReadSector(_ context.Context, lsn int32, wantC2, wantSubchannel bool, buf []byte) error {
	if f.failLSN != 0 && lsn == f.failLSN {
		return &RipError{Kind: ErrReadFailed, LSN: lsn}
	}

	for i := 0; i < SamplesPerSector; i++ {
		buf[i*BytesPerSample] = byte(lsn)
		buf[i*BytesPerSample+1] = byte(lsn >> 8)
	}
	if wantC2 {
		c2 := buf[BytesPerSector:]
		for i := range c2 {
			c2[i] = 0
		}
	}
	if wantSubchannel {
		sub := buf[BytesPerSector:]
		m, s, fr := lsnToMSF(lsn + LeadinSectors)
		sub[7] = m
		sub[8] = s
		sub[9] = fr
	}
	return nil
}

func lsnToMSF(lsn int32) (m, s, fr byte) {
	toBCD := func(v int32) byte { return byte((v/10)<<4 | (v % 10)) }
	m = toBCD(lsn / (60 * 75))
	s = toBCD((lsn / 75) % 60)
	fr = toBCD(lsn % 75)
	return
}

// failingFetcher simulates AccurateRip/CTDB being unreachable, exercising the
// ErrVerificationUnavailable tolerance path in Run.
type failingFetcher struct{}

func (failingFetcher) Get(_ context.Context, _, _ string) ([]byte, error) {
	return nil, assertErr
}

var assertErr = &RipError{Kind: ErrVerificationUnavailable}

func newTestRipper(t *testing.T, reader DiscReader) (*Ripper, TOC, Track) {
	t.Helper()
	track := Track{Number: 1, StartSector: 0, LengthSectors: 3, IsFirst: true, IsLast: true}
	toc := NewTOC([]Track{track}, 10, "cddbtest", "artest", 0xABCDEF01)

	store, err := NewFileBlobStore(t.TempDir())
	require.NoError(t, err)

	opts := NewRipOptions()
	opts.Passes = 1

	return &Ripper{
		Reader:  reader,
		Store:   store,
		Fetcher: failingFetcher{},
		TOC:     toc,
		Track:   track,
		Options: opts,
	}, toc, track
}

func TestRunSinglePassAccumulatesMaybeSamples(t *testing.T) {
	ripper, toc, track := newTestRipper(t, &fakeDiscReader{})

	result, err := ripper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.PassesRun)
	assert.False(t, result.Done, "verification is unreachable, so nothing should be auto-confirmed")
	assert.False(t, result.Cancelled)

	blob, ok, err := ripper.Store.Read(context.Background(), toc.StatePath(track))
	require.NoError(t, err)
	require.True(t, ok)

	st, err := deserializeState(blob, toc, track)
	require.NoError(t, err)
	for i, sm := range st.trackInterior() {
		require.True(t, sm.IsMaybe(), "sample %d", i)
		assert.Equal(t, uint8(1), sm.maybe.topCount(), "sample %d should have one read", i)
	}
}

func TestRunPersistsAndResumesState(t *testing.T) {
	reader := &fakeDiscReader{}
	ripper, toc, track := newTestRipper(t, reader)

	_, err := ripper.Run(context.Background())
	require.NoError(t, err)

	// A second Ripper sharing the same store/track should resume rather
	// than start over, accumulating a second read of the same values.
	second := &Ripper{
		Reader:  reader,
		Store:   ripper.Store,
		Fetcher: failingFetcher{},
		TOC:     toc,
		Track:   track,
		Options: ripper.Options,
	}
	_, err = second.Run(context.Background())
	require.NoError(t, err)

	blob, ok, err := ripper.Store.Read(context.Background(), toc.StatePath(track))
	require.NoError(t, err)
	require.True(t, ok)

	st, err := deserializeState(blob, toc, track)
	require.NoError(t, err)

	interior := st.trackInterior()
	for i, sm := range interior {
		require.True(t, sm.IsMaybe(), "sample %d", i)
		assert.Equal(t, uint8(2), sm.maybe.topCount(), "sample %d should have two agreeing reads", i)
	}
}

func TestRunMarksOutOfWindowSectorsAsLead(t *testing.T) {
	ripper, toc, track := newTestRipper(t, &fakeDiscReader{})
	ripper.Options.Passes = 1

	_, err := ripper.Run(context.Background())
	require.NoError(t, err)

	blob, ok, err := ripper.Store.Read(context.Background(), toc.StatePath(track))
	require.NoError(t, err)
	require.True(t, ok)

	st, err := deserializeState(blob, toc, track)
	require.NoError(t, err)
	assert.True(t, st.data[0].IsLead(), "sample before LSN 0 should be Lead")
}

func TestRunRespectsCancellationBeforeFirstPass(t *testing.T) {
	ripper, _, _ := newTestRipper(t, &fakeDiscReader{})
	cancel := NewCancelFlag()
	cancel.Cancel()
	ripper.Canceller = cancel

	result, err := ripper.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 0, result.PassesRun)
}

func TestRunVerboseCollectsProblemLog(t *testing.T) {
	ripper, _, _ := newTestRipper(t, &fakeDiscReader{})
	ripper.Options.Verbose = true

	result, err := ripper.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.ProblemLog, int(3)) // all 3 sectors are still unconfirmed
}

func TestRunTreatsGenericReadFailureAsBadNotFatal(t *testing.T) {
	ripper, toc, track := newTestRipper(t, &fakeDiscReader{failLSN: 1})

	result, err := ripper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.PassesRun)

	blob, ok, err := ripper.Store.Read(context.Background(), toc.StatePath(track))
	require.NoError(t, err)
	require.True(t, ok)

	st, err := deserializeState(blob, toc, track)
	require.NoError(t, err)

	sl, _, ok := st.sliceForSector(1, 0)
	require.True(t, ok)
	for _, sm := range sl {
		assert.True(t, sm.IsBad())
	}
}

func TestSectorRangeDirection(t *testing.T) {
	fwd := sectorRange(0, 5, false)
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, fwd)

	bwd := sectorRange(0, 5, true)
	assert.Equal(t, []int32{4, 3, 2, 1, 0}, bwd)
}
