package ripcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallTOC() (TOC, Track) {
	track := Track{Number: 1, StartSector: 0, LengthSectors: 5, IsFirst: true, IsLast: true}
	toc := NewTOC([]Track{track}, 5, "cddbid", "arid", 0x12345678)
	return toc, track
}

func TestNewRipStateMarksLeadinAndLeadoutPadding(t *testing.T) {
	toc, track := smallTOC()
	state := NewRipState(toc, track)

	assert.True(t, state.IsNew())
	assert.Equal(t, int64(-5880), state.RangeStart())

	// Samples before disc-absolute LSN 0 are Lead.
	assert.True(t, state.data[0].IsLead())

	// Interior samples (track's own range) start as Tbd.
	interior := state.trackInterior()
	for i, sm := range interior {
		assert.True(t, sm.IsTbd(), "interior sample %d should be Tbd", i)
	}

	// Samples at/after the leadout sample (5*588) are Lead.
	leadoutIdx := int64(5)*SamplesPerSector - state.RangeStart()
	assert.True(t, state.data[leadoutIdx].IsLead())
}

func TestMatchesRejectsDifferentTrackOrTOC(t *testing.T) {
	toc, track := smallTOC()
	state := NewRipState(toc, track)

	assert.True(t, state.matches(toc, track))

	otherTrack := track
	otherTrack.Number = 2
	assert.False(t, state.matches(toc, otherTrack))

	otherTOC := toc
	otherTOC.crc32 = 0xFF
	assert.False(t, state.matches(otherTOC, track))
}

func TestSliceForSectorOffsetWindow(t *testing.T) {
	toc, track := smallTOC()
	state := NewRipState(toc, track)

	sl, idx, ok := state.sliceForSector(0, 0)
	require.True(t, ok)
	assert.Equal(t, SamplesPerSector, len(sl))
	assert.Equal(t, int(0-state.RangeStart()), idx)

	// A large positive offset pushes the window before the start of the
	// padded vector for an early sector.
	_, _, ok = state.sliceForSector(0, 5880+1)
	assert.False(t, ok)
}

func TestApplySectorUpdatesAllSamples(t *testing.T) {
	toc, track := smallTOC()
	state := NewRipState(toc, track)

	values := make([]Sample, SamplesPerSector)
	bad := make([]bool, SamplesPerSector)
	for i := range values {
		values[i] = Sample{byte(i), 0, 0, 0}
	}

	ok := state.applySector(0, 0, values, bad, true)
	require.True(t, ok)

	sl, _, _ := state.sliceForSector(0, 0)
	for i, sm := range sl {
		require.True(t, sm.IsMaybe())
		assert.Equal(t, values[i], sm.BestGuess())
	}
}

func TestMarkLeadForcesLead(t *testing.T) {
	toc, track := smallTOC()
	state := NewRipState(toc, track)

	state.markLead(0, 0)
	sl, _, _ := state.sliceForSector(0, 0)
	for _, sm := range sl {
		assert.True(t, sm.IsLead())
	}
}

func TestSectorAllGoodOrLead(t *testing.T) {
	toc, track := smallTOC()
	state := NewRipState(toc, track)

	// A fresh Tbd sector is not all-good-or-lead.
	assert.False(t, state.sectorAllGoodOrLead(0, 0))

	state.markLead(0, 0)
	assert.True(t, state.sectorAllGoodOrLead(0, 0))
}

func TestIsLikelyCompleteAndIsDoneAndPromote(t *testing.T) {
	toc, track := smallTOC()
	state := NewRipState(toc, track)

	assert.False(t, state.IsLikelyComplete(DefaultRereads))
	assert.False(t, state.IsDone())

	startLSN := track.StartSector
	endLSN := track.EndSector()
	values := make([]Sample, SamplesPerSector)
	bad := make([]bool, SamplesPerSector)
	for i := range values {
		values[i] = Sample{byte(i), 1, 2, 3}
	}

	for lsn := startLSN; lsn < endLSN; lsn++ {
		state.applySector(lsn, 0, values, bad, true)
		state.applySector(lsn, 0, values, bad, true) // second pass, same values: count=2
	}

	assert.True(t, state.IsLikelyComplete(DefaultRereads))
	assert.False(t, state.IsDone(), "samples are likely but not yet Confirmed")

	state.Promote()
	assert.True(t, state.IsDone())

	for i, sm := range state.trackInterior() {
		require.True(t, sm.IsConfirmed())
		assert.Equal(t, values[i%SamplesPerSector], sm.BestGuess())
	}
}

func TestApplyResetDecrementsMaybeCounts(t *testing.T) {
	toc, track := smallTOC()
	state := NewRipState(toc, track)

	values := []Sample{{9, 9, 9, 9}}
	bad := []bool{false}

	sl, _, ok := state.sliceForSector(0, 0)
	require.True(t, ok)
	sl[0].update(values[0], bad[0], true)
	sl[0].update(values[0], bad[0], true)
	require.Equal(t, uint8(2), sl[0].maybe.topCount())

	state.ApplyReset()
	sl2, _, _ := state.sliceForSector(0, 0)
	assert.Equal(t, uint8(1), sl2[0].maybe.topCount())
}

func TestProblemSectorsListsIncompleteSectors(t *testing.T) {
	toc, track := smallTOC()
	state := NewRipState(toc, track)

	problems := state.ProblemSectors(0)
	assert.Len(t, problems, int(track.LengthSectors), "every sector starts as a problem")

	values := make([]Sample, SamplesPerSector)
	bad := make([]bool, SamplesPerSector)
	for lsn := track.StartSector; lsn < track.EndSector(); lsn++ {
		state.applySector(lsn, 0, values, bad, true)
	}
	state.Promote()

	assert.Empty(t, state.ProblemSectors(0))
}

func TestExtractWindowReturnsNominalLength(t *testing.T) {
	toc, track := smallTOC()
	state := NewRipState(toc, track)

	values := make([]Sample, SamplesPerSector)
	bad := make([]bool, SamplesPerSector)
	for lsn := track.StartSector; lsn < track.EndSector(); lsn++ {
		state.applySector(lsn, 0, values, bad, true)
	}

	out, err := state.extractWindow(0)
	require.NoError(t, err)
	assert.Equal(t, int(track.LengthSectors)*SamplesPerSector, len(out))
}

func TestExtractWindowRejectsOffsetPushingOutsideRange(t *testing.T) {
	toc, track := smallTOC()
	state := NewRipState(toc, track)

	_, err := state.extractWindow(5881)
	require.Error(t, err)
	assert.True(t, isKind(err, ErrOverflow))
}
