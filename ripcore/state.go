package ripcore

import "fmt"

// rangePadding is the number of samples of padding retained on each side of
// a track's interior range, enough to absorb any read-offset correction in
// -5880..=5880 without losing data (§3.3, §9).
const rangePadding = 5880

// RipState is the per-track rip tableau: the padded sample vector described
// in §3.3, plus enough of the TOC/track identity to validate a rehydrated
// state against the track it's being loaded for.
type RipState struct {
	tocCRC32 uint32
	track    Track

	// rangeStart/rangeEnd are disc-absolute sample coordinates describing
	// the padded window: [track_start-5880, track_end+5880).
	rangeStart int64
	rangeEnd   int64

	data []RipSample

	isNew bool
}

// trackSampleRange converts a track's sector range into disc-absolute
// sample coordinates.
func trackSampleRange(t Track) (start, end int64) {
	start = int64(t.StartSector) * SamplesPerSector
	end = int64(t.EndSector()) * SamplesPerSector
	return
}

// NewRipState allocates a fresh state for track, with every sample in
// [track_start-5880, track_end+5880) initialized per §3.3: Lead wherever
// the disc-absolute sample falls before LSN 0 or at/after the leadout,
// Tbd everywhere else.
func NewRipState(toc TOC, track Track) RipState {
	tStart, tEnd := trackSampleRange(track)
	rStart := tStart - rangePadding
	rEnd := tEnd + rangePadding

	leadoutSample := int64(toc.LeadoutSector) * SamplesPerSector

	data := make([]RipSample, rEnd-rStart)
	for i := range data {
		abs := rStart + int64(i)
		if abs < 0 || abs >= leadoutSample {
			data[i] = Lead()
		} else {
			data[i] = Tbd()
		}
	}

	return RipState{
		tocCRC32:   toc.CRC32(),
		track:      track,
		rangeStart: rStart,
		rangeEnd:   rEnd,
		data:       data,
		isNew:      true,
	}
}

// IsNew reports whether this state was freshly allocated rather than
// rehydrated from a serialized blob.
func (s *RipState) IsNew() bool { return s.isNew }

// Track returns the track descriptor this state was built for.
func (s *RipState) Track() Track { return s.track }

// RangeStart and RangeEnd are the disc-absolute sample coordinates of the
// padded window, [RangeStart, RangeEnd).
func (s *RipState) RangeStart() int64 { return s.rangeStart }
func (s *RipState) RangeEnd() int64   { return s.rangeEnd }

// Len is the length of the padded sample vector.
func (s *RipState) Len() int { return len(s.data) }

// matches reports whether s was built for the same TOC and track as toc/
// track, used to validate a rehydrated state before it's trusted (§4.1,
// §4.5: "mismatch is a corruption error").
func (s *RipState) matches(toc TOC, track Track) bool {
	tStart, tEnd := trackSampleRange(track)
	wantStart := tStart - rangePadding
	wantEnd := tEnd + rangePadding
	return s.tocCRC32 == toc.CRC32() &&
		s.track.Number == track.Number &&
		s.rangeStart == wantStart &&
		s.rangeEnd == wantEnd &&
		int64(len(s.data)) == wantEnd-wantStart
}

// sliceForSector returns the 588-sample slice of the padded vector that
// corresponds to sector lsn, adjusted by the signed sample offset o, per the
// lookup rule in §4.1: state[k*588 - o .. k*588 - o + 587]. ok is false if
// any part of that range falls outside the padded vector (the caller must
// skip such sectors).
func (s *RipState) sliceForSector(lsn int32, offset int16) (sl []RipSample, idx int, ok bool) {
	sectorStart := int64(lsn)*SamplesPerSector - int64(offset)
	idx64 := sectorStart - s.rangeStart
	if idx64 < 0 || idx64+SamplesPerSector > int64(len(s.data)) {
		return nil, 0, false
	}
	idx = int(idx64)
	return s.data[idx : idx+SamplesPerSector], idx, true
}

// applySector applies the §4.1 update rule to all 588 samples of the sector
// at lsn, given the freshly read values, the per-sample C2 flags (len 588),
// and whether the whole sector came back clean. It reports ok=false (no-op)
// if the offset-adjusted window doesn't land inside the padded vector.
func (s *RipState) applySector(lsn int32, offset int16, values []Sample, bad []bool, allGood bool) (ok bool) {
	sl, _, ok := s.sliceForSector(lsn, offset)
	if !ok {
		return false
	}
	for i := range sl {
		sl[i].update(values[i], bad[i], allGood)
	}
	return true
}

// markLead forces every sample of the sector at lsn (offset-adjusted) to
// Lead, used when the requested LSN falls in the leadin or at/after the
// leadout (§4.2 step 4).
func (s *RipState) markLead(lsn int32, offset int16) {
	sl, _, ok := s.sliceForSector(lsn, offset)
	if !ok {
		return
	}
	for i := range sl {
		sl[i] = Lead()
	}
}

// sectorAllGoodOrLead reports whether every sample of the offset-adjusted
// sector at lsn is already Confirmed or Lead, in which case the acquisition
// loop skips reading it entirely (§4.2 step 4, first bullet).
func (s *RipState) sectorAllGoodOrLead(lsn int32, offset int16) bool {
	sl, _, ok := s.sliceForSector(lsn, offset)
	if !ok {
		return true // out of window: nothing to do, treat as skippable
	}
	for _, sm := range sl {
		if !sm.IsConfirmed() && !sm.IsLead() {
			return false
		}
	}
	return true
}

// trackInterior returns the slice of the padded vector corresponding to the
// track's own range, excluding the 5880-sample padding on either side
// (§8 invariant 5).
func (s *RipState) trackInterior() []RipSample {
	tStart, tEnd := trackSampleRange(s.track)
	start := tStart - s.rangeStart
	end := tEnd - s.rangeStart
	return s.data[start:end]
}

// IsLikelyComplete reports whether every sample in the track's interior
// range (padding excluded) is likely or confirmed, per §4.1.
func (s *RipState) IsLikelyComplete(rereads Rereads) bool {
	for _, sm := range s.trackInterior() {
		if !sm.IsLikely(rereads) {
			return false
		}
	}
	return true
}

// IsDone reports whether every sample in the track's interior range is
// Confirmed.
func (s *RipState) IsDone() bool {
	for _, sm := range s.trackInterior() {
		if !sm.IsConfirmed() {
			return false
		}
	}
	return true
}

// Promote implements the confirmation-promotion rule (§4.1): every
// non-Confirmed sample in the track's interior range becomes
// Confirmed(best_guess()). Padding is left untouched.
func (s *RipState) Promote() {
	interior := s.trackInterior()
	for i, sm := range interior {
		if !sm.IsConfirmed() {
			interior[i].confirm(sm.BestGuess())
		}
	}
}

// ApplyReset decrements every Maybe sample's candidate counts to 1 across
// the whole padded vector, per the Reset option (§3.4): "on load, decrement
// all Maybe counts to 1 before ripping."
func (s *RipState) ApplyReset() {
	for i := range s.data {
		s.data[i].resetMaybeCounts()
	}
}

// ProblemSectors returns the LSNs within the track's acquisition window
// whose offset-adjusted sector slice contains any sample that is neither
// Confirmed nor Lead -- the "problem-sector log" emitted in verbose mode
// (§4.2 step 5, §6 persisted-state layout).
func (s *RipState) ProblemSectors(offset int16) []int32 {
	startLSN := s.track.StartSector
	endLSN := s.track.EndSector()

	var out []int32
	for lsn := startLSN; lsn < endLSN; lsn++ {
		sl, _, ok := s.sliceForSector(lsn, offset)
		if !ok {
			continue
		}
		for _, sm := range sl {
			if !sm.IsConfirmed() && !sm.IsLead() {
				out = append(out, lsn)
				break
			}
		}
	}
	return out
}

// extractWindow returns the best-guess sample bytes for exactly the
// track's nominal length (588*(end_lsn-start_lsn) samples), offset-adjusted,
// per §6's extraction format: "shift is absorbed by the padded state
// window."
func (s *RipState) extractWindow(offset int16) ([]Sample, error) {
	tStart, tEnd := trackSampleRange(s.track)
	want := tEnd - tStart

	absStart := tStart - int64(offset)
	idx := absStart - s.rangeStart
	if idx < 0 || idx+want > int64(len(s.data)) {
		return nil, &RipError{
			Kind:  ErrOverflow,
			Track: s.track.Number,
			cause: fmt.Errorf("offset %d pushes extraction window outside padded range", offset),
		}
	}

	out := make([]Sample, want)
	for i := range out {
		out[i] = s.data[idx+int64(i)].BestGuess()
	}
	return out, nil
}
