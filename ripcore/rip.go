package ripcore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
)

// Ripper drives the pass-based acquisition loop described in §4.2. It owns
// no drive handle of its own -- the DiscReader is supplied by the caller and
// is assumed to be exclusively owned by the Ripper for the duration of
// Run, matching §5's "the drive handle is exclusively owned by the
// acquisition loop for the duration of a track rip."
type Ripper struct {
	Reader    DiscReader
	Store     BlobStore
	Fetcher   HTTPFetcher
	Canceller Canceller
	Logger    *slog.Logger

	TOC     TOC
	Track   Track
	Options RipOptions
}

// RunResult summarizes the outcome of a Run invocation.
type RunResult struct {
	PassesRun  int
	Done       bool
	Cancelled  bool
	Confidence uint16
	ProblemLog []int32 // populated only when Options.Verbose is set
}

func (r *Ripper) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// loadOrCreateState implements §4.1's construction rule: reuse a rehydrated
// state if one exists on disk and matches toc/track exactly, reject a
// mismatch as corruption, or allocate fresh.
func (r *Ripper) loadOrCreateState(ctx context.Context) (RipState, error) {
	path := r.TOC.StatePath(r.Track)

	if r.Options.Resume {
		blob, ok, err := r.Store.Read(ctx, path)
		if err != nil {
			return RipState{}, &RipError{Kind: ErrStateCorrupt, Track: r.Track.Number, Path: path, cause: err}
		}
		if ok {
			st, err := deserializeState(blob, r.TOC, r.Track)
			if err != nil {
				if ripErr, isRip := err.(*RipError); isRip {
					ripErr.Path = path
				}
				return RipState{}, err
			}
			if r.Options.Reset {
				st.ApplyReset()
			}
			return st, nil
		}
	}

	return NewRipState(r.TOC, r.Track), nil
}

// Run executes up to Options.Passes passes of the acquisition loop,
// verifying after each one, per §4.2.
func (r *Ripper) Run(ctx context.Context) (RunResult, error) {
	if err := r.Options.Validate(); err != nil {
		return RunResult{}, err
	}

	state, err := r.loadOrCreateState(ctx)
	if err != nil {
		return RunResult{}, err
	}

	var result RunResult

	for pass := 0; pass < int(r.Options.Passes); pass++ {
		if r.cancelled() {
			result.Cancelled = true
			break
		}

		if err := r.runPass(ctx, &state, pass); err != nil {
			return result, err
		}
		result.PassesRun++

		if err := r.persist(ctx, &state); err != nil {
			return result, err
		}

		if r.Options.Verbose {
			result.ProblemLog = state.ProblemSectors(r.Options.Offset)
			r.logProblems(result.ProblemLog)
		}

		if r.cancelled() {
			result.Cancelled = true
			break
		}

		confidence, err := r.verify(ctx, &state)
		if err != nil && !isKind(err, ErrVerificationUnavailable) {
			return result, err
		}
		if confidence >= uint16(r.Options.Confidence) {
			state.Promote()
			result.Confidence = confidence
			break
		}

		if state.IsDone() {
			break
		}
	}

	result.Done = state.IsDone()
	return result, nil
}

func (r *Ripper) cancelled() bool {
	return r.Canceller != nil && r.Canceller.Cancelled()
}

// runPass implements one iteration of §4.2's pass structure: an optional
// cache-bust, then a directional sweep over the rip window applying reads
// and update rules sector by sector.
func (r *Ripper) runPass(ctx context.Context, state *RipState, pass int) error {
	startLSN := int32(state.RangeStart()/SamplesPerSector) - 1
	endLSN := int32(state.RangeEnd()/SamplesPerSector) + 1

	if !r.cancelled() && !state.IsDone() {
		n := cacheSectors(r.Options.CacheKiB)
		if n > 0 {
			lsn := cacheBustLSN(startLSN, endLSN, n, r.TOC.LeadoutSector)
			bustCache(ctx, r.Reader, lsn, n)
		}
	}

	backwards := r.Options.directionFor(pass)

	lsns := sectorRange(startLSN, endLSN, backwards)

	values := make([]Sample, SamplesPerSector)
	flags := make([]bool, SamplesPerSector)

	for _, lsn := range lsns {
		if r.cancelled() {
			return nil
		}

		if state.sectorAllGoodOrLead(lsn, r.Options.Offset) {
			continue
		}

		if lsn < 0 || lsn >= r.TOC.LeadoutSector {
			state.markLead(lsn, r.Options.Offset)
			continue
		}

		if err := r.readSector(ctx, lsn, values, flags); err != nil {
			return err
		}

		allG := allGood(flags)
		state.applySector(lsn, r.Options.Offset, values, flags, allG)
	}

	return nil
}

// sectorRange builds the ordered list of LSNs to visit this pass, per
// §4.2's direction rule.
func sectorRange(start, end int32, backwards bool) []int32 {
	n := int(end - start)
	if n <= 0 {
		return nil
	}
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		if backwards {
			out[i] = end - 1 - int32(i)
		} else {
			out[i] = start + int32(i)
		}
	}
	return out
}

// readSector performs one sector read and produces its per-sample values
// and C2-derived bad flags, applying §4.2's error-recovery and subchannel
// sync rules.
func (r *Ripper) readSector(ctx context.Context, lsn int32, values []Sample, flags []bool) error {
	bufLen := BytesPerSector
	wantC2 := true
	wantSub := r.Options.Sync

	if wantSub {
		// §4.2: "when both subchannel and C2 are requested, perform two
		// separate reads and require that the audio bytes CRC-match before
		// accepting C2."
		return r.readSectorWithSyncCheck(ctx, lsn, values, flags)
	}

	buf := make([]byte, bufLen+C2BytesPerSector)
	err := r.Reader.ReadSector(ctx, lsn, wantC2, false, buf)
	if err != nil {
		if ripErr, ok := err.(*RipError); ok && ripErr.Kind == ErrReadUnsupported {
			return err
		}
		allBadFlags(flags)
		decodeValuesOnly(buf[:bufLen], values)
		return nil
	}

	decodeValuesOnly(buf[:bufLen], values)
	decodeC2(buf[bufLen:bufLen+C2BytesPerSector], r.Options.Strict, flags)
	return nil
}

func (r *Ripper) readSectorWithSyncCheck(ctx context.Context, lsn int32, values []Sample, flags []bool) error {
	audioBuf := make([]byte, BytesPerSector+16)
	if err := r.Reader.ReadSector(ctx, lsn, false, true, audioBuf); err != nil {
		if ripErr, ok := err.(*RipError); ok && ripErr.Kind == ErrReadUnsupported {
			return err
		}
		allBadFlags(flags)
		decodeValuesOnly(audioBuf[:BytesPerSector], values)
		return nil
	}

	subQ := audioBuf[BytesPerSector:]
	gotLSN, ok := decodeSubchannelLSN(subQ)
	if !ok || gotLSN != lsn {
		allBadFlags(flags)
		decodeValuesOnly(audioBuf[:BytesPerSector], values)
		return nil
	}

	c2Buf := make([]byte, BytesPerSector+C2BytesPerSector)
	if err := r.Reader.ReadSector(ctx, lsn, true, false, c2Buf); err != nil {
		allBadFlags(flags)
		decodeValuesOnly(audioBuf[:BytesPerSector], values)
		return nil
	}

	if !bytes.Equal(audioBuf[:BytesPerSector], c2Buf[:BytesPerSector]) {
		allBadFlags(flags)
		decodeValuesOnly(audioBuf[:BytesPerSector], values)
		return nil
	}

	decodeValuesOnly(c2Buf[:BytesPerSector], values)
	decodeC2(c2Buf[BytesPerSector:BytesPerSector+C2BytesPerSector], r.Options.Strict, flags)
	return nil
}

// decodeValuesOnly splits a raw 2352-byte audio buffer into its 588 Sample
// values.
func decodeValuesOnly(buf []byte, out []Sample) {
	for i := 0; i < SamplesPerSector; i++ {
		copy(out[i][:], buf[i*BytesPerSample:i*BytesPerSample+BytesPerSample])
	}
}

func (r *Ripper) persist(ctx context.Context, state *RipState) error {
	blob, err := serializeState(state)
	if err != nil {
		return err
	}
	if err := r.Store.Write(ctx, r.TOC.StatePath(r.Track), blob); err != nil {
		return &RipError{Kind: ErrWriteFailed, Path: r.TOC.StatePath(r.Track), cause: err}
	}
	return nil
}

func (r *Ripper) logProblems(lsns []int32) {
	if len(lsns) == 0 {
		return
	}
	r.logger().Info("problem sectors", "track", r.Track.Number, "count", len(lsns))
}

// verify runs AccurateRip and CTDB verification over the track's interior
// samples and returns the best (max) confidence found, per §4.3's promotion
// gate: v = max(AR1, AR2, CTDB).
func (r *Ripper) verify(ctx context.Context, state *RipState) (uint16, error) {
	if r.cancelled() {
		return 0, nil
	}

	interior := state.trackInterior()
	samples := make([]Sample, len(interior))
	for i, sm := range interior {
		samples[i] = sm.BestGuess()
	}

	arChecksums := ComputeAccurateRip(r.Track, samples)

	arBlob, err := fetchCached(ctx, r.Store, r.Fetcher, r.TOC.AccurateRipChecksumPath(), accurateRipURL(r.TOC), "ripcore/1.0")
	var arConfidence uint16
	if err == nil {
		db, perr := parseAccurateRipBlob(arBlob, r.Track.Number)
		if perr == nil {
			c1, c2 := LookupAccurateRip(db, arChecksums)
			if c1 > arConfidence {
				arConfidence = uint16(c1)
			}
			if uint16(c2) > arConfidence {
				arConfidence = uint16(c2)
			}
		}
	}

	var ctdbConfidence uint16
	ctdbBlob, err := fetchCached(ctx, r.Store, r.Fetcher, r.TOC.CTDBChecksumPath(), ctdbURL(r.TOC), "ripcore/1.0")
	if err == nil {
		db, perr := parseCTDBBlob(ctdbBlob, r.Track.Number)
		if perr == nil {
			albumTotal := int64(0)
			for _, t := range r.TOC.Tracks {
				albumTotal += int64(t.LengthSectors) * SamplesPerSector
			}
			rangeSamples := make([]Sample, state.Len())
			for i, sm := range state.data {
				rangeSamples[i] = sm.BestGuess()
			}
			res, verr := VerifyCTDB(ctx, r.Track, rangeSamples, albumTotal, db)
			if verr == nil {
				ctdbConfidence = res.Confidence
			}
		}
	}

	best := arConfidence
	if ctdbConfidence > best {
		best = ctdbConfidence
	}
	return best, nil
}

func accurateRipURL(toc TOC) string {
	return fmt.Sprintf("http://www.accuraterip.com/accuraterip/%s.bin", toc.AccurateRipID())
}

func ctdbURL(toc TOC) string {
	return fmt.Sprintf("http://db.cuetools.net/lookup2.php?version=3&ctdb=1&toc=%s", toc.CDDBID())
}

func isKind(err error, kind ErrorKind) bool {
	ripErr, ok := err.(*RipError)
	return ok && ripErr.Kind == kind
}
