package ripcore

import (
	"context"
	"fmt"
	"hash/crc32"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ctdbWiggleSamples is the maximum CTDB offset-search shift, in samples,
// matching §4.3's "search offsets in [-5880, +5880] samples" -- the same
// ±5880 window as the read-offset clamp (§9).
const ctdbWiggleSamples = 5880

// checksumCacheTTL is the freshness window for cached AR/CTDB responses
// (§4.3 "Database caching").
const checksumCacheTTL = time.Hour

// AccurateRipChecksums holds the two AccurateRip checksum variants (v1 and
// v2) computed over a track's sample data.
type AccurateRipChecksums struct {
	CRC1 uint32
	CRC2 uint32
}

// ComputeAccurateRip implements §4.3's AccurateRip algorithm: a
// position-weighted 64-bit accumulator over the track's interior samples
// (padding excluded), skipping the pressing-specific overread ranges at the
// start of the first track and the end of the last.
func ComputeAccurateRip(track Track, samples []Sample) AccurateRipChecksums {
	start := 0
	if track.IsFirst {
		start = SamplesPerSector*5 - 1
	}
	end := len(samples)
	if track.IsLast {
		end = len(samples) - (SamplesPerSector*5 + 1)
		if end < start {
			end = start
		}
	}

	var crc1, crc2 uint64
	for idx := start; idx < end; idx++ {
		s := samples[idx]
		v := uint64(s[0]) | uint64(s[1])<<8 | uint64(s[2])<<16 | uint64(s[3])<<24
		k := uint64(idx) + 1
		kv := k * v
		crc1 += kv
		crc2 += (kv >> 32) + (kv & 0xFFFFFFFF)
	}

	return AccurateRipChecksums{
		CRC1: uint32(crc1 & 0xFFFFFFFF),
		CRC2: uint32(crc2 & 0xFFFFFFFF),
	}
}

// AccurateRipDB maps a per-track checksum to its submission count
// ("confidence"), for one of the two checksum variants.
type AccurateRipDB map[uint32]uint8

// LookupAccurateRip returns the confidence for each of the two computed
// checksums against db, 0 meaning no match (§4.3).
func LookupAccurateRip(db AccurateRipDB, chk AccurateRipChecksums) (c1, c2 uint8) {
	return db[chk.CRC1], db[chk.CRC2]
}

// sampleBytes reinterprets a Sample slice as its little-endian byte
// representation, the unit CTDB's CRC-32 operates over.
func sampleBytes(samples []Sample) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		copy(out[i*BytesPerSample:], s[:])
	}
	return out
}

// ctdbTrim returns the sizes, in samples, of the start and end regions of a
// track's padded rip range that buildCTDBParts keeps as raw bytes for
// per-shift reslicing. Every track gets 2*5880 samples on each side: the
// 5880-sample range padding plus the track's own first (or last) 5880
// samples, so a shift of up to ±5880 always has material to hash. The first
// track adds the 10 sectors (5880 samples) CTDB ignores at its start; the
// last track adds the same 10 sectors at its end plus the album's total
// sample count modulo 10 sectors (§4.3).
func ctdbTrim(track Track, albumTotalSamples int64) (prefixSamples, suffixSamples int) {
	if track.IsFirst {
		prefixSamples = ctdbWiggleSamples * 3
	} else {
		prefixSamples = ctdbWiggleSamples * 2
	}
	if track.IsLast {
		suffixSamples = ctdbWiggleSamples*3 + int(albumTotalSamples%(10*SamplesPerSector))
	} else {
		suffixSamples = ctdbWiggleSamples * 2
	}
	return
}

// ctdbParts is the three-region split (start/middle/end) of a track's
// padded rip-range bytes used for the offset-search: start and end stay as
// raw bytes because they get resliced per-shift, while middle -- the large,
// shift-invariant interior -- is folded into a CRC once and recombined.
type ctdbParts struct {
	start      []byte
	middleCRC  uint32
	middleLen  int64
	end        []byte
	ignoreHead int // bytes ignored at the very start of the unshifted view
	ignoreTail int // bytes ignored at the very end of the unshifted view
}

func buildCTDBParts(track Track, ripRangeSamples []Sample, albumTotalSamples int64) (ctdbParts, error) {
	prefix, suffix := ctdbTrim(track, albumTotalSamples)

	if len(ripRangeSamples) < prefix+suffix+SamplesPerSector {
		return ctdbParts{}, fmt.Errorf("ripcore: rip range too short for CTDB verification")
	}

	ignoreHead := (prefix - ctdbWiggleSamples*2) * BytesPerSample
	ignoreTail := (suffix - ctdbWiggleSamples*2) * BytesPerSample

	endStarts := len(ripRangeSamples) - suffix

	startBytes := sampleBytes(ripRangeSamples[:prefix])
	middleBytes := sampleBytes(ripRangeSamples[prefix:endStarts])
	endBytes := sampleBytes(ripRangeSamples[endStarts:])

	return ctdbParts{
		start:      startBytes,
		middleCRC:  crc32.ChecksumIEEE(middleBytes),
		middleLen:  int64(len(middleBytes)),
		end:        endBytes,
		ignoreHead: ignoreHead,
		ignoreTail: ignoreTail,
	}, nil
}

// crcAtShift recombines the pre-computed middle CRC with a shifted
// prefix/suffix view, implementing the same start/middle/end concatenation
// the unshifted CRC uses but sliced at shift samples (in bytes) from
// center. shift may be negative (shift into the previous track) or
// positive (shift into the next track); ok is false once the shift runs out
// of start or end bytes to slice.
func (p ctdbParts) crcAtShift(shiftSamples int) (crc uint32, ok bool) {
	wiggleBytes := ctdbWiggleSamples * BytesPerSample
	shiftBytes := shiftSamples * BytesPerSample

	startFrom := wiggleBytes + p.ignoreHead + shiftBytes
	if startFrom < 0 || startFrom > len(p.start) {
		return 0, false
	}
	endTo := len(p.end) - wiggleBytes - p.ignoreTail + shiftBytes
	if endTo < 0 || endTo > len(p.end) {
		return 0, false
	}

	startSlice := p.start[startFrom:]
	endSlice := p.end[:endTo]

	crc = crc32.ChecksumIEEE(startSlice)
	crc = crc32Combine(crc, p.middleCRC, p.middleLen)
	tail := crc32.ChecksumIEEE(endSlice)
	crc = crc32Combine(crc, tail, int64(len(endSlice)))
	return crc, true
}

// CTDBDB maps a track's CRC-32 (at some offset) to its CUETools submission
// count.
type CTDBDB map[uint32]uint16

// CTDBResult is the outcome of the CTDB offset search: the best confidence
// found and the sample shift (relative to the configured read offset) at
// which it was found.
type CTDBResult struct {
	Confidence uint16
	ShiftFound int
}

// VerifyCTDB implements §4.3's offset-search: it checks the unshifted CRC
// first, then searches ±1..=5880 samples using two workers (one per
// direction) sharing db under a mutex, stopping a worker once db empties.
// Matches below confidence 2 are reported as 0, since CTDB accepts first
// submissions unconditionally.
func VerifyCTDB(ctx context.Context, track Track, ripRangeSamples []Sample, albumTotalSamples int64, db CTDBDB) (CTDBResult, error) {
	parts, err := buildCTDBParts(track, ripRangeSamples, albumTotalSamples)
	if err != nil {
		return CTDBResult{}, err
	}

	remaining := make(CTDBDB, len(db))
	for k, v := range db {
		remaining[k] = v
	}

	var mu sync.Mutex
	var confidence uint32 // accumulated via atomic-style add under mu; kept as uint32 for saturation math
	shiftFound := 0

	checkAndConsume := func(crc uint32, shift int) (stop bool) {
		mu.Lock()
		defer mu.Unlock()
		if len(remaining) == 0 {
			return true
		}
		if v, ok := remaining[crc]; ok {
			confidence += uint32(v)
			shiftFound = shift
			delete(remaining, crc)
		}
		return false
	}

	if crc, ok := parts.crcAtShift(0); ok {
		if checkAndConsume(crc, 0) {
			return finishCTDB(confidence, shiftFound), nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for shift := 1; shift <= ctdbWiggleSamples; shift++ {
			if gctx.Err() != nil {
				return nil
			}
			crc, ok := parts.crcAtShift(-shift)
			if !ok {
				continue
			}
			if checkAndConsume(crc, -shift) {
				return nil
			}
		}
		return nil
	})

	g.Go(func() error {
		for shift := 1; shift <= ctdbWiggleSamples; shift++ {
			if gctx.Err() != nil {
				return nil
			}
			crc, ok := parts.crcAtShift(shift)
			if !ok {
				continue
			}
			if checkAndConsume(crc, shift) {
				return nil
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return CTDBResult{}, err
	}

	return finishCTDB(confidence, shiftFound), nil
}

func finishCTDB(confidence uint32, shift int) CTDBResult {
	if confidence < 2 {
		return CTDBResult{Confidence: 0, ShiftFound: shift}
	}
	if confidence > 0xFFFF {
		confidence = 0xFFFF
	}
	return CTDBResult{Confidence: uint16(confidence), ShiftFound: shift}
}

// fetchCached retrieves path from store if present and younger than
// checksumCacheTTL (tracked via a sibling "<path>.fetched-at" marker
// written alongside it), otherwise fetches url via client and writes both.
func fetchCached(ctx context.Context, store BlobStore, client HTTPFetcher, path, url, userAgent string) ([]byte, error) {
	markerPath := path + ".fetched-at"

	if data, ok, err := store.Read(ctx, path); err != nil {
		return nil, newErr(ErrVerificationUnavailable, err)
	} else if ok {
		if marker, ok, _ := store.Read(ctx, markerPath); ok {
			if t, err := time.Parse(time.RFC3339, string(marker)); err == nil {
				if time.Since(t) < checksumCacheTTL {
					return data, nil
				}
			}
		}
	}

	data, err := client.Get(ctx, url, userAgent)
	if err != nil {
		return nil, newErr(ErrVerificationUnavailable, err)
	}
	if len(data) == 0 {
		return nil, newErr(ErrVerificationUnavailable, fmt.Errorf("empty response from %s", url))
	}

	_ = store.Write(ctx, path, data)
	_ = store.Write(ctx, markerPath, []byte(time.Now().UTC().Format(time.RFC3339)))

	return data, nil
}
