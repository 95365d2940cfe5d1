package ripcore

import "fmt"

// LeadinSectors is the number of sectors occupied by the leadin at the start
// of every disc. Audio LSNs may be negative inside it.
const LeadinSectors = 150

// Track describes the sector range of a single audio track, as produced by
// the disc's table of contents. Track numbers start at 1; the HTOA (if any)
// is represented with Number == 0.
//
// This mirrors rabidaudio-audiocd's TrackPosition, trimmed to what the rip
// engine consumes: it is a read-only input, not something this package
// enumerates from a drive.
type Track struct {
	Number        int // 0 = HTOA, 1..=99 = indexed tracks
	StartSector   int32
	LengthSectors int32
	IsFirst       bool // first audio track on the disc (for AR/CTDB edge trims)
	IsLast        bool // last audio track on the disc
}

// EndSector returns the sector immediately following the track.
func (t Track) EndSector() int32 { return t.StartSector + t.LengthSectors }

// ContainsSector reports whether the given sector lies within the track.
func (t Track) ContainsSector(sector int32) bool {
	return sector >= t.StartSector && sector < t.EndSector()
}

// TOC is the finished table of contents for a disc, as produced by the
// disc-enumeration collaborator named out of scope in the package overview.
// It supplies just enough identity information for cache keying and
// checksum-database lookups.
type TOC struct {
	Tracks []Track

	// LeadoutSector is the sector immediately after the last audio track,
	// i.e. the first unreadable sector at the end of the disc.
	LeadoutSector int32

	// cddbID and arID are precomputed by the disc-enumeration collaborator
	// (classic CDDB-style disc ID and AccurateRip ID respectively); this
	// package treats them as opaque cache keys and URL components.
	cddbID string
	arID   string
	crc32  uint32
}

// NewTOC builds a TOC from tracks plus the precomputed identity strings the
// upstream TOC-reading collaborator is expected to supply (it owns the CDDB/
// AccurateRip ID algorithms, which are disc-enumeration concerns, not rip-
// state concerns).
func NewTOC(tracks []Track, leadoutSector int32, cddbID, accurateRipID string, crc32 uint32) TOC {
	return TOC{
		Tracks:        tracks,
		LeadoutSector: leadoutSector,
		cddbID:        cddbID,
		arID:          accurateRipID,
		crc32:         crc32,
	}
}

// CDDBID returns the classic CDDB-style disc identifier, used to key the
// AccurateRip and CTDB checksum cache paths and in the CTDB lookup URL.
func (t TOC) CDDBID() string { return t.cddbID }

// AccurateRipID returns the AccurateRip disc identifier used to build the
// AccurateRip checksum URL.
func (t TOC) AccurateRipID() string { return t.arID }

// CRC32 is the TOC's own checksum. It is written into the serialized state
// header, and a stored state whose checksum differs is rejected on load;
// state file paths are keyed by AccurateRipID, not by this value.
func (t TOC) CRC32() uint32 { return t.crc32 }

// TrackByNumber finds a track by its index, or reports ok=false.
func (t TOC) TrackByNumber(n int) (Track, bool) {
	for _, tr := range t.Tracks {
		if tr.Number == n {
			return tr, true
		}
	}
	return Track{}, false
}

// StatePath returns the relative path (under the cache root) at which the
// serialized rip state for this track is stored (§6).
func (t TOC) StatePath(track Track) string {
	return fmt.Sprintf("state/%s__%02d.state", t.arID, track.Number)
}

// AccurateRipChecksumPath is the disk cache path for the raw AccurateRip
// response (§4.3/§6).
func (t TOC) AccurateRipChecksumPath() string {
	return fmt.Sprintf("%s__chk-ar.bin", t.cddbID)
}

// CTDBChecksumPath is the disk cache path for the raw CTDB response.
func (t TOC) CTDBChecksumPath() string {
	return fmt.Sprintf("%s__chk-ctdb.xml", t.cddbID)
}
