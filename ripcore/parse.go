package ripcore

import (
	"encoding/binary"
	"encoding/xml"
	"fmt"
)

// parseAccurateRipBlob parses a raw AccurateRip .bin response into the
// {checksum -> confidence} map for trackNumber (1-indexed), per §4.3:
// "parse into per-track {crc -> confidence(u8)} maps."
//
// Wire format (AccurateRip's own, not this engine's): an 13-byte header
// (track count, two disc-ID words, CDDB ID, all u32 LE except the leading
// track-count byte) followed, for each track, by trackCount records of
// (confidence:u8, crc:u32 LE, frame450crc:u32 LE); the same 13-byte header
// repeats before each submitter's block. A disc may have zero, one, or many
// submitter blocks concatenated back to back.
func parseAccurateRipBlob(blob []byte, trackNumber int) (AccurateRipDB, error) {
	db := make(AccurateRipDB)

	pos := 0
	for pos+13 <= len(blob) {
		numTracks := int(blob[pos])
		pos += 13 // track count byte + 3 x u32 disc-id/cddb words

		if numTracks == 0 {
			break
		}

		for t := 1; t <= numTracks; t++ {
			if pos+9 > len(blob) {
				return db, fmt.Errorf("ripcore: truncated AccurateRip record")
			}
			confidence := blob[pos]
			crc := binary.LittleEndian.Uint32(blob[pos+1 : pos+5])
			pos += 9 // confidence + crc + frame450crc

			if t == trackNumber {
				if existing, ok := db[crc]; !ok || confidence > existing {
					db[crc] = confidence
				}
			}
		}
	}

	return db, nil
}

// ctdbXML is the minimal shape needed out of a CTDB lookup2.php response:
// one <entry> per submitted pressing, each listing per-track CRCs.
type ctdbXML struct {
	XMLName xml.Name `xml:"ctdb"`
	Entries []struct {
		Tracks []struct {
			CRC        string `xml:"crc32,attr"`
			Confidence uint16 `xml:"confidence,attr"`
		} `xml:"track"`
	} `xml:"entry"`
}

// parseCTDBBlob parses a raw CTDB lookup2.php XML response into the
// {checksum -> confidence} map for trackNumber (1-indexed), summing
// confidence across entries that agree on the same CRC (§4.3: CTDB
// confidence values are submission counts, which are naturally additive).
func parseCTDBBlob(blob []byte, trackNumber int) (CTDBDB, error) {
	var doc ctdbXML
	if err := xml.Unmarshal(blob, &doc); err != nil {
		return nil, fmt.Errorf("ripcore: malformed CTDB response: %w", err)
	}

	db := make(CTDBDB)
	idx := trackNumber - 1
	for _, entry := range doc.Entries {
		if idx < 0 || idx >= len(entry.Tracks) {
			continue
		}
		tr := entry.Tracks[idx]
		var crc uint32
		if _, err := fmt.Sscanf(tr.CRC, "%x", &crc); err != nil {
			continue
		}
		db[crc] += tr.Confidence
	}

	return db, nil
}

// decodeSubchannelLSN decodes a 16-byte raw subchannel buffer's Q channel
// into an absolute LSN, per §4.2's sync verification. Byte layout follows
// the Red Book Q sub-channel: control/address nibble, track, index, then
// three BCD-encoded MSF timecodes (relative, padding, absolute) plus CRC;
// only the absolute MSF (bytes 7-9) is needed here.
func decodeSubchannelLSN(subQ []byte) (int32, bool) {
	if len(subQ) < 10 {
		return 0, false
	}
	m, okM := bcdToDecimal(subQ[7])
	s, okS := bcdToDecimal(subQ[8])
	f, okF := bcdToDecimal(subQ[9])
	if !okM || !okS || !okF {
		return 0, false
	}
	lsn := int32(m)*60*75 + int32(s)*75 + int32(f) - LeadinSectors
	return lsn, true
}

func bcdToDecimal(b byte) (int, bool) {
	hi, lo := b>>4, b&0x0F
	if hi > 9 || lo > 9 {
		return 0, false
	}
	return int(hi)*10 + int(lo), true
}
