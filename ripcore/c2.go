package ripcore

// decodeC2 expands a 294-byte C2 error-pointer block into 588 per-sample
// bad flags, per §3.1/§9: one bit per audio byte, two bits per sample pair,
// reduced to a single pass/fail flag per sample by treating the high nybble
// of each C2 byte as sample 2k's flag and the low nybble as sample 2k+1's.
// The convention is arbitrary but must be reproduced exactly -- external
// test vectors depend on it.
//
// If strict is true and any of the 588 samples is bad, every sample in the
// sector is marked bad (§3.4, §4.2).
//
// c2 must be exactly C2BytesPerSector (294) bytes; out must have length
// SamplesPerSector (588).
func decodeC2(c2 []byte, strict bool, out []bool) {
	any := false
	for i := 0; i < C2BytesPerSector; i++ {
		b := c2[i]
		first := b&0b1111_0000 != 0
		second := b&0b0000_1111 != 0
		out[2*i] = first
		out[2*i+1] = second
		any = any || first || second
	}
	if strict && any {
		for i := range out {
			out[i] = true
		}
	}
}

// allGood reports whether none of the per-sample flags are bad, the
// whole-sector hint threaded through to RipSample.update (§4.2 step 4).
func allGood(flags []bool) bool {
	for _, b := range flags {
		if b {
			return false
		}
	}
	return true
}

// allBadFlags fills out with true for all 588 positions, used to synthesize
// a fully-bad C2 vector on a generic read error (§4.2 step 4, §7
// ReadFailed policy).
func allBadFlags(out []bool) {
	for i := range out {
		out[i] = true
	}
}
