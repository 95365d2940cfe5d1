package ripcore

// crc32Combine computes the CRC-32 (IEEE) of the concatenation of two byte
// sequences A and B given only crc1 = crc32(A), crc2 = crc32(B), and
// len2 = len(B), without re-reading A's bytes. This is the classic
// GF(2)-polynomial "combine" trick zlib and Rust's crc32fast expose; no
// library in the example pack offers it (the only CRC combination anywhere
// in the retrieved corpus is in the Rust original's crc32fast dependency,
// which has no Go counterpart here), so it is built directly on top of
// hash/crc32's polynomial, justified in DESIGN.md.
//
// The CTDB offset-search (verify.go) needs this to fold a precomputed
// "middle" CRC into a shifted prefix/suffix without rehashing the whole
// track on every candidate shift.
func crc32Combine(crc1, crc2 uint32, len2 int64) uint32 {
	if len2 == 0 {
		return crc1
	}

	// odd holds the operator matrix for "shift by one zero bit"; even is
	// its square, i.e. "shift by two zero bits", and squaring again gives
	// "shift by four zero bits" in odd. From there each loop iteration
	// squares again (doubling the bit-shift the matrix represents) and,
	// reading len2 one bit at a time, conditionally applies it -- so the
	// first applied operator shifts by one zero byte, the next by two zero
	// bytes, and so on, letting "shift by len2 zero bytes" land in
	// O(log len2) matrix operations instead of len2 byte updates.
	var even, odd [32]uint32

	odd[0] = crc32Poly
	row := uint32(1)
	for n := 1; n < 32; n++ {
		odd[n] = row
		row <<= 1
	}

	gf2MatrixSquare(&even, &odd)
	gf2MatrixSquare(&odd, &even)

	crc1Val := crc1
	n := len2

	for {
		gf2MatrixSquare(&even, &odd)
		if n&1 != 0 {
			crc1Val = gf2MatrixTimes(even[:], crc1Val)
		}
		n >>= 1
		if n == 0 {
			break
		}

		gf2MatrixSquare(&odd, &even)
		if n&1 != 0 {
			crc1Val = gf2MatrixTimes(odd[:], crc1Val)
		}
		n >>= 1
	}

	return crc1Val ^ crc2
}

// crc32Poly is the reversed (LSB-first) representation of the IEEE 802.3
// CRC-32 polynomial, matching hash/crc32.IEEE.
const crc32Poly = 0xEDB88320

func gf2MatrixTimes(mat []uint32, vec uint32) uint32 {
	var sum uint32
	for i := 0; vec != 0; i++ {
		if vec&1 != 0 {
			sum ^= mat[i]
		}
		vec >>= 1
	}
	return sum
}

func gf2MatrixSquare(square, mat *[32]uint32) {
	for n := 0; n < 32; n++ {
		square[n] = gf2MatrixTimes(mat[:], mat[n])
	}
}
