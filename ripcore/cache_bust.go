package ripcore

import "context"

// cacheSectors converts a drive's cache size in KiB to the number of
// sectors that must be read to flush it, per §4.2: ceil(KiB*1024/2352).
func cacheSectors(cacheKiB int) int {
	if cacheKiB <= 0 {
		return 0
	}
	bytes := int64(cacheKiB) * 1024
	return int(ceilDiv(bytes, BytesPerSector))
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// cacheBustLSN picks a starting LSN for a burst of n cache-busting reads.
// The burst normally starts n sectors past windowEnd; when
// windowEnd+2n >= leadoutSector it starts n sectors before windowStart
// instead, clamped to LSN 0. After that clamp the burst can lie closer than
// n sectors to the window, or overlap it.
func cacheBustLSN(windowStart, windowEnd int32, n int, leadoutSector int32) int32 {
	if n <= 0 {
		return 0
	}
	target := windowEnd + int32(n)
	if target+int32(n) >= leadoutSector {
		target = windowStart - int32(n)
		if target < 0 {
			target = 0
		}
	}
	return target
}

// bustCache issues n synchronous, result-discarding reads starting at lsn,
// to evict the drive's internal read-ahead buffer before the real read
// that follows (§4.2). Reads that themselves error are ignored -- the
// point is only to perturb the cache, not to collect data.
func bustCache(ctx context.Context, reader DiscReader, lsn int32, n int) {
	buf := make([]byte, BytesPerSector)
	for i := 0; i < n; i++ {
		_ = reader.ReadSector(ctx, lsn+int32(i), false, false, buf)
	}
}
