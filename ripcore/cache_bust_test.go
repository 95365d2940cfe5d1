package ripcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSectorsRoundsUp(t *testing.T) {
	assert.Equal(t, 0, cacheSectors(0))
	assert.Equal(t, 0, cacheSectors(-5))

	// 2048 KiB = 2097152 bytes; 2097152/2352 = 891.6... -> 892.
	assert.Equal(t, 892, cacheSectors(2048))
}

func TestCacheBustLSNStaysWithinDisc(t *testing.T) {
	lsn := cacheBustLSN(1000, 2000, 10, 5000)
	assert.Equal(t, int32(2010), lsn)
}

func TestCacheBustLSNWrapsNearLeadout(t *testing.T) {
	lsn := cacheBustLSN(4900, 4950, 100, 5000)
	assert.Equal(t, int32(4800), lsn)
	assert.True(t, lsn >= 0)
}

func TestCacheBustLSNClampsAtZero(t *testing.T) {
	lsn := cacheBustLSN(10, 20, 100, 150)
	assert.Equal(t, int32(0), lsn)
}

type countingDiscReader struct {
	reads []int32
}

func (c *countingDiscReader) ReadSector(_ context.Context, lsn int32, _, _ bool, buf []byte) error {
	c.reads = append(c.reads, lsn)
	return nil
}

func TestBustCacheIssuesNSequentialReads(t *testing.T) {
	reader := &countingDiscReader{}
	bustCache(context.Background(), reader, 500, 5)

	require.Len(t, reader.reads, 5)
	for i, lsn := range reader.reads {
		assert.Equal(t, int32(500+i), lsn)
	}
}
