package ripcore

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWavHeaderFields(t *testing.T) {
	h := WavHeader(1000)
	require.Len(t, h, 44)

	assert.Equal(t, "RIFF", string(h[0:4]))
	assert.Equal(t, uint32(1000+44-8), binary.LittleEndian.Uint32(h[4:8]))
	assert.Equal(t, "WAVE", string(h[8:12]))
	assert.Equal(t, "fmt ", string(h[12:16]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(h[22:24]))
	assert.Equal(t, uint32(44100), binary.LittleEndian.Uint32(h[24:28]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(h[34:36]))
	assert.Equal(t, "data", string(h[36:40]))
	assert.Equal(t, uint32(1000), binary.LittleEndian.Uint32(h[40:44]))
}

func TestExtractWAVWritesHeaderAndPCM(t *testing.T) {
	toc, track := smallTOC()
	state := NewRipState(toc, track)

	values := make([]Sample, SamplesPerSector)
	bad := make([]bool, SamplesPerSector)
	for i := range values {
		values[i] = Sample{byte(i), 0, 0, 0}
	}
	for lsn := track.StartSector; lsn < track.EndSector(); lsn++ {
		state.applySector(lsn, 0, values, bad, true)
	}

	var buf bytes.Buffer
	require.NoError(t, ExtractWAV(&buf, &state, 0))

	want := int(track.LengthSectors) * SamplesPerSector * BytesPerSample
	assert.Equal(t, 44+want, buf.Len())
	assert.Equal(t, "RIFF", string(buf.Bytes()[0:4]))
}
