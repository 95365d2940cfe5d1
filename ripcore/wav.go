package ripcore

import (
	"encoding/binary"
	"io"
)

const (
	wavChannels      = 2
	wavSampleRate    = 44100
	wavBitsPerSample = 16
)

// WavHeader builds the 44-byte RIFF/WAV header for nbytes of following PCM
// data, per §6's extraction format (channels=2, sample_rate=44100,
// bits_per_sample=16). Grounded directly on rabidaudio-audiocd's
// CreateWavHeader in example_rip_test.go, generalized from that package's
// fixed constants to this one's.
func WavHeader(nbytes uint32) []byte {
	b := make([]byte, 44)

	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:8], nbytes+44-8)
	copy(b[8:12], "WAVE")
	copy(b[12:16], "fmt ")
	binary.LittleEndian.PutUint32(b[16:20], 16) // block size
	binary.LittleEndian.PutUint16(b[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(b[22:24], wavChannels)
	binary.LittleEndian.PutUint32(b[24:28], wavSampleRate)
	binary.LittleEndian.PutUint32(b[28:32], wavSampleRate*wavChannels*(wavBitsPerSample/8))
	binary.LittleEndian.PutUint16(b[32:34], wavChannels*(wavBitsPerSample/8))
	binary.LittleEndian.PutUint16(b[34:36], wavBitsPerSample)
	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:44], nbytes)
	return b
}

// ExtractWAV writes the offset-corrected track window from state as a
// complete WAV file to w, per §6: the emitted sample count always equals
// the track's nominal length (588*(end_lsn-start_lsn)); the configured
// offset only shifts which padded-vector samples are read, never how many
// are emitted.
func ExtractWAV(w io.Writer, state *RipState, offset int16) error {
	samples, err := state.extractWindow(offset)
	if err != nil {
		return err
	}

	nbytes := uint32(len(samples)) * BytesPerSample
	if _, err := w.Write(WavHeader(nbytes)); err != nil {
		return &RipError{Kind: ErrWriteFailed, cause: err}
	}

	buf := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		copy(buf[i*BytesPerSample:], s[:])
	}
	if _, err := w.Write(buf); err != nil {
		return &RipError{Kind: ErrWriteFailed, cause: err}
	}
	return nil
}
