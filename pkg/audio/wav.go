// Package audio holds the small amount of audio plumbing the pipeline needs:
// wrapping raw PCM sample buffers in a WAV container so they can be submitted
// to the recognition service as a regular audio file.
//
// The pipeline works exclusively with 16-bit signed little-endian PCM, mono,
// at [SampleRate] Hz. Telephony capture and playback conversion happens
// outside this module.
package audio

import "encoding/binary"

const (
	// SampleRate is the fixed sample rate of all PCM buffers flowing through
	// the pipeline, in Hz.
	SampleRate = 16000

	// Channels is the fixed channel count. Mono, always.
	Channels = 1

	// bitsPerSample is fixed at 16 for signed little-endian PCM.
	bitsPerSample = 16

	// wavHeaderSize is the byte length of a canonical RIFF/WAVE header with a
	// single PCM fmt chunk.
	wavHeaderSize = 44
)

// EncodeWAV wraps pcm in a minimal RIFF/WAVE container describing 16-bit
// little-endian PCM with the given sample rate and channel count. The input
// buffer is copied, not aliased.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	out := make([]byte, wavHeaderSize+len(pcm))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // audio format: PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[44:], pcm)

	return out
}

// Duration returns the playback length in milliseconds of a 16-bit PCM
// buffer with the given sample rate and channel count. Returns 0 for
// degenerate arguments.
func Duration(pcmLen, sampleRate, channels int) int {
	blockAlign := channels * bitsPerSample / 8
	if blockAlign <= 0 || sampleRate <= 0 {
		return 0
	}
	return pcmLen * 1000 / (sampleRate * blockAlign)
}
