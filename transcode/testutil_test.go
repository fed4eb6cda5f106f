package transcode

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// encodeWAV writes 16-bit PCM channels through the go-audio encoder and returns the file bytes
func encodeWAV(t *testing.T, channels [][]float64, sampleRate int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	numChannels := len(channels)
	frames := len(channels[0])
	data := make([]int, frames*numChannels)
	for i := 0; i < frames; i++ {
		for c := 0; c < numChannels; c++ {
			v := math.Max(-1, math.Min(1, channels[c][i]))
			data[i*numChannels+c] = int(math.Round(v * 32767))
		}
	}

	encoder := wav.NewEncoder(f, sampleRate, 16, numChannels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, encoder.Write(buf))
	require.NoError(t, encoder.Close())
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

func sineWave(freq float64, sampleRate, n int, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// zeroCrossingFrequency estimates a pure tone's frequency from sign changes
func zeroCrossingFrequency(samples []float64, sampleRate int) float64 {
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0) != (samples[i] < 0) {
			crossings++
		}
	}
	return float64(crossings) / 2 / (float64(len(samples)) / float64(sampleRate))
}

// buildWAV assembles a mono WAV file by hand. With extensible set the fmt
// chunk is WAVE_FORMAT_EXTENSIBLE and formatTag goes into the sub-format GUID.
func buildWAV(formatTag uint16, bitDepth, sampleRate int, payload []byte, extensible bool) []byte {
	blockAlign := bitDepth / 8
	fmtTag := formatTag
	fmtSize := 16
	if extensible {
		fmtTag = 0xFFFE
		fmtSize = 40
	}

	var fmtChunk bytes.Buffer
	le := binary.LittleEndian
	_ = binary.Write(&fmtChunk, le, fmtTag)
	_ = binary.Write(&fmtChunk, le, uint16(1))
	_ = binary.Write(&fmtChunk, le, uint32(sampleRate))
	_ = binary.Write(&fmtChunk, le, uint32(sampleRate*blockAlign))
	_ = binary.Write(&fmtChunk, le, uint16(blockAlign))
	_ = binary.Write(&fmtChunk, le, uint16(bitDepth))
	if extensible {
		_ = binary.Write(&fmtChunk, le, uint16(22))       // cbSize
		_ = binary.Write(&fmtChunk, le, uint16(bitDepth)) // valid bits
		_ = binary.Write(&fmtChunk, le, uint32(0x4))      // front center
		guidTail := []byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}
		_ = binary.Write(&fmtChunk, le, formatTag)
		fmtChunk.Write(guidTail)
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, le, uint32(4+8+fmtSize+8+len(payload)))
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	_ = binary.Write(&out, le, uint32(fmtSize))
	out.Write(fmtChunk.Bytes())
	out.WriteString("data")
	_ = binary.Write(&out, le, uint32(len(payload)))
	out.Write(payload)
	return out.Bytes()
}

func float32Payload(samples []float64) []byte {
	out := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(float32(v)))
	}
	return out
}

func int16Payload(samples []float64) []byte {
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(math.Round(v*32767))))
	}
	return out
}
