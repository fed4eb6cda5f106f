package analysis

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

const testRate = 16000

// encodeWAV writes mono 16-bit PCM through the go-audio encoder and returns the file bytes
func encodeWAV(t *testing.T, samples []float64, sampleRate int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, v)) * 32767))
	}

	encoder := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	require.NoError(t, encoder.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, encoder.Close())
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func whiteNoise(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * 0.5
	}
	return out
}
