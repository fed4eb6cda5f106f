package harmonic

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHPSS_HarmonicLength(t *testing.T) {
	signal := make([]float64, 5000)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 300 * float64(i) / 16000)
	}

	h := NewHPSS(DefaultHPSSParams())
	harmonic, err := h.Harmonic(signal, 16000)
	require.NoError(t, err)
	assert.Len(t, harmonic, len(signal))
}

func TestHPSS_SineIsMoreHarmonicThanNoise(t *testing.T) {
	const sr = 16000
	tone := make([]float64, sr)
	for i := range tone {
		tone[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/sr)
	}

	rng := rand.New(rand.NewSource(11))
	noise := make([]float64, sr)
	for i := range noise {
		noise[i] = rng.Float64()*2 - 1
	}

	h := NewHPSS(DefaultHPSSParams())
	toneHNR, err := h.HarmonicToNoiseDB(tone, sr)
	require.NoError(t, err)
	noiseHNR, err := h.HarmonicToNoiseDB(noise, sr)
	require.NoError(t, err)

	assert.Greater(t, toneHNR, 10.0)
	assert.Greater(t, toneHNR, noiseHNR+10)
}

func TestHPSS_SilenceIsMaximallyHarmonic(t *testing.T) {
	h := NewHPSS(DefaultHPSSParams())
	hnr, err := h.HarmonicToNoiseDB(make([]float64, 8000), 16000)
	require.NoError(t, err)
	assert.Equal(t, MaxHNR, hnr)
}

func TestHPSS_ClickIsMinimallyHarmonic(t *testing.T) {
	signal := make([]float64, 16000)
	signal[8000] = 0.8

	h := NewHPSS(DefaultHPSSParams())
	hnr, err := h.HarmonicToNoiseDB(signal, 16000)
	require.NoError(t, err)
	assert.Equal(t, MinHNR, hnr)
}

func TestHPSS_Mask(t *testing.T) {
	h := NewHPSS(HPSSParams{WindowSize: 8, HopSize: 2, KernelSize: 3, Power: 2, Margin: 1})

	// A stationary tone in bin 1 and an impulse frame
	magnitude := [][]float64{
		{0, 1, 0, 0, 0},
		{0, 1, 0, 0, 0},
		{5, 5, 5, 5, 5},
		{0, 1, 0, 0, 0},
	}
	mask := h.harmonicMask(magnitude)

	assert.Greater(t, mask[0][1], 0.9)
	assert.Less(t, mask[2][3], 0.1)
	assert.Equal(t, 0.0, mask[0][3])
	for _, row := range mask {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}
