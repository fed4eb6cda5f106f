package transcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResample_SameRateCopies(t *testing.T) {
	in := []float64{0.1, 0.2, 0.3}
	out, err := NewResampler(ResampleMedium).Resample(in, 16000, 16000)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	out[0] = 9
	assert.Equal(t, 0.1, in[0])
}

func TestResample_InvalidRates(t *testing.T) {
	_, err := NewResampler(ResampleFast).Resample([]float64{1}, 0, 16000)
	assert.Error(t, err)
}

func TestResample_PreservesDC(t *testing.T) {
	for _, quality := range []ResampleQuality{ResampleFast, ResampleMedium, ResampleHigh} {
		t.Run(string(quality), func(t *testing.T) {
			in := make([]float64, 4410)
			for i := range in {
				in[i] = 1
			}
			out, err := NewResampler(quality).Resample(in, 44100, 16000)
			require.NoError(t, err)
			assert.Len(t, out, 1600)

			for _, v := range out[200 : len(out)-200] {
				assert.InDelta(t, 1.0, v, 0.01)
			}
		})
	}
}

func TestResample_Upsample(t *testing.T) {
	in := sineWave(300, 8000, 8000, 0.5)
	out, err := NewResampler(ResampleMedium).Resample(in, 8000, 16000)
	require.NoError(t, err)
	require.Len(t, out, 16000)

	interior := out[500 : len(out)-500]
	assert.InDelta(t, 300.0, zeroCrossingFrequency(interior, 16000), 2.0)

	expected := sineWave(300, 16000, 16000, 0.5)
	for i := 500; i < len(out)-500; i += 101 {
		assert.InDelta(t, expected[i], out[i], 0.01)
	}
}
