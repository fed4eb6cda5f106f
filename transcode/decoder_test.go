package transcode

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertUnreadable(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadableAudio)

	var audioErr *AudioError
	require.True(t, errors.As(err, &audioErr))
	if code != "" {
		assert.Equal(t, code, audioErr.Code)
	}
}

func TestDecodeBytes_WAVAtTargetRate(t *testing.T) {
	signal := sineWave(220, 16000, 16000, 0.5)
	data := encodeWAV(t, [][]float64{signal}, 16000)

	waveform, err := NewDecoder(nil).DecodeBytes(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 16000, waveform.SampleRate)
	require.Equal(t, len(signal), waveform.Len())
	assert.InDelta(t, 1.0, waveform.Seconds(), 1e-9)
	assert.Equal(t, time.Second, waveform.Duration())

	samples := waveform.Float64()
	for i := 0; i < len(signal); i += 97 {
		assert.InDelta(t, signal[i], samples[i], 1e-4)
	}
}

func TestDecodeBytes_StereoIsAveraged(t *testing.T) {
	left := make([]float64, 4000)
	right := make([]float64, 4000)
	for i := range left {
		left[i] = 0.4
		right[i] = 0.2
	}
	data := encodeWAV(t, [][]float64{left, right}, 16000)

	waveform, err := NewDecoder(nil).DecodeBytes(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, 4000, waveform.Len())

	for _, v := range waveform.Samples {
		assert.InDelta(t, 0.3, float64(v), 1e-3)
	}
}

func TestDecodeBytes_ResampleRoundTrip(t *testing.T) {
	const nativeRate = 44100
	signal := sineWave(440, nativeRate, nativeRate*2, 0.5)
	data := encodeWAV(t, [][]float64{signal}, nativeRate)

	waveform, err := NewDecoder(nil).DecodeBytes(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 16000, waveform.SampleRate)
	assert.Equal(t, (len(signal)*16000+nativeRate-1)/nativeRate, waveform.Len())
	assert.InDelta(t, 2.0, waveform.Seconds(), 1e-3)

	samples := waveform.Float64()
	interior := samples[1000 : len(samples)-1000]
	assert.InDelta(t, 440.0, zeroCrossingFrequency(interior, 16000), 2.0)

	peak := 0.0
	for _, v := range interior {
		peak = math.Max(peak, math.Abs(v))
	}
	assert.InDelta(t, 0.5, peak, 0.02)
}

func TestDecodeBytes_MaxDuration(t *testing.T) {
	data := encodeWAV(t, [][]float64{sineWave(300, 16000, 32000, 0.3)}, 16000)

	cfg := DefaultDecoderConfig()
	cfg.MaxDuration = 500 * time.Millisecond
	waveform, err := NewDecoder(cfg).DecodeBytes(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 8000, waveform.Len())
}

func TestDecodeBytes_Errors(t *testing.T) {
	decoder := NewDecoder(nil)
	ctx := context.Background()

	_, err := decoder.DecodeBytes(ctx, nil)
	assertUnreadable(t, err, ErrCodeEmpty)

	_, err = decoder.DecodeBytes(ctx, []byte("definitely not audio at all"))
	assertUnreadable(t, err, ErrCodeUnsupported)

	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	_, err = decoder.DecodeBytes(ctx, png)
	assertUnreadable(t, err, ErrCodeUnsupported)

	// RIFF/WAVE magic with a truncated header
	truncated := []byte{'R', 'I', 'F', 'F', 0x24, 0, 0, 0, 'W', 'A', 'V', 'E', 'f', 'm', 't', ' '}
	_, err = decoder.DecodeBytes(ctx, truncated)
	assertUnreadable(t, err, "")
}

func TestDecodeBytes_MissingFFmpeg(t *testing.T) {
	cfg := DefaultDecoderConfig()
	cfg.FFmpegPath = filepath.Join(t.TempDir(), "no-ffmpeg")
	cfg.FFprobePath = filepath.Join(t.TempDir(), "no-ffprobe")

	// ID3-tagged MP3 header
	mp3 := append([]byte{'I', 'D', '3', 0x03, 0, 0, 0, 0, 0, 0}, make([]byte, 64)...)
	_, err := NewDecoder(cfg).DecodeBytes(context.Background(), mp3)
	assertUnreadable(t, err, ErrCodeDecoderMissing)
}

func TestDecodeFile(t *testing.T) {
	data := encodeWAV(t, [][]float64{sineWave(200, 8000, 8000, 0.5)}, 8000)
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	waveform, err := NewDecoder(nil).DecodeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 16000, waveform.Len())

	_, err = NewDecoder(nil).DecodeFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assertUnreadable(t, err, ErrCodeIO)
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, NewDecoder(nil).ValidateConfig())

	cfg := DefaultDecoderConfig()
	cfg.TargetSampleRate = 0
	assert.Error(t, NewDecoder(cfg).ValidateConfig())
}

func TestSupportedFormatsIncludeWAV(t *testing.T) {
	cfg := DefaultDecoderConfig()
	cfg.FFmpegPath = filepath.Join(t.TempDir(), "no-ffmpeg")
	assert.Equal(t, []string{"wav"}, NewDecoder(cfg).GetSupportedFormats())
}

func TestAudioErrorMessage(t *testing.T) {
	cause := errors.New("boom")
	err := NewAudioError(ErrCodeDecoding, "mp3", "ffmpeg decode failed", cause)
	assert.Equal(t, "DECODING_FAILED: ffmpeg decode failed (mp3): boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrUnreadableAudio)
}

func TestDecodeBytes_WAVVariantsDecodeNatively(t *testing.T) {
	cfg := DefaultDecoderConfig()
	cfg.FFmpegPath = filepath.Join(t.TempDir(), "no-ffmpeg")
	cfg.FFprobePath = filepath.Join(t.TempDir(), "no-ffprobe")
	decoder := NewDecoder(cfg)

	signal := sineWave(220, 16000, 8000, 0.5)
	cases := map[string]struct {
		data      []byte
		tolerance float64
	}{
		"float32":            {buildWAV(wavFormatIEEEFloat, 32, 16000, float32Payload(signal), false), 1e-6},
		"extensible float32": {buildWAV(wavFormatIEEEFloat, 32, 16000, float32Payload(signal), true), 1e-6},
		"extensible pcm16":   {buildWAV(wavFormatPCM, 16, 16000, int16Payload(signal), true), 1e-4},
	}

	for name, tc := range cases {
		waveform, err := decoder.DecodeBytes(context.Background(), tc.data)
		require.NoError(t, err, name)
		require.Equal(t, len(signal), waveform.Len(), name)

		samples := waveform.Float64()
		for i := 0; i < len(signal); i += 89 {
			assert.InDelta(t, signal[i], samples[i], tc.tolerance, name)
		}
	}
}

func TestDecodeBytes_UnhandledWAVGoesToFFmpeg(t *testing.T) {
	cfg := DefaultDecoderConfig()
	cfg.FFmpegPath = filepath.Join(t.TempDir(), "no-ffmpeg")
	cfg.FFprobePath = filepath.Join(t.TempDir(), "no-ffprobe")

	// 64-bit float is not read by go-audio
	data := buildWAV(wavFormatIEEEFloat, 64, 16000, make([]byte, 8*1600), false)
	_, err := NewDecoder(cfg).DecodeBytes(context.Background(), data)
	assertUnreadable(t, err, ErrCodeDecoderMissing)
}

func TestWavSubFormat(t *testing.T) {
	sub, ok := wavSubFormat(buildWAV(wavFormatIEEEFloat, 32, 8000, make([]byte, 64), true))
	require.True(t, ok)
	assert.Equal(t, uint16(wavFormatIEEEFloat), sub)

	_, ok = wavSubFormat(buildWAV(wavFormatPCM, 16, 8000, make([]byte, 64), false))
	assert.False(t, ok)
}
