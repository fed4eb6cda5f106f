package cmd

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeToneWAV(t *testing.T) string {
	t.Helper()

	const rate = 16000
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	data := make([]int, rate)
	for i := range data {
		data[i] = int(math.Round(0.5 * 32767 * math.Sin(2*math.Pi*220*float64(i)/rate)))
	}

	encoder := wav.NewEncoder(f, rate, 16, 1, 1)
	require.NoError(t, encoder.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, encoder.Close())
	require.NoError(t, f.Close())
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyzeCommand_JSON(t *testing.T) {
	out, err := execute(t, "analyze", "-o", "json", "--no-precise", writeToneWAV(t))
	require.NoError(t, err)

	var decoded struct {
		Summary map[string]any `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))

	assert.InDelta(t, 220.0, decoded.Summary["pitch_mean"], 5.0)
	assert.Nil(t, decoded.Summary["jitter"])
	assert.NotNil(t, decoded.Summary["hnr_db"])
}

func TestAnalyzeCommand_Stdin(t *testing.T) {
	data, err := os.ReadFile(writeToneWAV(t))
	require.NoError(t, err)

	rootCmd.SetIn(bytes.NewReader(data))
	defer rootCmd.SetIn(nil)

	out, err := execute(t, "analyze", "-o", "json", "--no-precise", "-")
	require.NoError(t, err)

	var decoded struct {
		File    string         `json:"file"`
		Summary map[string]any `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "-", decoded.File)
	assert.InDelta(t, 220.0, decoded.Summary["pitch_mean"], 5.0)
}

func TestAnalyzeCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "analyze", "-o", "json", filepath.Join(t.TempDir(), "absent.wav"))
	assert.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("VOCALYTICS_PITCH_MAX_FREQ", "420")

	out, err := execute(t, "config", "-o", "yaml")
	require.NoError(t, err)
	assert.Regexp(t, `max_freq: "?420"?`, out)
	assert.Contains(t, out, "target_sample_rate: 16000")
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "Energy Mean", formatLabel("energy_mean"))
	assert.Equal(t, "Hnr Db", formatLabel("hnr_db"))
	assert.Equal(t, "n/a", formatValue(nil))
	assert.Equal(t, "0.5000", formatValue(0.5))
}
