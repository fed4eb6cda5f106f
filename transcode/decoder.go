package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
	"github.com/RyanBlaney/vocalytics/logging"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int             `json:"target_sample_rate" mapstructure:"target_sample_rate"`
	MaxDuration      time.Duration   `json:"max_duration" mapstructure:"max_duration"`         // 0 = no limit
	ResampleQuality  ResampleQuality `json:"resample_quality" mapstructure:"resample_quality"` // "fast", "medium", "high"
	FFmpegPath       string          `json:"ffmpeg_path" mapstructure:"ffmpeg_path"`           // Path to ffmpeg binary
	FFprobePath      string          `json:"ffprobe_path" mapstructure:"ffprobe_path"`         // Path to ffprobe binary
	Timeout          time.Duration   `json:"timeout" mapstructure:"timeout"`                   // Timeout for ffmpeg operations
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 16000,
		MaxDuration:      0,
		ResampleQuality:  ResampleMedium,
		FFmpegPath:       "ffmpeg",  // Assume in PATH
		FFprobePath:      "ffprobe", // Assume in PATH
		Timeout:          30 * time.Second,
	}
}

// Decoder turns encoded audio into a mono Waveform at the target rate.
// WAV PCM is decoded natively; other formats go through ffmpeg.
type Decoder struct {
	config    *DecoderConfig
	resampler *Resampler
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// pcm is deinterleaved multichannel audio at its native rate
type pcm struct {
	channels   [][]float64
	sampleRate int
	format     string
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config:    config,
		resampler: NewResampler(config.ResampleQuality),
	}
}

// DecodeFile decodes an audio file
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*Waveform, error) {
	logger := logging.WithFields(logging.Fields{
		logging.FieldComponent: "audio_decoder",
		logging.FieldFunction:  "DecodeFile",
		"filename":             filename,
	})

	data, err := os.ReadFile(filename)
	if err != nil {
		logger.Error(err, "Failed to read audio file")
		return nil, NewAudioError(ErrCodeIO, "", "failed to read file", err)
	}

	return d.DecodeBytes(ctx, data)
}

// DecodeReader decodes audio from an io.Reader
func (d *Decoder) DecodeReader(ctx context.Context, reader io.Reader) (*Waveform, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewAudioError(ErrCodeIO, "", "failed to read input", err)
	}
	return d.DecodeBytes(ctx, data)
}

// DecodeBytes decodes an in-memory audio file. The container is detected from content.
func (d *Decoder) DecodeBytes(ctx context.Context, data []byte) (*Waveform, error) {
	logger := logging.WithFields(logging.Fields{
		logging.FieldComponent: "audio_decoder",
		logging.FieldFunction:  "DecodeBytes",
		"data_size":            len(data),
	})

	logger.Debug("Starting audio bytes decode")

	if len(data) == 0 {
		return nil, NewAudioError(ErrCodeEmpty, "", "empty audio data", nil)
	}

	kind, err := sniff(data)
	if err != nil {
		logger.Warn("Unrecognised audio content", logging.Fields{"error": err.Error()})
		return nil, err
	}

	var decoded *pcm
	if kind.Extension == "wav" {
		decoded, err = decodeWAV(data)
		if errors.Is(err, errNotPCM) {
			logger.Debug("WAV encoding not handled natively, handing over to ffmpeg")
			decoded, err = d.decodeWithFFmpeg(ctx, data, kind.Extension)
		}
	} else {
		decoded, err = d.decodeWithFFmpeg(ctx, data, kind.Extension)
	}
	if err != nil {
		logger.Error(err, "Decode failed", logging.Fields{"format": kind.Extension})
		return nil, err
	}

	mono := downmix(decoded.channels)
	if len(mono) == 0 {
		return nil, NewAudioError(ErrCodeNoSamples, decoded.format, "no audio samples decoded", nil)
	}

	resampled, err := d.resampler.Resample(mono, decoded.sampleRate, d.config.TargetSampleRate)
	if err != nil {
		return nil, NewAudioError(ErrCodeDecoding, decoded.format, "resampling failed", err)
	}

	if d.config.MaxDuration > 0 {
		limit := int(d.config.MaxDuration.Seconds() * float64(d.config.TargetSampleRate))
		if limit > 0 && len(resampled) > limit {
			resampled = resampled[:limit]
		}
	}

	if len(resampled) == 0 {
		return nil, NewAudioError(ErrCodeNoSamples, decoded.format, "no audio samples decoded", nil)
	}
	if !common.AllFinite(resampled) {
		return nil, NewAudioError(ErrCodeDecoding, decoded.format, "decoded samples are not finite", nil)
	}

	logger.Debug("Audio decode completed", logging.Fields{
		"input_format":       decoded.format,
		"input_sample_rate":  decoded.sampleRate,
		"input_channels":     len(decoded.channels),
		"output_samples":     len(resampled),
		"output_sample_rate": d.config.TargetSampleRate,
	})

	return NewWaveform(resampled, d.config.TargetSampleRate), nil
}

// sniff identifies the container from magic bytes
func sniff(data []byte) (types.Type, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return types.Type{}, NewAudioError(ErrCodeUnsupported, "", "unknown file type", err)
	}
	if !filetype.IsAudio(data) && !filetype.IsVideo(data) {
		return types.Type{}, NewAudioError(ErrCodeUnsupported, kind.Extension, "content is not audio", nil)
	}
	return kind, nil
}

var errNotPCM = errors.New("wav payload is neither integer PCM nor 32-bit float")

// WAVE format tags
const (
	wavFormatPCM        = 0x0001
	wavFormatIEEEFloat  = 0x0003
	wavFormatExtensible = 0xFFFE
)

// decodeWAV decodes integer PCM and 32-bit float WAV data with go-audio,
// including WAVE_FORMAT_EXTENSIBLE files carrying either sub-format
func decodeWAV(data []byte) (*pcm, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, NewAudioError(ErrCodeInvalidHeader, "wav", "invalid WAV header", decoder.Err())
	}

	format := decoder.WavAudioFormat
	if format == wavFormatExtensible {
		sub, ok := wavSubFormat(data)
		if !ok {
			return nil, errNotPCM
		}
		format = sub
	}

	isFloat := format == wavFormatIEEEFloat
	switch {
	case format == wavFormatPCM:
	case isFloat && decoder.BitDepth == 32:
	default:
		return nil, errNotPCM
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, NewAudioError(ErrCodeDecoding, "wav", "failed to read PCM data", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, NewAudioError(ErrCodeInvalidHeader, "wav", "missing format information", nil)
	}

	var samples []float64
	if isFloat {
		samples = float32BitsToFloat(buf)
	} else {
		samples = intBufferToFloat(buf)
	}

	return &pcm{
		channels:   deinterleave(samples, buf.Format.NumChannels),
		sampleRate: buf.Format.SampleRate,
		format:     "wav",
	}, nil
}

// wavSubFormat reads the format tag from the sub-format GUID of an
// extensible fmt chunk. go-audio skips the extension bytes.
func wavSubFormat(data []byte) (uint16, bool) {
	const (
		riffHeader   = 12
		chunkHeader  = 8
		subFormatOff = 24
	)

	for pos := riffHeader; pos+chunkHeader <= len(data); {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + chunkHeader
		if id == "fmt " {
			if size < subFormatOff+2 || body+subFormatOff+2 > len(data) {
				return 0, false
			}
			return binary.LittleEndian.Uint16(data[body+subFormatOff:]), true
		}
		// Chunks are padded to an even size
		pos = body + size + size%2
	}
	return 0, false
}

// float32BitsToFloat reinterprets 32-bit samples read as integers by go-audio
// as IEEE floats
func float32BitsToFloat(buf *audio.IntBuffer) []float64 {
	out := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float64(math.Float32frombits(uint32(int32(v))))
	}
	return out
}

// intBufferToFloat scales integer samples to [-1, 1) by their source bit depth
func intBufferToFloat(buf *audio.IntBuffer) []float64 {
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}

	out := make([]float64, len(buf.Data))
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		for i, v := range buf.Data {
			out[i] = float64(v-128) / 128.0
		}
		return out
	}

	scale := math.Pow(2, float64(bitDepth-1))
	for i, v := range buf.Data {
		out[i] = float64(v) / scale
	}
	return out
}

func deinterleave(samples []float64, numChannels int) [][]float64 {
	frames := len(samples) / numChannels
	channels := make([][]float64, numChannels)
	for c := 0; c < numChannels; c++ {
		channels[c] = make([]float64, frames)
		for i := 0; i < frames; i++ {
			channels[c][i] = samples[i*numChannels+c]
		}
	}
	return channels
}

// downmix averages all channels into one
func downmix(channels [][]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	if len(channels) == 1 {
		return channels[0]
	}

	n := len(channels[0])
	mono := make([]float64, n)
	for _, ch := range channels {
		for i := 0; i < min(n, len(ch)); i++ {
			mono[i] += ch[i]
		}
	}
	scale := 1.0 / float64(len(channels))
	for i := range mono {
		mono[i] *= scale
	}
	return mono
}

// decodeWithFFmpeg probes the input and decodes it at native rate and channel count
func (d *Decoder) decodeWithFFmpeg(ctx context.Context, data []byte, format string) (*pcm, error) {
	logger := logging.WithFields(logging.Fields{
		logging.FieldComponent: "audio_decoder",
		logging.FieldFunction:  "decodeWithFFmpeg",
		logging.FieldSource:    "ffmpeg",
		"format":               format,
	})

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	metadata, err := d.probeAudioMetadata(ctx, data)
	if err != nil {
		return nil, classifyExecError(err, d.config.FFprobePath, format, "ffprobe failed")
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
	})

	args := d.buildFFmpegArgs(metadata)
	args = append([]string{"-i", "pipe:0"}, args...) // Input from stdin
	args = append(args, "pipe:1")                    // Output to stdout

	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)
	cmd.Stdin = bytes.NewReader(data)

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	output, err := cmd.Output()
	if err != nil {
		return nil, classifyExecError(err, d.config.FFmpegPath, format, "ffmpeg decode failed")
	}

	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, NewAudioError(ErrCodeNoSamples, format, "no audio samples decoded", nil)
	}

	return &pcm{
		channels:   deinterleave(samples, metadata.Channels),
		sampleRate: metadata.SampleRate,
		format:     format,
	}, nil
}

// classifyExecError maps subprocess failures onto audio errors
func classifyExecError(err error, tool, format, message string) error {
	var audioErr *AudioError
	if errors.As(err, &audioErr) {
		return audioErr
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return NewAudioError(ErrCodeDecoderMissing, format, fmt.Sprintf("%s not found", tool), err)
	}
	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		return NewAudioError(ErrCodeDecoding, format,
			fmt.Sprintf("%s, stderr: %s", message, strings.TrimSpace(string(exitError.Stderr))), err)
	}
	return NewAudioError(ErrCodeDecoding, format, message, err)
}

// probeAudioMetadata uses ffprobe to get input audio information from bytes
func (d *Decoder) probeAudioMetadata(ctx context.Context, data []byte) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-select_streams", "a:0", // First audio stream only
		"pipe:0", // Input from stdin
	}

	cmd := exec.CommandContext(ctx, d.config.FFprobePath, args...)
	cmd.Stdin = bytes.NewReader(data)

	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, NewAudioError(ErrCodeDecoding, "", "failed to parse ffprobe output", err)
	}

	if len(probe.Streams) == 0 {
		return nil, NewAudioError(ErrCodeNoSamples, "", "no audio streams found", nil)
	}

	stream := probe.Streams[0]

	if stream.CodecType != "audio" {
		return nil, NewAudioError(ErrCodeUnsupported, stream.CodecName,
			fmt.Sprintf("stream is not audio type: %s", stream.CodecType), nil)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return nil, NewAudioError(ErrCodeInvalidHeader, stream.CodecName, "missing sample rate", err)
	}

	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil {
		duration = 0
	}

	bitrate, err := strconv.Atoi(stream.BitRate)
	if err != nil {
		bitrate = 0
	}

	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, NewAudioError(ErrCodeInvalidHeader, stream.CodecName,
			fmt.Sprintf("invalid channel count: %d", stream.Channels), nil)
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// buildFFmpegArgs keeps the native rate and channel layout; resampling and
// downmixing happen in Go so every format goes through the same path
func (d *Decoder) buildFFmpegArgs(metadata *AudioMetadata) []string {
	args := []string{
		"-map", "0:a:0",
		"-vn",         // No video
		"-f", "f64le", // Output raw float64 little-endian
		"-ac", strconv.Itoa(metadata.Channels),
		"-ar", strconv.Itoa(metadata.SampleRate),
	}

	// Stop early when only a prefix is needed
	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", d.config.MaxDuration.Seconds()))
	}

	// Suppress ffmpeg output
	args = append(args, "-v", "error")

	return args
}

// bytesToFloat64 converts raw float64 bytes to []float64
func bytesToFloat64(data []byte) []float64 {
	if len(data)%8 != 0 {
		// Trim to multiple of 8 bytes
		data = data[:len(data)-(len(data)%8)]
	}

	if len(data) == 0 {
		return nil
	}

	sampleCount := len(data) / 8
	samples := make([]float64, sampleCount)

	for i := 0; i < sampleCount; i++ {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}

	return samples
}

// ValidateConfig validates the decoder configuration
func (d *Decoder) ValidateConfig() error {
	if d.config.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive: %d", d.config.TargetSampleRate)
	}

	if d.config.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %v", d.config.Timeout)
	}

	if d.config.MaxDuration < 0 {
		return fmt.Errorf("max duration must not be negative: %v", d.config.MaxDuration)
	}

	return nil
}

// CheckFFmpegAvailability checks if ffmpeg and ffprobe are available
func (d *Decoder) CheckFFmpegAvailability() error {
	if err := exec.Command(d.config.FFmpegPath, "-version").Run(); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", d.config.FFmpegPath, err)
	}

	if err := exec.Command(d.config.FFprobePath, "-version").Run(); err != nil {
		return fmt.Errorf("ffprobe not found at %s: %w", d.config.FFprobePath, err)
	}

	return nil
}

// GetSupportedFormats returns the containers this decoder accepts. WAV PCM is
// always available; the rest need ffmpeg.
func (d *Decoder) GetSupportedFormats() []string {
	formats := []string{"wav"}
	if d.CheckFFmpegAvailability() != nil {
		return formats
	}
	return append(formats,
		"mp3", "flac", "ogg", "opus", "m4a", "aac", "aiff", "amr", "webm", "mp4",
	)
}
