package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/grafov/m3u8"

	"github.com/hszk-dev/hlsladder/internal/infrastructure/metrics"
)

// stderrTailLines bounds how much encoder output an EncodeError carries.
const stderrTailLines = 20

// FFmpegConfig holds configuration for the FFmpeg transcoder.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// VideoCodec is the video codec to use.
	// Default: libx264
	VideoCodec string

	// VideoPreset controls the encoding speed/quality tradeoff.
	// Options: ultrafast, superfast, veryfast, faster, fast, medium, slow, slower, veryslow
	// Default: fast
	VideoPreset string

	// KeyframeInterval is the forced keyframe spacing in seconds.
	// Default: 2
	KeyframeInterval int

	// AudioCodec is the audio codec to use.
	// Default: aac
	AudioCodec string

	// AudioSampleRate is the output audio sample rate in Hz.
	// Default: 48000
	AudioSampleRate int

	// AudioBitrateKbps is the output audio bitrate.
	// Default: 128
	AudioBitrateKbps int

	// HLSSegmentDuration is the target duration of each HLS segment in seconds.
	// Should be a multiple of KeyframeInterval so every segment starts on a keyframe.
	// Default: 6
	HLSSegmentDuration int

	// HLSPlaylistType sets the playlist type.
	// "vod" produces a closed playlist ending in EXT-X-ENDLIST.
	// Default: vod
	HLSPlaylistType string
}

// DefaultFFmpegConfig returns an FFmpegConfig with production-ready defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath:         "ffmpeg",
		VideoCodec:         "libx264",
		VideoPreset:        "fast",
		KeyframeInterval:   2,
		AudioCodec:         "aac",
		AudioSampleRate:    48000,
		AudioBitrateKbps:   128,
		HLSSegmentDuration: 6,
		HLSPlaylistType:    "vod",
	}
}

// FFmpegTranscoder implements Transcoder using FFmpeg CLI.
type FFmpegTranscoder struct {
	config FFmpegConfig
	runner CommandRunner
}

// Compile-time verification that FFmpegTranscoder implements Transcoder.
var _ Transcoder = (*FFmpegTranscoder)(nil)

// NewFFmpegTranscoder creates a new FFmpeg-based transcoder.
// A nil runner uses ExecRunner.
func NewFFmpegTranscoder(cfg FFmpegConfig, runner CommandRunner) *FFmpegTranscoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &FFmpegTranscoder{
		config: cfg,
		runner: runner,
	}
}

// Config returns the effective encoder settings.
func (t *FFmpegTranscoder) Config() FFmpegConfig {
	return t.config
}

// EncodeLadder converts the input video into one HLS rendition per profile.
// Profiles are processed strictly in order; the first failure aborts the ladder.
func (t *FFmpegTranscoder) EncodeLadder(ctx context.Context, inputPath, outputDir string, profiles []Profile) ([]RenditionOutput, error) {
	if err := t.validateInput(inputPath); err != nil {
		return nil, err
	}

	if err := t.validateOutputDir(outputDir); err != nil {
		return nil, err
	}

	if len(profiles) == 0 {
		return nil, fmt.Errorf("at least one profile is required")
	}

	outputs := make([]RenditionOutput, 0, len(profiles))

	// One encoder process at a time; a failed rung stops the rest.
	for _, profile := range profiles {
		start := time.Now()
		output, err := t.encodeProfile(ctx, inputPath, outputDir, profile)
		metrics.EncodeDuration.WithLabelValues(profile.Name).Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, err
		}

		outputs = append(outputs, *output)
	}

	return outputs, nil
}

// encodeProfile runs one encoder invocation and verifies what it produced.
func (t *FFmpegTranscoder) encodeProfile(ctx context.Context, inputPath, outputDir string, profile Profile) (*RenditionOutput, error) {
	playlistPath := filepath.Join(outputDir, profile.PlaylistName())
	segmentPattern := filepath.Join(outputDir, profile.SegmentPattern())

	args := t.buildProfileArgs(inputPath, playlistPath, segmentPattern, profile)

	stderr, err := t.runner.Run(ctx, t.config.FFmpegPath, args)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("transcoding cancelled: %w", ctx.Err())
		} else {
			err = fmt.Errorf("ffmpeg execution failed: %w", err)
		}
		return nil, &EncodeError{
			Profile: profile.Name,
			Stderr:  tailLines(stderr, stderrTailLines),
			Err:     err,
		}
	}

	segments, err := t.collectSegments(playlistPath)
	if err != nil {
		return nil, &EncodeError{Profile: profile.Name, Err: err}
	}

	return &RenditionOutput{
		Profile:      profile,
		PlaylistPath: playlistPath,
		SegmentPaths: segments,
	}, nil
}

// validateInput checks if the input file exists and is readable.
func (t *FFmpegTranscoder) validateInput(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", inputPath)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected a file: %s", inputPath)
	}

	return nil
}

// validateOutputDir checks if the output directory exists.
func (t *FFmpegTranscoder) validateOutputDir(outputDir string) error {
	info, err := os.Stat(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", outputDir)
		}
		return fmt.Errorf("failed to access output directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory: %s", outputDir)
	}

	return nil
}

// buildProfileArgs constructs FFmpeg arguments for a specific profile.
func (t *FFmpegTranscoder) buildProfileArgs(inputPath, playlistPath, segmentPattern string, profile Profile) []string {
	return []string{
		"-hide_banner",
		"-i", inputPath,
		"-vf", scaleFilter(profile),
		"-c:v", t.config.VideoCodec,
		"-preset", t.config.VideoPreset,
		"-b:v", kbps(profile.BitrateKbps),
		"-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%d)", t.config.KeyframeInterval),
		"-sc_threshold", "0",
		"-c:a", t.config.AudioCodec,
		"-ar", strconv.Itoa(t.config.AudioSampleRate),
		"-b:a", kbps(t.config.AudioBitrateKbps),
		"-f", "hls",
		"-hls_time", strconv.Itoa(t.config.HLSSegmentDuration),
		"-hls_list_size", "0",
		"-hls_playlist_type", t.config.HLSPlaylistType,
		"-hls_segment_filename", segmentPattern,
		"-y",
		playlistPath,
	}
}

// scaleFilter fits the frame inside the profile box without upscaling, then pads
// each dimension up to the next even number as required by 4:2:0 H.264.
func scaleFilter(profile Profile) string {
	return fmt.Sprintf(
		"scale=w='min(%d,iw)':h='min(%d,ih)':force_original_aspect_ratio=decrease,"+
			"pad=w=ceil(iw/2)*2:h=ceil(ih/2)*2",
		profile.Width, profile.Height,
	)
}

func kbps(v int) string {
	return strconv.Itoa(v) + "k"
}

// collectSegments parses a rendition playlist and returns the local paths of the
// segments it references. The playlist must be a closed media playlist whose
// segments all exist next to it.
func (t *FFmpegTranscoder) collectSegments(playlistPath string) ([]string, error) {
	f, err := os.Open(playlistPath)
	if err != nil {
		return nil, fmt.Errorf("open rendition playlist: %w", err)
	}
	defer func() { _ = f.Close() }()

	playlist, listType, err := m3u8.DecodeFrom(f, false)
	if err != nil {
		return nil, fmt.Errorf("parse rendition playlist: %w", err)
	}
	if listType != m3u8.MEDIA {
		return nil, errors.New("rendition playlist is not a media playlist")
	}

	media := playlist.(*m3u8.MediaPlaylist)
	if !media.Closed {
		return nil, errors.New("rendition playlist has no end marker")
	}

	dir := filepath.Dir(playlistPath)
	var segments []string
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		path := filepath.Join(dir, filepath.Base(seg.URI))
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("segment %s: %w", seg.URI, err)
		}
		segments = append(segments, path)
	}

	if len(segments) == 0 {
		return nil, errors.New("no segments generated")
	}

	return segments, nil
}
