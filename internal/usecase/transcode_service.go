package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/hlsladder/internal/domain/model"
	"github.com/hszk-dev/hlsladder/internal/domain/repository"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/metrics"
	"github.com/hszk-dev/hlsladder/internal/transcoder"
)

const (
	inputFileName = "input"
	outputDirName = "output"

	contentTypePlaylist = "application/vnd.apple.mpegurl"
	contentTypeSegment  = "video/mp2t"
	contentTypeDefault  = "application/octet-stream"
)

// TranscodeServiceConfig holds configuration for TranscodeService.
type TranscodeServiceConfig struct {
	// TempDir is the base directory for per-invocation working sets.
	TempDir string
	// PublicBaseURL prefixes the master playlist URL in completion messages.
	PublicBaseURL string
	// OutputBucket receives the rendition set. Empty means the source bucket.
	OutputBucket string
	// Ladder is the ordered list of renditions to produce.
	Ladder []transcoder.Profile
}

// DefaultTranscodeServiceConfig returns the default configuration.
func DefaultTranscodeServiceConfig() TranscodeServiceConfig {
	return TranscodeServiceConfig{
		TempDir:       os.TempDir(),
		PublicBaseURL: "http://localhost:9000/media/hls",
		Ladder:        transcoder.DefaultLadder(),
	}
}

// TranscodeService runs the transcode pipeline for one uploaded source.
type TranscodeService interface {
	// Process fetches, validates, encodes, publishes and announces src.
	// It returns the published completion message, or a *StageError describing
	// the first stage that failed. The local working set is removed either way.
	Process(ctx context.Context, src model.SourceReference) (*model.Completion, error)
}

type transcodeService struct {
	storage    repository.ObjectStorage
	notifier   repository.Notifier
	transcoder transcoder.Transcoder

	tempDir       string
	publicBaseURL string
	outputBucket  string
	ladder        []transcoder.Profile
}

// NewTranscodeService creates a new TranscodeService instance.
func NewTranscodeService(
	storage repository.ObjectStorage,
	notifier repository.Notifier,
	tc transcoder.Transcoder,
	cfg TranscodeServiceConfig,
) TranscodeService {
	ladder := cfg.Ladder
	if len(ladder) == 0 {
		ladder = transcoder.DefaultLadder()
	}
	return &transcodeService{
		storage:       storage,
		notifier:      notifier,
		transcoder:    tc,
		tempDir:       cfg.TempDir,
		publicBaseURL: cfg.PublicBaseURL,
		outputBucket:  cfg.OutputBucket,
		ladder:        ladder,
	}
}

// Process runs Fetch, Validate, Encode, Synthesize, Upload and Notify in order,
// stopping at the first failure. Cleanup always runs last.
func (s *transcodeService) Process(ctx context.Context, src model.SourceReference) (completion *model.Completion, err error) {
	log := slog.With("bucket", src.Bucket, "key", src.RawKey)
	start := time.Now()

	defer func() {
		if err != nil {
			metrics.PipelineRunsTotal.WithLabelValues(metrics.OutcomeFailure, string(StageOf(err))).Inc()
			log.Error("pipeline failed", "error", err, "duration", time.Since(start))
			return
		}
		metrics.PipelineRunsTotal.WithLabelValues(metrics.OutcomeSuccess, metrics.StageNone).Inc()
		log.Info("pipeline completed", "master_url", completion.MasterURL, "duration", time.Since(start))
	}()

	workDir, err := s.createWorkDir()
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	defer s.cleanup(log, workDir)

	inputPath := filepath.Join(workDir, inputFileName)
	outputDir := filepath.Join(workDir, outputDirName)

	if err := s.runStage(ctx, log, StageFetch, func(ctx context.Context) error {
		return s.fetch(ctx, src, inputPath)
	}); err != nil {
		return nil, err
	}

	var key model.SourceKey
	if err := s.runStage(ctx, log, StageValidate, func(context.Context) error {
		var perr error
		key, perr = model.ParseSourceKey(src.RawKey)
		return perr
	}); err != nil {
		return nil, err
	}
	log = log.With("owner_key", key.OwnerKey, "base_name", key.BaseName)

	var outputs []transcoder.RenditionOutput
	if err := s.runStage(ctx, log, StageEncode, func(ctx context.Context) error {
		if err := os.Mkdir(outputDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		var eerr error
		outputs, eerr = s.transcoder.EncodeLadder(ctx, inputPath, outputDir, s.ladder)
		return eerr
	}); err != nil {
		return nil, err
	}

	if err := s.runStage(ctx, log, StageSynthesize, func(context.Context) error {
		return transcoder.WriteMasterPlaylist(filepath.Join(outputDir, model.MasterPlaylistName), outputs)
	}); err != nil {
		return nil, err
	}

	if err := s.runStage(ctx, log, StageUpload, func(ctx context.Context) error {
		bucket := s.destinationBucket(src)
		s.warnIfOverwriting(ctx, log, bucket, key)
		return s.uploadAll(ctx, bucket, key, outputDir)
	}); err != nil {
		return nil, err
	}

	msg := model.NewCompletion(key, s.publicBaseURL)
	if err := s.runStage(ctx, log, StageNotify, func(ctx context.Context) error {
		id, perr := s.notifier.Publish(ctx, msg)
		if perr != nil {
			return perr
		}
		log.Info("completion published", "message_id", id)
		return nil
	}); err != nil {
		return nil, err
	}

	return &msg, nil
}

// runStage executes fn as the named stage, recording its duration and wrapping
// any failure in a *StageError.
func (s *transcodeService) runStage(ctx context.Context, log *slog.Logger, stage Stage, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	metrics.StageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())

	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	log.Debug("stage completed", "stage", string(stage), "duration", elapsed)
	return nil
}

// warnIfOverwriting logs when a previous run already published a master
// playlist under the same prefix. The upload proceeds regardless.
func (s *transcodeService) warnIfOverwriting(ctx context.Context, log *slog.Logger, bucket string, key model.SourceKey) {
	exists, err := s.storage.Exists(ctx, bucket, key.ObjectKey(model.MasterPlaylistName))
	if err != nil {
		log.Warn("failed to check for existing rendition set", "error", err)
		return
	}
	if exists {
		log.Info("overwriting existing rendition set", "prefix", key.OutputPrefix())
	}
}

// createWorkDir creates a working directory unique to this invocation.
func (s *transcodeService) createWorkDir() (string, error) {
	workDir := filepath.Join(s.tempDir, "hlsladder", uuid.NewString())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	return workDir, nil
}

// cleanup removes the working set. Failures are logged and counted only; they
// never replace the pipeline result.
func (s *transcodeService) cleanup(log *slog.Logger, workDir string) {
	start := time.Now()
	err := os.RemoveAll(workDir)
	metrics.StageDuration.WithLabelValues(string(StageCleanup)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CleanupFailuresTotal.Inc()
		log.Error("failed to remove working set", "path", workDir, "error", err)
	}
}

// fetch copies the source object to inputPath.
func (s *transcodeService) fetch(ctx context.Context, src model.SourceReference, inputPath string) error {
	reader, err := s.storage.Download(ctx, src.Bucket, src.DecodedKey())
	if err != nil {
		return fmt.Errorf("storage download: %w", err)
	}
	defer func() { _ = reader.Close() }()

	file, err := os.Create(inputPath)
	if err != nil {
		return fmt.Errorf("create local file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return fmt.Errorf("copy to local file: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close local file: %w", err)
	}

	return nil
}

// uploadAll publishes every file in outputDir under the key's output prefix.
// Uploads run one at a time and stop at the first failure; objects already
// written stay in place.
func (s *transcodeService) uploadAll(ctx context.Context, bucket string, key model.SourceKey, outputDir string) error {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return fmt.Errorf("list output directory: %w", err)
	}

	// The master playlist goes last so a partial upload never publishes a
	// master that references missing renditions.
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == model.MasterPlaylistName {
			continue
		}
		names = append(names, entry.Name())
	}
	names = append(names, model.MasterPlaylistName)

	for _, name := range names {
		objectKey := key.ObjectKey(name)
		if err := s.uploadFile(ctx, bucket, filepath.Join(outputDir, name), objectKey); err != nil {
			return fmt.Errorf("upload %s: %w", objectKey, err)
		}
		metrics.UploadedObjectsTotal.Inc()
	}

	return nil
}

// uploadFile uploads a single file to object storage.
func (s *transcodeService) uploadFile(ctx context.Context, bucket, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := s.storage.Upload(ctx, bucket, key, file, contentTypeFor(localPath)); err != nil {
		return fmt.Errorf("storage upload: %w", err)
	}

	return nil
}

func (s *transcodeService) destinationBucket(src model.SourceReference) string {
	if s.outputBucket != "" {
		return s.outputBucket
	}
	return src.Bucket
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m3u8":
		return contentTypePlaylist
	case ".ts":
		return contentTypeSegment
	default:
		return contentTypeDefault
	}
}
