// Package app assembles the transcode pipeline from configuration. It is shared
// by the long-running worker and the one-shot CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hszk-dev/hlsladder/internal/config"
	"github.com/hszk-dev/hlsladder/internal/credential"
	"github.com/hszk-dev/hlsladder/internal/domain/repository"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/pubsub"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/queue"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/storage"
	"github.com/hszk-dev/hlsladder/internal/transcoder"
	"github.com/hszk-dev/hlsladder/internal/usecase"
)

// Pipeline holds the transcode service and the clients it owns.
type Pipeline struct {
	Service  usecase.TranscodeService
	Storage  *storage.Client
	Notifier repository.Notifier

	closers []io.Closer
}

// NewPipeline connects to object storage and the configured notification
// backend. amqp is required only for the amqp backend; the notifier then
// publishes on its channel.
func NewPipeline(ctx context.Context, cfg *config.Config, amqp *queue.Client) (*Pipeline, error) {
	p := &Pipeline{}

	store, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:     cfg.MinIO.Endpoint,
		AccessKey:    cfg.MinIO.AccessKey,
		SecretKey:    cfg.MinIO.SecretKey,
		Region:       cfg.MinIO.Region,
		UseSSL:       cfg.MinIO.UseSSL,
		HealthBucket: cfg.MinIO.SourceBucket,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	p.Storage = store

	notifier, err := p.newNotifier(ctx, cfg, amqp)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.Notifier = notifier

	p.Service = usecase.NewTranscodeService(store, notifier, NewTranscoder(cfg.FFmpeg), usecase.TranscodeServiceConfig{
		TempDir:       cfg.Worker.TempDir,
		PublicBaseURL: cfg.Notify.PublicBaseURL,
		OutputBucket:  cfg.MinIO.OutputBucket,
		Ladder:        transcoder.DefaultLadder(),
	})

	return p, nil
}

func (p *Pipeline) newNotifier(ctx context.Context, cfg *config.Config, amqp *queue.Client) (repository.Notifier, error) {
	switch cfg.Notify.Backend {
	case config.NotifyBackendAMQP:
		if amqp == nil {
			return nil, errors.New("amqp notifier requires a RabbitMQ client")
		}
		n, err := queue.NewNotifier(amqp, queue.NotifierConfig{
			Exchange:   cfg.Notify.Exchange,
			RoutingKey: cfg.Notify.RoutingKey,
			Queue:      cfg.Notify.Queue,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create amqp notifier: %w", err)
		}
		return n, nil

	case config.NotifyBackendPubSub:
		pcfg := pubsub.Config{
			ProjectID: cfg.Notify.ProjectID,
			TopicID:   cfg.Notify.TopicID,
		}
		if cfg.Notify.CredentialsBase64 != "" {
			cred, err := credential.Materialize(cfg.Notify.CredentialsBase64, "")
			if err != nil {
				return nil, fmt.Errorf("failed to materialize pubsub credentials: %w", err)
			}
			p.closers = append(p.closers, cred)
			pcfg.CredentialsFile = cred.Path()
		}

		n, err := pubsub.NewNotifier(ctx, pcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pubsub notifier: %w", err)
		}
		// Closed before the credential file is removed.
		p.closers = append([]io.Closer{n}, p.closers...)
		return n, nil

	default:
		return nil, fmt.Errorf("unknown notification backend %q", cfg.Notify.Backend)
	}
}

// Close releases the notifier client and removes materialized credentials.
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// NewTranscoder maps the FFmpeg settings onto an FFmpegTranscoder.
func NewTranscoder(cfg config.FFmpegConfig) *transcoder.FFmpegTranscoder {
	fc := transcoder.DefaultFFmpegConfig()
	if cfg.Path != "" {
		fc.FFmpegPath = cfg.Path
	}
	if cfg.Preset != "" {
		fc.VideoPreset = cfg.Preset
	}
	if cfg.SegmentDurationSeconds > 0 {
		fc.HLSSegmentDuration = cfg.SegmentDurationSeconds
	}

	runner := &transcoder.ExecRunner{}
	if cfg.Verbose {
		runner.Tee = os.Stderr
	}

	slog.Debug("transcoder configured",
		"ffmpeg", fc.FFmpegPath,
		"preset", fc.VideoPreset,
		"segment_duration", fc.HLSSegmentDuration,
	)
	return transcoder.NewFFmpegTranscoder(fc, runner)
}
