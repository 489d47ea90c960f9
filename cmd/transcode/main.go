// Command transcode runs the pipeline once for a single uploaded object and
// prints the completion message as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff"

	"github.com/hszk-dev/hlsladder/internal/app"
	"github.com/hszk-dev/hlsladder/internal/config"
	"github.com/hszk-dev/hlsladder/internal/domain/model"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/queue"
	"github.com/hszk-dev/hlsladder/internal/platform/logger"
	"github.com/hszk-dev/hlsladder/internal/trigger"
)

type cliFlags struct {
	bucket  string
	key     string
	encoded bool
	timeout time.Duration
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads flags, then HLS_-prefixed environment variables, then an
// optional plain config file.
func parseFlags(args []string) (cliFlags, error) {
	cli := cliFlags{}
	fs := flag.NewFlagSet("transcode", flag.ContinueOnError)

	fs.StringVar(&cli.bucket, "bucket", "", "Bucket holding the uploaded source object.")
	fs.StringVar(&cli.key, "key", "", "Source object key, e.g. source/<ownerKey>/<file>.mp4.")
	fs.BoolVar(&cli.encoded, "encoded", false, "The key is already event-encoded ('+' for space, %XX escapes).")
	fs.DurationVar(&cli.timeout, "timeout", 0, "Abort the invocation after this long (0 = no limit).")
	fs.String("config", "", "config file (optional)")

	if err := ff.Parse(fs, args,
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("HLS"),
	); err != nil {
		return cli, err
	}

	if cli.bucket == "" {
		return cli, errors.New("-bucket is required")
	}
	if cli.key == "" {
		return cli, errors.New("-key is required")
	}
	return cli, nil
}

// sourceReference builds the reference as the trigger would deliver it.
func (c cliFlags) sourceReference() model.SourceReference {
	key := c.key
	if !c.encoded {
		key = trigger.EncodeKey(key)
	}
	return model.SourceReference{Bucket: c.bucket, RawKey: key}
}

func run(args []string, stdout io.Writer) error {
	cli, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Logs go to stderr so stdout carries only the completion message.
	log := logger.NewWithWriter(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cli.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cli.timeout)
		defer cancel()
	}

	var amqpClient *queue.Client
	if cfg.Notify.Backend == config.NotifyBackendAMQP {
		qcfg := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
		qcfg.QueueName = cfg.RabbitMQ.EventsQueue
		qcfg.RoutingKey = cfg.RabbitMQ.EventsQueue
		amqpClient, err = queue.NewClient(ctx, qcfg)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer amqpClient.Close()
	}

	pipeline, err := app.NewPipeline(ctx, cfg, amqpClient)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	completion, err := pipeline.Service.Process(ctx, cli.sourceReference())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(completion)
}
