package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Notification backends.
const (
	NotifyBackendPubSub = "pubsub"
	NotifyBackendAMQP   = "amqp"
)

type Config struct {
	Server   ServerConfig
	Worker   WorkerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
	RabbitMQ RabbitMQConfig
	Notify   NotifyConfig
	FFmpeg   FFmpegConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
	CacheTTL        time.Duration `envconfig:"API_CACHE_TTL" default:"5m"`
}

type WorkerConfig struct {
	TempDir         string        `envconfig:"WORKER_TEMP_DIR" default:"/tmp"`
	MaxRedeliveries int           `envconfig:"WORKER_MAX_REDELIVERIES" default:"3"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30m"`
	OpsPort         int           `envconfig:"WORKER_OPS_PORT" default:"9102"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"hlsladder"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"hlsladder"`
	DBName   string `envconfig:"POSTGRES_DB" default:"hlsladder"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Region    string `envconfig:"MINIO_REGION" default:""`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	// SourceBucket is probed at startup and by /health.
	SourceBucket string `envconfig:"MINIO_SOURCE_BUCKET" default:"media"`
	// OutputBucket receives rendition sets. Empty means the bucket of each source.
	OutputBucket string `envconfig:"MINIO_OUTPUT_BUCKET" default:""`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"hlsladder"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"hlsladder"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
	// EventsQueue receives MinIO bucket notifications.
	EventsQueue string `envconfig:"RABBITMQ_EVENTS_QUEUE" default:"source_uploads"`
	Prefetch    int    `envconfig:"RABBITMQ_PREFETCH" default:"1"`
}

func (c RabbitMQConfig) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   c.VHost,
	}
	return u.String()
}

type NotifyConfig struct {
	Backend string `envconfig:"NOTIFY_BACKEND" default:"pubsub"`
	// PublicBaseURL prefixes master playlist URLs in completion messages.
	PublicBaseURL  string `envconfig:"NOTIFY_PUBLIC_BASE_URL" default:"http://localhost:9000/media/hls"`
	NotifyFailures bool   `envconfig:"NOTIFY_FAILURES" default:"true"`

	ProjectID string `envconfig:"NOTIFY_PUBSUB_PROJECT_ID"`
	TopicID   string `envconfig:"NOTIFY_PUBSUB_TOPIC_ID" default:"transcode-completions"`
	// CredentialsBase64 is a base64-encoded service-account JSON document.
	// Empty means application default credentials.
	CredentialsBase64 string `envconfig:"NOTIFY_PUBSUB_CREDENTIALS"`

	Exchange   string `envconfig:"NOTIFY_AMQP_EXCHANGE" default:""`
	RoutingKey string `envconfig:"NOTIFY_AMQP_ROUTING_KEY" default:"transcode_completions"`
	Queue      string `envconfig:"NOTIFY_AMQP_QUEUE" default:"transcode_completions"`
}

type FFmpegConfig struct {
	Path                   string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	Preset                 string `envconfig:"FFMPEG_PRESET" default:"fast"`
	SegmentDurationSeconds int    `envconfig:"FFMPEG_SEGMENT_DURATION" default:"6"`
	// Verbose tees encoder stderr to the process stderr.
	Verbose bool `envconfig:"FFMPEG_VERBOSE" default:"false"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads configuration from the environment. A .env file in the working
// directory, or the file named by HLSLADDER_ENV_FILE, is applied first; it
// never overrides variables that are already set.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv() error {
	path := os.Getenv("HLSLADDER_ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Notify.Backend {
	case NotifyBackendPubSub:
		if c.Notify.ProjectID == "" {
			return errors.New("NOTIFY_PUBSUB_PROJECT_ID is required for the pubsub backend")
		}
		if c.Notify.TopicID == "" {
			return errors.New("NOTIFY_PUBSUB_TOPIC_ID is required for the pubsub backend")
		}
	case NotifyBackendAMQP:
		if c.Notify.RoutingKey == "" {
			return errors.New("NOTIFY_AMQP_ROUTING_KEY is required for the amqp backend")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_BACKEND %q (want %s or %s)",
			c.Notify.Backend, NotifyBackendPubSub, NotifyBackendAMQP)
	}

	if c.Worker.MaxRedeliveries < 0 {
		return errors.New("WORKER_MAX_REDELIVERIES cannot be negative")
	}
	if c.FFmpeg.SegmentDurationSeconds <= 0 {
		return errors.New("FFMPEG_SEGMENT_DURATION must be positive")
	}
	return nil
}
