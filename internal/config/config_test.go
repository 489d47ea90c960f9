package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// chdirTemp runs the test from an empty directory so a developer's .env does
// not leak into it.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("NOTIFY_PUBSUB_PROJECT_ID", "demo-project")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"Server.Port", cfg.Server.Port, 8080},
		{"Server.CacheTTL", cfg.Server.CacheTTL, 5 * time.Minute},
		{"Worker.MaxRedeliveries", cfg.Worker.MaxRedeliveries, 3},
		{"Worker.OpsPort", cfg.Worker.OpsPort, 9102},
		{"MinIO.SourceBucket", cfg.MinIO.SourceBucket, "media"},
		{"MinIO.OutputBucket", cfg.MinIO.OutputBucket, ""},
		{"RabbitMQ.EventsQueue", cfg.RabbitMQ.EventsQueue, "source_uploads"},
		{"Notify.Backend", cfg.Notify.Backend, NotifyBackendPubSub},
		{"Notify.TopicID", cfg.Notify.TopicID, "transcode-completions"},
		{"Notify.NotifyFailures", cfg.Notify.NotifyFailures, true},
		{"FFmpeg.Path", cfg.FFmpeg.Path, "ffmpeg"},
		{"FFmpeg.SegmentDurationSeconds", cfg.FFmpeg.SegmentDurationSeconds, 6},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Log.Format", cfg.Log.Format, "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, expected %v", tt.got, tt.expected)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdirTemp(t)

	content := "NOTIFY_BACKEND=amqp\nWORKER_MAX_REDELIVERIES=5\nLOG_LEVEL=debug\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	// Values already in the environment win over the file.
	t.Setenv("LOG_LEVEL", "warn")
	// Variables set only by the file must not leak into later tests.
	t.Setenv("NOTIFY_BACKEND", "")
	t.Setenv("WORKER_MAX_REDELIVERIES", "")
	os.Unsetenv("NOTIFY_BACKEND")
	os.Unsetenv("WORKER_MAX_REDELIVERIES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Notify.Backend != NotifyBackendAMQP {
		t.Errorf("Notify.Backend = %q, want amqp", cfg.Notify.Backend)
	}
	if cfg.Worker.MaxRedeliveries != 5 {
		t.Errorf("Worker.MaxRedeliveries = %d, want 5", cfg.Worker.MaxRedeliveries)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoad_ExplicitEnvFileMissing(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HLSLADDER_ENV_FILE", "/nonexistent/hlsladder.env")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail when HLSLADDER_ENV_FILE points at a missing file")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Worker: WorkerConfig{MaxRedeliveries: 3},
			Notify: NotifyConfig{Backend: NotifyBackendPubSub, ProjectID: "p", TopicID: "t", RoutingKey: "rk"},
			FFmpeg: FFmpegConfig{SegmentDurationSeconds: 6},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid pubsub", mutate: func(c *Config) {}},
		{name: "valid amqp", mutate: func(c *Config) { c.Notify.Backend = NotifyBackendAMQP; c.Notify.ProjectID = "" }},
		{name: "pubsub without project", mutate: func(c *Config) { c.Notify.ProjectID = "" }, wantErr: "PROJECT_ID"},
		{name: "pubsub without topic", mutate: func(c *Config) { c.Notify.TopicID = "" }, wantErr: "TOPIC_ID"},
		{name: "amqp without routing key", mutate: func(c *Config) { c.Notify.Backend = NotifyBackendAMQP; c.Notify.RoutingKey = "" }, wantErr: "ROUTING_KEY"},
		{name: "unknown backend", mutate: func(c *Config) { c.Notify.Backend = "sns" }, wantErr: "unknown NOTIFY_BACKEND"},
		{name: "negative redeliveries", mutate: func(c *Config) { c.Worker.MaxRedeliveries = -1 }, wantErr: "REDELIVERIES"},
		{name: "zero segment duration", mutate: func(c *Config) { c.FFmpeg.SegmentDurationSeconds = 0 }, wantErr: "SEGMENT_DURATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "jobs", SSLMode: "disable"}

	want := "postgres://u:p%40ss@db:5432/jobs?sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestRabbitMQConfig_URL(t *testing.T) {
	c := RabbitMQConfig{Host: "mq", Port: 5672, User: "u", Password: "p", VHost: "/"}

	if got := c.URL(); got != "amqp://u:p@mq:5672/" {
		t.Errorf("URL() = %q", got)
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	c := RedisConfig{Host: "cache", Port: 6380}

	if got := c.Addr(); got != "cache:6380" {
		t.Errorf("Addr() = %q", got)
	}
}
