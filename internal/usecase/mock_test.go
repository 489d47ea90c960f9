package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/hlsladder/internal/domain/model"
	"github.com/hszk-dev/hlsladder/internal/domain/repository"
	"github.com/hszk-dev/hlsladder/internal/transcoder"
)

// mockObjectStorage provides a configurable mock for ObjectStorage.
// Without a downloadFn it serves a small dummy body; uploads are recorded.
type mockObjectStorage struct {
	downloadFn func(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	uploadFn   func(ctx context.Context, bucket, key string, reader io.Reader, contentType string) error
	existsFn   func(ctx context.Context, bucket, key string) (bool, error)

	mu       sync.Mutex
	uploaded map[string]string // bucket/key -> content type
}

func (m *mockObjectStorage) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, bucket, key)
	}
	return io.NopCloser(strings.NewReader("source video")), nil
}

func (m *mockObjectStorage) Upload(ctx context.Context, bucket, key string, reader io.Reader, contentType string) error {
	if m.uploadFn != nil {
		if err := m.uploadFn(ctx, bucket, key, reader, contentType); err != nil {
			return err
		}
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploaded == nil {
		m.uploaded = make(map[string]string)
	}
	m.uploaded[bucket+"/"+key] = contentType
	return nil
}

func (m *mockObjectStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, bucket, key)
	}
	return false, nil
}

// mockNotifier records published messages.
type mockNotifier struct {
	publishFn func(ctx context.Context, msg model.Completion) (string, error)
	published []model.Completion
}

func (m *mockNotifier) Publish(ctx context.Context, msg model.Completion) (string, error) {
	m.published = append(m.published, msg)
	if m.publishFn != nil {
		return m.publishFn(ctx, msg)
	}
	return "msg-1", nil
}

// fakeFFmpeg plays the encoder for transcoder.FFmpegTranscoder: it writes a
// closed playlist and two segments next to the playlist path in the last argument.
type fakeFFmpeg struct {
	failOn string
}

func (f *fakeFFmpeg) Run(ctx context.Context, name string, args []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	playlistPath := args[len(args)-1]
	dir := filepath.Dir(playlistPath)
	profile := strings.TrimSuffix(filepath.Base(playlistPath), ".m3u8")
	if profile == f.failOn {
		return "Conversion failed!", errors.New("exit status 1")
	}

	var sb strings.Builder
	sb.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:6\n#EXT-X-MEDIA-SEQUENCE:0\n")
	for i := 0; i < 2; i++ {
		seg := fmt.Sprintf("%s_%03d.ts", profile, i)
		if err := os.WriteFile(filepath.Join(dir, seg), []byte("ts"), 0644); err != nil {
			return "", err
		}
		sb.WriteString("#EXTINF:6.000000,\n" + seg + "\n")
	}
	sb.WriteString("#EXT-X-ENDLIST\n")
	return "", os.WriteFile(playlistPath, []byte(sb.String()), 0644)
}

// mockTranscoder provides a configurable mock for transcoder.Transcoder.
type mockTranscoder struct {
	encodeLadderFn func(ctx context.Context, inputPath, outputDir string, profiles []transcoder.Profile) ([]transcoder.RenditionOutput, error)
}

func (m *mockTranscoder) EncodeLadder(ctx context.Context, inputPath, outputDir string, profiles []transcoder.Profile) ([]transcoder.RenditionOutput, error) {
	if m.encodeLadderFn != nil {
		return m.encodeLadderFn(ctx, inputPath, outputDir, profiles)
	}
	return nil, nil
}

// mockTranscodeService provides a configurable mock for TranscodeService.
type mockTranscodeService struct {
	processFn func(ctx context.Context, src model.SourceReference) (*model.Completion, error)
}

func (m *mockTranscodeService) Process(ctx context.Context, src model.SourceReference) (*model.Completion, error) {
	if m.processFn != nil {
		return m.processFn(ctx, src)
	}
	return &model.Completion{StatusCode: model.CompletionStatusOK}, nil
}

// mockJobRepository provides a configurable mock for JobRepository.
type mockJobRepository struct {
	createFn      func(ctx context.Context, job *model.Job) error
	getByIDFn     func(ctx context.Context, id uuid.UUID) (*model.Job, error)
	listByOwnerFn func(ctx context.Context, ownerKey string, limit int) ([]*model.Job, error)
	updateFn      func(ctx context.Context, job *model.Job) error
}

func (m *mockJobRepository) Create(ctx context.Context, job *model.Job) error {
	if m.createFn != nil {
		return m.createFn(ctx, job)
	}
	return nil
}

func (m *mockJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrJobNotFound
}

func (m *mockJobRepository) ListByOwner(ctx context.Context, ownerKey string, limit int) ([]*model.Job, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerKey, limit)
	}
	return []*model.Job{}, nil
}

func (m *mockJobRepository) Update(ctx context.Context, job *model.Job) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, job)
	}
	return nil
}

// mockJobCache provides a configurable mock for cache.JobCache.
type mockJobCache struct {
	getFn    func(ctx context.Context, jobID uuid.UUID) (*model.Job, error)
	setFn    func(ctx context.Context, job *model.Job, ttl time.Duration) error
	deleteFn func(ctx context.Context, jobID uuid.UUID) error
}

func (m *mockJobCache) Get(ctx context.Context, jobID uuid.UUID) (*model.Job, error) {
	if m.getFn != nil {
		return m.getFn(ctx, jobID)
	}
	return nil, nil
}

func (m *mockJobCache) Set(ctx context.Context, job *model.Job, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, job, ttl)
	}
	return nil
}

func (m *mockJobCache) Delete(ctx context.Context, jobID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, jobID)
	}
	return nil
}

// mockJobService provides a configurable mock for JobService.
type mockJobService struct {
	getJobFn        func(ctx context.Context, jobID uuid.UUID) (*model.Job, error)
	listOwnerJobsFn func(ctx context.Context, ownerKey string, limit int) ([]*model.Job, error)
}

func (m *mockJobService) GetJob(ctx context.Context, jobID uuid.UUID) (*model.Job, error) {
	if m.getJobFn != nil {
		return m.getJobFn(ctx, jobID)
	}
	return nil, repository.ErrJobNotFound
}

func (m *mockJobService) ListOwnerJobs(ctx context.Context, ownerKey string, limit int) ([]*model.Job, error) {
	if m.listOwnerJobsFn != nil {
		return m.listOwnerJobsFn(ctx, ownerKey, limit)
	}
	return []*model.Job{}, nil
}
