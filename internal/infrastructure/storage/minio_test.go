package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"

	"github.com/hszk-dev/hlsladder/internal/domain/repository"
)

// mockObjectReader implements objectReader interface for testing.
type mockObjectReader struct {
	closeFunc func() error
	statFunc  func() (minio.ObjectInfo, error)
	data      []byte
	offset    int
	closed    bool
}

func (m *mockObjectReader) Read(p []byte) (n int, err error) {
	if m.offset >= len(m.data) {
		return 0, io.EOF
	}
	n = copy(p, m.data[m.offset:])
	m.offset += n
	return n, nil
}

func (m *mockObjectReader) Close() error {
	m.closed = true
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockObjectReader) Stat() (minio.ObjectInfo, error) {
	if m.statFunc != nil {
		return m.statFunc()
	}
	return minio.ObjectInfo{}, nil
}

// mockMinioClient implements minioClient interface for testing.
type mockMinioClient struct {
	bucketExistsFunc func(ctx context.Context, bucketName string) (bool, error)
	putObjectFunc    func(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	getObjectFunc    func(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error)
	statObjectFunc   func(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

func (m *mockMinioClient) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	if m.bucketExistsFunc != nil {
		return m.bucketExistsFunc(ctx, bucketName)
	}
	return true, nil
}

func (m *mockMinioClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if m.putObjectFunc != nil {
		return m.putObjectFunc(ctx, bucketName, objectName, reader, objectSize, opts)
	}
	return minio.UploadInfo{}, nil
}

func (m *mockMinioClient) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error) {
	if m.getObjectFunc != nil {
		return m.getObjectFunc(ctx, bucketName, objectName, opts)
	}
	return nil, nil
}

func (m *mockMinioClient) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if m.statObjectFunc != nil {
		return m.statObjectFunc(ctx, bucketName, objectName, opts)
	}
	return minio.ObjectInfo{}, nil
}

func TestNewClientWithMinioClient(t *testing.T) {
	tests := []struct {
		name       string
		bucket     string
		mockClient *mockMinioClient
		wantErr    error
	}{
		{
			name:   "successful initialization",
			bucket: "media",
			mockClient: &mockMinioClient{
				bucketExistsFunc: func(ctx context.Context, bucketName string) (bool, error) {
					return true, nil
				},
			},
			wantErr: nil,
		},
		{
			name:   "no health bucket skips the probe",
			bucket: "",
			mockClient: &mockMinioClient{
				bucketExistsFunc: func(ctx context.Context, bucketName string) (bool, error) {
					t.Error("BucketExists should not be called")
					return false, nil
				},
			},
			wantErr: nil,
		},
		{
			name:   "bucket does not exist",
			bucket: "non-existent-bucket",
			mockClient: &mockMinioClient{
				bucketExistsFunc: func(ctx context.Context, bucketName string) (bool, error) {
					return false, nil
				},
			},
			wantErr: repository.ErrBucketNotFound,
		},
		{
			name:   "bucket check error",
			bucket: "media",
			mockClient: &mockMinioClient{
				bucketExistsFunc: func(ctx context.Context, bucketName string) (bool, error) {
					return false, errors.New("connection refused")
				},
			},
			wantErr: errors.New("failed to check bucket existence"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newClientWithMinioClient(context.Background(), tt.mockClient, tt.bucket)

			if tt.wantErr != nil {
				if err == nil {
					t.Errorf("newClientWithMinioClient() expected error, got nil")
					return
				}
				if !errors.Is(err, tt.wantErr) && !strings.Contains(err.Error(), tt.wantErr.Error()) {
					t.Errorf("newClientWithMinioClient() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("newClientWithMinioClient() unexpected error = %v", err)
				return
			}

			if client.healthBucket != tt.bucket {
				t.Errorf("client.healthBucket = %v, want %v", client.healthBucket, tt.bucket)
			}
		})
	}
}

func TestClient_Upload(t *testing.T) {
	tests := []struct {
		name        string
		bucket      string
		key         string
		content     string
		contentType string
		mockClient  *mockMinioClient
		wantErr     error
	}{
		{
			name:        "successful upload",
			bucket:      "media",
			key:         "hls/u1/clip/720p_000.ts",
			content:     "segment",
			contentType: "video/mp2t",
			mockClient: &mockMinioClient{
				putObjectFunc: func(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
					if bucketName != "media" {
						t.Errorf("expected bucket media, got %s", bucketName)
					}
					if objectName != "hls/u1/clip/720p_000.ts" {
						t.Errorf("unexpected object name %s", objectName)
					}
					if opts.ContentType != "video/mp2t" {
						t.Errorf("expected content type video/mp2t, got %s", opts.ContentType)
					}
					body, _ := io.ReadAll(reader)
					if string(body) != "segment" {
						t.Errorf("unexpected body %q", body)
					}
					return minio.UploadInfo{Bucket: bucketName, Key: objectName}, nil
				},
			},
			wantErr: nil,
		},
		{
			name:        "missing bucket",
			bucket:      "gone",
			key:         "hls/u1/clip/master.m3u8",
			content:     "#EXTM3U",
			contentType: "application/vnd.apple.mpegurl",
			mockClient: &mockMinioClient{
				putObjectFunc: func(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
					return minio.UploadInfo{}, minio.ErrorResponse{Code: "NoSuchBucket"}
				},
			},
			wantErr: repository.ErrBucketNotFound,
		},
		{
			name:        "upload error",
			bucket:      "media",
			key:         "hls/u1/clip/master.m3u8",
			content:     "#EXTM3U",
			contentType: "application/vnd.apple.mpegurl",
			mockClient: &mockMinioClient{
				putObjectFunc: func(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
					return minio.UploadInfo{}, errors.New("upload failed")
				},
			},
			wantErr: errors.New("failed to upload object media/hls/u1/clip/master.m3u8"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &Client{client: tt.mockClient}

			reader := bytes.NewReader([]byte(tt.content))
			err := client.Upload(context.Background(), tt.bucket, tt.key, reader, tt.contentType)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Upload() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Upload() expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) && !strings.Contains(err.Error(), tt.wantErr.Error()) {
				t.Errorf("Upload() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_Download(t *testing.T) {
	tests := []struct {
		name        string
		bucket      string
		key         string
		mockClient  *mockMinioClient
		wantContent string
		wantErr     error
	}{
		{
			name:   "successful download",
			bucket: "media",
			key:    "source/u1/clip.mp4",
			mockClient: &mockMinioClient{
				getObjectFunc: func(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error) {
					if bucketName != "media" || objectName != "source/u1/clip.mp4" {
						t.Errorf("unexpected object %s/%s", bucketName, objectName)
					}
					return &mockObjectReader{
						data: []byte("video content"),
						statFunc: func() (minio.ObjectInfo, error) {
							return minio.ObjectInfo{Key: objectName, Size: 13}, nil
						},
					}, nil
				},
			},
			wantContent: "video content",
			wantErr:     nil,
		},
		{
			name:   "object not found",
			bucket: "media",
			key:    "source/u1/missing.mp4",
			mockClient: &mockMinioClient{
				getObjectFunc: func(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error) {
					return &mockObjectReader{
						statFunc: func() (minio.ObjectInfo, error) {
							return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"}
						},
					}, nil
				},
			},
			wantErr: repository.ErrObjectNotFound,
		},
		{
			name:   "bucket not found",
			bucket: "gone",
			key:    "source/u1/clip.mp4",
			mockClient: &mockMinioClient{
				getObjectFunc: func(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error) {
					return &mockObjectReader{
						statFunc: func() (minio.ObjectInfo, error) {
							return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchBucket"}
						},
					}, nil
				},
			},
			wantErr: repository.ErrBucketNotFound,
		},
		{
			name:   "get object error",
			bucket: "media",
			key:    "source/u1/clip.mp4",
			mockClient: &mockMinioClient{
				getObjectFunc: func(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error) {
					return nil, errors.New("connection refused")
				},
			},
			wantErr: errors.New("failed to get object"),
		},
		{
			name:   "stat error",
			bucket: "media",
			key:    "source/u1/clip.mp4",
			mockClient: &mockMinioClient{
				getObjectFunc: func(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error) {
					return &mockObjectReader{
						statFunc: func() (minio.ObjectInfo, error) {
							return minio.ObjectInfo{}, errors.New("stat failed")
						},
					}, nil
				},
			},
			wantErr: errors.New("failed to stat object"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &Client{client: tt.mockClient}

			reader, err := client.Download(context.Background(), tt.bucket, tt.key)

			if tt.wantErr != nil {
				if err == nil {
					t.Errorf("Download() expected error, got nil")
					return
				}
				if !errors.Is(err, tt.wantErr) && !strings.Contains(err.Error(), tt.wantErr.Error()) {
					t.Errorf("Download() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("Download() unexpected error = %v", err)
				return
			}

			defer reader.Close()

			content, err := io.ReadAll(reader)
			if err != nil {
				t.Errorf("failed to read content: %v", err)
				return
			}

			if string(content) != tt.wantContent {
				t.Errorf("Download() content = %v, want %v", string(content), tt.wantContent)
			}
		})
	}
}

func TestClient_Download_ClosesOnStatError(t *testing.T) {
	obj := &mockObjectReader{
		statFunc: func() (minio.ObjectInfo, error) {
			return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"}
		},
	}
	client := &Client{client: &mockMinioClient{
		getObjectFunc: func(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error) {
			return obj, nil
		},
	}}

	if _, err := client.Download(context.Background(), "media", "source/u1/x.mp4"); err == nil {
		t.Fatal("expected error")
	}
	if !obj.closed {
		t.Error("object reader should be closed on stat error")
	}
}

func TestClient_Exists(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		mockClient *mockMinioClient
		want       bool
		wantErr    bool
	}{
		{
			name: "object exists",
			key:  "hls/u1/clip/master.m3u8",
			mockClient: &mockMinioClient{
				statObjectFunc: func(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
					return minio.ObjectInfo{Key: objectName, Size: 1024}, nil
				},
			},
			want:    true,
			wantErr: false,
		},
		{
			name: "object does not exist",
			key:  "hls/u1/clip/master.m3u8",
			mockClient: &mockMinioClient{
				statObjectFunc: func(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
					return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"}
				},
			},
			want:    false,
			wantErr: false,
		},
		{
			name: "stat error",
			key:  "hls/u1/clip/master.m3u8",
			mockClient: &mockMinioClient{
				statObjectFunc: func(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
					return minio.ObjectInfo{}, errors.New("connection error")
				},
			},
			want:    false,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &Client{client: tt.mockClient}

			got, err := client.Exists(context.Background(), "media", tt.key)

			if (err != nil) != tt.wantErr {
				t.Errorf("Exists() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_Ping(t *testing.T) {
	tests := []struct {
		name         string
		healthBucket string
		mockClient   *mockMinioClient
		wantErr      bool
	}{
		{
			name:         "successful ping",
			healthBucket: "media",
			mockClient: &mockMinioClient{
				bucketExistsFunc: func(ctx context.Context, bucketName string) (bool, error) {
					return true, nil
				},
			},
			wantErr: false,
		},
		{
			name:         "ping error",
			healthBucket: "media",
			mockClient: &mockMinioClient{
				bucketExistsFunc: func(ctx context.Context, bucketName string) (bool, error) {
					return false, errors.New("connection refused")
				},
			},
			wantErr: true,
		},
		{
			name:         "no health bucket",
			healthBucket: "",
			mockClient: &mockMinioClient{
				bucketExistsFunc: func(ctx context.Context, bucketName string) (bool, error) {
					return false, errors.New("should not be called")
				},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &Client{
				client:       tt.mockClient,
				healthBucket: tt.healthBucket,
			}

			err := client.Ping(context.Background())

			if (err != nil) != tt.wantErr {
				t.Errorf("Ping() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
