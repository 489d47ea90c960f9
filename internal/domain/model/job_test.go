package model

import (
	"errors"
	"testing"
)

func TestJobStatus_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status JobStatus
		want   bool
	}{
		{"PROCESSING is valid", JobStatusProcessing, true},
		{"READY is valid", JobStatusReady, true},
		{"FAILED is valid", JobStatusFailed, true},
		{"empty string is invalid", JobStatus(""), false},
		{"unknown status is invalid", JobStatus("UNKNOWN"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.want {
				t.Errorf("JobStatus.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJobStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		current JobStatus
		next    JobStatus
		want    bool
	}{
		{"PROCESSING -> READY", JobStatusProcessing, JobStatusReady, true},
		{"PROCESSING -> FAILED", JobStatusProcessing, JobStatusFailed, true},

		{"READY -> PROCESSING (reverse)", JobStatusReady, JobStatusProcessing, false},
		{"FAILED -> READY (terminal)", JobStatusFailed, JobStatusReady, false},
		{"READY -> FAILED (terminal)", JobStatusReady, JobStatusFailed, false},
		{"PROCESSING -> PROCESSING", JobStatusProcessing, JobStatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.current.CanTransitionTo(tt.next); got != tt.want {
				t.Errorf("JobStatus.CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewJob(t *testing.T) {
	tests := []struct {
		name      string
		src       SourceReference
		wantErr   error
		wantOwner string
		wantBase  string
	}{
		{
			name:      "valid key fills identity",
			src:       SourceReference{Bucket: "uploads", RawKey: "source/u1/My+Clip.mp4"},
			wantOwner: "u1",
			wantBase:  "My-Clip",
		},
		{
			name: "invalid key still creates job",
			src:  SourceReference{Bucket: "uploads", RawKey: "source/video.mp4"},
		},
		{
			name:    "empty bucket",
			src:     SourceReference{RawKey: "source/u1/clip.mp4"},
			wantErr: ErrEmptyBucket,
		},
		{
			name:    "empty key",
			src:     SourceReference{Bucket: "uploads"},
			wantErr: ErrEmptySourceKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := NewJob(tt.src, 2)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewJob() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewJob() unexpected error: %v", err)
			}
			if job.Status != JobStatusProcessing {
				t.Errorf("Status = %v, want %v", job.Status, JobStatusProcessing)
			}
			if job.Attempt != 2 {
				t.Errorf("Attempt = %d, want 2", job.Attempt)
			}
			if job.OwnerKey != tt.wantOwner {
				t.Errorf("OwnerKey = %q, want %q", job.OwnerKey, tt.wantOwner)
			}
			if job.BaseName != tt.wantBase {
				t.Errorf("BaseName = %q, want %q", job.BaseName, tt.wantBase)
			}
			if job.SourceKey != tt.src.RawKey {
				t.Errorf("SourceKey = %q, want %q", job.SourceKey, tt.src.RawKey)
			}
		})
	}
}

func TestJob_MarkReady(t *testing.T) {
	job, err := NewJob(SourceReference{Bucket: "b", RawKey: "source/u1/clip.mp4"}, 0)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	if err := job.MarkReady("https://cdn.example.com/u1/clip/master.m3u8"); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if !job.IsReady() {
		t.Error("expected job to be ready")
	}
	if job.MasterURL != "https://cdn.example.com/u1/clip/master.m3u8" {
		t.Errorf("MasterURL = %q", job.MasterURL)
	}

	if err := job.MarkFailed("upload", errors.New("late")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("MarkFailed after ready: error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestJob_MarkFailed(t *testing.T) {
	job, err := NewJob(SourceReference{Bucket: "b", RawKey: "source/u1/clip.mp4"}, 0)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	if err := job.MarkFailed("encode", errors.New("ffmpeg exited 1")); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if !job.IsFailed() {
		t.Error("expected job to be failed")
	}
	if job.FailedStage != "encode" {
		t.Errorf("FailedStage = %q, want encode", job.FailedStage)
	}
	if job.Error != "ffmpeg exited 1" {
		t.Errorf("Error = %q", job.Error)
	}
	if job.MasterURL != "" {
		t.Errorf("MasterURL should stay empty, got %q", job.MasterURL)
	}
}
