// Package credential materializes a base64-encoded service-account document as a
// private file that client libraries can read by path.
package credential

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrEmptyCredential is returned when no credential blob is configured.
var ErrEmptyCredential = errors.New("credential blob is empty")

// File is a decoded credential written to disk with owner-only permissions.
// Close removes it.
type File struct {
	path string
}

// Materialize decodes blob and writes it to a new 0600 file in dir
// (os.TempDir() when dir is empty). The decoded content must be a JSON object.
func Materialize(blob, dir string) (*File, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, ErrEmptyCredential
	}

	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("credential is not a JSON object: %w", err)
	}

	// CreateTemp opens with mode 0600.
	f, err := os.CreateTemp(dir, "credential-*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create credential file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write credential file: %w", err)
	}

	return &File{path: f.Name()}, nil
}

// Path returns the location of the credential file.
func (f *File) Path() string {
	return f.path
}

// Close removes the credential file. It is safe to call more than once.
func (f *File) Close() error {
	if f == nil || f.path == "" {
		return nil
	}
	err := os.Remove(f.path)
	f.path = ""
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}
