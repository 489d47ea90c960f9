package model

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// SourcePrefix is the fixed first path segment of every accepted upload key.
	SourcePrefix = "source"

	// OutputRoot is the first path segment of every published HLS object.
	OutputRoot = "hls"

	// MasterPlaylistName is the filename of the master playlist inside an output prefix.
	MasterPlaylistName = "master.m3u8"
)

var (
	// sourceKeyPattern matches source/<ownerKey>/<filename>.<ext> after decoding.
	// The filename group is greedy, so only the last extension is stripped.
	sourceKeyPattern = regexp.MustCompile(`^` + SourcePrefix + `/([^/]+)/([^/]+)\.([^/.]+)$`)

	// separatorRun matches characters that may not appear in a storage key or URL path
	// segment unescaped, plus runs of two or more underscores.
	separatorRun = regexp.MustCompile(`[^A-Za-z0-9._]+|_{2,}`)

	hyphenRun = regexp.MustCompile(`-{2,}`)
)

// SourceReference identifies an uploaded object as delivered by the trigger.
// RawKey is kept exactly as received (it may still be percent-encoded).
type SourceReference struct {
	Bucket string
	RawKey string
}

// DecodedKey returns the object key with percent-encoding and '+'-as-space decoded.
// If the key is not valid percent-encoding the raw key is returned unchanged.
func (s SourceReference) DecodedKey() string {
	decoded, err := decodeKey(s.RawKey)
	if err != nil {
		return s.RawKey
	}
	return decoded
}

func (s SourceReference) String() string {
	return s.Bucket + "/" + s.RawKey
}

// SourceKey is the validated identity derived from a source object key.
type SourceKey struct {
	// OwnerKey is the second path segment, used verbatim.
	OwnerKey string
	// BaseName is the sanitized filename without extension.
	BaseName string
}

// OutputPrefix returns the storage namespace for every artifact of this source:
// hls/<ownerKey>/<baseName>/
func (k SourceKey) OutputPrefix() string {
	return OutputRoot + "/" + k.OwnerKey + "/" + k.BaseName + "/"
}

// ObjectKey returns the storage key of a file published under the output prefix.
func (k SourceKey) ObjectKey(filename string) string {
	return k.OutputPrefix() + filename
}

// MasterURL returns the externally reachable master playlist URL.
// Format: {publicBaseURL}/{ownerKey}/{baseName}/master.m3u8
func (k SourceKey) MasterURL(publicBaseURL string) string {
	return fmt.Sprintf("%s/%s/%s/%s",
		strings.TrimRight(publicBaseURL, "/"), k.OwnerKey, k.BaseName, MasterPlaylistName)
}

// ParseSourceKey decodes and validates a raw source object key and derives the
// owner key and sanitized base name from it.
// Returns *ValidationError if the key does not match source/<ownerKey>/<filename>.<ext>.
func ParseSourceKey(rawKey string) (SourceKey, error) {
	key, err := decodeKey(rawKey)
	if err != nil {
		return SourceKey{}, &ValidationError{Key: rawKey, Reason: "invalid percent-encoding"}
	}

	m := sourceKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return SourceKey{}, &ValidationError{
			Key:    rawKey,
			Reason: "expected " + SourcePrefix + "/<ownerKey>/<filename>.<ext>",
		}
	}

	baseName := SanitizeBaseName(m[2])
	if baseName == "" {
		return SourceKey{}, &ValidationError{Key: rawKey, Reason: "filename has no usable characters"}
	}

	// Dot segments would resolve outside the owner's output prefix.
	if isDotSegment(m[1]) {
		return SourceKey{}, &ValidationError{Key: rawKey, Reason: "owner key cannot be a dot segment"}
	}
	if isDotSegment(baseName) {
		return SourceKey{}, &ValidationError{Key: rawKey, Reason: "filename cannot be a dot segment"}
	}

	return SourceKey{
		OwnerKey: m[1],
		BaseName: baseName,
	}, nil
}

// SanitizeBaseName turns an extension-less filename into a name that can be
// embedded in storage keys and URLs without escaping.
// It is pure and idempotent: SanitizeBaseName(SanitizeBaseName(x)) == SanitizeBaseName(x).
func SanitizeBaseName(name string) string {
	s := separatorRun.ReplaceAllString(name, "-")
	s = hyphenRun.ReplaceAllString(s, "-")
	s = strings.TrimPrefix(s, "-")
	// Tail hyphens and underscores are trimmed together so the result is a fixed point.
	return strings.TrimRight(s, "-_")
}

func isDotSegment(s string) bool {
	return s == "." || s == ".."
}

// decodeKey mirrors object-store event encoding: '+' is a space, %XX is a byte.
func decodeKey(rawKey string) (string, error) {
	return url.QueryUnescape(rawKey)
}
