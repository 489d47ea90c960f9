package transcoder

import (
	"context"
	"fmt"
)

// Profile represents a single rung of the rendition ladder.
type Profile struct {
	// Name is the identifier for this rendition (e.g., "1080p"). It prefixes every
	// file the rendition produces.
	Name string
	// Width and Height bound the encoded frame. The source is only ever scaled down.
	Width  int
	Height int
	// BitrateKbps is the target video bitrate in kilobits per second.
	BitrateKbps int
}

// Bandwidth returns the bitrate in bits per second, as declared in the master playlist.
func (p Profile) Bandwidth() int {
	return p.BitrateKbps * 1000
}

// PlaylistName returns the rendition playlist filename, e.g. "720p.m3u8".
func (p Profile) PlaylistName() string {
	return p.Name + ".m3u8"
}

// SegmentPattern returns the printf-style segment filename, e.g. "720p_%03d.ts".
func (p Profile) SegmentPattern() string {
	return p.Name + "_%03d.ts"
}

// DefaultLadder returns the fixed rendition ladder, highest quality first.
// Order only affects the order of entries in the master playlist.
func DefaultLadder() []Profile {
	return []Profile{
		{Name: "1080p", Width: 1920, Height: 1080, BitrateKbps: 5000},
		{Name: "720p", Width: 1280, Height: 720, BitrateKbps: 3000},
		{Name: "480p", Width: 854, Height: 480, BitrateKbps: 1500},
	}
}

// RenditionOutput contains the result for a single encoded profile.
type RenditionOutput struct {
	// Profile is the configuration used for this output.
	Profile Profile
	// PlaylistPath is the local path of the rendition playlist.
	PlaylistPath string
	// SegmentPaths contains local paths to every segment the playlist references.
	SegmentPaths []string
}

// EncodeError reports the encoder failure that aborted a ladder.
type EncodeError struct {
	// Profile is the name of the rendition that failed.
	Profile string
	// Stderr is the tail of the encoder's standard error, if any was captured.
	Stderr string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("encode %s: %v", e.Profile, e.Err)
	}
	return fmt.Sprintf("encode %s: %v: %s", e.Profile, e.Err, e.Stderr)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Transcoder defines the interface for driving the encoder through a ladder.
type Transcoder interface {
	// EncodeLadder encodes inputPath once per profile, in order, writing every
	// rendition playlist and segment directly into outputDir.
	//
	// It fails fast: the first profile whose encode fails aborts the ladder with an
	// *EncodeError naming that profile, and no outputs are returned. Files written by
	// earlier profiles are left in outputDir for the caller to remove.
	//
	// The output directory must exist before calling this method.
	EncodeLadder(ctx context.Context, inputPath, outputDir string, profiles []Profile) ([]RenditionOutput, error)
}
