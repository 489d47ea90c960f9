package transcoder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SynthesizeMaster renders the master playlist for a complete ladder.
// Entries follow the order of outputs. BANDWIDTH and RESOLUTION come from the
// declared profile rather than the encoded frame, which may be padded by a pixel.
// Rendition playlists are referenced by bare filename because they share the
// master playlist's prefix.
func SynthesizeMaster(outputs []RenditionOutput) []byte {
	var sb strings.Builder
	sb.WriteString("#EXTM3U\n")
	sb.WriteString("#EXT-X-VERSION:3\n")

	for _, o := range outputs {
		sb.WriteString(fmt.Sprintf(
			"#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d\n",
			o.Profile.Bandwidth(), o.Profile.Width, o.Profile.Height,
		))
		sb.WriteString(filepath.Base(o.PlaylistPath))
		sb.WriteString("\n")
	}

	return []byte(sb.String())
}

// WriteMasterPlaylist synthesizes the master playlist and writes it to path.
func WriteMasterPlaylist(path string, outputs []RenditionOutput) error {
	if err := os.WriteFile(path, SynthesizeMaster(outputs), 0644); err != nil {
		return fmt.Errorf("write master playlist: %w", err)
	}
	return nil
}
