package postprocess

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/mediagrab/media-downloader/internal/ffmpeg"
)

// FixupHLS repairs downloads that ended up with a .m3u8 extension. A file
// that really is a playlist gets remuxed into an mp4; a media file that was
// merely misnamed is renamed. Anything else passes through.
func FixupHLS(ctx context.Context, tool *ffmpeg.Tool, path string) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), ".m3u8") {
		return path, nil
	}

	target := strings.TrimSuffix(path, filepath.Ext(path)) + ".mp4"

	if isPlaylist(path) {
		if err := tool.RemuxToMP4(ctx, path, target); err != nil {
			return path, fmt.Errorf("hls remux failed: %w", err)
		}
		if err := os.Remove(path); err != nil {
			return target, fmt.Errorf("failed to remove playlist after remux: %w", err)
		}
		return target, nil
	}

	if err := os.Rename(path, target); err != nil {
		return path, fmt.Errorf("failed to rename misnamed media file: %w", err)
	}
	return target, nil
}

func isPlaylist(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	_, _, err = m3u8.DecodeFrom(bufio.NewReader(f), true)
	return err == nil
}
