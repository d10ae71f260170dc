package postprocess

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mediagrab/media-downloader/internal/ffmpeg"
)

// subtitleExts are the sidecar formats the extractor can leave next to a
// download.
var subtitleExts = map[string]bool{
	".vtt": true,
	".srt": true,
	".ass": true,
	".lrc": true,
}

// DiscoverSubtitles lists subtitle sidecar files sharing mediaPath's
// basename, e.g. "clip.en.vtt" for "clip.mp4". Matching is done by prefix
// rather than glob so titles with glob metacharacters stay safe.
func DiscoverSubtitles(mediaPath string) ([]string, error) {
	dir := filepath.Dir(mediaPath)
	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var subs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, base+".") {
			continue
		}
		if subtitleExts[strings.ToLower(filepath.Ext(name))] {
			subs = append(subs, filepath.Join(dir, name))
		}
	}
	return subs, nil
}

// ConvertSubtitles converts every sidecar subtitle of mediaPath to
// targetFormat, preserving the language infix ("clip.en.vtt" becomes
// "clip.en.srt"). Originals are deleted only after a successful conversion;
// a failed file is kept in its source format and logged, not fatal.
func ConvertSubtitles(ctx context.Context, tool *ffmpeg.Tool, mediaPath, targetFormat string) ([]string, error) {
	if targetFormat == "" {
		return nil, nil
	}
	subs, err := DiscoverSubtitles(mediaPath)
	if err != nil {
		return nil, err
	}

	var converted []string
	for _, sub := range subs {
		ext := filepath.Ext(sub)
		if strings.TrimPrefix(ext, ".") == targetFormat {
			converted = append(converted, sub)
			continue
		}
		out := strings.TrimSuffix(sub, ext) + "." + targetFormat
		if err := tool.ConvertSubtitle(ctx, sub, out); err != nil {
			log.Printf("Subtitle conversion failed for %s: %v", sub, err)
			continue
		}
		if err := os.Remove(sub); err != nil {
			log.Printf("Failed to remove source subtitle %s: %v", sub, err)
		}
		converted = append(converted, out)
	}
	return converted, nil
}
