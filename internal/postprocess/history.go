package postprocess

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mediagrab/media-downloader/internal/model"
)

// BuildHistoryRecord assembles the record persisted after a successful
// download. Size is in MiB rounded to one decimal; a missing file records
// zero rather than failing.
func BuildHistoryRecord(p model.Platform, title, path, url string, now time.Time) model.HistoryRecord {
	var sizeMB float64
	if info, err := os.Stat(path); err == nil {
		sizeMB = math.Round(float64(info.Size())/(1024*1024)*10) / 10
	}
	return model.HistoryRecord{
		Platform: p,
		Title:    title,
		Path:     path,
		Format:   strings.ToUpper(strings.TrimPrefix(filepath.Ext(path), ".")),
		SizeMB:   sizeMB,
		Date:     now.Local().Format("2006-01-02 15:04"),
		URL:      url,
	}
}
