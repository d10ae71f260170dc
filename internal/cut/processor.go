package cut

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mediagrab/media-downloader/internal/ffmpeg"
	"github.com/mediagrab/media-downloader/internal/model"
)

// Processor applies the download_then_cut strategy: trim the finished file in
// place, replacing the full download with the requested window.
type Processor struct {
	tool *ffmpeg.Tool
}

// NewProcessor returns a cut processor backed by tool.
func NewProcessor(tool *ffmpeg.Tool) *Processor {
	return &Processor{tool: tool}
}

// Apply trims path to the task's cut window. Tasks without an after-download
// cut pass through untouched. On failure the full download is kept and the
// error returned, so the caller can surface a warning without losing the
// file.
func (p *Processor) Apply(ctx context.Context, task *model.Task, path string, onProgress func(percent int)) (string, error) {
	if !task.CutMode || task.CutStrategy != model.CutAfterDownload {
		return path, nil
	}
	start, end := task.StartSec, task.EndSec

	window := end - start
	if window <= 0 {
		if dur, err := p.tool.ProbeDuration(ctx, path); err == nil && dur > start {
			window = dur - start
		}
	}

	tmp := tempCutPath(path)
	defer os.Remove(tmp)

	err := p.tool.Cut(ctx, path, tmp, start, end, task.CutMethod, func(sec float64) {
		if onProgress == nil || window <= 0 {
			return
		}
		pct := int(sec / window * 100)
		if pct > 100 {
			pct = 100
		}
		onProgress(pct)
	})
	if err != nil {
		return path, fmt.Errorf("cut failed, keeping full file: %w", err)
	}

	if err := os.Remove(path); err != nil {
		log.Printf("Failed to remove pre-cut file %s: %v", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return path, fmt.Errorf("failed to move cut output into place: %w", err)
	}
	return path, nil
}

// tempCutPath keeps the extension so the container format is preserved.
func tempCutPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".cut" + ext
}
