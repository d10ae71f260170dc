package model

import (
	"fmt"
	"strings"
	"time"
)

// ProgressKind distinguishes what a progress event describes.
type ProgressKind string

const (
	ProgressDownloading    ProgressKind = "downloading"
	ProgressPostProcessing ProgressKind = "postprocessing"
	ProgressCutting        ProgressKind = "cutting"
	ProgressFinished       ProgressKind = "finished"
)

// Progress is a cross-thread UI update for one task. Workers publish these
// into the engine's event queue; they never call UI code directly.
type Progress struct {
	TaskID  string
	Kind    ProgressKind
	Percent int // 0..100, -1 when indeterminate
	Speed   string
	ETASec  int // -1 when unknown
	Message string
	Path    string // filename reported by a "finished" event, if any
	At      time.Time
}

// ETAString returns the ETA formatted as mm:ss or hh:mm:ss, or "—" when
// unknown.
func (p Progress) ETAString() string {
	if p.ETASec <= 0 {
		return "—"
	}

	hours := p.ETASec / 3600
	minutes := (p.ETASec % 3600) / 60
	seconds := p.ETASec % 60

	var b strings.Builder
	if hours > 0 {
		b.WriteString(fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds))
		return b.String()
	}
	b.WriteString(fmt.Sprintf("%02d:%02d", minutes, seconds))
	return b.String()
}

// FormatSpeed renders a bytes-per-second rate as a human readable string.
func FormatSpeed(bytesPerSecond float64) string {
	if bytesPerSecond <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1fMB/s", bytesPerSecond/1024/1024)
}
