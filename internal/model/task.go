package model

import (
	"fmt"
	"strings"
	"time"
)

// FormatClass is the user-facing format choice for a task.
type FormatClass string

const (
	FormatAudioOpus     FormatClass = "audio_opus"
	FormatAudioM4A      FormatClass = "audio_m4a"
	FormatAudioMP3      FormatClass = "audio_mp3"
	FormatAudioLossless FormatClass = "audio_lossless"
	FormatVideo4K       FormatClass = "video_4k"
	FormatVideo2K       FormatClass = "video_2k"
	FormatVideo1080     FormatClass = "video_1080"
	FormatVideo720      FormatClass = "video_720"
	FormatVideo480      FormatClass = "video_480"
	FormatVideo360      FormatClass = "video_360"
	FormatVideo240      FormatClass = "video_240"
	FormatVideo144      FormatClass = "video_144"
	FormatSubsOnly      FormatClass = "sub_only"
)

// IsAudio reports whether the class belongs to the audio family.
func (fc FormatClass) IsAudio() bool {
	return strings.HasPrefix(string(fc), "audio_")
}

// IsVideo reports whether the class belongs to the video family.
func (fc FormatClass) IsVideo() bool {
	return strings.HasPrefix(string(fc), "video_")
}

// CutMethod selects how a cut is performed.
type CutMethod string

const (
	// CutStreamCopy is fast and keyframe-aligned.
	CutStreamCopy CutMethod = "stream_copy"
	// CutReEncode is slow and frame-accurate.
	CutReEncode CutMethod = "re_encode"
)

// CutStrategy selects when the cut happens relative to the download.
type CutStrategy string

const (
	// CutDirect passes a download-range hint to the extractor so the
	// pipeline stream-cuts inline.
	CutDirect CutStrategy = "direct_cut"
	// CutAfterDownload downloads the full media and cuts afterwards.
	CutAfterDownload CutStrategy = "download_then_cut"
)

// Task is an immutable download request record. It is created by the caller
// at enqueue time and never mutated; one task produces zero or one output
// file. Runtime state (status, progress) is tracked by the engine, not here.
type Task struct {
	ID           string
	URL          string
	DisplayTitle string
	Format       FormatClass
	UserFilename string // optional; overrides the media title
	SavePath     string

	CookieFile string // optional per-task cookies.txt

	CutMode     bool
	CutMethod   CutMethod
	CutStrategy CutStrategy
	StartSec    float64
	EndSec      float64 // 0 means "until the end"

	DownloadSubs bool
	SubLangs     []string
	SubFormat    string

	IsPlaylist    bool
	PlaylistItems string // "all", "2-5,8", ... (empty means all)
	ResolvedURL   string // direct media URL from a platform client, if any

	CreatedAt time.Time
}

// DisplayName returns the best human-readable identifier for the task:
// explicit display title, then user filename, then the URL.
func (t *Task) DisplayName() string {
	if t.DisplayTitle != "" && !strings.HasPrefix(t.DisplayTitle, "http") {
		return t.DisplayTitle
	}
	if t.UserFilename != "" {
		return t.UserFilename
	}
	return t.URL
}

// EffectiveURL returns the resolved media URL when a platform client already
// produced one, and the original URL otherwise.
func (t *Task) EffectiveURL() string {
	if t.ResolvedURL != "" {
		return t.ResolvedURL
	}
	return t.URL
}

// CutWindow formats the requested cut range for logging.
func (t *Task) CutWindow() string {
	if !t.CutMode {
		return ""
	}
	if t.EndSec <= 0 {
		return fmt.Sprintf("%.1fs-end", t.StartSec)
	}
	return fmt.Sprintf("%.1fs-%.1fs", t.StartSec, t.EndSec)
}
