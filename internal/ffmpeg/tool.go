package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mediagrab/media-downloader/internal/model"
)

// FFmpeg invocation constants
const (
	FFmpegCommand  = "ffmpeg"
	FFprobeCommand = "ffprobe"

	// Cut re-encode settings
	CutVideoCodec  = "libx264"
	CutPreset      = "fast"
	CutCRF         = "23"
	CutAudioCodec  = "aac"
	CutAudioRate   = "192k"
	AvoidNegTSMode = "make_zero"

	// ffprobe duration query
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"

	// Progress output parsing
	ProgressPipeTarget = "pipe:2"
	ProgressTimePrefix = "out_time_us="
	StderrTimePrefix   = "time="
)

// Registrar tracks spawned subprocesses so they can be killed on cancel.
type Registrar interface {
	Register(cmd *exec.Cmd) error
	Deregister(cmd *exec.Cmd)
}

// Tool wraps the external media-processing executable. All operations are
// synchronous; progress is reported through an optional callback with the
// processed position in seconds.
type Tool struct {
	Path      string
	ProbePath string
	registrar Registrar
}

// NewTool returns a Tool rooted at path (or "ffmpeg" from PATH when empty),
// registering subprocesses with reg when non-nil.
func NewTool(path string, reg Registrar) *Tool {
	if path == "" {
		path = FFmpegCommand
	}
	return &Tool{Path: path, ProbePath: FFprobeCommand, registrar: reg}
}

// Available checks whether the media tool is executable.
func (t *Tool) Available() bool {
	_, err := exec.LookPath(t.Path)
	return err == nil
}

// ProbeDuration returns the media duration in seconds using ffprobe.
func (t *Tool) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.ProbePath,
		"-v", FFprobeLogLevel,
		"-show_entries", FFprobeShowEntries,
		"-of", FFprobeOutputFormat,
		path)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", durationStr, err)
	}
	return duration, nil
}

// BuildCutArgs builds the argument list for a cut. The stream_copy method is
// keyframe-aligned; re_encode is frame-accurate. An end of 0 means "until
// the end" and omits the -to flag.
func BuildCutArgs(in, out string, startSec, endSec float64, method model.CutMethod) []string {
	args := []string{"-y", "-ss", formatSeconds(startSec), "-i", in}
	if endSec > 0 {
		args = append(args, "-to", formatSeconds(endSec-startSec))
	}

	switch method {
	case model.CutReEncode:
		args = append(args,
			"-c:v", CutVideoCodec,
			"-preset", CutPreset,
			"-crf", CutCRF,
			"-c:a", CutAudioCodec,
			"-b:a", CutAudioRate,
		)
	default: // stream_copy
		args = append(args, "-c", "copy")
	}

	args = append(args,
		"-avoid_negative_ts", AvoidNegTSMode,
		"-progress", ProgressPipeTarget,
		"-nostats",
		out,
	)
	return args
}

// Cut writes the [startSec, endSec] window of in to out.
func (t *Tool) Cut(ctx context.Context, in, out string, startSec, endSec float64, method model.CutMethod, progress func(sec float64)) error {
	return t.run(ctx, BuildCutArgs(in, out, startSec, endSec, method), progress)
}

// RemuxToMP4 rewraps in into an mp4 container with stream copy.
func (t *Tool) RemuxToMP4(ctx context.Context, in, out string) error {
	args := []string{"-y", "-i", in, "-c", "copy", "-movflags", "+faststart", out}
	return t.run(ctx, args, nil)
}

// ConvertSubtitle converts a subtitle file to the container implied by the
// output extension.
func (t *Tool) ConvertSubtitle(ctx context.Context, in, out string) error {
	args := []string{"-y", "-i", in, out}
	return t.run(ctx, args, nil)
}

// Merge combines separate video and audio tracks into out, copying the video
// stream and transcoding audio to AAC. Used for DASH tracks fetched by the
// platform clients.
func (t *Tool) Merge(ctx context.Context, videoPath, audioPath, out string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		out,
	}
	return t.run(ctx, args, nil)
}

func (t *Tool) run(ctx context.Context, args []string, progress func(sec float64)) error {
	cmd := exec.CommandContext(ctx, t.Path, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if t.registrar != nil {
		if err := t.registrar.Register(cmd); err != nil {
			return err
		}
		defer t.registrar.Deregister(cmd)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", t.Path, err)
	}

	done := make(chan struct{})
	go func() {
		monitorProgress(stderr, progress)
		close(done)
	}()

	err = cmd.Wait()
	<-done
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w", t.Path, err)
	}
	return nil
}

// monitorProgress parses ffmpeg progress output. Both the -progress
// key-value stream (out_time_us=) and plain stderr stats lines
// (time=HH:MM:SS.ss) are understood.
func monitorProgress(r io.Reader, progress func(sec float64)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		sec, ok := ParseProgressLine(line)
		if ok && progress != nil {
			progress(sec)
		}
	}
}

// ParseProgressLine extracts a position in seconds from one line of ffmpeg
// progress output.
func ParseProgressLine(line string) (float64, bool) {
	if strings.HasPrefix(line, ProgressTimePrefix) {
		us, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
		if err != nil || us < 0 {
			return 0, false
		}
		return float64(us) / 1e6, true
	}

	if idx := strings.Index(line, StderrTimePrefix); idx >= 0 {
		field := line[idx+len(StderrTimePrefix):]
		if end := strings.IndexByte(field, ' '); end >= 0 {
			field = field[:end]
		}
		return parseClock(field)
	}
	return 0, false
}

// parseClock parses HH:MM:SS(.fff) into seconds.
func parseClock(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err1 := strconv.Atoi(parts[0])
	minutes, err2 := strconv.Atoi(parts[1])
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return float64(hours)*3600 + float64(minutes)*60 + seconds, true
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', -1, 64)
}
