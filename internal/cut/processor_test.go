package cut

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mediagrab/media-downloader/internal/ffmpeg"
	"github.com/mediagrab/media-downloader/internal/model"
)

func TestApplyPassthroughWithoutCut(t *testing.T) {
	proc := NewProcessor(ffmpeg.NewTool("", nil))

	tests := []*model.Task{
		{},
		{CutMode: false, CutStrategy: model.CutAfterDownload},
		{CutMode: true, CutStrategy: model.CutDirect},
	}
	for _, task := range tests {
		path, err := proc.Apply(context.Background(), task, "/videos/file.mp4", nil)
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if path != "/videos/file.mp4" {
			t.Errorf("Expected passthrough, got %q", path)
		}
	}
}

func TestApplyFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(original, []byte("full download"), 0o644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	proc := NewProcessor(ffmpeg.NewTool(filepath.Join(dir, "missing-ffmpeg"), nil))
	task := &model.Task{
		CutMode:     true,
		CutStrategy: model.CutAfterDownload,
		CutMethod:   model.CutStreamCopy,
		StartSec:    10,
		EndSec:      40,
	}

	path, err := proc.Apply(context.Background(), task, original, nil)
	if err == nil {
		t.Fatal("Expected cut error")
	}
	if path != original {
		t.Errorf("Expected original path returned, got %q", path)
	}
	if data, readErr := os.ReadFile(original); readErr != nil || string(data) != "full download" {
		t.Errorf("Expected full file kept, got %q err %v", data, readErr)
	}
}

func TestTempCutPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/videos/clip.mp4", "/videos/clip.cut.mp4"},
		{"/videos/audio.opus", "/videos/audio.cut.opus"},
		{"/videos/noext", "/videos/noext.cut"},
	}
	for _, tt := range tests {
		if got := tempCutPath(tt.in); got != tt.want {
			t.Errorf("tempCutPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
