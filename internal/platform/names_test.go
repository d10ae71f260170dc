package platform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Plain Title", "Plain Title"},
		{`What? A "quote" <here>`, "What A quote here"},
		{"a/b\\c|d", "abcd"},
		{"trailing dots...", "trailing dots"},
		{"  spaced  ", "spaced"},
		{"", "download"},
		{"***", "download"},
		{"line\r\nbreak", "linebreak"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilenameLength(t *testing.T) {
	long := strings.Repeat("a", 400)
	if got := SanitizeFilename(long); len(got) > 180 {
		t.Errorf("Expected basename capped at 180 chars, got %d", len(got))
	}
}

func TestUniqueNameNoCollision(t *testing.T) {
	dir := t.TempDir()

	name, renamed := UniqueName(dir, "Video", "mp4")
	if name != "Video" || renamed {
		t.Errorf("Expected ('Video', false), got (%q, %v)", name, renamed)
	}
}

func TestUniqueNameCollisions(t *testing.T) {
	dir := t.TempDir()

	for _, f := range []string{"Video.mp4", "Video (1).mp4"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to seed file: %v", err)
		}
	}

	name, renamed := UniqueName(dir, "Video", "mp4")
	if name != "Video (2)" {
		t.Errorf("Expected 'Video (2)', got %q", name)
	}
	if !renamed {
		t.Error("Expected renamed=true on collision")
	}

	// A collision on another extension does not count
	name, renamed = UniqueName(dir, "Video", "mp3")
	if name != "Video" || renamed {
		t.Errorf("Expected ('Video', false) for mp3, got (%q, %v)", name, renamed)
	}
}

func TestPredictBaseName(t *testing.T) {
	if got := PredictBaseName("", "My Title", false); got != "My Title" {
		t.Errorf("Expected title, got %q", got)
	}
	if got := PredictBaseName("Custom", "My Title", false); got != "Custom" {
		t.Errorf("Expected user filename to win, got %q", got)
	}
	if got := PredictBaseName("", "", false); got != "download" {
		t.Errorf("Expected 'download' fallback, got %q", got)
	}

	got := PredictBaseName("", "My Title", true)
	if !strings.Contains(got, "(Cut)") {
		t.Errorf("Expected cut suffix in %q", got)
	}
	// The suffix is not doubled
	got = PredictBaseName("My Title (Cut)", "", true)
	if strings.Count(got, "(Cut)") != 1 {
		t.Errorf("Expected exactly one cut suffix in %q", got)
	}
}

func TestParsePlaylistItems(t *testing.T) {
	tests := []struct {
		expr  string
		total int
		want  []int
	}{
		{"all", 3, []int{1, 2, 3}},
		{"", 3, []int{1, 2, 3}},
		{"2", 5, []int{2}},
		{"1,3", 5, []int{1, 3}},
		{"2-5,8", 10, []int{2, 3, 4, 5, 8}},
		{"2-5", 3, []int{2, 3}},        // clamped to total
		{"9", 3, []int{1, 2, 3}},       // out of range collapses to all
		{"abc", 4, []int{1, 2, 3, 4}},  // parse error falls back to all
		{"5-2", 4, []int{1, 2, 3, 4}},  // inverted range falls back to all
		{"1,,2", 4, []int{1, 2, 3, 4}}, // empty element falls back to all
		{"2,2,3", 5, []int{2, 3}},      // duplicates dropped
	}

	for _, tt := range tests {
		got := ParsePlaylistItems(tt.expr, tt.total)
		if len(got) != len(tt.want) {
			t.Errorf("ParsePlaylistItems(%q, %d) = %v, want %v", tt.expr, tt.total, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParsePlaylistItems(%q, %d) = %v, want %v", tt.expr, tt.total, got, tt.want)
				break
			}
		}
	}
}
