package extractor

import (
	"testing"
)

func TestParseInfoJSONSingleVideo(t *testing.T) {
	raw := `{
		"title": "Test Video",
		"uploader": "Test Channel",
		"duration": 213.5,
		"thumbnail": "https://example.com/thumb.jpg",
		"extractor": "youtube",
		"subtitles": {"en": [{"ext": "vtt"}, {"ext": "srt"}]},
		"automatic_captions": {"vi": [{"ext": "vtt"}]}
	}`

	info, err := ParseInfoJSON(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if info.Title != "Test Video" {
		t.Errorf("Expected title 'Test Video', got %q", info.Title)
	}
	if info.Uploader != "Test Channel" {
		t.Errorf("Expected uploader 'Test Channel', got %q", info.Uploader)
	}
	if info.DurationSec != 213.5 {
		t.Errorf("Expected duration 213.5, got %v", info.DurationSec)
	}
	if info.IsPlaylist {
		t.Error("Expected single video, got playlist")
	}
	if formats := info.Subtitles["en"]; len(formats) != 2 || formats[0] != "vtt" {
		t.Errorf("Expected en subtitle formats [vtt srt], got %v", formats)
	}
	if _, ok := info.AutomaticCaptions["vi"]; !ok {
		t.Error("Expected vi automatic captions")
	}
}

func TestParseInfoJSONPlaylist(t *testing.T) {
	raw := `{
		"_type": "playlist",
		"title": "Test Playlist",
		"entries": [
			{"id": "a1", "url": "https://example.com/a1", "title": "First"},
			{"id": "b2", "url": "https://example.com/b2", "title": "Second"}
		]
	}`

	info, err := ParseInfoJSON(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !info.IsPlaylist {
		t.Fatal("Expected playlist record")
	}
	if len(info.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(info.Entries))
	}
	if info.Entries[1].Title != "Second" || info.Entries[1].ID != "b2" {
		t.Errorf("Unexpected second entry: %+v", info.Entries[1])
	}
}

func TestParseInfoJSONChannelFallback(t *testing.T) {
	info, err := ParseInfoJSON(`{"title": "T", "channel": "Channel Name"}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if info.Uploader != "Channel Name" {
		t.Errorf("Expected channel fallback for uploader, got %q", info.Uploader)
	}
}

func TestParseInfoJSONInvalid(t *testing.T) {
	if _, err := ParseInfoJSON("not json"); err == nil {
		t.Error("Expected error for invalid json")
	}
}

func TestFormatDownloadSections(t *testing.T) {
	tests := []struct {
		start, end float64
		want       string
	}{
		{10, 40, "*10-40"},
		{0, 90.5, "*0-90.5"},
		{10, 0, "*10-inf"},
		{0, 0, "*0-inf"},
	}
	for _, tt := range tests {
		if got := FormatDownloadSections(tt.start, tt.end); got != tt.want {
			t.Errorf("FormatDownloadSections(%v, %v) = %q, want %q", tt.start, tt.end, got, tt.want)
		}
	}
}
