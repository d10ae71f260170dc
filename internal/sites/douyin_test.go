package sites

import (
	"testing"
)

func TestParseDouyinDetail(t *testing.T) {
	body := []byte(`{"aweme_detail":{
		"desc":"早安 #morning #vlog",
		"author":{"nickname":"creator"},
		"video":{
			"duration":15500,
			"play_addr":{"url_list":["https://v.example.com/play.mp4","https://v2.example.com/play.mp4"]},
			"cover":{"url_list":["https://p.example.com/cover.jpg"]}}}}`)

	rec, err := parseDouyinDetail(body)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rec.DirectURL != "https://v.example.com/play.mp4" {
		t.Errorf("Expected first play address, got %q", rec.DirectURL)
	}
	if rec.Title != "早安" {
		t.Errorf("Expected hashtags stripped, got %q", rec.Title)
	}
	if rec.DurationSec != 15.5 {
		t.Errorf("Expected 15.5s, got %v", rec.DurationSec)
	}
	if rec.Uploader != "creator" || rec.ThumbnailURL != "https://p.example.com/cover.jpg" {
		t.Errorf("Unexpected record: %+v", rec)
	}
}

func TestParseDouyinDetailNoPlayAddr(t *testing.T) {
	if _, err := parseDouyinDetail([]byte(`{"aweme_detail":{"video":{"play_addr":{"url_list":[]}}}}`)); err == nil {
		t.Error("Expected error for empty play address")
	}
}

func TestCleanDouyinTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"早安 #morning #vlog", "早安"},
		{"记录生活 - 抖音", "记录生活"},
		{"美食探店 | 抖音", "美食探店"},
		{"  spaced   out  ", "spaced out"},
		{"#only #tags", ""},
	}
	for _, tt := range tests {
		if got := CleanDouyinTitle(tt.in); got != tt.want {
			t.Errorf("CleanDouyinTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
