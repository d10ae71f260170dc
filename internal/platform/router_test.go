package platform

import (
	"testing"

	"github.com/mediagrab/media-downloader/internal/model"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		url  string
		want model.Platform
	}{
		{"", model.PlatformUnknown},
		{"   ", model.PlatformUnknown},
		{"https://www.instagram.com/reel/abc/", model.PlatformInstagram},
		{"https://www.tiktok.com/@user/video/123", model.PlatformTikTok},
		{"https://www.douyin.com/video/123", model.PlatformDouyin},
		{"https://www.dailymotion.com/video/x8abc", model.PlatformDailymotion},
		{"https://dai.ly/x8abc", model.PlatformDailymotion},
		{"https://www.bilibili.com/video/BV1xx411c7mD", model.PlatformBilibili},
		{"https://www.facebook.com/stories/12345", model.PlatformFacebookStory},
		{"https://www.facebook.com/your_story/?id=1", model.PlatformFacebookStory},
		{"https://www.facebook.com/watch?v=123", model.PlatformGeneral},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", model.PlatformYouTube},
		{"https://youtu.be/dQw4w9WgXcQ", model.PlatformYouTube},
		{"https://vimeo.com/12345", model.PlatformGeneral},
	}

	for _, tt := range tests {
		if got := Detect(tt.url); got != tt.want {
			t.Errorf("Detect(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestDetectAlwaysInClosedSet(t *testing.T) {
	known := map[model.Platform]bool{
		model.PlatformUnknown:       true,
		model.PlatformYouTube:       true,
		model.PlatformBilibili:      true,
		model.PlatformInstagram:     true,
		model.PlatformTikTok:        true,
		model.PlatformDouyin:        true,
		model.PlatformDailymotion:   true,
		model.PlatformFacebookStory: true,
		model.PlatformGeneral:       true,
	}

	urls := []string{
		"",
		"not a url at all",
		"https://example.org/video.mp4",
		"ftp://host/file",
		"https://www.bilibili.com/",
	}
	for _, url := range urls {
		if !known[Detect(url)] {
			t.Errorf("Detect(%q) returned a tag outside the closed set: %s", url, Detect(url))
		}
	}
}
