package platform

import (
	"strings"

	"github.com/mediagrab/media-downloader/internal/model"
)

// Detect classifies a URL into a platform tag. Rules are ordered substring
// matches; anything unmatched is GENERAL. An empty URL is UNKNOWN and must
// be rejected by the caller.
func Detect(url string) model.Platform {
	url = strings.TrimSpace(url)
	if url == "" {
		return model.PlatformUnknown
	}

	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "instagram.com"):
		return model.PlatformInstagram
	case strings.Contains(lower, "tiktok.com"):
		return model.PlatformTikTok
	case strings.Contains(lower, "douyin.com"):
		return model.PlatformDouyin
	case strings.Contains(lower, "dailymotion.com"), strings.Contains(lower, "dai.ly"):
		return model.PlatformDailymotion
	case strings.Contains(lower, "bilibili.com"):
		return model.PlatformBilibili
	case strings.Contains(lower, "facebook.com") &&
		(strings.Contains(lower, "stories") || strings.Contains(lower, "your_story")):
		return model.PlatformFacebookStory
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return model.PlatformYouTube
	}
	return model.PlatformGeneral
}
