package model

// Platform identifies the hosting site a URL belongs to. The set is closed;
// the router maps every URL to exactly one tag.
type Platform string

const (
	PlatformUnknown       Platform = "UNKNOWN"
	PlatformYouTube       Platform = "YOUTUBE"
	PlatformBilibili      Platform = "BILIBILI_CN"
	PlatformInstagram     Platform = "INSTAGRAM"
	PlatformTikTok        Platform = "TIKTOK"
	PlatformDouyin        Platform = "DOUYIN"
	PlatformDailymotion   Platform = "DAILYMOTION"
	PlatformFacebookStory Platform = "FACEBOOK_STORY"
	PlatformGeneral       Platform = "GENERAL"
)

// String returns the string representation of the platform tag
func (p Platform) String() string {
	return string(p)
}
