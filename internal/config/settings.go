package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mediagrab/media-downloader/internal/model"
)

// Settings keys in the JSON settings file
const (
	KeyLanguage           = "language"
	KeyTheme              = "theme"
	KeySavePath           = "save_path"
	KeyDefaultVideoExt    = "default_video_ext"
	KeyDefaultAudioExt    = "default_audio_ext"
	KeyVideoCodecPriority = "video_codec_priority"
	KeyAddMetadata        = "add_metadata"
	KeyEmbedThumbnail     = "embed_thumbnail"
	KeyCookieFile         = "cookie_file"
	KeyBrowserSource      = "browser_source"
	KeyCutMethod          = "cut_method"
	KeyGeoBypassCountry   = "geo_bypass_country"
	KeyProxyURL           = "proxy_url"
	KeyUseArchive         = "use_archive"
	KeySplitChapters      = "split_chapters"
	KeySpeedLimitKB       = "speed_limit_kb"

	// SponsorBlock category flags are stored as sb_<category>
	sponsorBlockKeyPrefix = "sb_"
)

// CodecPriority values for video downloads
const (
	CodecAuto = "auto"
	CodecH264 = "h264"
	CodecAV1  = "av1"
)

// Default values
const (
	DefaultLanguage      = "en"
	DefaultTheme         = "dark"
	DefaultVideoExt      = "mp4"
	DefaultAudioExt      = "mp3"
	DefaultCodecPriority = CodecAuto
	DefaultCutMethod     = string(model.CutStreamCopy)
)

// SponsorBlockCategories lists the category flags the planner recognizes.
var SponsorBlockCategories = []string{
	"sponsor", "intro", "outro", "selfpromo", "interaction", "music_offtopic",
}

// Settings manages the application configuration, persisted as a flat
// key-value JSON file. Getters write defaults back on first read so a fresh
// settings file fills itself in as the app is used.
type Settings struct {
	path string

	mu     sync.RWMutex
	values map[string]any
}

// NewSettings loads (or initializes) the settings file at path.
func NewSettings(path string) (*Settings, error) {
	s := &Settings{path: path, values: make(map[string]any)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return s, nil
}

// Save writes the settings file atomically (temp file + rename).
func (s *Settings) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.values, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create settings dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *Settings) getString(key, fallback string) string {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	if ok {
		if str, ok := v.(string); ok && str != "" {
			return str
		}
	}
	if fallback != "" {
		s.setValue(key, fallback)
	}
	return fallback
}

func (s *Settings) getBool(key string, fallback bool) bool {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	if ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

func (s *Settings) getInt(key string, fallback int) int {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	if ok {
		// JSON numbers decode as float64.
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return fallback
}

func (s *Settings) setValue(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// GetLanguage returns the UI language code.
func (s *Settings) GetLanguage() string { return s.getString(KeyLanguage, DefaultLanguage) }

// SetLanguage sets the UI language code.
func (s *Settings) SetLanguage(lang string) { s.setValue(KeyLanguage, lang) }

// GetTheme returns the UI theme name.
func (s *Settings) GetTheme() string { return s.getString(KeyTheme, DefaultTheme) }

// SetTheme sets the UI theme name.
func (s *Settings) SetTheme(theme string) { s.setValue(KeyTheme, theme) }

// GetSavePath returns the configured download directory, defaulting to the
// user's Downloads folder.
func (s *Settings) GetSavePath() string {
	dir := s.getString(KeySavePath, "")
	if dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	dir = filepath.Join(home, "Downloads")
	s.setValue(KeySavePath, dir)
	return dir
}

// SetSavePath sets the download directory.
func (s *Settings) SetSavePath(dir string) { s.setValue(KeySavePath, dir) }

// GetDefaultVideoExt returns the preferred video container.
func (s *Settings) GetDefaultVideoExt() string {
	return s.getString(KeyDefaultVideoExt, DefaultVideoExt)
}

// SetDefaultVideoExt sets the preferred video container.
func (s *Settings) SetDefaultVideoExt(ext string) { s.setValue(KeyDefaultVideoExt, ext) }

// GetDefaultAudioExt returns the preferred audio container.
func (s *Settings) GetDefaultAudioExt() string {
	return s.getString(KeyDefaultAudioExt, DefaultAudioExt)
}

// SetDefaultAudioExt sets the preferred audio container.
func (s *Settings) SetDefaultAudioExt(ext string) { s.setValue(KeyDefaultAudioExt, ext) }

// GetVideoCodecPriority returns the codec preference (auto, h264, av1).
func (s *Settings) GetVideoCodecPriority() string {
	return s.getString(KeyVideoCodecPriority, DefaultCodecPriority)
}

// SetVideoCodecPriority sets the codec preference. A WEBM container with
// h264 priority is incompatible; the pair reverts to auto.
func (s *Settings) SetVideoCodecPriority(codec string) error {
	if codec == CodecH264 && strings.EqualFold(s.GetDefaultVideoExt(), "webm") {
		s.setValue(KeyVideoCodecPriority, CodecAuto)
		return fmt.Errorf("webm container is incompatible with h264 priority")
	}
	s.setValue(KeyVideoCodecPriority, codec)
	return nil
}

// GetAddMetadata reports whether media metadata is embedded.
func (s *Settings) GetAddMetadata() bool { return s.getBool(KeyAddMetadata, false) }

// SetAddMetadata toggles metadata embedding.
func (s *Settings) SetAddMetadata(v bool) { s.setValue(KeyAddMetadata, v) }

// GetEmbedThumbnail reports whether thumbnails are embedded.
func (s *Settings) GetEmbedThumbnail() bool { return s.getBool(KeyEmbedThumbnail, false) }

// SetEmbedThumbnail toggles thumbnail embedding.
func (s *Settings) SetEmbedThumbnail(v bool) { s.setValue(KeyEmbedThumbnail, v) }

// GetCookieFile returns the global cookies.txt path, if configured.
func (s *Settings) GetCookieFile() string { return s.getString(KeyCookieFile, "") }

// SetCookieFile sets the global cookies.txt path.
func (s *Settings) SetCookieFile(path string) { s.setValue(KeyCookieFile, path) }

// GetBrowserSource returns the browser to extract cookies from, if any.
func (s *Settings) GetBrowserSource() string { return s.getString(KeyBrowserSource, "") }

// SetBrowserSource sets the cookie-source browser.
func (s *Settings) SetBrowserSource(name string) { s.setValue(KeyBrowserSource, name) }

// GetCutMethod returns the default cut method.
func (s *Settings) GetCutMethod() model.CutMethod {
	return model.CutMethod(s.getString(KeyCutMethod, DefaultCutMethod))
}

// SetCutMethod sets the default cut method.
func (s *Settings) SetCutMethod(m model.CutMethod) { s.setValue(KeyCutMethod, string(m)) }

// GetGeoBypassCountry returns the two-letter geo-bypass country, if any.
func (s *Settings) GetGeoBypassCountry() string { return s.getString(KeyGeoBypassCountry, "") }

// SetGeoBypassCountry sets the geo-bypass country.
func (s *Settings) SetGeoBypassCountry(cc string) { s.setValue(KeyGeoBypassCountry, cc) }

// GetProxyURL returns the proxy URL, if any.
func (s *Settings) GetProxyURL() string { return s.getString(KeyProxyURL, "") }

// SetProxyURL sets the proxy URL.
func (s *Settings) SetProxyURL(url string) { s.setValue(KeyProxyURL, url) }

// GetUseArchive reports whether the download archive is enabled.
func (s *Settings) GetUseArchive() bool { return s.getBool(KeyUseArchive, false) }

// SetUseArchive toggles the download archive.
func (s *Settings) SetUseArchive(v bool) { s.setValue(KeyUseArchive, v) }

// GetSplitChapters reports whether downloads are split by chapter.
func (s *Settings) GetSplitChapters() bool { return s.getBool(KeySplitChapters, false) }

// SetSplitChapters toggles chapter splitting.
func (s *Settings) SetSplitChapters(v bool) { s.setValue(KeySplitChapters, v) }

// GetSpeedLimitKB returns the download speed cap in KiB/s for direct HTTP
// fetches; 0 means unlimited.
func (s *Settings) GetSpeedLimitKB() int { return s.getInt(KeySpeedLimitKB, 0) }

// SetSpeedLimitKB sets the download speed cap in KiB/s.
func (s *Settings) SetSpeedLimitKB(kb int) { s.setValue(KeySpeedLimitKB, kb) }

// GetSponsorBlockCategories returns the enabled SponsorBlock categories.
func (s *Settings) GetSponsorBlockCategories() []string {
	var out []string
	for _, cat := range SponsorBlockCategories {
		if s.getBool(sponsorBlockKeyPrefix+cat, false) {
			out = append(out, cat)
		}
	}
	return out
}

// SetSponsorBlockCategory toggles one SponsorBlock category.
func (s *Settings) SetSponsorBlockCategory(category string, enabled bool) {
	s.setValue(sponsorBlockKeyPrefix+category, enabled)
}
