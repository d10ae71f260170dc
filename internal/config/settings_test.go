package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mediagrab/media-downloader/internal/model"
)

func newTestSettings(t *testing.T) *Settings {
	t.Helper()
	s, err := NewSettings(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("Failed to create settings: %v", err)
	}
	return s
}

func TestSettingsDefaults(t *testing.T) {
	s := newTestSettings(t)

	if s.GetLanguage() != DefaultLanguage {
		t.Errorf("Expected default language %q, got %q", DefaultLanguage, s.GetLanguage())
	}
	if s.GetDefaultVideoExt() != "mp4" {
		t.Errorf("Expected default video ext mp4, got %q", s.GetDefaultVideoExt())
	}
	if s.GetDefaultAudioExt() != "mp3" {
		t.Errorf("Expected default audio ext mp3, got %q", s.GetDefaultAudioExt())
	}
	if s.GetVideoCodecPriority() != CodecAuto {
		t.Errorf("Expected auto codec priority, got %q", s.GetVideoCodecPriority())
	}
	if s.GetCutMethod() != model.CutStreamCopy {
		t.Errorf("Expected stream_copy cut method, got %q", s.GetCutMethod())
	}
	if s.GetUseArchive() {
		t.Error("Expected archive disabled by default")
	}
	if s.GetCookieFile() != "" {
		t.Errorf("Expected no cookie file, got %q", s.GetCookieFile())
	}
}

func TestSettingsSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	s, err := NewSettings(path)
	if err != nil {
		t.Fatalf("Failed to create settings: %v", err)
	}
	s.SetSavePath("/media/downloads")
	s.SetVideoCodecPriority(CodecAV1)
	s.SetUseArchive(true)
	s.SetSpeedLimitKB(512)
	s.SetSponsorBlockCategory("sponsor", true)
	s.SetSponsorBlockCategory("intro", true)
	if err := s.Save(); err != nil {
		t.Fatalf("Failed to save settings: %v", err)
	}

	loaded, err := NewSettings(path)
	if err != nil {
		t.Fatalf("Failed to reload settings: %v", err)
	}
	if loaded.GetSavePath() != "/media/downloads" {
		t.Errorf("Expected save path to round-trip, got %q", loaded.GetSavePath())
	}
	if loaded.GetVideoCodecPriority() != CodecAV1 {
		t.Errorf("Expected av1 priority, got %q", loaded.GetVideoCodecPriority())
	}
	if !loaded.GetUseArchive() {
		t.Error("Expected archive flag to round-trip")
	}
	cats := loaded.GetSponsorBlockCategories()
	if len(cats) != 2 {
		t.Errorf("Expected 2 sponsorblock categories, got %v", cats)
	}
	// JSON numbers come back as float64; the getter must still return an int.
	if loaded.GetSpeedLimitKB() != 512 {
		t.Errorf("Expected speed limit to round-trip, got %d", loaded.GetSpeedLimitKB())
	}
}

func TestSettingsWebmH264Incompatible(t *testing.T) {
	s := newTestSettings(t)
	s.SetDefaultVideoExt("webm")

	if err := s.SetVideoCodecPriority(CodecH264); err == nil {
		t.Error("Expected error for webm + h264")
	}
	// The pair reverts to auto
	if s.GetVideoCodecPriority() != CodecAuto {
		t.Errorf("Expected codec reverted to auto, got %q", s.GetVideoCodecPriority())
	}

	// h264 is fine with mp4
	s.SetDefaultVideoExt("mp4")
	if err := s.SetVideoCodecPriority(CodecH264); err != nil {
		t.Errorf("Expected no error for mp4 + h264, got %v", err)
	}
}

func TestSettingsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to seed corrupt file: %v", err)
	}

	if _, err := NewSettings(path); err == nil {
		t.Error("Expected error for corrupt settings file")
	}
}
