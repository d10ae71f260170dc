package cookies

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeExporter struct {
	err     error
	payload string
	calls   int
}

func (f *fakeExporter) ExportBrowserCookies(_ context.Context, _, destPath, _ string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(destPath, []byte(f.payload), 0o644)
}

func TestAcquireExportsAndCaches(t *testing.T) {
	dir := t.TempDir()
	exp := &fakeExporter{payload: "# Netscape HTTP Cookie File\n.example.com\tTRUE\t/\tFALSE\t0\tsid\tabc\n"}
	broker := NewBroker(exp, dir)

	src, err := broker.Acquire(context.Background(), "chrome", "https://example.com")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if src.File != broker.CachePath() {
		t.Errorf("Expected cache path %q, got %q", broker.CachePath(), src.File)
	}

	// Second acquire within the freshness window reuses the cache.
	if _, err := broker.Acquire(context.Background(), "chrome", "https://example.com"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if exp.calls != 1 {
		t.Errorf("Expected 1 export call, got %d", exp.calls)
	}
}

func TestAcquireStaleCacheReExports(t *testing.T) {
	dir := t.TempDir()
	exp := &fakeExporter{payload: "cookies"}
	broker := NewBroker(exp, dir)

	if err := os.WriteFile(broker.CachePath(), []byte("old"), 0o644); err != nil {
		t.Fatalf("Failed to seed cache: %v", err)
	}
	broker.now = func() time.Time { return time.Now().Add(CacheMaxAge + time.Minute) }

	if _, err := broker.Acquire(context.Background(), "chrome", "https://example.com"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if exp.calls != 1 {
		t.Errorf("Expected re-export on stale cache, got %d calls", exp.calls)
	}
}

func TestAcquireShadowFallback(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "profile")
	for _, f := range []string{
		"Local State",
		filepath.Join("Default", "Network", "Cookies"),
	} {
		path := filepath.Join(profile, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to build fake profile: %v", err)
		}
		if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
			t.Fatalf("Failed to build fake profile: %v", err)
		}
	}

	exp := &fakeExporter{err: errors.New("could not copy cookie database")}
	broker := NewBroker(exp, dir)
	broker.dataDir = func(string) (string, error) { return profile, nil }

	src, err := broker.Acquire(context.Background(), "chrome", "https://example.com")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if src.BrowserSpec == "" {
		t.Fatal("Expected browser spec from shadow copy")
	}
	shadow := strings.TrimPrefix(src.BrowserSpec, "chrome:")
	if shadow == src.BrowserSpec {
		t.Fatalf("Expected chrome: prefix, got %q", src.BrowserSpec)
	}
	for _, f := range []string{"Local State", filepath.Join("Default", "Network", "Cookies")} {
		if _, err := os.Stat(filepath.Join(shadow, f)); err != nil {
			t.Errorf("Expected %s in shadow copy: %v", f, err)
		}
	}
}

func TestAcquireFailsWhenNothingWorks(t *testing.T) {
	dir := t.TempDir()
	exp := &fakeExporter{err: errors.New("export broke")}
	broker := NewBroker(exp, dir)
	broker.dataDir = func(string) (string, error) { return filepath.Join(dir, "missing"), nil }

	if _, err := broker.Acquire(context.Background(), "chrome", "https://example.com"); err == nil {
		t.Error("Expected error when export and shadow both fail")
	}
}

func TestPrepareUserCookieFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "user.txt")
	if err := os.WriteFile(src, []byte("jar"), 0o644); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}

	broker := NewBroker(&fakeExporter{}, dir)
	copyPath, err := broker.PrepareUserCookieFile(src)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if copyPath == src {
		t.Error("Expected a copy, got the original path")
	}
	data, err := os.ReadFile(copyPath)
	if err != nil || string(data) != "jar" {
		t.Errorf("Expected copied contents, got %q err %v", data, err)
	}

	// Empty source means no cookies, not an error.
	if path, err := broker.PrepareUserCookieFile(""); err != nil || path != "" {
		t.Errorf("Expected empty result for empty source, got %q err %v", path, err)
	}
}

func TestIsLockedDatabase(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("could not copy cookie database"), true},
		{errors.New("sqlite: database is locked"), true},
		{errors.New("open Cookies: Permission denied"), true},
		{errors.New("network unreachable"), false},
	}
	for _, tt := range tests {
		if got := IsLockedDatabase(tt.err); got != tt.want {
			t.Errorf("IsLockedDatabase(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
