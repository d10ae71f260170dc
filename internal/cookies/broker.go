package cookies

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Exporter dumps a browser's cookie jar to a cookies.txt file. Satisfied by
// the extractor client.
type Exporter interface {
	ExportBrowserCookies(ctx context.Context, browserSpec, destPath, url string) error
}

const (
	// CacheFileName is the shared browser-cookie export inside the temp dir.
	CacheFileName = "browser_cookies.txt"
	// CacheMaxAge is how long an export stays usable before re-exporting.
	CacheMaxAge = 30 * time.Minute
)

// Source is the outcome of a cookie acquisition. Exactly one of File or
// BrowserSpec is set: File points at a cookies.txt, BrowserSpec is a
// BROWSER:PROFILE_DIR argument for the extractor's own cookie reader.
type Source struct {
	File        string
	BrowserSpec string
}

// Broker turns a configured browser into something the extractor can consume,
// caching exports and falling back to a shadow profile copy when the browser
// holds its cookie database locked.
type Broker struct {
	exporter Exporter
	tempDir  string

	// test seams
	now     func() time.Time
	dataDir func(browser string) (string, error)
}

// NewBroker returns a broker storing its cache under tempDir. An empty
// tempDir uses the system temp directory.
func NewBroker(exporter Exporter, tempDir string) *Broker {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Broker{
		exporter: exporter,
		tempDir:  tempDir,
		now:      time.Now,
		dataDir:  browserDataDir,
	}
}

// CachePath returns the location of the shared export file.
func (b *Broker) CachePath() string {
	return filepath.Join(b.tempDir, CacheFileName)
}

// Acquire produces a usable cookie source for the given browser. A fresh
// cached export is reused; otherwise the browser jar is re-exported, and if
// the export fails (typically a locked database while the browser runs) the
// profile is shadow-copied so the extractor can read it directly.
func (b *Broker) Acquire(ctx context.Context, browser, url string) (*Source, error) {
	cache := b.CachePath()
	if b.isFresh(cache) {
		return &Source{File: cache}, nil
	}

	exportErr := b.exporter.ExportBrowserCookies(ctx, browser, cache, url)
	if exportErr == nil {
		if info, err := os.Stat(cache); err == nil && info.Size() > 0 {
			return &Source{File: cache}, nil
		}
		exportErr = fmt.Errorf("cookie export produced no data for %s", browser)
	}
	log.Printf("Cookie export for %s failed, trying shadow copy: %v", browser, exportErr)

	spec, shadowErr := b.shadowCopy(browser)
	if shadowErr != nil {
		return nil, fmt.Errorf("cookie acquisition for %s failed: %w", browser, exportErr)
	}
	return &Source{BrowserSpec: spec}, nil
}

// isFresh reports whether the cache file exists and is recent enough.
func (b *Broker) isFresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return false
	}
	return b.now().Sub(info.ModTime()) < CacheMaxAge
}

// cookieDBCandidates are the relative cookie database locations inside a
// Chromium user-data directory, newest layout first.
var cookieDBCandidates = []string{
	filepath.Join("Default", "Network", "Cookies"),
	filepath.Join("Default", "Cookies"),
	filepath.Join("Profile 1", "Network", "Cookies"),
	filepath.Join("Profile 1", "Cookies"),
}

// shadowCopy clones the minimum of a Chromium profile (Local State plus the
// cookie database) into the temp dir and returns a BROWSER:DIR spec pointing
// at the clone. Reading the clone sidesteps the live browser's file lock.
func (b *Broker) shadowCopy(browser string) (string, error) {
	root, err := b.dataDir(browser)
	if err != nil {
		return "", err
	}

	shadow := filepath.Join(b.tempDir, "shadow_"+browser)
	if err := os.RemoveAll(shadow); err != nil {
		return "", fmt.Errorf("failed to reset shadow dir: %w", err)
	}

	var dbRel string
	for _, rel := range cookieDBCandidates {
		if _, err := os.Stat(filepath.Join(root, rel)); err == nil {
			dbRel = rel
			break
		}
	}
	if dbRel == "" {
		return "", fmt.Errorf("no cookie database found under %s", root)
	}

	if err := copyFile(filepath.Join(root, "Local State"), filepath.Join(shadow, "Local State")); err != nil {
		return "", fmt.Errorf("failed to shadow Local State: %w", err)
	}
	if err := copyFile(filepath.Join(root, dbRel), filepath.Join(shadow, dbRel)); err != nil {
		return "", fmt.Errorf("failed to shadow cookie database: %w", err)
	}

	return browser + ":" + shadow, nil
}

// PrepareUserCookieFile copies a user-supplied cookies.txt into the temp dir
// and returns the copy's path. The extractor may rewrite the file it is
// given, so the user's original is never handed over directly.
func (b *Broker) PrepareUserCookieFile(src string) (string, error) {
	if src == "" {
		return "", nil
	}
	dest := filepath.Join(b.tempDir, "cookies_"+uuid.NewString()+".txt")
	if err := copyFile(src, dest); err != nil {
		return "", fmt.Errorf("failed to copy cookie file: %w", err)
	}
	return dest, nil
}

// Invalidate removes the cached export so the next Acquire re-exports.
func (b *Broker) Invalidate() {
	if err := os.Remove(b.CachePath()); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove cookie cache: %v", err)
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// IsLockedDatabase reports whether an error message indicates the browser's
// cookie database could not be read because the browser is running.
func IsLockedDatabase(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not copy cookie database") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "permission denied")
}
