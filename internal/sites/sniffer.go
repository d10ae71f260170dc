package sites

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/mediagrab/media-downloader/internal/model"
)

// SnifferExtractor tags info records produced by the headless browser.
const SnifferExtractor = "BrowserFallback"

const (
	snifferTimeout  = 45 * time.Second
	snifferSettle   = 3 * time.Second
	snifferPollStep = 500 * time.Millisecond
)

// snifferUserAgent masks the headless browser on evasive runs.
const snifferUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Sniffer loads a page in a headless browser and captures the first media
// request it observes, along with the headers needed to replay it. It is the
// last fallback tier and only runs after the extractor has failed.
type Sniffer struct {
	Timeout time.Duration
}

// NewSniffer returns a sniffer with the default timeout.
func NewSniffer() *Sniffer {
	return &Sniffer{Timeout: snifferTimeout}
}

// Sniff loads pageURL and returns a record carrying the sniffed media URL.
// With evasive set, the browser launches with automation markers disabled
// for pages that block the plain headless profile.
func (s *Sniffer) Sniff(ctx context.Context, pageURL string, evasive bool) (*model.InfoRecord, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = snifferTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
	)
	if evasive {
		opts = append(opts,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("enable-automation", false),
			chromedp.UserAgent(snifferUserAgent),
		)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var (
		mu       sync.Mutex
		mediaURL string
		headers  map[string]string
	)
	chromedp.ListenTarget(browserCtx, func(ev any) {
		url, hdrs, ok := matchMediaEvent(ev)
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if mediaURL != "" {
			return
		}
		mediaURL = url
		headers = hdrs
	})

	if err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(pageURL),
	); err != nil {
		return nil, fmt.Errorf("page load failed: %w", err)
	}

	// Let the player boot and fire its first media request.
	deadline := time.Now().Add(timeout - snifferSettle)
	for {
		mu.Lock()
		found := mediaURL != ""
		mu.Unlock()
		if found || time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(snifferPollStep):
		}
	}

	var title string
	_ = chromedp.Run(browserCtx, chromedp.Title(&title))

	mu.Lock()
	defer mu.Unlock()
	if mediaURL == "" {
		// DOM fallback: some players set a plain src without a separate
		// media request. Blob URLs are useless outside the page.
		var domSrc string
		if err := chromedp.Run(browserCtx, chromedp.Evaluate(
			`(document.querySelector('video') || {}).src || ''`, &domSrc)); err == nil {
			if domSrc != "" && !strings.HasPrefix(domSrc, "blob:") {
				mediaURL = domSrc
				headers = map[string]string{
					"User-Agent": snifferUserAgent,
					"Referer":    pageURL,
				}
			}
		}
	}
	if mediaURL == "" {
		return nil, fmt.Errorf("no media request observed on %s", pageURL)
	}

	return &model.InfoRecord{
		Title:       strings.TrimSpace(title),
		Extractor:   SnifferExtractor,
		FetcherTier: model.TierSniffer,
		DirectURL:   mediaURL,
		Headers:     headers,
	}, nil
}

// matchMediaEvent inspects a network event for playable media. Requests are
// matched on the URL path; responses also match on the reported MIME type,
// which catches media served from extension-less URLs.
func matchMediaEvent(ev any) (string, map[string]string, bool) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		url := e.Request.URL
		if isMediaURL(url, "") && !isBlockedURL(url) {
			return url, captureHeaders(e.Request.Headers), true
		}
	case *network.EventResponseReceived:
		url := e.Response.URL
		if isMediaURL(url, e.Response.MimeType) && !isBlockedURL(url) {
			return url, captureHeaders(e.Response.RequestHeaders), true
		}
	}
	return "", nil, false
}

// isMediaURL reports whether a request URL or its response MIME type looks
// like playable media.
func isMediaURL(rawURL, mimeType string) bool {
	if mimeType != "" {
		if strings.HasPrefix(mimeType, "video/") ||
			mimeType == "application/vnd.apple.mpegurl" ||
			mimeType == "application/x-mpegurl" {
			return true
		}
	}
	path := rawURL
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	path = strings.ToLower(path)
	return strings.HasSuffix(path, ".mp4") || strings.HasSuffix(path, ".m3u8")
}

// isBlockedURL filters requests that signal an auth wall rather than media.
func isBlockedURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.Contains(lower, "login") || strings.Contains(lower, "captcha")
}

// captureHeaders keeps only the headers worth replaying on the media fetch.
func captureHeaders(raw network.Headers) map[string]string {
	wanted := []string{"User-Agent", "Cookie", "Referer", "Origin"}
	out := make(map[string]string)
	for _, name := range wanted {
		for key, value := range raw {
			if strings.EqualFold(key, name) {
				if s, ok := value.(string); ok && s != "" {
					out[name] = s
				}
			}
		}
	}
	return out
}
