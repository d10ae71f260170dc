package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/mediagrab/media-downloader/internal/model"
)

// douyinDetailPath marks the XHR the page makes for its own video metadata.
// Intercepting it is far more reliable than scraping the DOM.
const douyinDetailPath = "/aweme/v1/web/aweme/detail"

const douyinTimeout = 40 * time.Second

var douyinHashtagPattern = regexp.MustCompile(`#\S+`)

// DouyinClient resolves Douyin share links by loading the page headless and
// intercepting the site's own detail API response.
type DouyinClient struct {
	Timeout time.Duration
}

// NewDouyinClient returns a Douyin tier-1 client.
func NewDouyinClient() *DouyinClient {
	return &DouyinClient{Timeout: douyinTimeout}
}

// FetchInfo implements the tier-1 info interface.
func (c *DouyinClient) FetchInfo(ctx context.Context, rawURL string) (*model.InfoRecord, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = douyinTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(snifferUserAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var (
		mu     sync.Mutex
		record *model.InfoRecord
	)
	chromedp.ListenTarget(browserCtx, func(ev any) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || !strings.Contains(resp.Response.URL, douyinDetailPath) {
			return
		}
		requestID := resp.RequestID
		go func() {
			exec := chromedp.FromContext(browserCtx)
			body, err := network.GetResponseBody(requestID).Do(cdp.WithExecutor(browserCtx, exec.Target))
			if err != nil {
				return
			}
			if rec, err := parseDouyinDetail(body); err == nil {
				mu.Lock()
				if record == nil {
					record = rec
				}
				mu.Unlock()
			}
		}()
	})

	if err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(rawURL),
	); err != nil {
		return nil, fmt.Errorf("page load failed: %w", err)
	}

	deadline := time.Now().Add(timeout - 5*time.Second)
	for {
		mu.Lock()
		found := record != nil
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

	mu.Lock()
	rec := record
	mu.Unlock()
	if rec != nil {
		return rec, nil
	}

	// DOM fallback when the detail API never fires (e.g. pre-rendered pages).
	var domSrc, pageTitle string
	if err := chromedp.Run(browserCtx,
		chromedp.Evaluate(`(document.querySelector('video') || {}).src || ''`, &domSrc),
		chromedp.Title(&pageTitle),
	); err != nil {
		return nil, fmt.Errorf("no detail response and DOM probe failed: %w", err)
	}
	if domSrc == "" || strings.HasPrefix(domSrc, "blob:") {
		return nil, fmt.Errorf("no playable media found on %s", rawURL)
	}
	return &model.InfoRecord{
		Title:       CleanDouyinTitle(pageTitle),
		Extractor:   "douyin",
		FetcherTier: model.TierPlatform,
		DirectURL:   domSrc,
		Headers: map[string]string{
			"User-Agent": snifferUserAgent,
			"Referer":    "https://www.douyin.com/",
		},
	}, nil
}

type douyinDetail struct {
	AwemeDetail struct {
		Desc   string `json:"desc"`
		Author struct {
			Nickname string `json:"nickname"`
		} `json:"author"`
		Video struct {
			Duration int64 `json:"duration"` // milliseconds
			PlayAddr struct {
				URLList []string `json:"url_list"`
			} `json:"play_addr"`
			Cover struct {
				URLList []string `json:"url_list"`
			} `json:"cover"`
		} `json:"video"`
	} `json:"aweme_detail"`
}

// parseDouyinDetail maps a detail API body to an info record.
func parseDouyinDetail(body []byte) (*model.InfoRecord, error) {
	var detail douyinDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("failed to parse detail response: %w", err)
	}
	urls := detail.AwemeDetail.Video.PlayAddr.URLList
	if len(urls) == 0 || urls[0] == "" {
		return nil, fmt.Errorf("detail response carries no play address")
	}

	rec := &model.InfoRecord{
		Title:       CleanDouyinTitle(detail.AwemeDetail.Desc),
		Uploader:    detail.AwemeDetail.Author.Nickname,
		DurationSec: float64(detail.AwemeDetail.Video.Duration) / 1000,
		Extractor:   "douyin",
		FetcherTier: model.TierPlatform,
		DirectURL:   urls[0],
		Headers: map[string]string{
			"User-Agent": snifferUserAgent,
			"Referer":    "https://www.douyin.com/",
		},
	}
	if covers := detail.AwemeDetail.Video.Cover.URLList; len(covers) > 0 {
		rec.ThumbnailURL = covers[0]
	}
	return rec, nil
}

// CleanDouyinTitle strips hashtags and the site's page-title suffixes from a
// caption so it can serve as a filename.
func CleanDouyinTitle(title string) string {
	title = douyinHashtagPattern.ReplaceAllString(title, "")
	for _, suffix := range []string{"- 抖音", "| 抖音", "_抖音"} {
		if idx := strings.LastIndex(title, suffix); idx >= 0 {
			title = title[:idx]
		}
	}
	return strings.Join(strings.Fields(title), " ")
}
