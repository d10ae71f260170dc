package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mediagrab/media-downloader/internal/model"
)

const (
	tiktokResolverBase = "https://www.tikwm.com"
	tiktokUserAgent    = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

// TikTokClient resolves TikTok videos through a public resolver service,
// preferring the watermark-free HD rendition. The resolved URL is fetched by
// the manual downloader with the headers returned here.
type TikTokClient struct {
	httpClient *http.Client
	apiBase    string
}

// NewTikTokClient returns a TikTok tier-1 client.
func NewTikTokClient() *TikTokClient {
	return &TikTokClient{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		apiBase:    tiktokResolverBase,
	}
}

type tiktokResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ID       string  `json:"id"`
		Title    string  `json:"title"`
		Play     string  `json:"play"`
		HDPlay   string  `json:"hdplay"`
		Cover    string  `json:"cover"`
		Duration float64 `json:"duration"`
		Author   struct {
			Nickname string `json:"nickname"`
		} `json:"author"`
	} `json:"data"`
}

// FetchInfo implements the tier-1 info interface. The record carries the
// direct media URL so the download phase needs no second resolution.
func (c *TikTokClient) FetchInfo(ctx context.Context, rawURL string) (*model.InfoRecord, error) {
	form := url.Values{}
	form.Set("url", rawURL)
	form.Set("hd", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/api/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", tiktokUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolver request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolver returned status %d", resp.StatusCode)
	}

	var parsed tiktokResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode resolver response: %w", err)
	}
	if parsed.Code != 0 {
		return nil, fmt.Errorf("resolver error: %s", parsed.Msg)
	}

	mediaURL := parsed.Data.HDPlay
	if mediaURL == "" {
		mediaURL = parsed.Data.Play
	}
	if mediaURL == "" {
		return nil, fmt.Errorf("resolver returned no playable url")
	}
	// Relative media paths point back at the resolver host.
	if strings.HasPrefix(mediaURL, "/") {
		mediaURL = c.apiBase + mediaURL
	}

	title := parsed.Data.Title
	if title == "" {
		title = "tiktok_" + parsed.Data.ID
	}
	return &model.InfoRecord{
		Title:        title,
		Uploader:     parsed.Data.Author.Nickname,
		DurationSec:  parsed.Data.Duration,
		ThumbnailURL: parsed.Data.Cover,
		Extractor:    "tiktok",
		FetcherTier:  model.TierPlatform,
		DirectURL:    mediaURL,
		Headers: map[string]string{
			"User-Agent": tiktokUserAgent,
			"Referer":    "https://www.tiktok.com/",
		},
	}, nil
}
