package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"time"

	"github.com/mediagrab/media-downloader/internal/model"
)

const dailymotionBase = "https://www.dailymotion.com"

// dailymotionIDPattern matches both full video URLs and dai.ly short links.
var dailymotionIDPattern = regexp.MustCompile(`(?:dailymotion\.com/video/|dai\.ly/)([a-zA-Z0-9]+)`)

// DailymotionClient resolves videos through the public player metadata
// endpoint, which returns an HLS master URL without authentication.
type DailymotionClient struct {
	httpClient *http.Client
	apiBase    string
}

// NewDailymotionClient returns a Dailymotion tier-1 client.
func NewDailymotionClient() *DailymotionClient {
	return &DailymotionClient{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		apiBase:    dailymotionBase,
	}
}

type dailymotionMetadata struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Poster   string  `json:"poster_url"`
	Owner    struct {
		Screenname string `json:"screenname"`
	} `json:"owner"`
	Qualities map[string][]struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"qualities"`
}

// firstStreamURL prefers the adaptive "auto" quality and otherwise scans the
// remaining qualities in name order for the first non-empty URL.
func (m *dailymotionMetadata) firstStreamURL() string {
	if auto := m.Qualities["auto"]; len(auto) > 0 && auto[0].URL != "" {
		return auto[0].URL
	}
	names := make([]string, 0, len(m.Qualities))
	for name := range m.Qualities {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, q := range m.Qualities[name] {
			if q.URL != "" {
				return q.URL
			}
		}
	}
	return ""
}

// FetchInfo implements the tier-1 info interface.
func (c *DailymotionClient) FetchInfo(ctx context.Context, rawURL string) (*model.InfoRecord, error) {
	match := dailymotionIDPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return nil, fmt.Errorf("no video id found in %s", rawURL)
	}
	videoID := match[1]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/player/metadata/video/"+videoID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata endpoint returned status %d", resp.StatusCode)
	}

	var meta dailymotionMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	streamURL := meta.firstStreamURL()
	if streamURL == "" {
		return nil, fmt.Errorf("metadata carries no playable stream for %s", videoID)
	}

	return &model.InfoRecord{
		Title:        meta.Title,
		Uploader:     meta.Owner.Screenname,
		DurationSec:  meta.Duration,
		ThumbnailURL: meta.Poster,
		Extractor:    "dailymotion",
		FetcherTier:  model.TierPlatform,
		DirectURL:    streamURL,
		Headers: map[string]string{
			"Referer": dailymotionBase + "/",
		},
	}, nil
}
