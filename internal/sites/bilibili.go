package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/mediagrab/media-downloader/internal/ffmpeg"
	"github.com/mediagrab/media-downloader/internal/model"
)

const (
	bilibiliAPIBase   = "https://api.bilibili.com"
	bilibiliReferer   = "https://www.bilibili.com"
	bilibiliUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

	// fnval 4048 requests every DASH stream family in one playurl call.
	playFnval = "4048"
	playFnver = "0"

	wbiKeyTTL = 12 * time.Hour
)

var bvidPattern = regexp.MustCompile(`(BV[0-9A-Za-z]{10})`)

// BilibiliClient is the tier-1 client for bilibili.com. It signs playurl
// requests with the WBI scheme and resolves separate DASH video and audio
// streams that get merged locally.
type BilibiliClient struct {
	httpClient  *http.Client // API calls, short overall timeout
	mediaClient *http.Client // stream fetches, no overall timeout
	tool        *ffmpeg.Tool
	tempDir     string
	apiBase     string

	mu     sync.Mutex
	imgKey string
	subKey string
	keysAt time.Time
}

// NewBilibiliClient returns a client merging streams with tool. An empty
// tempDir uses the system temp directory.
func NewBilibiliClient(tool *ffmpeg.Tool, tempDir string) *BilibiliClient {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &BilibiliClient{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		mediaClient: &http.Client{},
		tool:        tool,
		tempDir:     tempDir,
		apiBase:     bilibiliAPIBase,
	}
}

type biliEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type biliView struct {
	BVID     string `json:"bvid"`
	CID      int64  `json:"cid"`
	Title    string `json:"title"`
	Pic      string `json:"pic"`
	Duration int    `json:"duration"`
	Owner    struct {
		Name string `json:"name"`
	} `json:"owner"`
}

type biliPlay struct {
	Dash struct {
		Video []biliTrack `json:"video"`
		Audio []biliTrack `json:"audio"`
	} `json:"dash"`
	Durl []struct {
		URL string `json:"url"`
	} `json:"durl"`
}

type biliTrack struct {
	ID      int    `json:"id"`
	BaseURL string `json:"baseUrl"`
}

// Streams is the resolved media for one video: DASH video plus audio, or a
// single progressive URL when the site serves no DASH.
type Streams struct {
	Title    string
	VideoURL string
	AudioURL string // empty for progressive streams
	Headers  map[string]string
}

// FetchInfo implements the tier-1 info interface.
func (c *BilibiliClient) FetchInfo(ctx context.Context, rawURL string) (*model.InfoRecord, error) {
	view, err := c.view(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return &model.InfoRecord{
		Title:        view.Title,
		Uploader:     view.Owner.Name,
		DurationSec:  float64(view.Duration),
		ThumbnailURL: view.Pic,
		Extractor:    "bilibili",
		FetcherTier:  model.TierPlatform,
	}, nil
}

// ResolveStreams resolves the playable stream URLs for a video. The highest
// quality DASH tracks come first in the playurl response, so the first entry
// of each list is taken.
func (c *BilibiliClient) ResolveStreams(ctx context.Context, rawURL string) (*Streams, error) {
	view, err := c.view(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	imgKey, subKey, err := c.wbiKeys(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("bvid", view.BVID)
	params.Set("cid", fmt.Sprintf("%d", view.CID))
	params.Set("fnval", playFnval)
	params.Set("fnver", playFnver)
	params.Set("fourk", "1")
	params.Set("platform", "web")
	signWBI(params, imgKey, subKey, time.Now())

	var play biliPlay
	if err := c.getJSON(ctx, c.apiBase+"/x/player/wbi/playurl?"+params.Encode(), &play); err != nil {
		return nil, err
	}

	streams := &Streams{
		Title: view.Title,
		Headers: map[string]string{
			"User-Agent": bilibiliUserAgent,
			"Referer":    bilibiliReferer,
		},
	}
	switch {
	case len(play.Dash.Video) > 0:
		streams.VideoURL = play.Dash.Video[0].BaseURL
		if len(play.Dash.Audio) > 0 {
			streams.AudioURL = play.Dash.Audio[0].BaseURL
		}
	case len(play.Durl) > 0:
		streams.VideoURL = play.Durl[0].URL
	default:
		return nil, model.NewTaskError(model.ErrKindWBI, fmt.Errorf("playurl returned no streams for %s", view.BVID))
	}
	return streams, nil
}

// Download resolves and fetches a video to destPath, merging DASH tracks
// when the site serves video and audio separately.
func (c *BilibiliClient) Download(ctx context.Context, rawURL, destPath string, onProgress func(written, total int64)) error {
	streams, err := c.ResolveStreams(ctx, rawURL)
	if err != nil {
		return err
	}

	if streams.AudioURL == "" {
		return c.fetchToFile(ctx, streams.VideoURL, destPath, streams.Headers, onProgress)
	}

	videoTmp := filepath.Join(c.tempDir, filepath.Base(destPath)+".video.m4s")
	audioTmp := filepath.Join(c.tempDir, filepath.Base(destPath)+".audio.m4s")
	defer os.Remove(videoTmp)
	defer os.Remove(audioTmp)

	if err := c.fetchToFile(ctx, streams.VideoURL, videoTmp, streams.Headers, onProgress); err != nil {
		return fmt.Errorf("video stream download failed: %w", err)
	}
	if err := c.fetchToFile(ctx, streams.AudioURL, audioTmp, streams.Headers, nil); err != nil {
		return fmt.Errorf("audio stream download failed: %w", err)
	}
	if err := c.tool.Merge(ctx, videoTmp, audioTmp, destPath); err != nil {
		return fmt.Errorf("stream merge failed: %w", err)
	}
	return nil
}

func (c *BilibiliClient) view(ctx context.Context, rawURL string) (*biliView, error) {
	bvid := bvidPattern.FindString(rawURL)
	if bvid == "" {
		return nil, fmt.Errorf("no video id found in %s", rawURL)
	}
	var view biliView
	if err := c.getJSON(ctx, c.apiBase+"/x/web-interface/view?bvid="+bvid, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// wbiKeys returns the cached signing keys, refreshing from the nav endpoint
// when stale. The keys rotate daily on the site side.
func (c *BilibiliClient) wbiKeys(ctx context.Context) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.imgKey != "" && time.Since(c.keysAt) < wbiKeyTTL {
		return c.imgKey, c.subKey, nil
	}

	var nav struct {
		WbiImg struct {
			ImgURL string `json:"img_url"`
			SubURL string `json:"sub_url"`
		} `json:"wbi_img"`
	}
	if err := c.getJSON(ctx, c.apiBase+"/x/web-interface/nav", &nav); err != nil {
		return "", "", fmt.Errorf("failed to fetch signing keys: %w", err)
	}
	c.imgKey = keyFromBucketURL(nav.WbiImg.ImgURL)
	c.subKey = keyFromBucketURL(nav.WbiImg.SubURL)
	c.keysAt = time.Now()
	if c.imgKey == "" || c.subKey == "" {
		return "", "", model.NewTaskError(model.ErrKindWBI, fmt.Errorf("nav endpoint returned empty signing keys"))
	}
	return c.imgKey, c.subKey, nil
}

// getJSON performs a browser-headed GET and unwraps the site's envelope. A
// 412 means the signature was rejected.
func (c *BilibiliClient) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", bilibiliUserAgent)
	req.Header.Set("Referer", bilibiliReferer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPreconditionFailed {
		return model.NewTaskError(model.ErrKindWBI, fmt.Errorf("request rejected with 412, signature stale"))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api returned status %d", resp.StatusCode)
	}

	var envelope biliEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode api response: %w", err)
	}
	if envelope.Code != 0 {
		if envelope.Code == -412 {
			return model.NewTaskError(model.ErrKindWBI, fmt.Errorf("api code -412: %s", envelope.Message))
		}
		return fmt.Errorf("api code %d: %s", envelope.Code, envelope.Message)
	}
	return json.Unmarshal(envelope.Data, out)
}

// fetchToFile streams a media URL to disk with the site headers attached.
func (c *BilibiliClient) fetchToFile(ctx context.Context, mediaURL, dest string, headers map[string]string, onProgress func(written, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.mediaClient.Do(req)
	if err != nil {
		return fmt.Errorf("media request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("media server returned status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	total := resp.ContentLength
	var written int64
	buf := make([]byte, 256*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
			written += int64(n)
			if onProgress != nil {
				onProgress(written, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}
	return out.Close()
}
