package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/mediagrab/media-downloader/internal/model"
)

// Network and retry policy for every extractor invocation. The native HLS
// downloader avoids fragment-miss failures on restricted networks, and the
// chunk size keeps throttled CDNs from stalling whole-file requests.
const (
	RetryCount         = "10"
	FragmentRetryCount = "10"
	HTTPChunkSize      = "10M"
	SocketTimeoutSec   = 60
	IPv4SourceAddress  = "0.0.0.0"

	PeekTimeout = 30 * time.Second

	progressInterval = 500 * time.Millisecond
)

// ProgressEvent is a normalized progress callback payload.
type ProgressEvent struct {
	Status   string // downloading, postprocessing, finished, ...
	Percent  int    // -1 when unknown
	Speed    string
	ETASec   int // -1 when unknown
	Filename string
}

// DownloadResult collects everything the engine needs after a download run.
type DownloadResult struct {
	// Filenames are output path candidates in the order they were
	// reported; the engine picks the last one that exists on disk.
	Filenames []string
}

// Runner is the extractor abstraction the engine and the cookie broker
// program against. The production implementation shells out to yt-dlp; tests
// substitute fakes.
type Runner interface {
	// Peek resolves metadata without downloading.
	Peek(ctx context.Context, url string, plan *model.Plan) (*model.InfoRecord, error)
	// PeekPlaylist resolves a playlist into flat entries.
	PeekPlaylist(ctx context.Context, url string, plan *model.Plan) (*model.InfoRecord, error)
	// Download runs the full download described by plan.
	Download(ctx context.Context, url string, plan *model.Plan, headers map[string]string, onProgress func(ProgressEvent)) (*DownloadResult, error)
	// ExportBrowserCookies dumps a browser's cookie jar to destPath.
	// browserSpec uses the extractor's BROWSER[:PROFILE_DIR] syntax.
	ExportBrowserCookies(ctx context.Context, browserSpec, destPath, url string) error
}

// Client is the yt-dlp-backed Runner.
type Client struct {
	FFmpegPath string
}

// NewClient returns a Runner using the media tool at ffmpegPath for merges.
func NewClient(ffmpegPath string) *Client {
	return &Client{FFmpegPath: ffmpegPath}
}

// Peek implements Runner. The timeout is deliberately short; slow hosts get
// handled by the download-phase fallbacks instead.
func (c *Client) Peek(ctx context.Context, url string, plan *model.Plan) (*model.InfoRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, PeekTimeout)
	defer cancel()

	dl := c.base(plan).
		SkipDownload().
		DumpSingleJSON().
		NoPlaylist()

	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("extractor peek failed: %w", err)
	}
	info, err := ParseInfoJSON(result.Stdout)
	if err != nil {
		return nil, err
	}
	info.FetcherTier = model.TierExtractor
	return info, nil
}

// PeekPlaylist implements Runner.
func (c *Client) PeekPlaylist(ctx context.Context, url string, plan *model.Plan) (*model.InfoRecord, error) {
	dl := c.base(plan).
		SkipDownload().
		DumpSingleJSON().
		FlatPlaylist()

	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("extractor playlist peek failed: %w", err)
	}
	info, err := ParseInfoJSON(result.Stdout)
	if err != nil {
		return nil, err
	}
	info.FetcherTier = model.TierExtractor
	return info, nil
}

// Download implements Runner.
func (c *Client) Download(ctx context.Context, url string, plan *model.Plan, headers map[string]string, onProgress func(ProgressEvent)) (*DownloadResult, error) {
	dl := c.base(plan)

	for key, value := range headers {
		dl = dl.AddHeaders(key + ":" + value)
	}

	res := &DownloadResult{}
	dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		event := ProgressEvent{
			Status:   string(update.Status),
			Percent:  -1,
			ETASec:   -1,
			Filename: update.Filename,
		}
		if update.TotalBytes > 0 {
			event.Percent = int(float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100)
		}
		if !update.Started.IsZero() {
			elapsed := time.Since(update.Started)
			if elapsed.Seconds() > 0 {
				bps := float64(update.DownloadedBytes) / elapsed.Seconds()
				event.Speed = model.FormatSpeed(bps)
				if bps > 0 && update.TotalBytes > update.DownloadedBytes {
					event.ETASec = int(float64(update.TotalBytes-update.DownloadedBytes) / bps)
				}
			}
		}
		if update.Filename != "" {
			res.Filenames = append(res.Filenames, update.Filename)
		}
		if onProgress != nil {
			onProgress(event)
		}
	})

	result, err := dl.Run(ctx, url)
	if err != nil {
		return res, fmt.Errorf("extractor download failed: %w", err)
	}

	// The extracted info carries the final filename after merging.
	if infos, infoErr := result.GetExtractedInfo(); infoErr == nil {
		for _, info := range infos {
			if info.Filename != nil && *info.Filename != "" {
				res.Filenames = append(res.Filenames, *info.Filename)
			}
		}
	}
	return res, nil
}

// ExportBrowserCookies implements Runner. The extractor dumps its cookie jar
// to the --cookies path after a simulated run, which is the supported way to
// get browser cookies into a cookies.txt file.
func (c *Client) ExportBrowserCookies(ctx context.Context, browserSpec, destPath, url string) error {
	dl := ytdlp.New().
		SkipDownload().
		NoWarnings().
		Cookies(destPath).
		CookiesFromBrowser(browserSpec)

	if _, err := dl.Run(ctx, url); err != nil {
		return fmt.Errorf("cookie export failed: %w", err)
	}
	return nil
}

// base builds the command shared by every invocation for a plan.
func (c *Client) base(plan *model.Plan) *ytdlp.Command {
	dl := ytdlp.New().
		NoWarnings().
		Retries(RetryCount).
		FragmentRetries(FragmentRetryCount).
		HTTPChunkSize(HTTPChunkSize).
		SocketTimeout(SocketTimeoutSec).
		SourceAddress(IPv4SourceAddress).
		HLSPreferNative()

	if c.FFmpegPath != "" {
		dl = dl.FFmpegLocation(c.FFmpegPath)
	}
	if plan == nil {
		return dl
	}

	if plan.FormatSelector != "" {
		dl = dl.Format(plan.FormatSelector)
	}
	if plan.MergeContainer != "" {
		dl = dl.MergeOutputFormat(plan.MergeContainer)
	}
	if plan.OutputTemplate != "" {
		dl = dl.Output(plan.OutputTemplate)
	}
	if plan.NoPlaylist {
		dl = dl.NoPlaylist()
	}
	if plan.PlaylistItems != "" && !plan.NoPlaylist {
		dl = dl.PlaylistItems(plan.PlaylistItems)
	}

	switch plan.CookieSource {
	case model.CookieSourceFile:
		dl = dl.Cookies(plan.CookieFile)
	case model.CookieSourceBrowser:
		dl = dl.CookiesFromBrowser(plan.Browser)
	}

	if plan.ArchivePath != "" {
		dl = dl.DownloadArchive(plan.ArchivePath)
	}
	if plan.GeoCountry != "" {
		dl = dl.GeoBypassCountry(plan.GeoCountry)
	}
	if plan.Proxy != "" {
		dl = dl.Proxy(plan.Proxy)
	}

	if plan.SubtitlesOnly {
		dl = dl.SkipDownload()
	}
	if plan.WriteSubs {
		dl = dl.WriteSubs().SubLangs(strings.Join(plan.SubtitleLangs, ","))
		if plan.SubFormat != "" {
			dl = dl.SubFormat(plan.SubFormat)
		}
	}
	if plan.EmbedSubs {
		dl = dl.EmbedSubs()
	}

	if plan.AudioExtract != nil {
		dl = dl.ExtractAudio().
			AudioFormat(plan.AudioExtract.Codec).
			AudioQuality(plan.AudioExtract.Quality)
	}

	for _, pp := range plan.Postprocessors {
		switch pp {
		case model.PostprocessorSponsorBlock:
			dl = dl.SponsorblockRemove(strings.Join(plan.SponsorBlockCategories, ","))
		case model.PostprocessorSplitChapters:
			dl = dl.SplitChapters()
		case model.PostprocessorEmbedThumbnail:
			dl = dl.EmbedThumbnail()
		case model.PostprocessorMetadata:
			dl = dl.EmbedMetadata()
		}
	}

	if plan.DownloadRange != nil {
		dl = dl.DownloadSections(FormatDownloadSections(plan.DownloadRange.StartSec, plan.DownloadRange.EndSec))
		if plan.ForceKeyframesAtCuts {
			dl = dl.ForceKeyframesAtCuts()
		}
	}

	return dl
}

// FormatDownloadSections renders a time window in the extractor's
// "*START-END" section syntax; an end of 0 is open-ended.
func FormatDownloadSections(startSec, endSec float64) string {
	if endSec <= 0 {
		return fmt.Sprintf("*%g-inf", startSec)
	}
	return fmt.Sprintf("*%g-%g", startSec, endSec)
}
