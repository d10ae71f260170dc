package download

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mediagrab/media-downloader/internal/config"
	"github.com/mediagrab/media-downloader/internal/cookies"
	"github.com/mediagrab/media-downloader/internal/cut"
	"github.com/mediagrab/media-downloader/internal/extractor"
	"github.com/mediagrab/media-downloader/internal/ffmpeg"
	"github.com/mediagrab/media-downloader/internal/format"
	"github.com/mediagrab/media-downloader/internal/model"
	"github.com/mediagrab/media-downloader/internal/platform"
	"github.com/mediagrab/media-downloader/internal/postprocess"
)

// ArchiveFileName is the extractor download-archive kept inside the save
// directory.
const ArchiveFileName = "downloaded.txt"

// InfoSource resolves metadata for a URL. Satisfied by the tiered fetcher.
type InfoSource interface {
	Fetch(ctx context.Context, url string, plan *model.Plan) (*model.InfoRecord, error)
	FetchPlaylist(ctx context.Context, url string, plan *model.Plan) (*model.InfoRecord, error)
}

// PageSniffer is the headless-browser fallback.
type PageSniffer interface {
	Sniff(ctx context.Context, pageURL string, evasive bool) (*model.InfoRecord, error)
}

// DirectFetcher downloads a resolved media URL to a file.
type DirectFetcher interface {
	Fetch(ctx context.Context, url, dest string, headers map[string]string, onProgress func(written, total int64)) error
}

// PlatformDownloader is a site client that downloads natively instead of
// going through the extractor, e.g. the signed-query DASH client.
type PlatformDownloader interface {
	Download(ctx context.Context, url, dest string, onProgress func(written, total int64)) error
}

// Events carries the engine's per-task callbacks. Nil members are skipped.
type Events struct {
	Status   func(model.TaskStatus)
	Progress func(model.Progress)
}

func (e Events) status(s model.TaskStatus) {
	if e.Status != nil {
		e.Status(s)
	}
}

func (e Events) progress(p model.Progress) {
	if e.Progress != nil {
		e.Progress(p)
	}
}

// Engine runs one task end to end: plan, peek, download with fallbacks, then
// the post-download stages. It owns no queue and no task state; the service
// layer does.
type Engine struct {
	runner      extractor.Runner
	infos       InfoSource
	settings    *config.Settings
	broker      *cookies.Broker
	tool        *ffmpeg.Tool
	cutter      *cut.Processor
	sniffer     PageSniffer
	manual      DirectFetcher
	downloaders map[model.Platform]PlatformDownloader

	now func() time.Time
}

// NewEngine wires an engine from its collaborators. broker and sniffer may
// be nil, which disables browser cookies and the browser fallback.
func NewEngine(runner extractor.Runner, infos InfoSource, settings *config.Settings, broker *cookies.Broker, tool *ffmpeg.Tool, sniffer PageSniffer) *Engine {
	return &Engine{
		runner:      runner,
		infos:       infos,
		settings:    settings,
		broker:      broker,
		tool:        tool,
		cutter:      cut.NewProcessor(tool),
		sniffer:     sniffer,
		manual:      NewManualDownloader(settings.GetSpeedLimitKB() * 1024),
		downloaders: make(map[model.Platform]PlatformDownloader),
		now:         time.Now,
	}
}

// RegisterDownloader installs a native downloader for one platform. It is
// consulted before the extractor for video-family tasks.
func (e *Engine) RegisterDownloader(p model.Platform, d PlatformDownloader) {
	e.downloaders[p] = d
}

// Run executes task and returns the history record for a successful
// download. Errors are classified; a context cancellation is returned as-is
// so the caller can distinguish Cancelled from Failed.
func (e *Engine) Run(ctx context.Context, task *model.Task, ev Events) (*model.HistoryRecord, error) {
	if !e.tool.Available() {
		return nil, model.NewTaskError(model.ErrKindSystem, errors.New("media tool not found, install ffmpeg and retry"))
	}

	plan, err := format.BuildPlan(task, e.settings)
	if err != nil {
		return nil, model.Classify(err)
	}
	if err := e.prepareCookies(ctx, plan, task.EffectiveURL()); err != nil {
		// Cookie trouble is not fatal before the download has even failed.
		log.Printf("Cookie preparation failed, continuing without: %v", err)
		plan.ClearCookies()
	}

	ev.status(model.TaskStatusPeeking)
	info := e.peek(ctx, task, plan, ev)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ev.status(model.TaskStatusPlanned)
	savePath := e.settings.GetSavePath()
	if task.SavePath != "" {
		savePath = task.SavePath
		if err := os.MkdirAll(savePath, 0o755); err != nil {
			return nil, model.Classify(fmt.Errorf("failed to create save directory: %w", err))
		}
	}
	base := platform.PredictBaseName(task.UserFilename, info.BestTitle(task.DisplayName()), task.CutMode)
	ext := e.predictExtension(task)
	if e.settings.GetUseArchive() {
		plan.ArchivePath = filepath.Join(savePath, ArchiveFileName)
	}
	unique, renamed := platform.UniqueName(savePath, base, ext)
	if renamed {
		// A renamed duplicate must not be skipped by the archive.
		plan.DropArchive()
	}
	plan.OutputTemplate = filepath.Join(savePath, unique+".%(ext)s")
	predicted := filepath.Join(savePath, unique+"."+ext)

	ev.status(model.TaskStatusDownloading)
	candidates, err := e.download(ctx, task, plan, info, predicted, ev)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, model.Classify(err)
	}

	ev.status(model.TaskStatusPostProcessing)
	outPath, err := resolveOutput(candidates, savePath, unique)
	if err != nil {
		return nil, model.Classify(err)
	}
	outPath, err = postprocess.FixupHLS(ctx, e.tool, outPath)
	if err != nil {
		return nil, model.Classify(err)
	}

	if task.CutMode && task.CutStrategy == model.CutAfterDownload {
		ev.status(model.TaskStatusCutting)
		cutPath, cutErr := e.cutter.Apply(ctx, task, outPath, func(pct int) {
			ev.progress(model.Progress{
				TaskID:  task.ID,
				Kind:    model.ProgressCutting,
				Percent: pct,
				ETASec:  -1,
				At:      e.now(),
			})
		})
		if cutErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("Cut stage failed for %s, keeping full file: %v", task.ID, cutErr)
		}
		outPath = cutPath
	}

	if task.DownloadSubs || task.Format == model.FormatSubsOnly {
		ev.status(model.TaskStatusConvertingSubs)
		converted, subErr := postprocess.ConvertSubtitles(ctx, e.tool, outPath, task.SubFormat)
		if subErr != nil {
			log.Printf("Subtitle conversion failed for %s: %v", task.ID, subErr)
		}
		// Conversion deletes the source sidecars, so a subtitle-only task's
		// output path must follow the converted file.
		if task.Format == model.FormatSubsOnly && len(converted) > 0 {
			outPath = converted[0]
		}
	}

	rec := postprocess.BuildHistoryRecord(platform.Detect(task.URL), info.BestTitle(unique), outPath, task.URL, e.now())
	ev.progress(model.Progress{
		TaskID:  task.ID,
		Kind:    model.ProgressFinished,
		Percent: 100,
		ETASec:  -1,
		Path:    outPath,
		At:      e.now(),
	})
	return &rec, nil
}

// prepareCookies materializes the plan's cookie source: user files are
// copied before use, browser sources go through the broker.
func (e *Engine) prepareCookies(ctx context.Context, plan *model.Plan, url string) error {
	switch plan.CookieSource {
	case model.CookieSourceFile:
		if e.broker == nil {
			return nil
		}
		copyPath, err := e.broker.PrepareUserCookieFile(plan.CookieFile)
		if err != nil {
			return err
		}
		plan.CookieFile = copyPath
	case model.CookieSourceBrowser:
		if e.broker == nil {
			return errors.New("browser cookies requested but no broker configured")
		}
		src, err := e.broker.Acquire(ctx, plan.Browser, url)
		if err != nil {
			return err
		}
		if src.File != "" {
			plan.CookieSource = model.CookieSourceFile
			plan.CookieFile = src.File
			plan.Browser = ""
		} else {
			plan.Browser = src.BrowserSpec
		}
	}
	return nil
}

// peek resolves metadata, retrying once without cookies when the first
// attempt tripped over a locked cookie database. A failed peek degrades to
// an empty record; the download phase has its own fallbacks.
func (e *Engine) peek(ctx context.Context, task *model.Task, plan *model.Plan, ev Events) *model.InfoRecord {
	info, err := e.infos.Fetch(ctx, task.EffectiveURL(), plan)
	if err != nil && cookies.IsLockedDatabase(err) && plan.CookieSource != model.CookieSourceNone {
		ev.status(model.TaskStatusPeekRetry)
		plan.ClearCookies()
		info, err = e.infos.Fetch(ctx, task.EffectiveURL(), plan)
	}
	if err != nil {
		log.Printf("Info peek failed for %s, continuing without metadata: %v", task.EffectiveURL(), err)
		return &model.InfoRecord{}
	}
	return info
}

// download runs a native platform downloader when one is registered, then
// the extractor, then walks the fallback chain on failure: plain sniffer,
// evasive sniffer, manual fetch of whatever they found.
func (e *Engine) download(ctx context.Context, task *model.Task, plan *model.Plan, info *model.InfoRecord, predicted string, ev Events) ([]string, error) {
	if native, ok := e.downloaders[platform.Detect(task.URL)]; ok && e.nativeEligible(task) {
		nativeErr := native.Download(ctx, task.EffectiveURL(), predicted, e.byteProgress(task, ev))
		if nativeErr == nil {
			return []string{predicted}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("Native download failed for %s, falling back to extractor: %v", task.ID, nativeErr)
	}

	if info.DirectURL != "" {
		if err := e.fetchDirect(ctx, task, info, predicted, plan, ev, model.TaskStatusDownloading); err != nil {
			return nil, err
		}
		return []string{predicted}, nil
	}

	res, err := e.runner.Download(ctx, task.EffectiveURL(), plan, nil, e.progressBridge(task, ev))
	if err == nil {
		candidates := append([]string{predicted}, res.Filenames...)
		return candidates, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	log.Printf("Extractor download failed for %s, entering fallback chain: %v", task.ID, err)

	if e.sniffer == nil {
		return nil, err
	}
	ev.status(model.TaskStatusFallbackSniffer)
	rec, sniffErr := e.sniffer.Sniff(ctx, task.EffectiveURL(), false)
	if sniffErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ev.status(model.TaskStatusFallbackEvasive)
		rec, sniffErr = e.sniffer.Sniff(ctx, task.EffectiveURL(), true)
	}
	if sniffErr != nil {
		// Report the extractor's error; the sniffer failing too adds nothing.
		return nil, err
	}

	if err := e.fetchDirect(ctx, task, rec, predicted, plan, ev, model.TaskStatusFallbackManual); err != nil {
		return nil, err
	}
	if info.Title == "" {
		info.Title = rec.Title
	}
	return []string{predicted}, nil
}

// fetchDirect downloads a resolved media URL. HLS playlists go back through
// the extractor (it handles segment fetching and muxing); plain files are
// fetched manually with the captured headers. Both paths enforce the
// minimum-size floor so a server's error page never counts as a download.
func (e *Engine) fetchDirect(ctx context.Context, task *model.Task, rec *model.InfoRecord, predicted string, plan *model.Plan, ev Events, status model.TaskStatus) error {
	ev.status(status)
	if isHLSURL(rec.DirectURL) {
		base := strings.TrimSuffix(filepath.Base(predicted), filepath.Ext(predicted))
		hlsPlan := &model.Plan{
			FormatSelector: "best",
			OutputTemplate: strings.TrimSuffix(predicted, filepath.Ext(predicted)) + ".%(ext)s",
			Proxy:          plan.Proxy,
		}
		res, err := e.runner.Download(ctx, rec.DirectURL, hlsPlan, rec.Headers, e.progressBridge(task, ev))
		if err != nil {
			return err
		}
		var candidates []string
		if res != nil {
			candidates = res.Filenames
		}
		out, err := resolveOutput(append([]string{predicted}, candidates...), filepath.Dir(predicted), base)
		if err != nil {
			return err
		}
		if fi, statErr := os.Stat(out); statErr == nil && fi.Size() < MinValidFileSize {
			os.Remove(out)
			return fmt.Errorf("%w: %d bytes from %s", ErrFileTooSmall, fi.Size(), rec.DirectURL)
		}
		return nil
	}
	return e.manual.Fetch(ctx, rec.DirectURL, predicted, rec.Headers, e.byteProgress(task, ev))
}

// byteProgress adapts a written/total byte callback to progress events.
func (e *Engine) byteProgress(task *model.Task, ev Events) func(written, total int64) {
	return func(written, total int64) {
		if e.steadyCut(task) {
			ev.progress(e.steadyCutProgress(task.ID))
			return
		}
		pct := -1
		if total > 0 {
			pct = int(float64(written) / float64(total) * 100)
		}
		ev.progress(model.Progress{
			TaskID:  task.ID,
			Kind:    model.ProgressDownloading,
			Percent: pct,
			ETASec:  -1,
			At:      e.now(),
		})
	}
}

func (e *Engine) progressBridge(task *model.Task, ev Events) func(extractor.ProgressEvent) {
	return func(update extractor.ProgressEvent) {
		if e.steadyCut(task) {
			ev.progress(e.steadyCutProgress(task.ID))
			return
		}
		kind := model.ProgressDownloading
		switch update.Status {
		case "postprocessing", "started_post_processing":
			kind = model.ProgressPostProcessing
		case "finished":
			kind = model.ProgressFinished
		}
		ev.progress(model.Progress{
			TaskID:  task.ID,
			Kind:    kind,
			Percent: update.Percent,
			Speed:   update.Speed,
			ETASec:  update.ETASec,
			Path:    update.Filename,
			At:      e.now(),
		})
	}
}

// steadyCut reports whether the task cuts while downloading, in which case
// raw extractor percentages are misleading and a single steady message is
// shown for the whole run.
func (e *Engine) steadyCut(task *model.Task) bool {
	return task.CutMode && task.CutStrategy == model.CutDirect
}

func (e *Engine) steadyCutProgress(taskID string) model.Progress {
	return model.Progress{
		TaskID:  taskID,
		Kind:    model.ProgressCutting,
		Percent: -1,
		ETASec:  -1,
		Message: "cutting, please wait",
		At:      e.now(),
	}
}

// nativeEligible limits native platform downloads to plain video tasks; the
// extractor handles audio extraction, subtitles, and inline cuts itself.
func (e *Engine) nativeEligible(task *model.Task) bool {
	if task.Format.IsAudio() || task.Format == model.FormatSubsOnly {
		return false
	}
	if task.DownloadSubs || task.CutMode {
		return false
	}
	return true
}

// predictExtension guesses the output extension before the download runs.
// The prediction only has to be close; resolveOutput scans by basename.
func (e *Engine) predictExtension(task *model.Task) string {
	switch {
	case task.Format.IsAudio():
		return format.AudioExtension(task.Format)
	case task.Format == model.FormatSubsOnly:
		if task.SubFormat != "" {
			return task.SubFormat
		}
		return "vtt"
	default:
		return e.settings.GetDefaultVideoExt()
	}
}

// resolveOutput picks the real output file: the last reported candidate that
// exists on disk, falling back to a basename scan of the save directory for
// outputs whose extension differed from the prediction.
func resolveOutput(candidates []string, dir, base string) (string, error) {
	for i := len(candidates) - 1; i >= 0; i-- {
		if info, err := os.Stat(candidates[i]); err == nil && !info.IsDir() {
			return candidates[i], nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to scan save directory: %w", err)
	}
	var (
		newest    string
		newestMod time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), base+".") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || fi.ModTime().After(newestMod) {
			newest = filepath.Join(dir, entry.Name())
			newestMod = fi.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no output file found for %q", base)
	}
	return newest, nil
}

func isHLSURL(rawURL string) bool {
	path := rawURL
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	return strings.HasSuffix(strings.ToLower(path), ".m3u8")
}
