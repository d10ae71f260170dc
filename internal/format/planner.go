package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mediagrab/media-downloader/internal/config"
	"github.com/mediagrab/media-downloader/internal/model"
)

// ErrIncompatibleCodec is returned for container/codec pairs the merge step
// cannot produce (WEBM cannot carry H.264).
var ErrIncompatibleCodec = errors.New("webm container is incompatible with h264 codec priority")

// ErrUnknownFormatClass is returned for a dtype outside the closed set.
var ErrUnknownFormatClass = errors.New("unknown format class")

// Audio quality constants: 192 kbps for compressed targets, 0 (best) for
// lossless.
const (
	AudioQualityCompressed = "192"
	AudioQualityLossless   = "0"
)

// heightLimits maps video format classes to their height caps.
var heightLimits = map[model.FormatClass]int{
	model.FormatVideo4K:   2160,
	model.FormatVideo2K:   1440,
	model.FormatVideo1080: 1080,
	model.FormatVideo720:  720,
	model.FormatVideo480:  480,
	model.FormatVideo360:  360,
	model.FormatVideo240:  240,
	model.FormatVideo144:  144,
}

// audioCodecs maps audio format classes to extract-audio target codecs.
var audioCodecs = map[model.FormatClass]string{
	model.FormatAudioOpus:     "opus",
	model.FormatAudioMP3:      "mp3",
	model.FormatAudioLossless: "flac",
	model.FormatAudioM4A:      "m4a",
}

// HeightLimit returns the pixel-height cap for a video format class.
func HeightLimit(fc model.FormatClass) (int, bool) {
	limit, ok := heightLimits[fc]
	return limit, ok
}

// BuildPlan translates a task plus global settings into an extractor-facing
// plan. Output template and archive path are filled in later by the engine,
// after unique-name resolution.
func BuildPlan(task *model.Task, settings *config.Settings) (*model.Plan, error) {
	plan := &model.Plan{
		GeoCountry:             settings.GetGeoBypassCountry(),
		Proxy:                  settings.GetProxyURL(),
		SponsorBlockCategories: settings.GetSponsorBlockCategories(),
		NoPlaylist:             !task.IsPlaylist,
		PlaylistItems:          task.PlaylistItems,
	}

	switch {
	case task.Format.IsAudio():
		plan.FormatSelector = "bestaudio/best"
		plan.AudioExtract = &model.AudioExtract{
			Codec:   audioCodecs[task.Format],
			Quality: AudioQualityCompressed,
		}
		if task.Format == model.FormatAudioLossless {
			plan.AudioExtract.Quality = AudioQualityLossless
		}

	case task.Format.IsVideo():
		limit, ok := heightLimits[task.Format]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFormatClass, task.Format)
		}
		container := settings.GetDefaultVideoExt()
		priority := settings.GetVideoCodecPriority()
		if priority == config.CodecH264 && strings.EqualFold(container, "webm") {
			return nil, ErrIncompatibleCodec
		}
		plan.FormatSelector = videoSelector(limit, priority)
		plan.MergeContainer = container

	case task.Format == model.FormatSubsOnly:
		plan.SubtitlesOnly = true
		plan.WriteSubs = true
		plan.SubtitleLangs = task.SubLangs
		if len(plan.SubtitleLangs) == 0 {
			plan.SubtitleLangs = []string{"all"}
		}
		plan.SubFormat = task.SubFormat

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormatClass, task.Format)
	}

	if task.DownloadSubs && task.Format != model.FormatSubsOnly {
		plan.WriteSubs = true
		plan.SubtitleLangs = task.SubLangs
		plan.SubFormat = task.SubFormat
	}

	applyCookieSource(plan, task, settings)
	applyPostprocessors(plan, task, settings)
	applyCut(plan, task)

	return plan, nil
}

// videoSelector builds the height-limited selector cascade for a codec
// priority. Cascade order is part of the contract: each clause is strictly
// weaker than the one before it.
func videoSelector(limit int, priority string) string {
	h := fmt.Sprintf("[height<=%d]", limit)
	switch priority {
	case config.CodecH264:
		return strings.Join([]string{
			"bestvideo" + h + "[vcodec^=avc]+bestaudio[acodec^=mp4a]",
			"bestvideo" + h + "[vcodec^=avc]+bestaudio",
			"best" + h + "[vcodec^=avc]",
			"bestvideo" + h + "+bestaudio",
			"best",
		}, "/")
	case config.CodecAV1:
		return strings.Join([]string{
			"bestvideo" + h + "[vcodec^=av01]+bestaudio",
			"bestvideo" + h + "+bestaudio",
			"best",
		}, "/")
	default:
		return strings.Join([]string{
			"bestvideo" + h + "+bestaudio",
			"best",
		}, "/")
	}
}

// applyCookieSource resolves the cookie precedence: explicit task file over
// global settings file over browser extraction over nothing. The chosen
// file is still copied into the temp cache by the cookie broker before use.
func applyCookieSource(plan *model.Plan, task *model.Task, settings *config.Settings) {
	switch {
	case task.CookieFile != "":
		plan.CookieSource = model.CookieSourceFile
		plan.CookieFile = task.CookieFile
	case settings.GetCookieFile() != "":
		plan.CookieSource = model.CookieSourceFile
		plan.CookieFile = settings.GetCookieFile()
	case settings.GetBrowserSource() != "":
		plan.CookieSource = model.CookieSourceBrowser
		plan.Browser = settings.GetBrowserSource()
	default:
		plan.CookieSource = model.CookieSourceNone
	}
}

// applyPostprocessors appends the gated postprocessor chain in its fixed
// order.
func applyPostprocessors(plan *model.Plan, task *model.Task, settings *config.Settings) {
	if len(plan.SponsorBlockCategories) > 0 {
		plan.Postprocessors = append(plan.Postprocessors, model.PostprocessorSponsorBlock)
	}
	if settings.GetSplitChapters() {
		plan.Postprocessors = append(plan.Postprocessors, model.PostprocessorSplitChapters)
	}
	if settings.GetEmbedThumbnail() {
		plan.Postprocessors = append(plan.Postprocessors, model.PostprocessorEmbedThumbnail)
	}
	if task.DownloadSubs && task.Format.IsVideo() {
		plan.EmbedSubs = true
		plan.Postprocessors = append(plan.Postprocessors, model.PostprocessorEmbedSubtitle)
	}
	if settings.GetAddMetadata() {
		plan.Postprocessors = append(plan.Postprocessors, model.PostprocessorMetadata)
	}
}

// applyCut attaches the inline download-range hint for direct cuts. The
// download_then_cut strategy is handled after download and needs nothing in
// the plan.
func applyCut(plan *model.Plan, task *model.Task) {
	if !task.CutMode || task.CutStrategy != model.CutDirect {
		return
	}
	plan.DownloadRange = &model.DownloadRange{
		StartSec: task.StartSec,
		EndSec:   task.EndSec,
	}
	plan.ForceKeyframesAtCuts = true
}

// AudioExtension returns the file extension produced by an audio-family
// task.
func AudioExtension(fc model.FormatClass) string {
	if codec, ok := audioCodecs[fc]; ok {
		return codec
	}
	return "mp3"
}
