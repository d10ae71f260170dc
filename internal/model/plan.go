package model

// CookieSource identifies where download-time cookies come from.
type CookieSource string

const (
	CookieSourceNone    CookieSource = "none"
	CookieSourceFile    CookieSource = "file"
	CookieSourceBrowser CookieSource = "browser"
)

// Postprocessor names the optional extractor post-processing steps, in the
// order they are appended to a plan.
type Postprocessor string

const (
	PostprocessorSponsorBlock   Postprocessor = "SponsorBlock"
	PostprocessorSplitChapters  Postprocessor = "SplitChapters"
	PostprocessorEmbedThumbnail Postprocessor = "EmbedThumbnail"
	PostprocessorEmbedSubtitle  Postprocessor = "EmbedSubtitle"
	PostprocessorMetadata       Postprocessor = "FFmpegMetadata"
)

// AudioExtract describes the audio-extract postprocessor parameters for
// audio-family tasks.
type AudioExtract struct {
	Codec   string // opus, mp3, flac, m4a
	Quality string // "192" for compressed, "0" for lossless
}

// DownloadRange is the inline cut hint passed to the extractor for the
// direct_cut strategy.
type DownloadRange struct {
	StartSec float64
	EndSec   float64 // 0 means open-ended
}

// Plan is the extractor-facing download plan derived from a Task plus global
// settings. It is rebuilt for every attempt; mutating it (e.g. dropping the
// archive) never touches the Task.
type Plan struct {
	FormatSelector string
	MergeContainer string // target container for merged video, e.g. "mp4"
	OutputTemplate string

	AudioExtract   *AudioExtract
	Postprocessors []Postprocessor

	SubtitlesOnly bool
	WriteSubs     bool
	SubtitleLangs []string
	SubFormat     string
	EmbedSubs     bool

	CookieSource CookieSource
	CookieFile   string
	Browser      string

	DownloadRange        *DownloadRange
	ForceKeyframesAtCuts bool

	ArchivePath string // empty when disabled or bypassed
	GeoCountry  string
	Proxy       string

	SponsorBlockCategories []string

	NoPlaylist    bool
	PlaylistItems string
}

// DropArchive disables the download archive for this plan. Used when
// unique-name resolution renamed the output, so a duplicate id still
// downloads.
func (p *Plan) DropArchive() {
	p.ArchivePath = ""
}

// ClearCookies removes all cookie options from the plan. Used for the
// one-shot retry after a locked cookie database.
func (p *Plan) ClearCookies() {
	p.CookieSource = CookieSourceNone
	p.CookieFile = ""
	p.Browser = ""
}
