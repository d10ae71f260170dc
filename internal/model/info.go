package model

// FetcherTier records which cascade level produced an info record.
type FetcherTier int

const (
	// TierPlatform is the dedicated platform client (tier 1).
	TierPlatform FetcherTier = 1
	// TierExtractor is the generic extractor peek (tier 2).
	TierExtractor FetcherTier = 2
	// TierSniffer is the headless-browser fallback (tier 3, download phase only).
	TierSniffer FetcherTier = 3
)

// InfoEntry is one item of a playlist info record.
type InfoEntry struct {
	ID    string
	URL   string
	Title string
}

// InfoRecord is the normalized result of an info fetch, regardless of which
// tier produced it.
type InfoRecord struct {
	Title             string
	Uploader          string
	DurationSec       float64
	ThumbnailURL      string
	Subtitles         map[string][]string // lang -> available formats
	AutomaticCaptions map[string][]string
	IsPlaylist        bool
	Entries           []InfoEntry
	Extractor         string // reporting extractor name, e.g. "BrowserFallback"
	FetcherTier       FetcherTier

	// DirectURL and Headers are set by tier-1 and tier-3 fetchers that
	// resolve a concrete media URL themselves.
	DirectURL string
	Headers   map[string]string
}

// BestTitle returns the record title or a fallback when the fetch produced
// nothing usable.
func (r *InfoRecord) BestTitle(fallback string) string {
	if r != nil && r.Title != "" {
		return r.Title
	}
	return fallback
}
