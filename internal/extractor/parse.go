package extractor

import (
	"encoding/json"
	"fmt"

	"github.com/mediagrab/media-downloader/internal/model"
)

// infoJSON mirrors the subset of the extractor's single-JSON dump the rest of
// the code cares about.
type infoJSON struct {
	Type              string                `json:"_type"`
	Title             string                `json:"title"`
	Uploader          string                `json:"uploader"`
	Channel           string                `json:"channel"`
	Duration          float64               `json:"duration"`
	Thumbnail         string                `json:"thumbnail"`
	Extractor         string                `json:"extractor"`
	Subtitles         map[string][]subtitle `json:"subtitles"`
	AutomaticCaptions map[string][]subtitle `json:"automatic_captions"`
	Entries           []entryJSON           `json:"entries"`
}

type subtitle struct {
	Ext string `json:"ext"`
}

type entryJSON struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ParseInfoJSON decodes a single-JSON info dump into a normalized record.
func ParseInfoJSON(raw string) (*model.InfoRecord, error) {
	var info infoJSON
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("failed to parse info json: %w", err)
	}

	record := &model.InfoRecord{
		Title:             info.Title,
		Uploader:          info.Uploader,
		DurationSec:       info.Duration,
		ThumbnailURL:      info.Thumbnail,
		Extractor:         info.Extractor,
		Subtitles:         subtitleFormats(info.Subtitles),
		AutomaticCaptions: subtitleFormats(info.AutomaticCaptions),
	}
	if record.Uploader == "" {
		record.Uploader = info.Channel
	}

	if info.Type == "playlist" {
		record.IsPlaylist = true
		for _, e := range info.Entries {
			record.Entries = append(record.Entries, model.InfoEntry{
				ID:    e.ID,
				URL:   e.URL,
				Title: e.Title,
			})
		}
	}
	return record, nil
}

func subtitleFormats(subs map[string][]subtitle) map[string][]string {
	if len(subs) == 0 {
		return nil
	}
	out := make(map[string][]string, len(subs))
	for lang, tracks := range subs {
		formats := make([]string, 0, len(tracks))
		for _, tr := range tracks {
			if tr.Ext != "" {
				formats = append(formats, tr.Ext)
			}
		}
		out[lang] = formats
	}
	return out
}
