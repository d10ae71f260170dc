package model

// HistoryRecord is persisted after a successful download.
type HistoryRecord struct {
	Platform Platform `json:"platform"`
	Title    string   `json:"title"`
	Path     string   `json:"path"`
	Format   string   `json:"format"` // uppercased extension, e.g. "MP3"
	SizeMB   float64  `json:"size_mb"`
	Date     string   `json:"date"` // local "2006-01-02 15:04"
	URL      string   `json:"url"`
}
