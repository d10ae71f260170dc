package extractor

// Package extractor wraps the external extractor library behind a small
// interface. Every option the engine relies on is set in one place here, so
// the rest of the code deals only with plans and normalized info records.
