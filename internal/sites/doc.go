package sites

// Package sites holds the dedicated platform clients. Each client talks to a
// site's own API or page and produces normalized info records, and for sites
// whose media the generic extractor cannot reach, resolves direct media URLs
// with the headers needed to fetch them.
