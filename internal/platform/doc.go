package platform

// Package platform holds host-environment and site-facing helpers: URL
// classification into platform tags, filename sanitization, unique-name
// resolution against the save directory, and playlist range parsing.
