package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CutSuffix is appended to the basename of every cut-mode output.
const CutSuffix = " (Cut)"

// maxBaseNameLength keeps predicted names inside common filesystem limits
// once the extension and a collision suffix are appended.
const maxBaseNameLength = 180

var filenameReplacer = strings.NewReplacer(
	"<", "", ">", "", ":", "", "\"", "", "/", "",
	"\\", "", "|", "", "?", "", "*", "",
	"\r", "", "\n", "", "\t", " ",
)

// SanitizeFilename strips characters that are invalid in file names on any
// supported OS and trims trailing dots and spaces.
func SanitizeFilename(name string) string {
	clean := filenameReplacer.Replace(name)
	clean = strings.TrimSpace(clean)
	clean = strings.TrimRight(clean, ". ")
	if len(clean) > maxBaseNameLength {
		clean = strings.TrimSpace(clean[:maxBaseNameLength])
	}
	if clean == "" {
		return "download"
	}
	return clean
}

// UniqueName resolves a free output name in dir by appending "(1)", "(2)",
// ... to base until no file named "<base>.<ext>" exists. It returns the
// chosen basename (without extension) and whether a rename happened.
// Renamed outputs must bypass the download archive, otherwise an
// already-archived id would skip the duplicate download entirely.
func UniqueName(dir, base, ext string) (string, bool) {
	candidate := base
	renamed := false
	for n := 1; ; n++ {
		path := filepath.Join(dir, candidate+"."+ext)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return candidate, renamed
		}
		candidate = fmt.Sprintf("%s (%d)", base, n)
		renamed = true
	}
}

// PredictBaseName computes the expected output basename for a task from the
// user filename or media title, with the cut suffix applied before
// sanitization-sensitive collision checks.
func PredictBaseName(userFilename, title string, cutMode bool) string {
	base := userFilename
	if base == "" {
		base = title
	}
	if base == "" {
		base = "download"
	}
	if cutMode && !strings.HasSuffix(base, CutSuffix) {
		base += CutSuffix
	}
	return SanitizeFilename(base)
}
