package cookies

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// browserDataDir resolves a Chromium-family browser name to its user-data
// directory on the current platform. Firefox keeps cookies in a different
// store and has no shadow-copy path.
func browserDataDir(browser string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home dir: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		local := os.Getenv("LOCALAPPDATA")
		if local == "" {
			local = filepath.Join(home, "AppData", "Local")
		}
		switch browser {
		case "chrome":
			return filepath.Join(local, "Google", "Chrome", "User Data"), nil
		case "edge":
			return filepath.Join(local, "Microsoft", "Edge", "User Data"), nil
		case "brave":
			return filepath.Join(local, "BraveSoftware", "Brave-Browser", "User Data"), nil
		case "chromium":
			return filepath.Join(local, "Chromium", "User Data"), nil
		}
	case "darwin":
		appSupport := filepath.Join(home, "Library", "Application Support")
		switch browser {
		case "chrome":
			return filepath.Join(appSupport, "Google", "Chrome"), nil
		case "edge":
			return filepath.Join(appSupport, "Microsoft Edge"), nil
		case "brave":
			return filepath.Join(appSupport, "BraveSoftware", "Brave-Browser"), nil
		case "chromium":
			return filepath.Join(appSupport, "Chromium"), nil
		}
	default:
		config := filepath.Join(home, ".config")
		switch browser {
		case "chrome":
			return filepath.Join(config, "google-chrome"), nil
		case "edge":
			return filepath.Join(config, "microsoft-edge"), nil
		case "brave":
			return filepath.Join(config, "BraveSoftware", "Brave-Browser"), nil
		case "chromium":
			return filepath.Join(config, "chromium"), nil
		}
	}
	return "", fmt.Errorf("no shadow-copy support for browser %q", browser)
}
