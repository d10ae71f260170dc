package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mediagrab/media-downloader/internal/cancel"
	"github.com/mediagrab/media-downloader/internal/config"
	"github.com/mediagrab/media-downloader/internal/cookies"
	"github.com/mediagrab/media-downloader/internal/download"
	"github.com/mediagrab/media-downloader/internal/extractor"
	"github.com/mediagrab/media-downloader/internal/fetch"
	"github.com/mediagrab/media-downloader/internal/ffmpeg"
	"github.com/mediagrab/media-downloader/internal/history"
	"github.com/mediagrab/media-downloader/internal/model"
	"github.com/mediagrab/media-downloader/internal/sites"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const appName = "media-downloader"

func main() {
	var (
		splash        = flag.Bool("splash", false, "print the startup banner and exit")
		silent        = flag.Bool("silent", false, "suppress progress output")
		formatName    = flag.String("format", string(model.FormatVideo1080), "format class (e.g. video_720, audio_mp3, sub_only)")
		savePath      = flag.String("save-path", "", "override the configured save directory")
		filename      = flag.String("filename", "", "output filename (without extension)")
		cookieFile    = flag.String("cookies", "", "cookies.txt file for this run")
		cutStart      = flag.Float64("cut-start", 0, "cut window start in seconds")
		cutEnd        = flag.Float64("cut-end", 0, "cut window end in seconds (0 = until the end)")
		cutDirect     = flag.Bool("cut-direct", false, "cut during download instead of after")
		subs          = flag.Bool("subs", false, "download subtitles alongside the media")
		subFormat     = flag.String("sub-format", "", "convert subtitles to this format (e.g. srt)")
		playlist      = flag.Bool("playlist", false, "treat URLs as playlists")
		playlistItems = flag.String("playlist-items", "", "playlist item selection, e.g. \"1,3,5-8\" or \"all\"")
		speedLimit    = flag.Int("speed-limit", 0, "direct-download speed cap in KiB/s (0 = unlimited)")
	)
	flag.Parse()

	fmt.Printf("%s v%s\n", appName, version)
	if *splash {
		return
	}
	urls := flag.Args()
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "usage: media-downloader [flags] URL...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("Failed to resolve config dir: %v", err)
	}
	appDir := filepath.Join(configDir, appName)
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		log.Fatalf("Failed to create config dir: %v", err)
	}

	settings, err := config.NewSettings(filepath.Join(appDir, "settings.json"))
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if *savePath != "" {
		settings.SetSavePath(*savePath)
	}
	if *speedLimit > 0 {
		settings.SetSpeedLimitKB(*speedLimit)
	}
	if err := os.MkdirAll(settings.GetSavePath(), 0o755); err != nil {
		log.Fatalf("Failed to create save dir: %v", err)
	}

	store, err := history.NewStore(filepath.Join(appDir, "history.json"))
	if err != nil {
		log.Fatalf("Failed to load history: %v", err)
	}

	controller := cancel.NewController()
	tool := ffmpeg.NewTool("", controller)
	runner := extractor.NewClient(tool.Path)
	broker := cookies.NewBroker(runner, os.TempDir())

	fetcher, err := fetch.NewFetcher(runner)
	if err != nil {
		log.Fatalf("Failed to create fetcher: %v", err)
	}
	bilibili := sites.NewBilibiliClient(tool, os.TempDir())
	fetcher.RegisterClient(model.PlatformBilibili, bilibili)
	fetcher.RegisterClient(model.PlatformTikTok, sites.NewTikTokClient())
	fetcher.RegisterClient(model.PlatformDailymotion, sites.NewDailymotionClient())
	fetcher.RegisterClient(model.PlatformDouyin, sites.NewDouyinClient())

	engine := download.NewEngine(runner, fetcher, settings, broker, tool, sites.NewSniffer())
	engine.RegisterDownloader(model.PlatformBilibili, bilibili)
	service := download.NewService(engine, fetcher, store, controller)

	done := make(chan struct{}, 1)
	service.SetOnUpdate(func(state download.TaskState) {
		if !*silent {
			switch {
			case state.Status == model.TaskStatusFailed:
				log.Printf("[%s] %s: %s", state.Status, state.Task.DisplayName(), state.Message)
			case state.Status.IsTerminal():
				log.Printf("[%s] %s", state.Status, state.Task.DisplayName())
			case state.Percent >= 0:
				log.Printf("[%s] %s %d%% %s ETA %s", state.Status, state.Task.DisplayName(), state.Percent, state.Speed, state.ETA)
			default:
				log.Printf("[%s] %s", state.Status, state.Task.DisplayName())
			}
		}
		if state.Status.IsTerminal() {
			// A finished playlist may have queued children; drain fully.
			for _, st := range service.Tasks() {
				if !st.Status.IsTerminal() {
					return
				}
			}
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	service.Start()
	defer service.Stop()

	cutStrategy := model.CutAfterDownload
	if *cutDirect {
		cutStrategy = model.CutDirect
	}
	for _, url := range urls {
		task := &model.Task{
			URL:           url,
			Format:        model.FormatClass(*formatName),
			UserFilename:  *filename,
			CookieFile:    *cookieFile,
			CutMode:       *cutStart > 0 || *cutEnd > 0,
			CutMethod:     settings.GetCutMethod(),
			CutStrategy:   cutStrategy,
			StartSec:      *cutStart,
			EndSec:        *cutEnd,
			DownloadSubs:  *subs,
			SubFormat:     *subFormat,
			IsPlaylist:    *playlist,
			PlaylistItems: *playlistItems,
			CreatedAt:     time.Now(),
		}
		service.Enqueue(task)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
		log.Println("Interrupted, cancelling all tasks")
		service.CancelAll()
		<-done
	case <-done:
	}

	exitCode := 0
	for _, state := range service.Tasks() {
		if state.Status == model.TaskStatusFailed {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}
