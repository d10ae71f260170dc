package fetch

import (
	"context"
	"fmt"
	"log"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mediagrab/media-downloader/internal/model"
	"github.com/mediagrab/media-downloader/internal/platform"
)

// CacheSize caps the number of info records kept for re-peeks of the same
// URL, e.g. when the user tweaks the format before starting.
const CacheSize = 10

// Peeker is the tier-2 metadata source. Satisfied by the extractor client.
type Peeker interface {
	Peek(ctx context.Context, url string, plan *model.Plan) (*model.InfoRecord, error)
	PeekPlaylist(ctx context.Context, url string, plan *model.Plan) (*model.InfoRecord, error)
}

// Client is a dedicated tier-1 platform client.
type Client interface {
	FetchInfo(ctx context.Context, url string) (*model.InfoRecord, error)
}

// Fetcher resolves media metadata through a tier cascade: a dedicated
// platform client first, then the generic extractor peek. The headless
// browser tier only runs during the download phase, never here.
type Fetcher struct {
	peeker  Peeker
	clients map[model.Platform]Client
	cache   *lru.Cache[string, *model.InfoRecord]
}

// NewFetcher returns a fetcher with no tier-1 clients registered.
func NewFetcher(peeker Peeker) (*Fetcher, error) {
	cache, err := lru.New[string, *model.InfoRecord](CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create info cache: %w", err)
	}
	return &Fetcher{
		peeker:  peeker,
		clients: make(map[model.Platform]Client),
		cache:   cache,
	}, nil
}

// RegisterClient installs a tier-1 client for a platform.
func (f *Fetcher) RegisterClient(p model.Platform, c Client) {
	f.clients[p] = c
}

// Fetch resolves an info record for url, consulting the cache first. A tier-1
// failure degrades to tier 2; the cascade stops early once the context is
// cancelled.
func (f *Fetcher) Fetch(ctx context.Context, url string, plan *model.Plan) (*model.InfoRecord, error) {
	if rec, ok := f.cache.Get(url); ok {
		return rec, nil
	}

	p := platform.Detect(url)
	// Story-style platforms refuse metadata probes outright; they get a
	// synthetic record at tier 1 and never reach the extractor peek.
	if rec := syntheticRecord(p); rec != nil {
		return rec, nil
	}
	if client, ok := f.clients[p]; ok {
		rec, err := client.FetchInfo(ctx, url)
		if err == nil {
			rec.FetcherTier = model.TierPlatform
			f.cache.Add(url, rec)
			return rec, nil
		}
		log.Printf("Platform client for %s failed, trying extractor: %v", p, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := f.peeker.Peek(ctx, url, plan)
	if err == nil {
		f.cache.Add(url, rec)
		return rec, nil
	}
	return nil, fmt.Errorf("info fetch failed for %s: %w", url, err)
}

// FetchPlaylist resolves a playlist URL into flat entries. No tier-1 path;
// only the extractor enumerates playlists.
func (f *Fetcher) FetchPlaylist(ctx context.Context, url string, plan *model.Plan) (*model.InfoRecord, error) {
	rec, err := f.peeker.PeekPlaylist(ctx, url, plan)
	if err != nil {
		return nil, fmt.Errorf("playlist fetch failed for %s: %w", url, err)
	}
	return rec, nil
}

// Invalidate drops the cached record for a URL.
func (f *Fetcher) Invalidate(url string) {
	f.cache.Remove(url)
}

func syntheticRecord(p model.Platform) *model.InfoRecord {
	switch p {
	case model.PlatformInstagram:
		return &model.InfoRecord{
			Title:       "[Instagram] Content",
			Extractor:   "synthetic",
			FetcherTier: model.TierPlatform,
		}
	case model.PlatformFacebookStory:
		return &model.InfoRecord{
			Title:       "[Facebook Story] Content",
			Extractor:   "synthetic",
			FetcherTier: model.TierPlatform,
		}
	}
	return nil
}
