package tasks

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ellievs/covermatch/internal/models"
	"github.com/ellievs/covermatch/internal/services"
	"github.com/ellievs/covermatch/internal/shared"
)

// Router resolves cover art for a song, routing anime songs to the anime
// image backend and everything else through track resolution.
//
// Resolved URLs are cached per song ID, misses included, so a song that
// resolved to nothing is not retried until the cache is cleared. This is the
// only component that inspects a song's type.
type Router struct {
	resolver *Resolver
	anime    services.ImageService
	market   string
	logger   *log.Logger

	mu     sync.Mutex
	covers map[string]string
}

// RouterOpts contains configuration options for creating a Router.
type RouterOpts struct {
	Resolver *Resolver
	Anime    services.ImageService
	Market   string
	Logger   *log.Logger
}

// NewRouter creates a new Router with the provided options.
func NewRouter(opts RouterOpts) *Router {
	if opts.Market == "" {
		opts.Market = "US"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Router{
		resolver: opts.Resolver,
		anime:    opts.Anime,
		market:   opts.Market,
		logger:   opts.Logger,
		covers:   make(map[string]string),
	}
}

// ResolveCoverImage returns the best cover image URL for a song, or empty
// string when nothing resolves. Never errors.
func (rt *Router) ResolveCoverImage(ctx context.Context, song *models.Song) string {
	if song == nil || song.ID == "" {
		return ""
	}

	rt.mu.Lock()
	cached, ok := rt.covers[song.ID]
	rt.mu.Unlock()
	if ok {
		return cached
	}

	var cover string
	if song.IsAnime() {
		cover = rt.animeCover(ctx, song)
	} else {
		cover = rt.trackCover(ctx, song)
	}

	// An aborted resolution must not be cached as a miss.
	if ctx.Err() != nil {
		return ""
	}

	rt.mu.Lock()
	rt.covers[song.ID] = cover
	rt.mu.Unlock()

	return cover
}

func (rt *Router) animeCover(ctx context.Context, song *models.Song) string {
	if strings.TrimSpace(song.Origin) == "" {
		return ""
	}
	return rt.anime.AnimeCover(ctx, song.Origin)
}

func (rt *Router) trackCover(ctx context.Context, song *models.Song) string {
	if existing := rt.resolver.Mapping(song.ID); existing != nil {
		return existing.BestImageURL()
	}

	mapping, err := rt.resolver.SearchAndMap(ctx, *song, rt.market)
	if err != nil {
		rt.logger.Warn("cover resolution failed", "song_id", song.ID, "error", err)
		return ""
	}
	if mapping == nil {
		return ""
	}
	return mapping.BestImageURL()
}

// ClearCoverCache drops every cached cover URL, forcing re-resolution.
func (rt *Router) ClearCoverCache() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.covers = make(map[string]string)
}
