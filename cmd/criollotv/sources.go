package main

import (
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/criollotv/criollotv/internal/cache"
	"github.com/criollotv/criollotv/internal/catalog"
	"github.com/criollotv/criollotv/internal/config"
	"github.com/criollotv/criollotv/internal/indexer"
	"github.com/criollotv/criollotv/internal/indexer/fetch"
	"github.com/criollotv/criollotv/internal/logging"
	"github.com/criollotv/criollotv/internal/youtube"
)

// sources builds the channel sources for the server: the admin-editable M3U
// playlist first, then the optional static and YouTube catalogs.
type sources struct {
	cfg     *config.Config
	log     *logrus.Entry
	fetcher cache.Fetcher
	extra   []cache.Source

	m3u atomic.Pointer[cache.M3USource]
}

func newSources(cfg *config.Config, log *logrus.Entry) (*sources, error) {
	s := &sources{cfg: cfg, log: log, fetcher: playlistFetcher(cfg)}
	if cfg.StaticCatalog != "" {
		st, err := catalog.LoadStatic(cfg.StaticCatalog)
		if err != nil {
			return nil, err
		}
		s.extra = append(s.extra, &cache.StaticSource{Label: "static:" + cfg.StaticCatalog, List: st.Channels()})
		if yt := st.YouTube(); len(yt) > 0 {
			s.extra = append(s.extra, s.youtubeSource("youtube:"+cfg.StaticCatalog, yt))
		}
	}
	if cfg.YouTubeCatalog != "" {
		st, err := catalog.LoadStatic(cfg.YouTubeCatalog)
		if err != nil {
			return nil, err
		}
		s.extra = append(s.extra, s.youtubeSource("youtube:"+cfg.YouTubeCatalog, st.YouTube()))
	}
	return s, nil
}

func playlistFetcher(cfg *config.Config) cache.Fetcher {
	f := fetch.New(nil)
	f.UserAgent = cfg.UserAgent
	if len(cfg.RelayProxies) == 0 {
		return f
	}
	relays := cfg.RelayProxies
	if len(relays) == 1 && strings.EqualFold(relays[0], "default") {
		relays = nil
	}
	return fetch.NewRelay(f, relays)
}

func (s *sources) youtubeSource(label string, entries []catalog.SectionEntry) cache.Source {
	src := &youtube.Source{
		Label:    label,
		Entries:  entries,
		Resolver: &youtube.PageResolver{TDT: &youtube.TDTResolver{Live: &youtube.PageResolver{}}},
		Log:      s.log.WithField("component", "youtube"),
	}
	ext := &youtube.Extractor{Path: s.cfg.YTDLPPath}
	if ext.Available() {
		src.Streams = ext
	}
	return src
}

// For returns the combined source for a playlist URL. An empty URL leaves
// only the catalogs, or a source that fails with "no playlist URL" when
// there are none.
func (s *sources) For(m3uURL string) cache.Source {
	var all []cache.Source
	m3u := &cache.M3USource{URL: strings.TrimSpace(m3uURL), Fetcher: s.fetcher, Timeout: s.cfg.FetchTimeout}
	s.m3u.Store(m3u)
	if m3u.URL != "" || len(s.extra) == 0 {
		all = append(all, m3u)
	}
	all = append(all, s.extra...)
	if len(all) == 1 {
		return all[0]
	}
	return &cache.MultiSource{
		Sources: all,
		OnError: func(src cache.Source, err error) {
			s.log.WithError(err).WithField("source", logging.RedactURL(src.Name())).Warn("channel source failed")
		},
	}
}

// Header returns the #EXTM3U header of the current playlist.
func (s *sources) Header() indexer.Header {
	if m := s.m3u.Load(); m != nil {
		return m.Header()
	}
	return indexer.Header{}
}
