// Command criollotv: IPTV channel directory server and terminal client.
//
//	serve   Run the HTTP API (channels, config, admin, favorites) and the web app
//	index   Fetch and parse a playlist once and save the channel snapshot
//	check   Check a playlist URL or a running server
//	tui     Browse and play channels from a server with a remote-style terminal UI
//	hashpw  Print a bcrypt hash for ADMIN_PASSWORD
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/criollotv/criollotv/internal/api"
	"github.com/criollotv/criollotv/internal/auth"
	"github.com/criollotv/criollotv/internal/cache"
	"github.com/criollotv/criollotv/internal/catalog"
	"github.com/criollotv/criollotv/internal/config"
	"github.com/criollotv/criollotv/internal/favorites"
	"github.com/criollotv/criollotv/internal/health"
	"github.com/criollotv/criollotv/internal/indexer"
	"github.com/criollotv/criollotv/internal/logging"
	"github.com/criollotv/criollotv/internal/player"
	"github.com/criollotv/criollotv/internal/tui"
	"github.com/criollotv/criollotv/internal/youtube"
)

func main() {
	_ = config.LoadEnvFile(".env")
	log := logging.New("criollotv")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveAddr := serveCmd.String("addr", "", "Listen address (default :PORT)")
	servePublic := serveCmd.String("public", "", "Static web app directory (default: CRIOLLO_PUBLIC_DIR)")
	serveRefresh := serveCmd.Duration("refresh", 0, "Background refresh interval (e.g. 10m). 0 = refresh on demand only")

	indexCmd := flag.NewFlagSet("index", flag.ExitOnError)
	indexM3U := indexCmd.String("m3u", "", "Playlist URL (default: saved config, then M3U_URL)")
	indexOut := indexCmd.String("out", "", "Snapshot path (default: CRIOLLO_SNAPSHOT_PATH)")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkM3U := checkCmd.String("m3u", "", "Playlist URL to fetch and parse")
	checkServer := checkCmd.String("server", "", "Base URL of a running server to check")
	checkStreams := checkCmd.Int("streams", 0, "Also probe the stream URL of the first N channels (-m3u mode)")
	checkTimeout := checkCmd.Duration("timeout", 60*time.Second, "Timeout")

	tuiCmd := flag.NewFlagSet("tui", flag.ExitOnError)
	tuiServer := tuiCmd.String("server", "", "Server base URL (default http://localhost:PORT)")
	tuiHWID := tuiCmd.String("hwid", "", "Device id sent to the server (default: derived from this machine)")

	hashCmd := flag.NewFlagSet("hashpw", flag.ExitOnError)

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <serve|index|check|tui|hashpw> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  serve   Run the HTTP API and web app\n")
		fmt.Fprintf(os.Stderr, "  index   Fetch the playlist once and save the channel snapshot\n")
		fmt.Fprintf(os.Stderr, "  check   Check a playlist (-m3u) or a running server (-server)\n")
		fmt.Fprintf(os.Stderr, "  tui     Terminal client\n")
		fmt.Fprintf(os.Stderr, "  hashpw  Print a bcrypt hash for ADMIN_PASSWORD (reads the password from stdin)\n")
		os.Exit(1)
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		_ = serveCmd.Parse(os.Args[2:])
		if *serveAddr == "" {
			*serveAddr = cfg.Addr()
		}
		if *servePublic != "" {
			cfg.PublicDir = *servePublic
		}
		err = runServe(ctx, cfg, log, *serveAddr, *serveRefresh)
	case "index":
		_ = indexCmd.Parse(os.Args[2:])
		err = runIndex(ctx, cfg, log, *indexM3U, *indexOut)
	case "check":
		_ = checkCmd.Parse(os.Args[2:])
		err = runCheck(ctx, cfg, log, *checkM3U, *checkServer, *checkStreams, *checkTimeout)
	case "tui":
		_ = tuiCmd.Parse(os.Args[2:])
		err = runTUI(ctx, cfg, *tuiServer, *tuiHWID)
	case "hashpw":
		_ = hashCmd.Parse(os.Args[2:])
		err = runHash(hashCmd.Args())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		log.WithError(err).Error(os.Args[1] + " failed")
		os.Exit(1)
	}
}

func runServe(ctx context.Context, cfg *config.Config, log *logrus.Entry, addr string, refresh time.Duration) error {
	settings := config.NewSettingsStore(cfg.SettingsPath, cfg.DefaultM3UURL)
	if _, err := settings.Load(); err != nil {
		log.WithError(err).Warn("settings unreadable, using defaults")
	}
	srcs, err := newSources(cfg, log)
	if err != nil {
		return err
	}
	c := cache.New(srcs.For(settings.Get().M3UURL), cfg.CacheTTL, log.WithField("component", "cache"))
	if snap, err := catalog.LoadSnapshot(cfg.SnapshotPath); err == nil {
		c.Warm(snap)
		log.WithFields(logrus.Fields{"channels": len(snap.Channels), "fetched_at": snap.FetchedAt}).Info("warm start from snapshot")
	} else if !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("snapshot unreadable")
	}
	if cfg.SnapshotPath != "" {
		c.OnReplace = func(s *catalog.Snapshot) {
			if err := s.Save(cfg.SnapshotPath); err != nil {
				log.WithError(err).Warn("save snapshot")
			}
		}
	}

	authz, err := auth.New(cfg.AdminHWIDs, cfg.AdminPassword, cfg.JWTSecret, cfg.AdminTokenTTL)
	if err != nil {
		return err
	}
	if cfg.AdminPassword == "" && authz.AdminHWIDCount() == 0 {
		log.Warn("no ADMIN_PASSWORD or ADMIN_HWIDS set; admin endpoints are locked")
	}

	srv := &api.Server{
		Addr:       addr,
		Cache:      c,
		Settings:   settings,
		Auth:       authz,
		PublicDir:  cfg.PublicDir,
		Log:        log.WithField("component", "api"),
		NewSource:  srcs.For,
		Header:     srcs.Header,
		AdminRate:  cfg.AdminRate,
		AdminBurst: cfg.AdminBurst,
		TrustProxy: cfg.TrustProxy,
	}
	if cfg.FavoritesDB != "" {
		db, err := favorites.OpenDB(ctx, cfg.FavoritesDB)
		if err != nil {
			log.WithError(err).Warn("favorites disabled")
		} else {
			defer db.Close()
			srv.Favorites = db
		}
	}

	go func() {
		if _, err := c.Channels(ctx, false); err != nil {
			log.WithError(err).Warn("initial channel load failed")
		}
	}()
	if refresh > 0 {
		go refreshLoop(ctx, c, refresh, log)
	}
	return srv.Run(ctx)
}

func refreshLoop(ctx context.Context, c *cache.Cache, every time.Duration, log *logrus.Entry) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Warn("background refresh failed")
			}
		}
	}
}

func runIndex(ctx context.Context, cfg *config.Config, log *logrus.Entry, m3uURL, out string) error {
	if m3uURL == "" {
		settings := config.NewSettingsStore(cfg.SettingsPath, cfg.DefaultM3UURL)
		if _, err := settings.Load(); err != nil {
			log.WithError(err).Warn("settings unreadable, using defaults")
		}
		m3uURL = settings.Get().M3UURL
	}
	if out == "" {
		out = cfg.SnapshotPath
	}
	raw, err := playlistFetcher(cfg).Fetch(ctx, m3uURL, cfg.FetchTimeout)
	if err != nil {
		return err
	}
	chs := indexer.Parse(raw)
	snap := catalog.NewSnapshot(chs, m3uURL, time.Now())
	if err := snap.Save(out); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"path":       out,
		"channels":   len(chs),
		"categories": len(catalog.Categories(chs)) - 1,
		"guide_url":  indexer.PlaylistHeader(raw).GuideURL,
	}).Info("saved channel snapshot")
	return nil
}

func runCheck(ctx context.Context, cfg *config.Config, log *logrus.Entry, m3uURL, server string, streams int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if server != "" {
		n, err := health.CheckEndpoints(ctx, strings.TrimRight(server, "/"))
		if err != nil {
			return err
		}
		log.WithField("channels", n).Info("server OK")
		return nil
	}
	if m3uURL == "" {
		m3uURL = cfg.DefaultM3UURL
	}
	n, err := health.CheckPlaylist(ctx, playlistFetcher(cfg), m3uURL, timeout)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"url": logging.RedactURL(m3uURL), "channels": n}).Info("playlist OK")
	if streams <= 0 {
		return nil
	}
	res, err := health.CheckStreams(ctx, playlistFetcher(cfg), m3uURL, timeout, streams)
	if err != nil {
		return err
	}
	bad := 0
	for _, r := range res {
		if !r.OK() {
			bad++
			log.WithError(r.Err).WithFields(logrus.Fields{"id": r.Channel.ID, "name": r.Channel.Name}).Warn("stream check failed")
			continue
		}
		log.WithFields(logrus.Fields{"id": r.Channel.ID, "name": r.Channel.Name, "kind": r.Kind}).Debug("stream OK")
	}
	log.WithFields(logrus.Fields{"probed": len(res), "failed": bad}).Info("stream check done")
	if bad == len(res) && bad > 0 {
		return fmt.Errorf("no stream of %d answered", bad)
	}
	return nil
}

func runTUI(ctx context.Context, cfg *config.Config, server, hwid string) error {
	if server == "" {
		server = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if hwid == "" {
		hwid = tui.DeviceID()
	}
	// The terminal belongs to the UI; logs go to a file next to the favorites.
	if err := os.MkdirAll(filepath.Dir(cfg.FavoritesFile), 0700); err != nil {
		return err
	}
	lf, err := os.OpenFile(filepath.Join(filepath.Dir(cfg.FavoritesFile), "tui.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer lf.Close()
	log := logging.NewWithOutput("criollotv-tui", lf)

	backends := player.Select(player.DefaultBackends(), cfg.PlayerEngines)
	session := player.NewSession(backends, log.WithField("component", "player"))
	session.Qualities = youtubeQualities(&youtube.Extractor{Path: cfg.YTDLPPath})
	session.ScreenWidth = cfg.ScreenWidth
	return tui.Run(ctx, tui.Options{
		Client:    tui.NewClient(server, hwid),
		Favorites: favorites.NewFileStore(cfg.FavoritesFile),
		Session:   session,
		Log:       log,
	})
}

// youtubeQualities lists yt-dlp renditions for YouTube video URLs. Other
// streams, or a missing yt-dlp, have no renditions.
func youtubeQualities(ext *youtube.Extractor) player.QualityFunc {
	if !ext.Available() {
		return nil
	}
	return func(ctx context.Context, streamURL string) ([]player.Quality, error) {
		id, ok := youtube.VideoIDFromURL(streamURL)
		if !ok {
			return nil, nil
		}
		qs, err := ext.Qualities(ctx, id)
		if err != nil {
			return nil, err
		}
		out := make([]player.Quality, len(qs))
		for i, q := range qs {
			out[i] = player.Quality{Label: q.Label, Height: q.Height, URL: q.URL}
		}
		return out, nil
	}
}

func runHash(args []string) error {
	pw := strings.Join(args, " ")
	if pw == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return err
		}
		pw = strings.TrimRight(line, "\r\n")
	}
	if pw == "" {
		return errors.New("empty password")
	}
	h, err := auth.HashPassword(pw)
	if err != nil {
		return err
	}
	fmt.Println(h)
	return nil
}
