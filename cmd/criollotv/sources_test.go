package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/criollotv/criollotv/internal/cache"
	"github.com/criollotv/criollotv/internal/config"
	"github.com/criollotv/criollotv/internal/indexer/fetch"
	"github.com/criollotv/criollotv/internal/logging"
	"github.com/criollotv/criollotv/internal/youtube"
)

const staticYAML = `sections:
  - name: Noticias
    channels:
      - name: Canal Uno
        stream_url: http://example.com/uno.m3u8
      - name: Canal Dos
        stream_url: http://example.com/dos.m3u8
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "static.yaml")
	if err := os.WriteFile(path, []byte(staticYAML), 0600); err != nil {
		t.Fatal(err)
	}
	return &config.Config{StaticCatalog: path, FetchTimeout: 5 * time.Second}
}

func TestSources_noPlaylistUsesCatalogOnly(t *testing.T) {
	srcs, err := newSources(testConfig(t), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	src := srcs.For("")
	if _, ok := src.(*cache.StaticSource); !ok {
		t.Fatalf("source = %T, want *cache.StaticSource", src)
	}
	chs, err := src.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(chs) != 2 || chs[0].Name != "Canal Uno" || chs[0].Category != "Noticias" {
		t.Fatalf("channels = %+v", chs)
	}
}

func TestSources_noSourcesAtAll(t *testing.T) {
	srcs, err := newSources(&config.Config{}, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := srcs.For("").Load(context.Background()); err == nil {
		t.Fatal("expected an error without a playlist URL")
	}
}

func TestSources_playlistFirstThenCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("#EXTM3U url-tvg=\"http://example.com/guide.xml\"\n" +
			"#EXTINF:-1 group-title=\"Deportes\",Remoto\nhttp://example.com/remoto.m3u8\n"))
	}))
	defer srv.Close()

	srcs, err := newSources(testConfig(t), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	srcs.fetcher = fetch.New(srv.Client())
	chs, err := srcs.For(srv.URL + "/lista.m3u").Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(chs) != 3 {
		t.Fatalf("got %d channels, want 3", len(chs))
	}
	if chs[0].Name != "Remoto" || chs[0].ID != 1 {
		t.Errorf("first channel = %+v", chs[0])
	}
	if chs[1].ID != 2 || chs[2].ID != 3 {
		t.Errorf("catalog ids = %d,%d, want 2,3", chs[1].ID, chs[2].ID)
	}
	if got := srcs.Header().GuideURL; got != "http://example.com/guide.xml" {
		t.Errorf("guide url = %q", got)
	}
}

func TestSources_playlistDownKeepsLastPlaylist(t *testing.T) {
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			http.Error(w, "no", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("#EXTM3U\n#EXTINF:-1,Remoto\nhttp://example.com/remoto.m3u8\n"))
	}))
	defer srv.Close()

	srcs, err := newSources(testConfig(t), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	srcs.fetcher = fetch.New(srv.Client())
	src := srcs.For(srv.URL)

	down.Store(true)
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected an error before the playlist ever loaded")
	}
	down.Store(false)
	if chs, err := src.Load(context.Background()); err != nil || len(chs) != 3 {
		t.Fatalf("load: %d channels, %v", len(chs), err)
	}
	down.Store(true)
	chs, err := src.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(chs) != 3 || chs[0].Name != "Remoto" || chs[1].ID != 2 {
		t.Fatalf("channels after playlist failure = %+v", chs)
	}
}

func TestPlaylistFetcher_relays(t *testing.T) {
	if _, ok := playlistFetcher(&config.Config{}).(*fetch.Fetcher); !ok {
		t.Error("no relays should give a direct fetcher")
	}
	if _, ok := playlistFetcher(&config.Config{RelayProxies: []string{"default"}}).(*fetch.RelayFetcher); !ok {
		t.Error("relays should give a relay fetcher")
	}
}

func TestYouTubeQualities_noExtractor(t *testing.T) {
	if q := youtubeQualities(&youtube.Extractor{Path: "/nonexistent/yt-dlp"}); q != nil {
		t.Fatal("quality lookup wired without yt-dlp")
	}
}
