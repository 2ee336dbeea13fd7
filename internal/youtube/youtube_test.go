package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/criollotv/criollotv/internal/catalog"
)

func TestVideoIDFromURL(t *testing.T) {
	cases := []struct {
		in, want string
		ok       bool
	}{
		{"https://www.youtube.com/embed/abcdefghijk?autoplay=1", "abcdefghijk", true},
		{"https://www.youtube.com/watch?v=A1b2C3d4E5f", "A1b2C3d4E5f", true},
		{"https://www.youtube.com/watch?feature=share&v=A1b2C3d4E5f", "A1b2C3d4E5f", true},
		{"https://youtu.be/A1b2C3d4-_f", "A1b2C3d4-_f", true},
		{"https://www.youtube.com/live/zzzzzzzzzzz", "zzzzzzzzzzz", true},
		{"https://www.youtube.com/v/zzzzzzzzzzz", "zzzzzzzzzzz", true},
		{"https://example.com/watch?v=short", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := VideoIDFromURL(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("VideoIDFromURL(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestLivePageURL(t *testing.T) {
	cases := map[string]string{
		"UCj6PcyLvpnIRT_2W_mwa9Aw":       "https://www.youtube.com/channel/UCj6PcyLvpnIRT_2W_mwa9Aw/live",
		"@todonoticias":                  "https://www.youtube.com/@todonoticias/live",
		"c5n":                            "https://www.youtube.com/@c5n/live",
		"https://www.youtube.com/@lnmas": "https://www.youtube.com/@lnmas/live",
		"https://www.youtube.com/channel/UCba3hpU7EFBSk/live": "https://www.youtube.com/channel/UCba3hpU7EFBSk/live",
	}
	for in, want := range cases {
		if got := LivePageURL(in); got != want {
			t.Errorf("LivePageURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVideoIDFromHTML(t *testing.T) {
	cases := []struct {
		name, doc, want string
	}{
		{"og meta", `<html><head><meta property="og:video:url" content="https://www.youtube.com/embed/AAAAAAAAAAA"></head></html>`, "AAAAAAAAAAA"},
		{"canonical", `<html><head><link rel="canonical" href="https://www.youtube.com/watch?v=BBBBBBBBBBB"></head></html>`, "BBBBBBBBBBB"},
		{"iframe", `<body><iframe src="https://www.youtube.com/embed/CCCCCCCCCCC"></iframe></body>`, "CCCCCCCCCCC"},
		{"player json", `<script>var x = {"videoId":"DDDDDDDDDDD","isLive":true}</script>`, "DDDDDDDDDDD"},
		{"meta wins over json", `<meta property="og:video" content="https://youtu.be/EEEEEEEEEEE"><script>{"videoId":"FFFFFFFFFFF"}</script>`, "EEEEEEEEEEE"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := VideoIDFromHTML(c.doc)
			if !ok || got != c.want {
				t.Fatalf("got %q, %v; want %q", got, ok, c.want)
			}
		})
	}
	if _, ok := VideoIDFromHTML("<html><body>offline</body></html>"); ok {
		t.Fatal("offline page should yield no video")
	}
}

func TestPageResolver_VideoIDFromPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/live":
			if r.Header.Get("User-Agent") == "" {
				t.Error("missing User-Agent")
			}
			fmt.Fprint(w, `<link rel="canonical" href="https://www.youtube.com/watch?v=GGGGGGGGGGG">`)
		case "/offline":
			fmt.Fprint(w, `<html></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	p := &PageResolver{Client: srv.Client()}
	ctx := context.Background()

	id, err := p.VideoIDFromPage(ctx, srv.URL+"/live")
	if err != nil || id != "GGGGGGGGGGG" {
		t.Fatalf("live: %q, %v", id, err)
	}
	if _, err := p.VideoIDFromPage(ctx, srv.URL+"/offline"); !errors.Is(err, ErrNotLive) {
		t.Fatalf("offline: err = %v, want ErrNotLive", err)
	}
	if _, err := p.VideoIDFromPage(ctx, srv.URL+"/missing"); err == nil || errors.Is(err, ErrNotLive) {
		t.Fatalf("404: err = %v", err)
	}
}

type fakeResolver struct {
	ids   map[string]string
	calls atomic.Int32
}

func (f *fakeResolver) LiveVideoID(_ context.Context, ref string) (string, error) {
	f.calls.Add(1)
	if id, ok := f.ids[ref]; ok {
		return id, nil
	}
	if ref == "broken" {
		return "", errors.New("boom")
	}
	return "", ErrNotLive
}

type fakeStreams struct{}

func (fakeStreams) StreamURL(_ context.Context, id string) (string, error) {
	if id == "HHHHHHHHHHH" {
		return "https://cdn.example/" + id + ".m3u8", nil
	}
	return "", errors.New("no formats")
}

func entries(refs ...string) []catalog.SectionEntry {
	var out []catalog.SectionEntry
	for _, r := range refs {
		out = append(out, catalog.SectionEntry{Section: "Noticias", Entry: catalog.Entry{Name: "ch-" + r, ChannelID: r, Method: catalog.MethodYouTube}})
	}
	return out
}

func TestSource_Load(t *testing.T) {
	res := &fakeResolver{ids: map[string]string{"UCa": "HHHHHHHHHHH", "UCb": "IIIIIIIIIII"}}
	src := &Source{Entries: entries("UCa", "UCoff", "UCb", "broken"), Resolver: res, Streams: fakeStreams{}, Concurrency: 2}
	chs, err := src.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(chs) != 4 {
		t.Fatalf("len = %d", len(chs))
	}
	want := []string{"https://cdn.example/HHHHHHHHHHH.m3u8", "", EmbedURL("IIIIIIIIIII"), ""}
	for i, ch := range chs {
		if ch.ID != i+1 {
			t.Errorf("chs[%d].ID = %d", i, ch.ID)
		}
		if ch.StreamURL != want[i] {
			t.Errorf("chs[%d].StreamURL = %q, want %q", i, ch.StreamURL, want[i])
		}
		if ch.Category != "Noticias" {
			t.Errorf("chs[%d].Category = %q", i, ch.Category)
		}
	}
	if res.calls.Load() != 4 {
		t.Errorf("resolver calls = %d", res.calls.Load())
	}
}

func TestSource_AllOfflineIsValid(t *testing.T) {
	src := &Source{Entries: entries("UCx", "UCy"), Resolver: &fakeResolver{}}
	chs, err := src.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, ch := range chs {
		if ch.HasStream() {
			t.Errorf("%s should have no stream", ch.Name)
		}
	}
}

func TestSource_AllBrokenFails(t *testing.T) {
	src := &Source{Entries: entries("broken", "broken"), Resolver: &fakeResolver{}}
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected error when every lookup fails")
	}
}

func TestExtractor_Missing(t *testing.T) {
	e := &Extractor{Path: "/nonexistent/yt-dlp"}
	if e.Available() {
		t.Fatal("Available() = true for missing binary")
	}
	if _, err := e.StreamURL(context.Background(), "AAAAAAAAAAA"); err == nil {
		t.Fatal("expected exec error")
	}
}
