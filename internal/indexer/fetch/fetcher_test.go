package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/criollotv/criollotv/internal/httpclient"
)

const playlist = "#EXTM3U\n#EXTINF:-1 group-title=\"Noticias\",TN\nhttp://a/tn.m3u8\n"

func testFetcher() *Fetcher {
	return &Fetcher{Retry: httpclient.NoRetry}
}

func TestFetch_ok(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Write([]byte(playlist))
	}))
	defer srv.Close()

	body, err := testFetcher().Fetch(context.Background(), srv.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if body != playlist {
		t.Errorf("body = %q", body)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestFetch_followsRelativeRedirects(t *testing.T) {
	hops := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			hops++
			w.Header().Set("Location", "/middle")
			w.WriteHeader(http.StatusMovedPermanently)
		case "/middle":
			hops++
			w.Header().Set("Location", "final.m3u")
			w.WriteHeader(http.StatusTemporaryRedirect)
		case "/final.m3u":
			w.Write([]byte(playlist))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	body, err := testFetcher().Fetch(context.Background(), srv.URL+"/start", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if body != playlist || hops != 2 {
		t.Errorf("body = %q hops = %d", body, hops)
	}
}

func TestFetch_redirectLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer srv.Close()

	f := testFetcher()
	f.MaxRedirects = 3
	_, err := f.Fetch(context.Background(), srv.URL+"/loop", time.Second)
	if err == nil || !strings.Contains(err.Error(), "stopped after 3 redirects") {
		t.Errorf("err = %v", err)
	}
}

func TestFetch_httpStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testFetcher().Fetch(context.Background(), srv.URL, time.Second)
	if !errors.Is(err, ErrHTTPStatus) {
		t.Fatalf("err = %v, want ErrHTTPStatus", err)
	}
	var fe *Error
	if !errors.As(err, &fe) || fe.Status != http.StatusInternalServerError {
		t.Errorf("status = %+v", fe)
	}
}

func TestFetch_invalidContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "cloudflare")
		w.Write([]byte("<!DOCTYPE html><html><title>Just a moment...</title></html>"))
	}))
	defer srv.Close()

	_, err := testFetcher().Fetch(context.Background(), srv.URL, time.Second)
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("err = %v, want ErrInvalidContent", err)
	}
	if !strings.Contains(err.Error(), "cloudflare challenge page") {
		t.Errorf("missing hint: %v", err)
	}
}

func TestFetch_timeout(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(done)

	_, err := testFetcher().Fetch(context.Background(), srv.URL, 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestFetch_rejectsNonHTTP(t *testing.T) {
	_, err := testFetcher().Fetch(context.Background(), "file:///etc/passwd", time.Second)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
}

func TestFetch_decodesCompressedBodies(t *testing.T) {
	var br, gz bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write([]byte(playlist))
	bw.Close()
	gw := gzip.NewWriter(&gz)
	gw.Write([]byte(playlist))
	gw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
			t.Errorf("Accept-Encoding = %q", r.Header.Get("Accept-Encoding"))
		}
		switch r.URL.Path {
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			w.Write(br.Bytes())
		case "/gz":
			w.Header().Set("Content-Encoding", "gzip")
			w.Write(gz.Bytes())
		}
	}))
	defer srv.Close()

	for _, path := range []string{"/br", "/gz"} {
		body, err := testFetcher().Fetch(context.Background(), srv.URL+path, time.Second)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if body != playlist {
			t.Errorf("%s: body = %q", path, body)
		}
	}
}

func TestChallengeHint(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		body   string
		want   string
	}{
		{"cf header only", http.Header{"Cf-Ray": {"abc"}}, "nope", "served via cloudflare"},
		{"html", http.Header{}, "<html><body>hi</body></html>", "got an HTML page"},
		{"empty", http.Header{}, "  ", "empty body"},
		{"plain", http.Header{}, "hello", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := challengeHint(tt.header, tt.body); got != tt.want {
				t.Errorf("challengeHint = %q, want %q", got, tt.want)
			}
		})
	}
}
