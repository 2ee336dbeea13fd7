package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/criollotv/criollotv/internal/indexer/fetch"
)

const playlist = "#EXTM3U\n#EXTINF:-1 group-title=\"Noticias\",TN\nhttp://x/tn.m3u8\n#EXTINF:-1,C5N\nhttp://x/c5n.m3u8\n"

func TestCheckPlaylist_ok(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, playlist)
	}))
	defer srv.Close()
	n, err := CheckPlaylist(context.Background(), fetch.New(srv.Client()), srv.URL, time.Second)
	if err != nil {
		t.Fatalf("CheckPlaylist: %v", err)
	}
	if n != 2 {
		t.Fatalf("channels = %d, want 2", n)
	}
}

func TestCheckPlaylist_badStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	_, err := CheckPlaylist(context.Background(), fetch.New(srv.Client()), srv.URL, time.Second)
	if !errors.Is(err, fetch.ErrHTTPStatus) {
		t.Fatalf("err = %v, want HTTP status error", err)
	}
}

func TestCheckPlaylist_emptyURL(t *testing.T) {
	if _, err := CheckPlaylist(context.Background(), fetch.New(nil), "", time.Second); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestCheckStreams_limit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, playlist)
	}))
	defer srv.Close()
	res, err := CheckStreams(context.Background(), fetch.New(srv.Client()), srv.URL, time.Second, 1)
	if err != nil {
		t.Fatalf("CheckStreams: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("results = %d, want 1", len(res))
	}
	if !res[0].OK() || res[0].Channel.Name != "TN" {
		t.Fatalf("result = %+v", res[0])
	}
}

func TestCheckEndpoints_ok(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"m3uUrl":""}`) })
	mux.HandleFunc("/api/channels", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"channels":[{"id":1},{"id":2},{"id":3}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	n, err := CheckEndpoints(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("CheckEndpoints: %v", err)
	}
	if n != 3 {
		t.Fatalf("channels = %d", n)
	}
}

func TestCheckEndpoints_missing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	if _, err := CheckEndpoints(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestCheckEndpoints_loadError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/channels" {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"success":false,"error":"boom","channels":[]}`)
			return
		}
		w.WriteHeader(200)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	if _, err := CheckEndpoints(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 503")
	}
}
