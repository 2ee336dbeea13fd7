package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

const tdtAPIJSON = `{"channels":[
 {"name":"La 1","options":[{"format":"m3u8","url":"https://rtve.example/la1.m3u8"}]},
 {"name":"Canal Sur","options":[{"format":"youtube","url":"https://www.youtube.com/watch?v=AAAAAAAAAAA"}]}
]}`

// The GitHub list has carried junk before the JSON document.
const tdtGitHubJSON = "\ufeff// generated\n" + `{"countries":[{"name":"Spain","ambits":[
 {"name":"Generalistas","channels":[
  {"name":"Telemadrid","options":["https://www.youtube.com/embed/BBBBBBBBBBB"]},
  {"name":"Aragon TV","options":[],"web":["https://www.youtube.com/@aragontv"]},
  {"name":"8tv","options":[{"url":"https://www.youtube.com/channel/UC8tv/live"}]}
 ]}]}]}`

func tdtServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lists/tv.json":
			fmt.Fprint(w, tdtAPIJSON)
		case "/TELEVISION.json":
			fmt.Fprint(w, tdtGitHubJSON)
		case "/array.json":
			fmt.Fprint(w, `[{"name":"Canal 9","options":[{"url":"https://youtu.be/CCCCCCCCCCC"}]}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTDTResolver_VideoID(t *testing.T) {
	srv := tdtServer(t)
	live := &fakeResolver{ids: map[string]string{
		"https://www.youtube.com/@aragontv":          "DDDDDDDDDDD",
		"https://www.youtube.com/channel/UC8tv/live": "EEEEEEEEEEE",
	}}
	r := &TDTResolver{
		Client: srv.Client(),
		Lists:  []string{srv.URL + "/lists/tv.json", srv.URL + "/TELEVISION.json", srv.URL + "/array.json"},
		Live:   live,
	}
	tests := []struct {
		page string
		want string
	}{
		{"https://www.tdtchannels.com/player/canalsur", "AAAAAAAAAAA"},
		{"https://www.tdtchannels.com/player/Telemadrid/", "BBBBBBBBBBB"},
		{"https://www.tdtchannels.com/player/aragontv", "DDDDDDDDDDD"},
		{"https://www.tdtchannels.com/player/8TV", "EEEEEEEEEEE"},
		{"https://www.tdtchannels.com/player/canal9", "CCCCCCCCCCC"},
	}
	for _, tt := range tests {
		t.Run(tt.page, func(t *testing.T) {
			id, err := r.VideoID(context.Background(), tt.page)
			if err != nil || id != tt.want {
				t.Fatalf("VideoID = %q, %v; want %q", id, err, tt.want)
			}
		})
	}

	// La 1 is listed but has no YouTube option.
	if _, err := r.VideoID(context.Background(), "https://www.tdtchannels.com/player/la1"); !errors.Is(err, ErrNotLive) {
		t.Fatalf("la1: err = %v, want ErrNotLive", err)
	}
}

func TestTDTResolver_firstListDown(t *testing.T) {
	srv := tdtServer(t)
	r := &TDTResolver{
		Client: srv.Client(),
		Lists:  []string{srv.URL + "/gone.json", srv.URL + "/TELEVISION.json"},
	}
	id, err := r.VideoID(context.Background(), "https://www.tdtchannels.com/player/telemadrid")
	if err != nil || id != "BBBBBBBBBBB" {
		t.Fatalf("VideoID = %q, %v", id, err)
	}
}

// redirectTransport sends every request to one test server, keeping the path.
type redirectTransport struct{ target *url.URL }

func (rt redirectTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func TestPageResolver_webPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/envivo":
			fmt.Fprint(w, `<iframe src="https://www.youtube.com/embed/FFFFFFFFFFF"></iframe>`)
		case "/player/telemadrid":
			fmt.Fprint(w, `<html><div id="player"></div></html>`)
		case "/TELEVISION.json":
			fmt.Fprint(w, tdtGitHubJSON)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	target, _ := url.Parse(srv.URL)
	client := &http.Client{Transport: redirectTransport{target: target}}
	p := &PageResolver{
		Client: client,
		TDT:    &TDTResolver{Client: client, Lists: []string{srv.URL + "/TELEVISION.json"}},
	}
	ctx := context.Background()

	id, err := p.LiveVideoID(ctx, "https://canal.example.com/envivo")
	if err != nil || id != "FFFFFFFFFFF" {
		t.Fatalf("web page: %q, %v", id, err)
	}
	id, err = p.LiveVideoID(ctx, "https://www.tdtchannels.com/player/telemadrid")
	if err != nil || id != "BBBBBBBBBBB" {
		t.Fatalf("tdtchannels page: %q, %v", id, err)
	}
	if _, err := p.LiveVideoID(ctx, "https://canal.example.com/player/telemadrid"); !errors.Is(err, ErrNotLive) {
		t.Fatalf("non-tdt page: err = %v, want ErrNotLive", err)
	}
}

func TestIsTDTPage(t *testing.T) {
	tests := map[string]bool{
		"https://www.tdtchannels.com/player/la1": true,
		"https://TDTChannels.com/x":              true,
		"https://example.com/tdtchannels":        false,
		"::":                                     false,
	}
	for in, want := range tests {
		if got := IsTDTPage(in); got != want {
			t.Errorf("IsTDTPage(%q) = %v, want %v", in, got, want)
		}
	}
}
