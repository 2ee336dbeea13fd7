// Package indexer turns M3U playlist text into channels.
package indexer

import (
	"bufio"
	"io"
	"strings"

	"github.com/criollotv/criollotv/internal/catalog"
)

const maxLineSize = 1 << 20 // 1 MiB per line

const extinfPrefix = "#EXTINF:"

// Parse converts raw M3U text into channels in playlist order. It never fails:
// lines it does not understand are skipped. IDs are 1..n in emission order.
func Parse(raw string) []catalog.Channel {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	var p parser
	for _, line := range strings.Split(raw, "\n") {
		p.line(line)
	}
	return p.out
}

// ParseReader is the streaming form of Parse. The only errors are read errors
// (including a line longer than 1 MiB); channels parsed before the error are returned.
func ParseReader(r io.Reader) ([]catalog.Channel, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineSize)
	sc.Split(scanLines)
	var p parser
	for sc.Scan() {
		p.line(sc.Text())
	}
	return p.out, sc.Err()
}

type parser struct {
	pending *catalog.Channel
	out     []catalog.Channel
}

func (p *parser) line(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if strings.HasPrefix(line, extinfPrefix) {
		ch := channelFromEXTINF(line)
		p.pending = &ch
		return
	}
	if strings.HasPrefix(line, "#") || p.pending == nil {
		return
	}
	ch := *p.pending
	ch.StreamURL = line
	ch.ID = len(p.out) + 1
	p.out = append(p.out, ch)
	p.pending = nil
}

func channelFromEXTINF(extinf string) catalog.Channel {
	tvgName := attrFromEXTINF(extinf, "tvg-name")
	name := ""
	if i := strings.LastIndex(extinf, ","); i >= 0 {
		name = strings.TrimSpace(extinf[i+1:])
	}
	if name == "" {
		name = strings.TrimSpace(tvgName)
	}
	if name == "" {
		name = catalog.DefaultName
	}
	category := strings.TrimSpace(attrFromEXTINF(extinf, "group-title"))
	if category == "" {
		category = catalog.DefaultCategory
	}
	return catalog.Channel{
		Name:     name,
		Category: category,
		Logo:     strings.TrimSpace(attrFromEXTINF(extinf, "tvg-logo")),
	}
}

// attrFromEXTINF returns the quoted value of key (e.g. tvg-logo="...").
// The key must start the line or follow whitespace so tvg-name does not
// match inside another attribute.
func attrFromEXTINF(extinf, key string) string {
	prefix := key + `="`
	from := 0
	for {
		i := strings.Index(extinf[from:], prefix)
		if i < 0 {
			return ""
		}
		i += from
		if i == 0 || extinf[i-1] == ' ' || extinf[i-1] == '\t' || extinf[i-1] == ':' {
			i += len(prefix)
			j := strings.Index(extinf[i:], `"`)
			if j < 0 {
				return ""
			}
			return extinf[i : i+j]
		}
		from = i + len(prefix)
	}
}

// scanLines splits on \n, \r\n and lone \r.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		switch b {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if atEOF {
				return i + 1, data[:i], nil
			}
			// need one more byte to tell \r from \r\n
			return 0, nil, nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Header holds the attributes of the #EXTM3U line.
type Header struct {
	GuideURL string `json:"guideUrl,omitempty"` // url-tvg or x-tvg-url
}

// PlaylistHeader reads the #EXTM3U line, if it is the first non-empty line.
func PlaylistHeader(raw string) Header {
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#EXTM3U") {
			return Header{}
		}
		h := Header{GuideURL: attrFromEXTINF(line, "url-tvg")}
		if h.GuideURL == "" {
			h.GuideURL = attrFromEXTINF(line, "x-tvg-url")
		}
		return h
	}
	return Header{}
}

// LooksLikePlaylist reports whether body carries an M3U marker.
func LooksLikePlaylist(body string) bool {
	return strings.Contains(body, "#EXTM3U") || strings.Contains(body, extinfPrefix)
}
