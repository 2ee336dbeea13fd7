package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestNewWithOutput_jsonWithService(t *testing.T) {
	os.Unsetenv("LOG_FORMAT")
	os.Unsetenv("LOG_LEVEL")
	var buf bytes.Buffer
	log := NewWithOutput("api", &buf)
	log.WithField("count", 3).Info("refreshed")
	log.Debug("hidden at info level")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["service"] != "api" || rec["msg"] != "refreshed" || rec["count"] != float64(3) {
		t.Errorf("record = %v", rec)
	}
}

func TestNewWithOutput_levelAndText(t *testing.T) {
	os.Setenv("LOG_FORMAT", "text")
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Unsetenv("LOG_FORMAT")
	defer os.Unsetenv("LOG_LEVEL")
	var buf bytes.Buffer
	NewWithOutput("tui", &buf).Debug("visible")
	if !strings.Contains(buf.String(), "visible") || !strings.Contains(buf.String(), "service=tui") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRedactURL(t *testing.T) {
	if got := RedactURL("http://p/get.php?username=u&password=p"); got != "http://p/get.php?..." {
		t.Errorf("RedactURL = %q", got)
	}
	if got := RedactURL("http://p/list.m3u"); got != "http://p/list.m3u" {
		t.Errorf("RedactURL = %q", got)
	}
}
