package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	audioDir := t.TempDir()
	c, err := NewClient("key", "voice-1", audioDir, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	c.Now = func() time.Time { return time.Unix(1700000000, 0) }
	return c, audioDir
}

func TestSynthesize_WritesMP3(t *testing.T) {
	var gotPath, gotKey string
	var gotReq ttsRequest

	c, audioDir := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		_, _ = w.Write([]byte("mp3-bytes"))
	})

	path, err := c.Synthesize(context.Background(), "**Top pick:** NVIDIA\nup 2.4 percent")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if gotPath != "/v1/text-to-speech/voice-1" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if strings.Contains(gotReq.Text, "**") || strings.Contains(gotReq.Text, "\n") {
		t.Fatalf("markdown must be stripped, got %q", gotReq.Text)
	}

	if filepath.Base(path) != "tts_1700000000.mp3" {
		t.Fatalf("unexpected filename %q", path)
	}
	if filepath.Dir(path) != mustAbs(t, audioDir) {
		t.Fatalf("file must land in audio dir, got %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "mp3-bytes" {
		t.Fatalf("unexpected file contents %q err=%v", data, err)
	}
}

func TestSynthesize_UpstreamErrorPropagates(t *testing.T) {
	c, audioDir := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"bad key"}`))
	})

	if _, err := c.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error on 401")
	}
	entries, _ := os.ReadDir(audioDir)
	if len(entries) != 0 {
		t.Fatalf("no file should be written on failure, found %d", len(entries))
	}
}

func TestSynthesize_RejectsEmptyText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	if _, err := c.Synthesize(context.Background(), "** | **"); err == nil {
		t.Fatalf("expected error for effectively empty text")
	}
}

func mustAbs(t *testing.T, p string) string {
	t.Helper()
	abs, err := filepath.Abs(p)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return abs
}
