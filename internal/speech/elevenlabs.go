package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModelID = "eleven_multilingual_v2"
	outputFormat   = "mp3_44100_128"
)

// Client converts text to speech via the ElevenLabs API and writes the
// resulting MP3 into the audio directory served under /audio.
type Client struct {
	baseURL    string
	apiKey     string
	voiceID    string
	audioDir   string
	httpClient *http.Client

	// Now stamps generated filenames; injectable for tests.
	Now func() time.Time
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(apiKey, voiceID, audioDir string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("speech: api key is required")
	}
	if voiceID == "" {
		return nil, errors.New("speech: voice id is required")
	}
	if audioDir == "" {
		return nil, errors.New("speech: audio dir is required")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		voiceID:    voiceID,
		audioDir:   audioDir,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		Now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize renders text to an MP3 file and returns its absolute path.
// Markdown punctuation is stripped first; it reads terribly out loud.
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	clean := cleanForSpeech(text)
	if clean == "" {
		return "", errors.New("speech: empty text")
	}

	body, err := json.Marshal(ttsRequest{Text: clean, ModelID: defaultModelID})
	if err != nil {
		return "", fmt.Errorf("speech: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", c.baseURL, c.voiceID, outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("speech: create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech: tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("speech: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := os.MkdirAll(c.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("speech: create audio dir: %w", err)
	}
	name := fmt.Sprintf("tts_%d.mp3", c.Now().Unix())
	path := filepath.Join(c.audioDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("speech: create file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("speech: write audio: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("speech: close file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

func cleanForSpeech(text string) string {
	clean := strings.ReplaceAll(text, "**", "")
	clean = strings.ReplaceAll(clean, "|", "")
	clean = strings.ReplaceAll(clean, "\n", " ")
	return strings.TrimSpace(clean)
}
