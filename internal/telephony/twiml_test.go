package telephony

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPrompt_SpeaksRawText(t *testing.T) {
	r := PromptRenderer{BaseURL: "https://example.ngrok.app", GatherTimeout: 45 * time.Second}
	out := r.Prompt("Press 1 to approve", "req-1")

	for _, want := range []string{
		"<Gather",
		`input="dtmf"`,
		`numDigits="1"`,
		`timeout="45"`,
		`action="https://example.ngrok.app/gather?request_id=req-1"`,
		`method="POST"`,
		"<Say>Press 1 to approve</Say>",
		"No input received. Goodbye.",
		"<Hangup",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in twiml:\n%s", want, out)
		}
	}
}

func TestPrompt_PlaysExistingAudioAsset(t *testing.T) {
	dir := t.TempDir()
	asset := filepath.Join(dir, "tts_1700000000.mp3")
	if err := os.WriteFile(asset, []byte("mp3"), 0o644); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	r := PromptRenderer{BaseURL: "https://example.ngrok.app", AudioDir: dir}
	out := r.Prompt(asset, "req-1")

	if !strings.Contains(out, "<Play>https://example.ngrok.app/audio/tts_1700000000.mp3</Play>") {
		t.Fatalf("expected play verb for existing asset:\n%s", out)
	}
	if strings.Contains(out, "<Say>"+asset) {
		t.Fatalf("asset path must not be spoken:\n%s", out)
	}
}

func TestPrompt_SpeaksMissingAudioPath(t *testing.T) {
	r := PromptRenderer{BaseURL: "https://example.ngrok.app", AudioDir: t.TempDir()}
	out := r.Prompt("/nowhere/tts_42.mp3", "req-1")

	if strings.Contains(out, "<Play>") {
		t.Fatalf("missing asset must not be played:\n%s", out)
	}
	if !strings.Contains(out, "<Say>/nowhere/tts_42.mp3</Say>") {
		t.Fatalf("expected raw text fallback:\n%s", out)
	}
}

func TestPrompt_EscapesCorrelationID(t *testing.T) {
	r := PromptRenderer{BaseURL: "https://example.ngrok.app"}
	out := r.Prompt("hi", "a b&c")
	if !strings.Contains(out, "request_id=a+b%26c") {
		t.Fatalf("expected escaped request_id in action:\n%s", out)
	}
}

func TestAcknowledge(t *testing.T) {
	r := PromptRenderer{}

	out := r.Acknowledge("1")
	if !strings.Contains(out, "Thanks. You pressed 1.") || !strings.Contains(out, "<Hangup") {
		t.Fatalf("unexpected ack twiml:\n%s", out)
	}

	out = r.Acknowledge("")
	if !strings.Contains(out, "No input detected.") {
		t.Fatalf("unexpected empty ack twiml:\n%s", out)
	}
}

func TestPrompt_DefaultGatherTimeout(t *testing.T) {
	r := PromptRenderer{BaseURL: "https://example.ngrok.app"}
	if out := r.Prompt("hi", "r"); !strings.Contains(out, `timeout="45"`) {
		t.Fatalf("expected default timeout:\n%s", out)
	}
}
