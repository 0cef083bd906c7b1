package telephony

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Minimal TwiML builder for the two voice callbacks. It intentionally avoids
// any provider SDK dependency; encoding/xml covers the handful of verbs the
// prompt-and-gather exchange needs.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlPlay struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlGather struct {
	XMLName   xml.Name `xml:"Gather"`
	Input     string   `xml:"input,attr"`
	NumDigits int      `xml:"numDigits,attr"`
	Timeout   int      `xml:"timeout,attr"`
	Action    string   `xml:"action,attr"`
	Method    string   `xml:"method,attr"`
	Verbs     []any    `xml:",any"`
}

// fallbackTwiML is returned whenever rendering goes sideways. Twilio expects
// well-formed TwiML on every callback, so an HTTP error is never an option.
const fallbackTwiML = xml.Header +
	`<Response>
  <Say>Sorry, there was an error processing your call. Please try again later.</Say>
  <Hangup></Hangup>
</Response>`

// PromptRenderer produces the TwiML for both callback endpoints.
type PromptRenderer struct {
	// BaseURL is the public root the gather action posts back to.
	BaseURL string

	// AudioDir is where pre-rendered TTS assets live; messages that name an
	// existing .mp3 there are played instead of spoken.
	AudioDir string

	// GatherTimeout is the per-call wait for a keypress.
	GatherTimeout time.Duration
}

// Prompt renders the "await digit" document: play or speak the message inside
// a one-digit gather targeting /gather with the same correlation id, then a
// spoken fallback and hangup if the gather never completes.
func (r PromptRenderer) Prompt(message, correlationID string) string {
	timeout := int(r.GatherTimeout.Seconds())
	if timeout <= 0 {
		timeout = 45
	}

	g := twimlGather{
		Input:     "dtmf",
		NumDigits: 1,
		Timeout:   timeout,
		Action:    fmt.Sprintf("%s/gather?request_id=%s", r.BaseURL, url.QueryEscape(correlationID)),
		Method:    "POST",
	}

	if assetURL, ok := r.audioAssetURL(message); ok {
		g.Verbs = append(g.Verbs, twimlPlay{URL: assetURL})
	} else {
		g.Verbs = append(g.Verbs, twimlSay{Text: message})
	}

	doc := twimlResponse{Verbs: []any{
		g,
		twimlSay{Text: "No input received. Goodbye."},
		twimlHangup{},
	}}
	return encodeTwiML(doc)
}

// Acknowledge renders the post-gather document: confirm the pressed digit or
// state that nothing was detected, then hang up.
func (r PromptRenderer) Acknowledge(digit string) string {
	var say twimlSay
	if digit != "" {
		say = twimlSay{Text: fmt.Sprintf("Thanks. You pressed %s.", digit)}
	} else {
		say = twimlSay{Text: "No input detected."}
	}
	return encodeTwiML(twimlResponse{Verbs: []any{say, twimlHangup{}}})
}

// audioAssetURL reports whether message references a playable asset on disk.
// Only basenames inside AudioDir are served; anything else is spoken as text.
func (r PromptRenderer) audioAssetURL(message string) (string, bool) {
	if !strings.HasSuffix(strings.ToLower(message), ".mp3") {
		return "", false
	}
	name := filepath.Base(message)
	if name == "." || name == string(filepath.Separator) {
		return "", false
	}
	if _, err := os.Stat(filepath.Join(r.AudioDir, name)); err != nil {
		// Also accept absolute paths produced by the TTS step, as long as
		// the file actually exists and lives in AudioDir when served.
		if _, err2 := os.Stat(message); err2 != nil {
			return "", false
		}
	}
	return fmt.Sprintf("%s/audio/%s", r.BaseURL, url.PathEscape(name)), true
}

func encodeTwiML(doc twimlResponse) string {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fallbackTwiML
	}
	if err := enc.Flush(); err != nil {
		return fallbackTwiML
	}
	return buf.String()
}
