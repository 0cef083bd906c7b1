package telephony

import (
	"net/http"
	"os"
	"path/filepath"

	"stockcall/internal/results"
	"stockcall/pkg/logger"

	"github.com/gin-gonic/gin"
)

const twimlContentType = "text/xml"

// CallbackHandler serves the provider-facing callback endpoints. Twilio
// drives the live call by fetching these; every response must be well-formed
// TwiML no matter what fails internally.
//
// NOTE: these endpoints should be protected by Twilio signature validation
// in production.
type CallbackHandler struct {
	Store    results.Store
	Renderer PromptRenderer

	// AudioDir is the root for /audio assets.
	AudioDir string
}

// Voice handles the initial call-control fetch: speak/play the prompt and
// gather one digit.
func (h CallbackHandler) Voice(c *gin.Context) {
	message := c.Query("msg")
	if message == "" {
		message = "Please enter a key."
	}
	correlationID := c.Query("request_id")

	c.Header("Content-Type", twimlContentType)
	c.String(http.StatusOK, h.Renderer.Prompt(message, correlationID))
}

// Gather handles the digit-received callback: persist the result keyed by the
// correlation id, then acknowledge. A store failure is logged and swallowed;
// the caller on the phone still gets a clean goodbye.
func (h CallbackHandler) Gather(c *gin.Context) {
	log := logger.FromGin(c)

	digits := c.PostForm("Digits")
	correlationID := c.Query("request_id")

	if correlationID != "" {
		if err := h.Store.Save(c.Request.Context(), correlationID, digits); err != nil {
			log.Error("call result save failed", "correlation_id", correlationID, "err", err)
		} else {
			log.Info("call result recorded", "correlation_id", correlationID, "has_digit", digits != "")
		}
	} else {
		log.Warn("gather callback without request_id")
	}

	c.Header("Content-Type", twimlContentType)
	c.String(http.StatusOK, h.Renderer.Acknowledge(digits))
}

// Audio streams a generated TTS asset to Twilio.
func (h CallbackHandler) Audio(c *gin.Context) {
	name := c.Param("filename")
	if name == "" || name != filepath.Base(name) {
		c.String(http.StatusNotFound, "Audio file not found")
		return
	}
	path := filepath.Join(h.AudioDir, name)
	if _, err := os.Stat(path); err != nil {
		c.String(http.StatusNotFound, "Audio file not found")
		return
	}
	c.Header("Content-Type", "audio/mpeg")
	c.File(path)
}
