package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockcall/internal/config"
	"stockcall/pkg/logger"

	"github.com/google/uuid"
)

// TwilioInitiator creates outbound calls through the Twilio REST API.
// No SDK: one form POST against the Calls resource is all this needs.
type TwilioInitiator struct {
	accountSID string
	authToken  string
	fromNumber string
	apiBase    string

	// callbackBase is the public URL Twilio fetches initial TwiML from.
	callbackBase string

	httpClient *http.Client

	// NewID is injectable for tests; defaults to uuid.NewString.
	NewID func() string
}

func NewTwilioInitiator(twilioCfg config.TwilioConfig, callCfg config.CallConfig) (*TwilioInitiator, error) {
	if twilioCfg.AccountSID == "" || twilioCfg.AuthToken == "" {
		return nil, fmt.Errorf("telephony: twilio credentials are required")
	}
	if twilioCfg.FromNumber == "" {
		return nil, fmt.Errorf("telephony: twilio from number is required")
	}
	if callCfg.BaseURL == "" {
		return nil, fmt.Errorf("telephony: callback base url is required")
	}
	return &TwilioInitiator{
		accountSID:   twilioCfg.AccountSID,
		authToken:    twilioCfg.AuthToken,
		fromNumber:   twilioCfg.FromNumber,
		apiBase:      strings.TrimRight(twilioCfg.APIBaseURL, "/"),
		callbackBase: strings.TrimRight(callCfg.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		NewID:        uuid.NewString,
	}, nil
}

// twilioCallResponse is the subset of the create-call response we care about.
type twilioCallResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// twilioAPIError is Twilio's error envelope for rejected requests.
type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

func (t *TwilioInitiator) Initiate(ctx context.Context, toNumber, message string) (string, error) {
	correlationID := t.NewID()

	controlURL := fmt.Sprintf("%s/voice?msg=%s&request_id=%s",
		t.callbackBase, url.QueryEscape(message), url.QueryEscape(correlationID))

	form := url.Values{}
	form.Set("To", toNumber)
	form.Set("From", t.fromNumber)
	form.Set("Url", controlURL)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", t.apiBase, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("telephony: create request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("telephony: call creation failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("telephony: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := twilioAPIError{}
		_ = json.Unmarshal(body, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return "", &ProviderError{StatusCode: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
	}

	var call twilioCallResponse
	if err := json.Unmarshal(body, &call); err != nil {
		return "", fmt.Errorf("telephony: decode response: %w", err)
	}

	logger.From(ctx).Info("outbound call created",
		"call_sid", call.SID, "status", call.Status, "to", toNumber, "correlation_id", correlationID)
	return correlationID, nil
}

// SetHTTPClient overrides the HTTP client; test hook.
func (t *TwilioInitiator) SetHTTPClient(c *http.Client) {
	if c != nil {
		t.httpClient = c
	}
}
