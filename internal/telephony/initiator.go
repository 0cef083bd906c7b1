package telephony

import (
	"context"
	"fmt"
)

// CallInitiator starts an outbound call whose call-control callbacks carry a
// fresh correlation id. It returns as soon as the provider accepts the
// request; connecting and digit collection happen asynchronously via the
// callback endpoints.
type CallInitiator interface {
	Initiate(ctx context.Context, toNumber, message string) (correlationID string, err error)
}

// ProviderError is a call-creation rejection from the telephony provider
// (bad number, auth failure). It is terminal for the call attempt; the
// collector surfaces it to its caller without retrying.
type ProviderError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("telephony: provider rejected call (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("telephony: provider rejected call (status %d): %s", e.StatusCode, e.Message)
}
