package results

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidCorrelationID = errors.New("results: invalid correlation id")

// CallResult is the outcome record written by the gather callback and read
// (once) by the collector. Field names match the on-disk layout the callback
// server has always produced.
type CallResult struct {
	CorrelationID string `json:"request_id"`
	Digit         string `json:"digit"`
	Timestamp     int64  `json:"timestamp"`
	CreatedAt     string `json:"created_at"`
}

// Store is the durable keyed record of call outcomes.
//
// Rules:
// - At most one record per correlation id; Save overwrites.
// - Get returns absent for unknown ids; it never blocks.
// - Delete is idempotent.
//
// The writer (callback handler) and the reader (collector) may be different
// OS processes, so implementations must be durable, not in-memory.
type Store interface {
	Save(ctx context.Context, correlationID, digit string) error
	Get(ctx context.Context, correlationID string) (digit string, ok bool, err error)
	Delete(ctx context.Context, correlationID string) error
}

func newCallResult(correlationID, digit string, now time.Time) CallResult {
	return CallResult{
		CorrelationID: correlationID,
		Digit:         digit,
		Timestamp:     now.Unix(),
		CreatedAt:     now.Format("2006-01-02 15:04:05"),
	}
}
