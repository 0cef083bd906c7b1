package collector

import (
	"context"
	"time"

	"stockcall/internal/results"
	"stockcall/internal/telephony"
	"stockcall/pkg/logger"
)

// OutcomeTimeout is returned when no digit was recorded within the deadline.
// It is a defined outcome, not an error.
const OutcomeTimeout = "timeout"

// Collector is the synchronous facade over the asynchronous call flow: it
// starts an outbound call, then polls the durable result store until the
// gather callback lands a digit or the deadline passes.
//
// Polling a durable store is deliberate: the callback handler may run in a
// different OS process than the caller, so an in-memory signal cannot bridge
// the two. The only shared state is the store itself.
type Collector struct {
	Initiator telephony.CallInitiator
	Store     results.Store

	// PollInterval trades responsiveness against store load.
	PollInterval time.Duration

	// Now is injectable for tests.
	Now func() time.Time
}

func New(initiator telephony.CallInitiator, store results.Store) *Collector {
	return &Collector{
		Initiator:    initiator,
		Store:        store,
		PollInterval: time.Second,
		Now:          time.Now,
	}
}

// CallAndCollect places a call that speaks message to toNumber and waits up
// to timeout for a single keypress. It returns the digit, OutcomeTimeout, or
// an "error: ..." description when call creation is rejected. Exactly one
// outcome is returned per invocation; a consumed result is deleted so it can
// never be read twice.
func (c *Collector) CallAndCollect(ctx context.Context, toNumber, message string, timeout time.Duration) string {
	log := logger.From(ctx)

	correlationID, err := c.Initiator.Initiate(ctx, toNumber, message)
	if err != nil {
		// Terminal for this attempt; no polling, no store state to clean.
		log.Error("call initiation failed", "to", toNumber, "err", err)
		return "error: " + err.Error()
	}
	log.Info("call initiated, awaiting keypress",
		"correlation_id", correlationID, "timeout", timeout.String())

	start := c.Now()
	for c.Now().Sub(start) < timeout {
		digit, ok, err := c.Store.Get(ctx, correlationID)
		if err != nil {
			// Read trouble is indistinguishable from "not yet"; keep waiting.
			log.Debug("result read failed, treating as absent", "correlation_id", correlationID, "err", err)
		}
		if ok && digit != "" {
			c.consume(ctx, correlationID)
			return digit
		}

		select {
		case <-ctx.Done():
			return c.lastChance(ctx, correlationID, "error: "+ctx.Err().Error())
		case <-time.After(c.PollInterval):
		}
	}

	return c.lastChance(ctx, correlationID, OutcomeTimeout)
}

// lastChance performs the final read that closes the race where a digit
// lands after the last poll but before the deadline is declared, then cleans
// up whatever record exists.
func (c *Collector) lastChance(ctx context.Context, correlationID, fallback string) string {
	// Cleanup must proceed even if the caller's context is already canceled.
	ctx = context.WithoutCancel(ctx)

	digit, ok, err := c.Store.Get(ctx, correlationID)
	if err != nil {
		logger.From(ctx).Debug("final result read failed", "correlation_id", correlationID, "err", err)
	}
	c.consume(ctx, correlationID)
	if ok && digit != "" {
		return digit
	}
	return fallback
}

func (c *Collector) consume(ctx context.Context, correlationID string) {
	if err := c.Store.Delete(ctx, correlationID); err != nil {
		logger.From(ctx).Warn("result cleanup failed", "correlation_id", correlationID, "err", err)
	}
}
