package agent

import (
	"context"
	"fmt"
	"time"

	"stockcall/internal/market"
	"stockcall/pkg/logger"
)

// Collaborator interfaces are defined here, on the consumer side.

type MarketData interface {
	TrendingStocks(ctx context.Context) (market.Snapshot, error)
}

type Summarizer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (audioPath string, err error)
}

type CallBridge interface {
	CallAndCollect(ctx context.Context, toNumber, message string, timeout time.Duration) string
}

const (
	approvedMessage = "Even the senior manager thinks this is a great idea!"
	declinedMessage = "Sorry, I can't help them today"

	summarizerRole = "You summarize market updates into one or two short sentences suitable for a phone call. Return the summary only."
)

// Result is the full outcome of one approval run.
type Result struct {
	Picks     []market.Stock `json:"picks"`
	Summary   string         `json:"summary"`
	AudioPath string         `json:"audio_path,omitempty"`
	Outcome   string         `json:"outcome"`
	Approved  bool           `json:"approved"`
	Message   string         `json:"message"`
}

// Workflow runs the stock-picking approval pipeline: fetch trending stocks,
// rank the top movers, summarize, synthesize speech, call the senior manager
// and collect a keypress verdict.
//
// Summarizer and SpeechSynthesizer are optional; each step degrades to the
// previous step's text when its collaborator is missing or fails. Only the
// market fetch and the call bridge are load-bearing.
type Workflow struct {
	Market MarketData
	LLM    Summarizer
	Speech SpeechSynthesizer
	Bridge CallBridge

	ManagerNumber  string
	CollectTimeout time.Duration
	TopN           int
}

func (w *Workflow) Run(ctx context.Context, userQuery string) (Result, error) {
	log := logger.From(ctx)

	if w.Market == nil || w.Bridge == nil {
		return Result{}, fmt.Errorf("agent: market data and call bridge are required")
	}
	topN := w.TopN
	if topN <= 0 {
		topN = 3
	}

	snap, err := w.Market.TrendingStocks(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("agent: market fetch failed: %w", err)
	}

	picks := market.RankTopMovers(snap.Stocks, topN)
	res := Result{Picks: picks, Summary: market.FormatSummary(picks)}
	log.Info("ranked trending stocks", "query", userQuery, "candidates", len(snap.Stocks), "picks", len(picks))

	if w.LLM != nil {
		prompt := fmt.Sprintf("User asked: %q\n\nSummarize this market update:\n\n%s", userQuery, res.Summary)
		if summary, err := w.LLM.Complete(ctx, summarizerRole, prompt); err != nil {
			log.Warn("summarizer failed, using formatted ranking", "err", err)
		} else {
			res.Summary = summary
		}
	}

	// Prefer a pre-rendered voice; fall back to provider speech synthesis of
	// the raw text (the prompt renderer handles both forms).
	message := res.Summary
	if w.Speech != nil {
		if path, err := w.Speech.Synthesize(ctx, res.Summary); err != nil {
			log.Warn("speech synthesis failed, speaking raw text", "err", err)
		} else {
			res.AudioPath = path
			message = path
		}
	}

	res.Outcome = w.Bridge.CallAndCollect(ctx, w.ManagerNumber, message, w.CollectTimeout)
	res.Approved = res.Outcome == "1"
	if res.Approved {
		res.Message = approvedMessage
	} else {
		res.Message = declinedMessage
	}
	log.Info("approval call finished", "outcome", res.Outcome, "approved", res.Approved)
	return res, nil
}
