package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockcall/internal/market"
)

type fakeMarket struct {
	snap market.Snapshot
	err  error
}

func (f fakeMarket) TrendingStocks(context.Context) (market.Snapshot, error) {
	return f.snap, f.err
}

type fakeLLM struct {
	out string
	err error
}

func (f fakeLLM) Complete(context.Context, string, string) (string, error) {
	return f.out, f.err
}

type fakeSpeech struct {
	path string
	err  error
}

func (f fakeSpeech) Synthesize(context.Context, string) (string, error) {
	return f.path, f.err
}

type fakeBridge struct {
	outcome string

	gotTo      string
	gotMessage string
	gotTimeout time.Duration
}

func (f *fakeBridge) CallAndCollect(_ context.Context, to, message string, timeout time.Duration) string {
	f.gotTo = to
	f.gotMessage = message
	f.gotTimeout = timeout
	return f.outcome
}

func trendingSnapshot() market.Snapshot {
	return market.Snapshot{Stocks: []market.Stock{
		{Symbol: "NVDA", Name: "NVIDIA Corp", ChangePercent: 2.4},
		{Symbol: "DOWN", Name: "Falling Knife", ChangePercent: -1.0},
	}}
}

func TestWorkflow_ApprovedOnDigitOne(t *testing.T) {
	bridge := &fakeBridge{outcome: "1"}
	w := &Workflow{
		Market:         fakeMarket{snap: trendingSnapshot()},
		LLM:            fakeLLM{out: "NVIDIA leads today's gainers."},
		Speech:         fakeSpeech{path: "/tmp/audio/tts_1.mp3"},
		Bridge:         bridge,
		ManagerNumber:  "+16473236920",
		CollectTimeout: 45 * time.Second,
	}

	res, err := w.Run(context.Background(), "recommend stocks")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.Approved || res.Message != approvedMessage {
		t.Fatalf("expected approval, got %+v", res)
	}
	if res.Summary != "NVIDIA leads today's gainers." {
		t.Fatalf("expected llm summary, got %q", res.Summary)
	}
	if bridge.gotTo != "+16473236920" || bridge.gotTimeout != 45*time.Second {
		t.Fatalf("unexpected bridge call: %+v", bridge)
	}
	if bridge.gotMessage != "/tmp/audio/tts_1.mp3" {
		t.Fatalf("expected audio path as message, got %q", bridge.gotMessage)
	}
	if len(res.Picks) != 1 || res.Picks[0].Symbol != "NVDA" {
		t.Fatalf("unexpected picks: %+v", res.Picks)
	}
}

func TestWorkflow_DeclinedOnOtherOutcome(t *testing.T) {
	for _, outcome := range []string{"2", "timeout", "error: provider rejected"} {
		w := &Workflow{
			Market: fakeMarket{snap: trendingSnapshot()},
			Bridge: &fakeBridge{outcome: outcome},
		}
		res, err := w.Run(context.Background(), "q")
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if res.Approved || res.Message != declinedMessage {
			t.Fatalf("outcome %q: expected decline, got %+v", outcome, res)
		}
	}
}

func TestWorkflow_LLMFailureFallsBackToFormattedRanking(t *testing.T) {
	bridge := &fakeBridge{outcome: "timeout"}
	w := &Workflow{
		Market: fakeMarket{snap: trendingSnapshot()},
		LLM:    fakeLLM{err: errors.New("rate limited")},
		Bridge: bridge,
	}
	res, err := w.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := market.FormatSummary(res.Picks)
	if res.Summary != want {
		t.Fatalf("expected formatted fallback %q, got %q", want, res.Summary)
	}
}

func TestWorkflow_SpeechFailureSpeaksRawText(t *testing.T) {
	bridge := &fakeBridge{outcome: "timeout"}
	w := &Workflow{
		Market: fakeMarket{snap: trendingSnapshot()},
		Speech: fakeSpeech{err: errors.New("tts down")},
		Bridge: bridge,
	}
	res, err := w.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.AudioPath != "" {
		t.Fatalf("expected no audio path, got %q", res.AudioPath)
	}
	if bridge.gotMessage != res.Summary {
		t.Fatalf("expected raw text message, got %q", bridge.gotMessage)
	}
}

func TestWorkflow_MarketFailureIsTerminal(t *testing.T) {
	w := &Workflow{
		Market: fakeMarket{err: errors.New("upstream down")},
		Bridge: &fakeBridge{},
	}
	if _, err := w.Run(context.Background(), "q"); err == nil {
		t.Fatalf("expected error when market fetch fails")
	}
}
