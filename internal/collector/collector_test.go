package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeInitiator struct {
	id  string
	err error

	calls int
}

func (f *fakeInitiator) Initiate(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

// memStore is an in-process Store stand-in; the durable backends are
// exercised in their own packages.
type memStore struct {
	mu      sync.Mutex
	records map[string]string

	gets    int
	deletes int
	getErr  error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]string{}}
}

func (m *memStore) Save(_ context.Context, id, digit string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = digit
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return "", false, m.getErr
	}
	d, ok := m.records[id]
	return d, ok, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.records, id)
	return nil
}

func (m *memStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	return ok
}

func newTestCollector(init *fakeInitiator, store *memStore) *Collector {
	c := New(init, store)
	c.PollInterval = 5 * time.Millisecond
	return c
}

func TestCallAndCollect_InitiationFailureSkipsStore(t *testing.T) {
	store := newMemStore()
	c := newTestCollector(&fakeInitiator{err: errors.New("auth failure")}, store)

	out := c.CallAndCollect(context.Background(), "+15550001111", "hi", time.Second)
	if out != "error: auth failure" {
		t.Fatalf("unexpected outcome %q", out)
	}
	if store.gets != 0 || store.deletes != 0 {
		t.Fatalf("store must not be touched on initiation failure: gets=%d deletes=%d", store.gets, store.deletes)
	}
}

func TestCallAndCollect_ReturnsDigitAndDeletesRecord(t *testing.T) {
	store := newMemStore()
	c := newTestCollector(&fakeInitiator{id: "req-1"}, store)

	// Simulate the gather callback landing shortly after initiation.
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = store.Save(context.Background(), "req-1", "1")
	}()

	start := time.Now()
	out := c.CallAndCollect(context.Background(), "+15550001111", "Press 1 to approve", 3*time.Second)
	if out != "1" {
		t.Fatalf("expected digit 1, got %q", out)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("collector should return as soon as the digit lands, took %v", time.Since(start))
	}
	if store.has("req-1") {
		t.Fatalf("record must be deleted on read")
	}
}

func TestCallAndCollect_TimesOutWhenNoCallback(t *testing.T) {
	store := newMemStore()
	c := newTestCollector(&fakeInitiator{id: "req-1"}, store)

	out := c.CallAndCollect(context.Background(), "+15550001111", "hi", 50*time.Millisecond)
	if out != OutcomeTimeout {
		t.Fatalf("expected timeout outcome, got %q", out)
	}
	if store.gets == 0 {
		t.Fatalf("expected at least the final-chance read")
	}
}

func TestCallAndCollect_ZeroTimeoutStillDoesFinalRead(t *testing.T) {
	store := newMemStore()
	_ = store.Save(context.Background(), "req-1", "9")
	c := newTestCollector(&fakeInitiator{id: "req-1"}, store)

	out := c.CallAndCollect(context.Background(), "+15550001111", "hi", 0)
	if out != "9" {
		t.Fatalf("expected final-chance read to win, got %q", out)
	}
	if store.has("req-1") {
		t.Fatalf("record must be deleted on read")
	}
}

func TestCallAndCollect_ZeroTimeoutNoResultReturnsTimeout(t *testing.T) {
	store := newMemStore()
	c := newTestCollector(&fakeInitiator{id: "req-1"}, store)

	done := make(chan string, 1)
	go func() {
		done <- c.CallAndCollect(context.Background(), "+15550001111", "hi", 0)
	}()
	select {
	case out := <-done:
		if out != OutcomeTimeout {
			t.Fatalf("expected timeout, got %q", out)
		}
	case <-time.After(time.Second):
		t.Fatalf("collector must not poll indefinitely with zero timeout")
	}
}

func TestCallAndCollect_EmptyDigitRecordIsNotSuccess(t *testing.T) {
	store := newMemStore()
	_ = store.Save(context.Background(), "req-1", "")
	c := newTestCollector(&fakeInitiator{id: "req-1"}, store)

	out := c.CallAndCollect(context.Background(), "+15550001111", "hi", 30*time.Millisecond)
	if out != OutcomeTimeout {
		t.Fatalf("empty digit must yield timeout, got %q", out)
	}
	if store.has("req-1") {
		t.Fatalf("empty record must still be cleaned up")
	}
}

func TestCallAndCollect_ReadErrorsKeepPolling(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("disk flaky")
	c := newTestCollector(&fakeInitiator{id: "req-1"}, store)

	// Store heals mid-wait and the digit becomes visible.
	go func() {
		time.Sleep(15 * time.Millisecond)
		store.mu.Lock()
		store.getErr = nil
		store.records["req-1"] = "2"
		store.mu.Unlock()
	}()

	out := c.CallAndCollect(context.Background(), "+15550001111", "hi", time.Second)
	if out != "2" {
		t.Fatalf("expected digit after store recovered, got %q", out)
	}
}

func TestCallAndCollect_ContextCancellationEndsWaitEarly(t *testing.T) {
	store := newMemStore()
	c := newTestCollector(&fakeInitiator{id: "req-1"}, store)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	out := c.CallAndCollect(ctx, "+15550001111", "hi", 10*time.Second)
	if time.Since(start) > time.Second {
		t.Fatalf("cancellation should end the wait, took %v", time.Since(start))
	}
	if out == "" || out == OutcomeTimeout {
		t.Fatalf("expected error outcome on cancellation, got %q", out)
	}
}
