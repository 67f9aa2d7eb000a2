package services

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"tbarimtBack/internal/models"
)

// scriptedChecker returns a fixed sequence of statuses, one per check.
type scriptedChecker struct {
	mu       sync.Mutex
	statuses []models.PaymentStatus
	calls    int
	token    *models.DownloadToken
	err      error
}

func (c *scriptedChecker) CheckInvoice(ctx context.Context, invoiceID int) (models.Invoice, *models.DownloadToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return models.Invoice{}, nil, c.err
	}
	status := c.statuses[len(c.statuses)-1]
	if c.calls < len(c.statuses) {
		status = c.statuses[c.calls]
	}
	c.calls++
	inv := models.Invoice{ID: invoiceID, Kind: models.InvoiceKindProduct, Status: status}
	if status == models.PaymentPaid {
		return inv, c.token, nil
	}
	return inv, nil, nil
}

func testLoggers() (*log.Logger, *log.Logger) {
	l := log.New(io.Discard, "", 0)
	return l, l
}

func fastPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:           5 * time.Millisecond,
		Deadline:           time.Second,
		TokenRetries:       2,
		TokenRetryInterval: 5 * time.Millisecond,
	}
}

func waitForResult(t *testing.T, ch <-chan PollResult) PollResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not finish in time")
		return PollResult{}
	}
}

func TestPollerStopsOnPaid(t *testing.T) {
	token := &models.DownloadToken{Token: "tok-1"}
	checker := &scriptedChecker{
		statuses: []models.PaymentStatus{models.PaymentPending, models.PaymentPending, models.PaymentPaid},
		token:    token,
	}
	infoLog, errorLog := testLoggers()
	poller := NewPaymentPoller(context.Background(), checker, nil, fastPollerConfig(), infoLog, errorLog)

	results := make(chan PollResult, 1)
	stop, err := poller.Start(1, func(res PollResult) { results <- res })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stop()

	res := waitForResult(t, results)
	if res.Abandoned {
		t.Fatal("paid invoice reported as abandoned")
	}
	if res.Invoice.Status != models.PaymentPaid {
		t.Fatalf("expected paid, got %q", res.Invoice.Status)
	}
	if res.Token == nil || res.Token.Token != "tok-1" {
		t.Fatalf("expected token tok-1, got %v", res.Token)
	}

	// The watcher must unregister itself after finishing.
	deadline := time.Now().Add(time.Second)
	for poller.Active(1) {
		if time.Now().After(deadline) {
			t.Fatal("watcher still registered after completion")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPollerRejectsDuplicateStart(t *testing.T) {
	checker := &scriptedChecker{statuses: []models.PaymentStatus{models.PaymentPending}}
	infoLog, errorLog := testLoggers()
	cfg := fastPollerConfig()
	cfg.Deadline = time.Minute
	poller := NewPaymentPoller(context.Background(), checker, nil, cfg, infoLog, errorLog)

	stop, err := poller.Start(1, func(PollResult) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := poller.Start(1, func(PollResult) {}); !errors.Is(err, models.ErrPollerActive) {
		t.Fatalf("expected ErrPollerActive, got %v", err)
	}

	// A different invoice is fine.
	stop2, err := poller.Start(2, func(PollResult) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stop2()

	// After stopping, the same invoice can be watched again.
	stop()
	deadline := time.Now().Add(time.Second)
	for poller.Active(1) {
		if time.Now().After(deadline) {
			t.Fatal("watcher did not unregister after stop")
		}
		time.Sleep(time.Millisecond)
	}
	stop3, err := poller.Start(1, func(PollResult) {})
	if err != nil {
		t.Fatalf("restart after stop failed: %v", err)
	}
	stop3()
}

func TestPollerAbandonsAtDeadline(t *testing.T) {
	checker := &scriptedChecker{statuses: []models.PaymentStatus{models.PaymentPending}}
	infoLog, errorLog := testLoggers()
	cfg := fastPollerConfig()
	cfg.Deadline = 30 * time.Millisecond
	poller := NewPaymentPoller(context.Background(), checker, nil, cfg, infoLog, errorLog)

	results := make(chan PollResult, 1)
	stop, err := poller.Start(1, func(res PollResult) { results <- res })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stop()

	res := waitForResult(t, results)
	if !res.Abandoned {
		t.Fatalf("expected abandoned result, got %+v", res)
	}
}

func TestPollerStopsOnFailed(t *testing.T) {
	checker := &scriptedChecker{
		statuses: []models.PaymentStatus{models.PaymentPending, models.PaymentFailed},
	}
	infoLog, errorLog := testLoggers()
	poller := NewPaymentPoller(context.Background(), checker, nil, fastPollerConfig(), infoLog, errorLog)

	results := make(chan PollResult, 1)
	stop, err := poller.Start(1, func(res PollResult) { results <- res })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stop()

	res := waitForResult(t, results)
	if res.Abandoned {
		t.Fatal("failed invoice reported as abandoned")
	}
	if res.Invoice.Status != models.PaymentFailed {
		t.Fatalf("expected failed, got %q", res.Invoice.Status)
	}
}

func TestPollerSurvivesCheckErrors(t *testing.T) {
	checker := &scriptedChecker{err: errors.New("provider down")}
	infoLog, errorLog := testLoggers()
	poller := NewPaymentPoller(context.Background(), checker, nil, fastPollerConfig(), infoLog, errorLog)

	results := make(chan PollResult, 1)
	stop, err := poller.Start(1, func(res PollResult) { results <- res })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stop()

	// Let a few failing ticks pass, then recover.
	time.Sleep(25 * time.Millisecond)
	checker.mu.Lock()
	checker.err = nil
	checker.statuses = []models.PaymentStatus{models.PaymentPaid}
	checker.token = &models.DownloadToken{Token: "tok-late"}
	checker.mu.Unlock()

	res := waitForResult(t, results)
	if res.Invoice.Status != models.PaymentPaid {
		t.Fatalf("expected paid after recovery, got %q", res.Invoice.Status)
	}
}

func TestPollerStopIsIdempotent(t *testing.T) {
	checker := &scriptedChecker{statuses: []models.PaymentStatus{models.PaymentPending}}
	infoLog, errorLog := testLoggers()
	poller := NewPaymentPoller(context.Background(), checker, nil, fastPollerConfig(), infoLog, errorLog)

	stop, err := poller.Start(1, func(PollResult) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stop()
	stop()
}
