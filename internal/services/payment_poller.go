package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tbarimtBack/internal/models"
)

// StatusChecker is the slice of PaymentService the poller drives.
type StatusChecker interface {
	CheckInvoice(ctx context.Context, invoiceID int) (models.Invoice, *models.DownloadToken, error)
}

type PollerConfig struct {
	// How often the provider is asked about an open invoice.
	Interval time.Duration
	// How long an invoice is watched before it is declared abandoned.
	Deadline time.Duration
	// After a paid result without a token, how many times the token is
	// re-fetched before giving up and reporting without it.
	TokenRetries       int
	TokenRetryInterval time.Duration
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.Interval <= 0 {
		c.Interval = 3 * time.Second
	}
	if c.Deadline <= 0 {
		c.Deadline = 10 * time.Minute
	}
	if c.TokenRetries <= 0 {
		c.TokenRetries = 5
	}
	if c.TokenRetryInterval <= 0 {
		c.TokenRetryInterval = time.Second
	}
	return c
}

// PollResult is handed to the caller exactly once, when polling ends for a
// reason other than an explicit stop.
type PollResult struct {
	Invoice   models.Invoice
	Token     *models.DownloadToken
	Abandoned bool
}

// PaymentPoller watches open invoices, one goroutine per invoice. At most
// one watcher per invoice runs in this process; a Redis lock extends that
// guarantee across instances when a Locker is present.
type PaymentPoller struct {
	checker  StatusChecker
	locks    Locker // optional
	cfg      PollerConfig
	base     context.Context
	infoLog  *log.Logger
	errorLog *log.Logger

	mu     sync.Mutex
	active map[int]context.CancelFunc
}

func NewPaymentPoller(ctx context.Context, checker StatusChecker, locks Locker, cfg PollerConfig, infoLog, errorLog *log.Logger) *PaymentPoller {
	return &PaymentPoller{
		checker:  checker,
		locks:    locks,
		cfg:      cfg.withDefaults(),
		base:     ctx,
		infoLog:  infoLog,
		errorLog: errorLog,
		active:   map[int]context.CancelFunc{},
	}
}

// Start begins watching the invoice. The returned stop function cancels the
// watch without invoking onDone; it is safe to call more than once. A second
// Start for the same invoice while the first is running returns
// ErrPollerActive.
func (p *PaymentPoller) Start(invoiceID int, onDone func(PollResult)) (func(), error) {
	ctx, cancel := context.WithCancel(p.base)

	p.mu.Lock()
	if _, ok := p.active[invoiceID]; ok {
		p.mu.Unlock()
		cancel()
		return nil, models.ErrPollerActive
	}
	p.active[invoiceID] = cancel
	p.mu.Unlock()

	lockKey := fmt.Sprintf("poll:invoice:%d", invoiceID)
	if p.locks != nil {
		ok, err := p.locks.TryLock(ctx, lockKey, p.cfg.Deadline+time.Minute)
		if err != nil {
			// Redis being down must not block payments; fall back to
			// the in-process guard.
			p.errorLog.Printf("poller lock %s: %v", lockKey, err)
		} else if !ok {
			p.finish(invoiceID, cancel, "")
			return nil, models.ErrPollerActive
		}
	}

	var once sync.Once
	stop := func() { once.Do(cancel) }

	go p.run(ctx, invoiceID, lockKey, cancel, onDone)
	return stop, nil
}

// Active reports whether a watcher currently runs for the invoice.
func (p *PaymentPoller) Active(invoiceID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[invoiceID]
	return ok
}

func (p *PaymentPoller) run(ctx context.Context, invoiceID int, lockKey string, cancel context.CancelFunc, onDone func(PollResult)) {
	defer p.finish(invoiceID, cancel, lockKey)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	deadline := time.NewTimer(p.cfg.Deadline)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			inv, token, err := p.checker.CheckInvoice(ctx, invoiceID)
			if err == nil && inv.Status == models.PaymentPaid {
				// Paid right at the buzzer.
				onDone(PollResult{Invoice: inv, Token: p.awaitToken(ctx, invoiceID, token)})
				return
			}
			p.infoLog.Printf("invoice %d abandoned after %s", invoiceID, p.cfg.Deadline)
			onDone(PollResult{Invoice: inv, Abandoned: true})
			return
		case <-ticker.C:
			// The check runs inside the select arm, so ticks never
			// overlap; slow checks just drop intermediate ticks.
			inv, token, err := p.checker.CheckInvoice(ctx, invoiceID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.errorLog.Printf("poll invoice %d: %v", invoiceID, err)
				continue
			}
			switch inv.Status {
			case models.PaymentPaid:
				onDone(PollResult{Invoice: inv, Token: p.awaitToken(ctx, invoiceID, token)})
				return
			case models.PaymentFailed:
				onDone(PollResult{Invoice: inv})
				return
			}
		}
	}
}

// awaitToken retries the check a few times when settlement reported paid but
// the token was not visible yet, which can happen when another instance
// settled the invoice a moment ago.
func (p *PaymentPoller) awaitToken(ctx context.Context, invoiceID int, token *models.DownloadToken) *models.DownloadToken {
	if token != nil {
		return token
	}
	for i := 0; i < p.cfg.TokenRetries; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.cfg.TokenRetryInterval):
		}
		inv, t, err := p.checker.CheckInvoice(ctx, invoiceID)
		if err != nil {
			continue
		}
		if t != nil {
			return t
		}
		if inv.Kind != models.InvoiceKindProduct && inv.Kind != models.InvoiceKindUnique {
			return nil
		}
	}
	return nil
}

func (p *PaymentPoller) finish(invoiceID int, cancel context.CancelFunc, lockKey string) {
	p.mu.Lock()
	delete(p.active, invoiceID)
	p.mu.Unlock()
	cancel()
	if p.locks != nil && lockKey != "" {
		if err := p.locks.Unlock(context.Background(), lockKey); err != nil {
			p.errorLog.Printf("poller unlock %s: %v", lockKey, err)
		}
	}
}
