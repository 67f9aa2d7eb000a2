package main

import (
	"context"
	"log"
	"time"

	"tbarimtBack/internal/repositories"
)

const (
	invoiceWatcherInterval = 1 * time.Minute
	invoiceWatcherTimeout  = 30 * time.Second

	// Invoices the provider never confirmed within this window are failed.
	staleInvoiceAge = 15 * time.Minute
	// Spent and expired tokens are kept a day for support, then dropped.
	expiredTokenAge = 24 * time.Hour
)

func startInvoiceWatcher(ctx context.Context, invoices *repositories.InvoiceRepository, tokens *repositories.DownloadTokenRepository, infoLog, errorLog *log.Logger) {
	if invoices == nil || tokens == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(invoiceWatcherInterval)
		defer ticker.Stop()

		runOnce := func() {
			runCtx, cancel := context.WithTimeout(ctx, invoiceWatcherTimeout)
			defer cancel()

			now := time.Now()
			failed, err := invoices.FailStalePending(runCtx, now.Add(-staleInvoiceAge))
			if err != nil {
				errorLog.Printf("invoice watcher: fail stale invoices: %v", err)
			} else if failed > 0 {
				infoLog.Printf("invoice watcher: failed %d stale invoices", failed)
			}

			removed, err := tokens.DeleteExpired(runCtx, now.Add(-expiredTokenAge))
			if err != nil {
				errorLog.Printf("invoice watcher: delete expired tokens: %v", err)
			} else if removed > 0 {
				infoLog.Printf("invoice watcher: removed %d expired tokens", removed)
			}
		}

		runOnce()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce()
			}
		}
	}()
}
