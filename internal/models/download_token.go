package models

import (
	"fmt"
	"time"
)

// DownloadTokenTTL is the validity window fixed at issuance.
const DownloadTokenTTL = 10 * time.Minute

// DownloadToken authorizes exactly one file download. Single use is enforced
// by the repository (conditional UPDATE on used_at), not by the client.
type DownloadToken struct {
	ID        int        `json:"-"`
	Token     string     `json:"token"`
	UserID    int        `json:"user_id"`
	ProductID int        `json:"product_id"`
	InvoiceID *int       `json:"invoice_id,omitempty"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"-"`
	CreatedAt time.Time  `json:"-"`
}

func (t DownloadToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// FormatRemaining renders the countdown the storefront shows next to the
// download button. Strings are Mongolian, matching the storefront locale.
func FormatRemaining(expiresAt, now time.Time) string {
	left := expiresAt.Sub(now)
	if left <= 0 {
		return "Хугацаа дууссан"
	}
	mins := int(left.Minutes())
	secs := int(left.Seconds()) % 60
	return fmt.Sprintf("%d минут %d секунд", mins, secs)
}
