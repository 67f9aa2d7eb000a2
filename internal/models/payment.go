package models

import "strings"

// PaymentStatus is the single status vocabulary used across all invoice
// kinds. Provider and legacy spellings ("completed", "success", "done", ...)
// are folded into it at the boundary by NormalizePaymentStatus.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func NormalizePaymentStatus(raw string) PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paid", "success", "succeeded", "completed", "done", "approved":
		return PaymentPaid
	case "failed", "failure", "cancelled", "canceled", "rejected", "error", "expired":
		return PaymentFailed
	default:
		return PaymentPending
	}
}

// Terminal reports whether the status can no longer change.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentFailed
}

// PaymentEvent is pushed to storefront clients over the websocket hub when
// an invoice reaches a terminal state.
type PaymentEvent struct {
	InvoiceID int           `json:"invoice_id"`
	Kind      InvoiceKind   `json:"kind"`
	Status    PaymentStatus `json:"status"`
	UserID    int           `json:"-"`
}
