package models

import "time"

// InvoiceKind tells the settlement step what a paid invoice buys.
type InvoiceKind string

const (
	InvoiceKindProduct    InvoiceKind = "product"
	InvoiceKindMembership InvoiceKind = "membership"
	InvoiceKindRecharge   InvoiceKind = "recharge"
	InvoiceKindUnique     InvoiceKind = "unique"
)

// BankLink is one external banking-app deep link returned by QPay.
type BankLink struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
	Link        string `json:"link"`
}

type Invoice struct {
	ID           int         `json:"invoice_id"`
	UserID       int         `json:"user_id"`
	Kind         InvoiceKind `json:"kind"`
	ProductID    *int        `json:"product_id,omitempty"`
	MembershipID *int        `json:"membership_id,omitempty"`
	Amount       float64     `json:"amount"`
	Description  string      `json:"description"`

	// Provider-side identifier and QR payloads. The QR image is stored
	// already normalized to a displayable data URL.
	ProviderInvoiceID string     `json:"provider_invoice_id,omitempty"`
	QRImage           string     `json:"qr_image,omitempty"`
	QRText            string     `json:"qr_text,omitempty"`
	URLs              []BankLink `json:"urls,omitempty"`

	Status    PaymentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	PaidAt    *time.Time    `json:"paid_at,omitempty"`
	// SettledAt marks completion of the post-payment fan-out (token issue,
	// wallet credit, membership extension). A paid invoice with a nil
	// SettledAt still owes its side effects and is repaired on the next
	// status check.
	SettledAt *time.Time `json:"-"`
}
