package services

import (
	"context"
	"time"

	"tbarimtBack/internal/models"
)

// Store contracts the payment services depend on. The MySQL repositories
// satisfy them; tests substitute in-memory fakes.

type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv models.Invoice) (int, error)
	AttachProvider(ctx context.Context, id int, providerInvoiceID, qrText string) error
	UpdateStatus(ctx context.Context, id int, status models.PaymentStatus) error
	MarkPaid(ctx context.Context, id int) (bool, error)
	MarkSettled(ctx context.Context, id int) error
	GetByID(ctx context.Context, id int) (models.Invoice, error)
	GetByProviderID(ctx context.Context, providerInvoiceID string) (models.Invoice, error)
	GetByUser(ctx context.Context, userID int) ([]models.Invoice, error)
}

type TokenStore interface {
	Create(ctx context.Context, t models.DownloadToken) (int, error)
	GetByInvoice(ctx context.Context, invoiceID int) (models.DownloadToken, error)
	Redeem(ctx context.Context, token string, now time.Time) (models.DownloadToken, error)
}

type WalletStore interface {
	GetBalance(ctx context.Context, userID int) (float64, error)
	Debit(ctx context.Context, userID int, amount float64, reference string) (float64, error)
	Credit(ctx context.Context, userID int, amount float64, reference string) (float64, error)
	HasCredit(ctx context.Context, reference string) (bool, error)
}

type ProductStore interface {
	GetByID(ctx context.Context, id int) (models.Product, error)
	MarkUnique(ctx context.Context, productID, buyerID int) error
	RecordSale(ctx context.Context, productID, buyerID int, amount float64, method string) error
}

type MembershipStore interface {
	GetByID(ctx context.Context, id int) (models.Membership, error)
	Extend(ctx context.Context, userID, membershipID, durationDays int, now time.Time) (time.Time, error)
	CurrentPlan(ctx context.Context, userID int) (int, time.Time, error)
}

type UserStore interface {
	GetUserByID(ctx context.Context, id int) (models.User, error)
}

// PaymentProvider is the slice of QPay the payment flow needs.
type PaymentProvider interface {
	CreateInvoice(ctx context.Context, senderInvoiceNo string, amount float64, description string) (*QPayInvoiceResponse, error)
	CheckPayment(ctx context.Context, providerInvoiceID string) (QPayPaymentCheck, error)
}

// PaymentNotifier is told about confirmed payments exactly once per invoice,
// from the settlement step.
type PaymentNotifier interface {
	PaymentConfirmed(ctx context.Context, inv models.Invoice)
}
