package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tbarimtBack/internal/models"
)

// PaymentService owns the invoice side of the purchase flow: creating
// provider invoices for every purchasable kind, checking their status and
// settling them exactly once.
type PaymentService struct {
	Invoices    InvoiceStore
	Tokens      TokenStore
	Wallet      WalletStore
	Products    ProductStore
	Memberships MembershipStore
	Provider    PaymentProvider
	Downloads   *DownloadService
	Notifier    PaymentNotifier // optional
}

func (s *PaymentService) CreateProductInvoice(ctx context.Context, userID, productID int) (models.Invoice, error) {
	p, err := s.Products.GetByID(ctx, productID)
	if err != nil {
		return models.Invoice{}, err
	}
	if p.Status != models.ProductStatusActive || p.UniqueOwner != nil {
		return models.Invoice{}, models.ErrProductNotForSale
	}
	if p.Price <= 0 {
		return models.Invoice{}, models.ErrInvalidAmount
	}

	inv := models.Invoice{
		UserID:      userID,
		Kind:        models.InvoiceKindProduct,
		ProductID:   &productID,
		Amount:      p.Price,
		Description: p.Title,
	}
	return s.createWithProvider(ctx, inv)
}

func (s *PaymentService) CreateMembershipInvoice(ctx context.Context, userID, membershipID int, extendOnly bool) (models.Invoice, error) {
	m, err := s.Memberships.GetByID(ctx, membershipID)
	if err != nil {
		return models.Invoice{}, err
	}
	if m.Price <= 0 {
		return models.Invoice{}, models.ErrInvalidAmount
	}

	desc := m.Name
	if extendOnly {
		// Extend-only requests prolong the plan the user already has.
		// Settlement overwrites the stored plan id, so a mismatched plan
		// must be refused here rather than silently switched.
		planID, _, err := s.Memberships.CurrentPlan(ctx, userID)
		if err != nil {
			return models.Invoice{}, err
		}
		if planID != membershipID {
			return models.Invoice{}, models.ErrMembershipMismatch
		}
		desc = m.Name + " (extend)"
	}
	inv := models.Invoice{
		UserID:       userID,
		Kind:         models.InvoiceKindMembership,
		MembershipID: &membershipID,
		Amount:       m.Price,
		Description:  desc,
	}
	return s.createWithProvider(ctx, inv)
}

func (s *PaymentService) CreateRechargeInvoice(ctx context.Context, userID int, amount float64) (models.Invoice, error) {
	if amount <= 0 {
		return models.Invoice{}, models.ErrInvalidAmount
	}
	inv := models.Invoice{
		UserID:      userID,
		Kind:        models.InvoiceKindRecharge,
		Amount:      amount,
		Description: fmt.Sprintf("wallet recharge %d", userID),
	}
	return s.createWithProvider(ctx, inv)
}

// CreateUniqueInvoice starts the "make unique" upgrade: the buyer pays the
// exclusive price and the product leaves the public catalog on settlement.
func (s *PaymentService) CreateUniqueInvoice(ctx context.Context, userID, productID int) (models.Invoice, error) {
	p, err := s.Products.GetByID(ctx, productID)
	if err != nil {
		return models.Invoice{}, err
	}
	if p.UniqueOwner != nil || p.UniquePrice <= 0 {
		return models.Invoice{}, models.ErrProductNotForSale
	}

	inv := models.Invoice{
		UserID:      userID,
		Kind:        models.InvoiceKindUnique,
		ProductID:   &productID,
		Amount:      p.UniquePrice,
		Description: p.Title + " (unique)",
	}
	return s.createWithProvider(ctx, inv)
}

// createWithProvider persists the invoice, registers it at QPay and fills in
// the displayable QR. A provider failure marks the row failed so no
// half-created invoice is ever served back to the client.
func (s *PaymentService) createWithProvider(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
	id, err := s.Invoices.CreateInvoice(ctx, inv)
	if err != nil {
		return models.Invoice{}, err
	}
	inv.ID = id
	inv.Status = models.PaymentPending
	inv.CreatedAt = time.Now()

	resp, err := s.Provider.CreateInvoice(ctx, fmt.Sprintf("TB-%d", id), inv.Amount, inv.Description)
	if err != nil {
		_ = s.Invoices.UpdateStatus(ctx, id, models.PaymentFailed)
		return models.Invoice{}, err
	}

	if err := s.Invoices.AttachProvider(ctx, id, resp.InvoiceID, resp.QRText); err != nil {
		return models.Invoice{}, err
	}
	inv.ProviderInvoiceID = resp.InvoiceID
	inv.QRText = resp.QRText
	inv.URLs = resp.URLs
	// A QR that cannot be displayed or rendered is not fatal: the client
	// still has the deep links.
	inv.QRImage, _ = DisplayableQR(resp.QRImage, resp.QRText)
	return inv, nil
}

// CheckInvoice reports the invoice's current status, consulting the provider
// while the invoice is still open. The first check that observes a paid
// invoice settles it. For product purchases the issued download token is
// returned alongside.
func (s *PaymentService) CheckInvoice(ctx context.Context, invoiceID int) (models.Invoice, *models.DownloadToken, error) {
	inv, err := s.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return models.Invoice{}, nil, err
	}

	if inv.Status == models.PaymentPaid {
		if inv.SettledAt == nil {
			return s.fulfill(ctx, inv)
		}
		return inv, s.existingToken(ctx, inv), nil
	}
	if inv.Status == models.PaymentFailed || inv.ProviderInvoiceID == "" {
		return inv, nil, nil
	}

	check, err := s.Provider.CheckPayment(ctx, inv.ProviderInvoiceID)
	if err != nil {
		return inv, nil, err
	}
	if !check.Paid {
		return inv, nil, nil
	}
	return s.settle(ctx, inv)
}

// CheckInvoiceFor is CheckInvoice behind an ownership gate. A foreign
// invoice id reads as not found before any provider call, so one user can
// neither drive provider traffic for another user's invoice nor learn that
// the invoice exists.
func (s *PaymentService) CheckInvoiceFor(ctx context.Context, userID, invoiceID int) (models.Invoice, *models.DownloadToken, error) {
	inv, err := s.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return models.Invoice{}, nil, err
	}
	if inv.UserID != userID {
		return models.Invoice{}, nil, models.ErrInvoiceNotFound
	}
	return s.CheckInvoice(ctx, invoiceID)
}

// HandleCallback reacts to the provider webhook. The callback body is never
// trusted: it only triggers a re-check against the provider.
func (s *PaymentService) HandleCallback(ctx context.Context, providerInvoiceID string) error {
	inv, err := s.Invoices.GetByProviderID(ctx, providerInvoiceID)
	if err != nil {
		return err
	}
	if inv.Status == models.PaymentPaid {
		if inv.SettledAt == nil {
			_, _, err := s.fulfill(ctx, inv)
			return err
		}
		return nil
	}
	if inv.Status == models.PaymentFailed {
		return nil
	}
	check, err := s.Provider.CheckPayment(ctx, inv.ProviderInvoiceID)
	if err != nil {
		return err
	}
	if !check.Paid {
		return nil
	}
	_, _, err = s.settle(ctx, inv)
	return err
}

func (s *PaymentService) History(ctx context.Context, userID int) ([]models.Invoice, error) {
	return s.Invoices.GetByUser(ctx, userID)
}

// settle flips the invoice to paid and runs the purchase fan-out. The status
// flip and the fan-out are tracked separately: a transient store failure
// after MarkPaid leaves settled_at empty, and the next check repairs the
// missing side effects instead of reporting paid with nothing attached.
func (s *PaymentService) settle(ctx context.Context, inv models.Invoice) (models.Invoice, *models.DownloadToken, error) {
	if _, err := s.Invoices.MarkPaid(ctx, inv.ID); err != nil {
		return inv, nil, err
	}
	now := time.Now()
	inv.Status = models.PaymentPaid
	inv.PaidAt = &now
	return s.fulfill(ctx, inv)
}

// fulfill runs the post-payment side effects for a paid invoice and records
// completion in settled_at. Each step tolerates re-running: the download
// token is issued only when the invoice has none, the wallet credit is
// keyed on its ledger reference, and the unique upgrade is a conditional
// update. Re-entry happens only after a partial failure.
func (s *PaymentService) fulfill(ctx context.Context, inv models.Invoice) (models.Invoice, *models.DownloadToken, error) {
	if fresh, err := s.Invoices.GetByID(ctx, inv.ID); err == nil {
		inv = fresh
	}
	if inv.SettledAt != nil {
		return inv, s.existingToken(ctx, inv), nil
	}

	var token *models.DownloadToken
	switch inv.Kind {
	case models.InvoiceKindProduct, models.InvoiceKindUnique:
		method := "qpay"
		if inv.Kind == models.InvoiceKindUnique {
			method = "qpay_unique"
			if err := s.Products.MarkUnique(ctx, *inv.ProductID, inv.UserID); err != nil && !errors.Is(err, models.ErrProductNotForSale) {
				return inv, nil, err
			}
		}
		token = s.existingToken(ctx, inv)
		if token == nil {
			t, err := s.Downloads.Issue(ctx, inv.UserID, *inv.ProductID, &inv.ID)
			if err != nil {
				return inv, nil, err
			}
			token = &t
			if err := s.Products.RecordSale(ctx, *inv.ProductID, inv.UserID, inv.Amount, method); err != nil {
				return inv, token, err
			}
		}
	case models.InvoiceKindRecharge:
		ref := fmt.Sprintf("invoice:%d", inv.ID)
		credited, err := s.Wallet.HasCredit(ctx, ref)
		if err != nil {
			return inv, nil, err
		}
		if !credited {
			if _, err := s.Wallet.Credit(ctx, inv.UserID, inv.Amount, ref); err != nil {
				return inv, nil, err
			}
		}
	case models.InvoiceKindMembership:
		m, err := s.Memberships.GetByID(ctx, *inv.MembershipID)
		if err != nil {
			return inv, nil, err
		}
		if _, err := s.Memberships.Extend(ctx, inv.UserID, m.ID, m.DurationDays, time.Now()); err != nil {
			return inv, nil, err
		}
	}

	if err := s.Invoices.MarkSettled(ctx, inv.ID); err != nil {
		return inv, token, err
	}
	now := time.Now()
	inv.SettledAt = &now

	if s.Notifier != nil {
		s.Notifier.PaymentConfirmed(ctx, inv)
	}
	return inv, token, nil
}

// existingToken fetches the token minted at settlement for invoice kinds
// that produce one. Repeated checks after payment hand back the same token.
func (s *PaymentService) existingToken(ctx context.Context, inv models.Invoice) *models.DownloadToken {
	if inv.Kind != models.InvoiceKindProduct && inv.Kind != models.InvoiceKindUnique {
		return nil
	}
	t, err := s.Tokens.GetByInvoice(ctx, inv.ID)
	if err != nil {
		return nil
	}
	return &t
}
