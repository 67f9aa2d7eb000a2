package repositories

import (
	"context"
	"database/sql"
	"time"

	"tbarimtBack/internal/models"
)

type InvoiceRepository struct {
	DB *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository { return &InvoiceRepository{DB: db} }

func (r *InvoiceRepository) CreateInvoice(ctx context.Context, inv models.Invoice) (int, error) {
	const q = `INSERT INTO invoices (user_id, kind, product_id, membership_id, amount, description, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, 'pending', NOW())`
	res, err := r.DB.ExecContext(ctx, q, inv.UserID, inv.Kind, inv.ProductID, inv.MembershipID, inv.Amount, inv.Description)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// AttachProvider stores the provider-side identifier and QR text after the
// invoice has been created at QPay.
func (r *InvoiceRepository) AttachProvider(ctx context.Context, id int, providerInvoiceID, qrText string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE invoices SET provider_invoice_id = ?, qr_text = ? WHERE id = ?`,
		providerInvoiceID, qrText, id)
	return err
}

func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id int, status models.PaymentStatus) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE invoices SET status = ? WHERE id = ?`, status, id)
	return err
}

// MarkPaid transitions an invoice to paid exactly once. It reports whether
// this call performed the transition, so settlement stays idempotent.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id int) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE invoices SET status = 'paid', paid_at = NOW() WHERE id = ? AND status <> 'paid'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkSettled records that the post-payment fan-out for the invoice has
// completed. Checks skip the fan-out once this is set.
func (r *InvoiceRepository) MarkSettled(ctx context.Context, id int) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE invoices SET settled_at = NOW() WHERE id = ? AND settled_at IS NULL`, id)
	return err
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id int) (models.Invoice, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT id, user_id, kind, product_id, membership_id, amount, description, provider_invoice_id, qr_text, status, created_at, paid_at, settled_at
FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return models.Invoice{}, models.ErrInvoiceNotFound
	}
	return inv, err
}

func (r *InvoiceRepository) GetByProviderID(ctx context.Context, providerInvoiceID string) (models.Invoice, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT id, user_id, kind, product_id, membership_id, amount, description, provider_invoice_id, qr_text, status, created_at, paid_at, settled_at
FROM invoices WHERE provider_invoice_id = ?`, providerInvoiceID)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return models.Invoice{}, models.ErrInvoiceNotFound
	}
	return inv, err
}

func (r *InvoiceRepository) GetByUser(ctx context.Context, userID int) ([]models.Invoice, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, user_id, kind, product_id, membership_id, amount, description, provider_invoice_id, qr_text, status, created_at, paid_at, settled_at
FROM invoices WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

// FailStalePending marks pending invoices created before the cutoff as
// failed and returns how many rows changed.
func (r *InvoiceRepository) FailStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE invoices SET status = 'failed' WHERE status = 'pending' AND created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanInvoice(scanner interface{ Scan(dest ...any) error }) (models.Invoice, error) {
	var inv models.Invoice
	var kind string
	var productID, membershipID sql.NullInt64
	var providerID, qrText sql.NullString
	var status string
	var paidAt, settledAt sql.NullTime
	err := scanner.Scan(&inv.ID, &inv.UserID, &kind, &productID, &membershipID, &inv.Amount,
		&inv.Description, &providerID, &qrText, &status, &inv.CreatedAt, &paidAt, &settledAt)
	if err != nil {
		return models.Invoice{}, err
	}
	inv.Kind = models.InvoiceKind(kind)
	inv.Status = models.NormalizePaymentStatus(status)
	if productID.Valid {
		v := int(productID.Int64)
		inv.ProductID = &v
	}
	if membershipID.Valid {
		v := int(membershipID.Int64)
		inv.MembershipID = &v
	}
	if providerID.Valid {
		inv.ProviderInvoiceID = providerID.String
	}
	if qrText.Valid {
		inv.QRText = qrText.String
	}
	if paidAt.Valid {
		t := paidAt.Time
		inv.PaidAt = &t
	}
	if settledAt.Valid {
		t := settledAt.Time
		inv.SettledAt = &t
	}
	return inv, nil
}
