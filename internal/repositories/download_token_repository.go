package repositories

import (
	"context"
	"database/sql"
	"time"

	"tbarimtBack/internal/models"
)

type DownloadTokenRepository struct {
	DB *sql.DB
}

func NewDownloadTokenRepository(db *sql.DB) *DownloadTokenRepository {
	return &DownloadTokenRepository{DB: db}
}

func (r *DownloadTokenRepository) Create(ctx context.Context, t models.DownloadToken) (int, error) {
	const q = `INSERT INTO download_tokens (token, user_id, product_id, invoice_id, expires_at, created_at)
VALUES (?, ?, ?, ?, ?, NOW())`
	res, err := r.DB.ExecContext(ctx, q, t.Token, t.UserID, t.ProductID, t.InvoiceID, t.ExpiresAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

func (r *DownloadTokenRepository) GetByToken(ctx context.Context, token string) (models.DownloadToken, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT id, token, user_id, product_id, invoice_id, expires_at, used_at, created_at
FROM download_tokens WHERE token = ?`, token)
	t, err := scanDownloadToken(row)
	if err == sql.ErrNoRows {
		return models.DownloadToken{}, models.ErrTokenNotFound
	}
	return t, err
}

// GetByInvoice returns the newest token issued for an invoice, so a repeated
// status check after settlement hands back the same token instead of minting
// another one.
func (r *DownloadTokenRepository) GetByInvoice(ctx context.Context, invoiceID int) (models.DownloadToken, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT id, token, user_id, product_id, invoice_id, expires_at, used_at, created_at
FROM download_tokens WHERE invoice_id = ? ORDER BY id DESC LIMIT 1`, invoiceID)
	t, err := scanDownloadToken(row)
	if err == sql.ErrNoRows {
		return models.DownloadToken{}, models.ErrTokenNotFound
	}
	return t, err
}

// Redeem consumes a token. The conditional UPDATE is the single-use
// guarantee: of any number of concurrent redemptions only one changes a row.
// When nothing changed, the follow-up SELECT tells expired and already-used
// tokens apart from unknown ones.
func (r *DownloadTokenRepository) Redeem(ctx context.Context, token string, now time.Time) (models.DownloadToken, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE download_tokens SET used_at = ? WHERE token = ? AND used_at IS NULL AND expires_at > ?`,
		now, token, now)
	if err != nil {
		return models.DownloadToken{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.DownloadToken{}, err
	}
	if n == 0 {
		t, err := r.GetByToken(ctx, token)
		if err != nil {
			return models.DownloadToken{}, err
		}
		if t.UsedAt != nil {
			return models.DownloadToken{}, models.ErrTokenUsed
		}
		return models.DownloadToken{}, models.ErrTokenExpired
	}
	return r.GetByToken(ctx, token)
}

// DeleteExpired removes tokens whose window closed before the cutoff.
func (r *DownloadTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM download_tokens WHERE expires_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanDownloadToken(scanner interface{ Scan(dest ...any) error }) (models.DownloadToken, error) {
	var t models.DownloadToken
	var invoiceID sql.NullInt64
	var usedAt sql.NullTime
	err := scanner.Scan(&t.ID, &t.Token, &t.UserID, &t.ProductID, &invoiceID, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if err != nil {
		return models.DownloadToken{}, err
	}
	if invoiceID.Valid {
		v := int(invoiceID.Int64)
		t.InvoiceID = &v
	}
	if usedAt.Valid {
		u := usedAt.Time
		t.UsedAt = &u
	}
	return t, nil
}
