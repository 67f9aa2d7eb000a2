package repositories

import (
	"context"
	"database/sql"

	"tbarimtBack/internal/models"
)

type WalletRepository struct {
	DB *sql.DB
}

func NewWalletRepository(db *sql.DB) *WalletRepository { return &WalletRepository{DB: db} }

func (r *WalletRepository) GetBalance(ctx context.Context, userID int) (float64, error) {
	var balance float64
	err := r.DB.QueryRowContext(ctx, `SELECT income FROM users WHERE id = ?`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, models.ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Debit subtracts amount from the user's balance only if the balance covers
// it. The balance >= amount precondition lives in the WHERE clause, so the
// check and the write are one atomic statement.
func (r *WalletRepository) Debit(ctx context.Context, userID int, amount float64, reference string) (float64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET income = income - ? WHERE id = ? AND income >= ?`,
		amount, userID, amount)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&exists); err == sql.ErrNoRows {
			return 0, models.ErrUserNotFound
		} else if err != nil {
			return 0, err
		}
		return 0, models.ErrInsufficientBalance
	}

	var balance float64
	if err := tx.QueryRowContext(ctx, `SELECT income FROM users WHERE id = ?`, userID).Scan(&balance); err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (user_id, amount, direction, reference, created_at) VALUES (?, ?, 'debit', ?, NOW())`,
		userID, amount, reference)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance, nil
}

// HasCredit reports whether a credit with the given reference already sits
// in the ledger. Settlement keys recharge credits on the invoice reference,
// so a retried fan-out never credits the same invoice twice.
func (r *WalletRepository) HasCredit(ctx context.Context, reference string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM wallet_transactions WHERE direction = 'credit' AND reference = ? LIMIT 1`,
		reference).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *WalletRepository) Credit(ctx context.Context, userID int, amount float64, reference string) (float64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE users SET income = income + ? WHERE id = ?`, amount, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, models.ErrUserNotFound
	}

	var balance float64
	if err := tx.QueryRowContext(ctx, `SELECT income FROM users WHERE id = ?`, userID).Scan(&balance); err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (user_id, amount, direction, reference, created_at) VALUES (?, ?, 'credit', ?, NOW())`,
		userID, amount, reference)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance, nil
}
