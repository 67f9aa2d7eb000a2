package repositories

import (
	"context"
	"database/sql"
	"time"

	"tbarimtBack/internal/models"
)

type MembershipRepository struct {
	DB *sql.DB
}

func NewMembershipRepository(db *sql.DB) *MembershipRepository {
	return &MembershipRepository{DB: db}
}

func (r *MembershipRepository) GetByID(ctx context.Context, id int) (models.Membership, error) {
	var m models.Membership
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, price, duration_days FROM memberships WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.Price, &m.DurationDays)
	if err == sql.ErrNoRows {
		return models.Membership{}, models.ErrMembershipNotFound
	}
	return m, err
}

// CurrentPlan returns the user's stored membership plan and its expiry.
// A user with no membership row gets a zero plan id and no error.
func (r *MembershipRepository) CurrentPlan(ctx context.Context, userID int) (int, time.Time, error) {
	var planID int
	var expires time.Time
	err := r.DB.QueryRowContext(ctx,
		`SELECT membership_id, expires_at FROM user_memberships WHERE user_id = ?`, userID).
		Scan(&planID, &expires)
	if err == sql.ErrNoRows {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, err
	}
	return planID, expires, nil
}

// Extend pushes the user's membership expiry forward by the plan duration.
// A lapsed membership restarts from now, an active one extends from its
// current expiry.
func (r *MembershipRepository) Extend(ctx context.Context, userID, membershipID, durationDays int, now time.Time) (time.Time, error) {
	var current sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		`SELECT expires_at FROM user_memberships WHERE user_id = ?`, userID).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return time.Time{}, err
	}

	base := now
	if current.Valid && current.Time.After(now) {
		base = current.Time
	}
	expires := base.AddDate(0, 0, durationDays)

	const q = `INSERT INTO user_memberships (user_id, membership_id, expires_at)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE membership_id = VALUES(membership_id), expires_at = VALUES(expires_at)`
	if _, err := r.DB.ExecContext(ctx, q, userID, membershipID, expires); err != nil {
		return time.Time{}, err
	}
	return expires, nil
}
