package repositories

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"tbarimtBack/internal/models"
)

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository { return &UserRepository{DB: db} }

func (r *UserRepository) CreateUser(ctx context.Context, u models.User) (int, error) {
	const q = `INSERT INTO users (name, email, phone, password, role, income, created_at)
VALUES (?, ?, ?, ?, ?, 0, NOW())`
	res, err := r.DB.ExecContext(ctx, q, u.Name, u.Email, u.Phone, u.Password, u.Role)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return 0, models.ErrDuplicateEmail
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int) (models.User, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT id, name, email, phone, password, role, income, COALESCE(fcm_token, ''), created_at
FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return models.User{}, models.ErrUserNotFound
	}
	return u, err
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT id, name, email, phone, password, role, income, COALESCE(fcm_token, ''), created_at
FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return models.User{}, models.ErrUserNotFound
	}
	return u, err
}

func (r *UserRepository) SaveSession(ctx context.Context, s models.Session) error {
	const q = `INSERT INTO sessions (user_id, role, refresh_token, expires_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE refresh_token = VALUES(refresh_token), expires_at = VALUES(expires_at)`
	_, err := r.DB.ExecContext(ctx, q, s.UserID, s.Role, s.RefreshToken, s.ExpiresAt)
	return err
}

func (r *UserRepository) GetSessionByToken(ctx context.Context, refreshToken string) (models.Session, error) {
	var s models.Session
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, role, refresh_token, expires_at FROM sessions WHERE refresh_token = ?`,
		refreshToken).Scan(&s.UserID, &s.Role, &s.RefreshToken, &s.ExpiresAt)
	if err == sql.ErrNoRows {
		return models.Session{}, nil
	}
	return s, err
}

func (r *UserRepository) DeleteSessions(ctx context.Context, userID int) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func (r *UserRepository) UpdateFCMToken(ctx context.Context, userID int, token string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET fcm_token = ? WHERE id = ?`, token, userID)
	return err
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (models.User, error) {
	var u models.User
	var created time.Time
	err := scanner.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Password, &u.Role, &u.Income, &u.FCMToken, &created)
	if err != nil {
		return models.User{}, err
	}
	u.CreatedAt = created
	return u, nil
}
