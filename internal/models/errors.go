package models

import (
	"errors"
)

var (
	ErrNoRecord            = errors.New("models: no matching record found")
	ErrInvalidCredentials  = errors.New("models: invalid credentials")
	ErrDuplicateEmail      = errors.New("models: duplicate email")
	ErrUserNotFound        = errors.New("models: user not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductNotForSale   = errors.New("product not for sale")
	ErrMembershipNotFound  = errors.New("membership not found")
	ErrMembershipMismatch  = errors.New("membership does not match current plan")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrTokenNotFound       = errors.New("download token not found")
	ErrTokenUsed           = errors.New("download token already used")
	ErrTokenExpired        = errors.New("download token expired")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrPollerActive        = errors.New("poller already active for invoice")
	ErrForbidden           = errors.New("forbidden")
)
