package models

import "time"

type Membership struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	DurationDays int     `json:"duration_days"`
}

type UserMembership struct {
	UserID       int       `json:"user_id"`
	MembershipID int       `json:"membership_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}
