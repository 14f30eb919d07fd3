package domain

import "time"

// FamilyInvite links a student account to a parent's family via a short code.
type FamilyInvite struct {
	Code       string
	FamilyID   string
	CreatedBy  string
	ExpiresAt  time.Time
	RedeemedBy string
	CreatedAt  time.Time
}

// Redeemable reports whether the invite can still be used at time now.
func (i FamilyInvite) Redeemable(now time.Time) error {
	if i.RedeemedBy != "" {
		return ErrInviteRedeemed
	}
	if now.After(i.ExpiresAt) {
		return ErrInviteExpired
	}
	return nil
}
