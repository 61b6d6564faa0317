package model

import (
	"time"
)

// AccessCode is a short-lived shared secret that unlocks create, update and
// delete operations on every managed resource.
type AccessCode struct {
	ID         string     `db:"id" json:"id"`
	Code       string     `db:"code" json:"code"`
	CreatedBy  string     `db:"created_by" json:"createdBy"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expiresAt"`
	Note       string     `db:"note" json:"note"`
	IsActive   bool       `db:"is_active" json:"isActive"`
	UsageCount int        `db:"usage_count" json:"usageCount"`
	LastUsed   *time.Time `db:"last_used" json:"lastUsed,omitempty"`
}

// CreateAccessCodeParams contains parameters for creating an access code
type CreateAccessCodeParams struct {
	Code      string
	CreatedBy string
	Note      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpiredAt reports whether the code's TTL has elapsed at now.
func (c *AccessCode) IsExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsValidAt reports whether the code can unlock a mutation at now.
func (c *AccessCode) IsValidAt(now time.Time) bool {
	return c.IsActive && !c.IsExpiredAt(now)
}
