package models

import "time"

// Shop is the model for the 'shops' table.
// 'is_active' is a derived visibility flag: after any activation or
// deactivation it must match whether the shop's subscription is 'active'.
// Both writes always happen in the same transaction. Legacy shops with
// is_active = 1 and no subscription row are grandfathered-active and are
// left alone by the lapse worker.
type Shop struct {
	ID          int64     `json:"id" db:"id"`
	OwnerUserID int64     `json:"ownerUserId" db:"owner_user_id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
