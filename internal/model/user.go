package model

import "time"

// User identifies a requester. Authentication is handled outside this
// service; callers pass the user id explicitly on every request.
type User struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:128;not null" json:"username"`
	Email     string    `gorm:"size:256" json:"email,omitempty"`
	Phone     string    `gorm:"size:32" json:"phone,omitempty"`
	Role      string    `gorm:"size:16;not null;default:user" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
