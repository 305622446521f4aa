package model

import "time"

// ReservationStatus defines the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
)

// Reservation is a time-bounded claim by one user on one spot. It is
// created in state active and transitions to completed exactly once,
// at which point Cost and EndedAt are set and the record is immutable.
// The partial unique index on UserID holds "at most one active
// reservation per user" at the schema level, so two racing claims
// cannot both commit.
type Reservation struct {
	ID        int64             `gorm:"primaryKey" json:"id"`
	UserID    int64             `gorm:"not null;index;index:idx_one_active_per_user,unique,where:status = 'active'" json:"user_id"`
	LotID     int64             `gorm:"not null;index" json:"lot_id"`
	SpotID    int64             `gorm:"not null;index" json:"spot_id"`
	StartedAt time.Time         `gorm:"not null;index" json:"started_at"`
	EndedAt   *time.Time        `json:"ended_at,omitempty"`
	Cost      *float64          `json:"cost,omitempty"`
	Status    ReservationStatus `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
