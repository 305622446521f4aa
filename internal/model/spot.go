package model

import "time"

// SpotStatus defines the occupancy state of a parking spot.
type SpotStatus string

const (
	SpotFree     SpotStatus = "free"
	SpotOccupied SpotStatus = "occupied"
)

// Spot is one unit of allocatable capacity within a lot.
type Spot struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	LotID      int64      `gorm:"not null;uniqueIndex:idx_lot_spot_number" json:"lot_id"`
	SpotNumber int        `gorm:"not null;uniqueIndex:idx_lot_spot_number" json:"spot_number"`
	Status     SpotStatus `gorm:"size:16;not null;default:free" json:"status"`
	Remarks    string     `gorm:"size:512" json:"remarks,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Associations
	Lot Lot `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
