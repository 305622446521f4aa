package model

import "time"

// Lot represents a managed parking location.
type Lot struct {
	ID           int64   `gorm:"primaryKey" json:"id"`
	Name         string  `gorm:"size:256;not null" json:"name"`
	Address      string  `gorm:"size:512" json:"address"`
	PinCode      string  `gorm:"size:32" json:"pin_code"`
	PricePerHour float64 `gorm:"not null" json:"price_per_hour"`
	// SpotCount is the declared capacity; outside of an in-flight resize
	// the lot owns exactly this many spots, numbered 1..SpotCount.
	SpotCount int       `gorm:"not null" json:"spot_count"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Spots []Spot `gorm:"foreignKey:LotID" json:"-"`
}
