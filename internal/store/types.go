package store

import (
	"time"

	"parking-backend/internal/model"
)

// LotSummary aggregates, per lot, the declared capacity and the live
// occupancy counts. Total and occupied come from the same query so the
// two can never reflect different snapshots.
type LotSummary struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	PinCode        string  `json:"pin_code"`
	PricePerHour   float64 `json:"price_per_hour"`
	TotalSpots     int     `json:"total_spots"`
	OccupiedSpots  int     `json:"occupied_spots"`
	AvailableSpots int     `json:"available_spots"`
}

// DashboardSummary holds the system-wide totals.
type DashboardSummary struct {
	TotalLots      int64 `json:"total_lots"`
	TotalSpots     int64 `json:"total_spots"`
	OccupiedSpots  int64 `json:"occupied_spots"`
	AvailableSpots int64 `json:"available_spots"`
}

// SpotDetail is one spot with its active reservation holder, if any.
type SpotDetail struct {
	ID         int64            `json:"id"`
	SpotNumber int              `json:"spot_number"`
	Status     model.SpotStatus `json:"status"`
	Remarks    string           `json:"remarks,omitempty"`
	Username   *string          `json:"username,omitempty"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
}

// ReservationDetail is a ledger entry joined with its lot and spot.
type ReservationDetail struct {
	ID         int64                   `json:"id"`
	LotName    string                  `json:"lot_name"`
	SpotNumber int                     `json:"spot_number"`
	StartedAt  time.Time               `json:"started_at"`
	EndedAt    *time.Time              `json:"ended_at,omitempty"`
	Cost       *float64                `json:"cost,omitempty"`
	Status     model.ReservationStatus `json:"status"`
}

// LotActivity is one lot's share of a user's activity in a period.
type LotActivity struct {
	LotName   string  `json:"lot_name"`
	Visits    int64   `json:"visits"`
	TotalCost float64 `json:"total_cost"`
}
