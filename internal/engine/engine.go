package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"parking-backend/internal/model"
	"parking-backend/internal/store"
)

// Engine owns every occupancy transition. Claim, Release, resize and
// delete each run as one transaction; the spot-state flips inside them
// are conditional updates guarded on the current status, so a lost
// race shows up as zero affected rows and rolls the whole operation
// back instead of leaving partial state.
type Engine struct {
	db    *gorm.DB
	cache Invalidator
}

// New creates an allocation engine over the given database. cache
// receives invalidation events for the aggregate summary views; pass
// NopInvalidator{} when no cache is wired.
func New(db *gorm.DB, cache Invalidator) *Engine {
	return &Engine{db: db, cache: cache}
}

// LotParams carries the administrative fields of a lot.
type LotParams struct {
	Name         string
	Address      string
	PinCode      string
	PricePerHour float64
	SpotCount    int
	IsActive     bool
}

func (p LotParams) validate() error {
	if p.Name == "" {
		return fmt.Errorf("lot name is required: %w", ErrInvalidInput)
	}
	if p.SpotCount <= 0 {
		return fmt.Errorf("spot count %d must be positive: %w", p.SpotCount, ErrInvalidInput)
	}
	if p.PricePerHour < 0 {
		return fmt.Errorf("price per hour %.2f must be non-negative: %w", p.PricePerHour, ErrInvalidInput)
	}
	return nil
}

// Claim finds and claims the free spot with the lowest ordinal in the
// given lot for the user. Lowest ordinal wins as a deterministic
// tie-break. At most one active reservation per user is allowed.
func (e *Engine) Claim(ctx context.Context, userID, lotID int64) (*model.Reservation, *model.Spot, error) {
	var (
		reservation *model.Reservation
		claimed     *model.Spot
	)

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var activeCount int64
		if err := tx.Model(&model.Reservation{}).
			Where("user_id = ? AND status = ?", userID, model.ReservationActive).
			Count(&activeCount).Error; err != nil {
			return fmt.Errorf("failed to check active reservations for user %d: %w", userID, err)
		}
		if activeCount > 0 {
			return fmt.Errorf("user %d: %w", userID, ErrAlreadyActive)
		}

		var lot model.Lot
		if err := tx.First(&lot, lotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("lot %d: %w", lotID, store.ErrNotFound)
			}
			return fmt.Errorf("failed to load lot %d: %w", lotID, err)
		}

		var candidates []model.Spot
		if err := tx.Where("lot_id = ? AND status = ?", lotID, model.SpotFree).
			Order("spot_number ASC").
			Find(&candidates).Error; err != nil {
			return fmt.Errorf("failed to scan spots of lot %d: %w", lotID, err)
		}

		// Flip the first candidate whose status is still free. A
		// concurrent claim or shrink that got there first leaves zero
		// affected rows and we move to the next ordinal.
		for i := range candidates {
			res := tx.Model(&model.Spot{}).
				Where("id = ? AND status = ?", candidates[i].ID, model.SpotFree).
				Update("status", model.SpotOccupied)
			if res.Error != nil {
				return fmt.Errorf("failed to claim spot %d: %w", candidates[i].ID, res.Error)
			}
			if res.RowsAffected == 1 {
				claimed = &candidates[i]
				claimed.Status = model.SpotOccupied
				break
			}
		}
		if claimed == nil {
			return fmt.Errorf("lot %d: %w", lotID, ErrNoCapacity)
		}

		reservation = &model.Reservation{
			UserID:    userID,
			LotID:     lotID,
			SpotID:    claimed.ID,
			StartedAt: time.Now().UTC(),
			Status:    model.ReservationActive,
		}
		if err := tx.Create(reservation).Error; err != nil {
			// The count check above cannot see a concurrent claim that
			// has not committed yet; the unique index can.
			if isDuplicateActive(err) {
				return fmt.Errorf("user %d: %w", userID, ErrAlreadyActive)
			}
			return fmt.Errorf("failed to create reservation on spot %d: %w", claimed.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	e.invalidateSummaries()
	return reservation, claimed, nil
}

// Release closes the user's reservation, computes its cost from the
// lot's current hourly rate and frees the spot. A second release of
// the same reservation fails with not-found; the spot is freed exactly
// once.
func (e *Engine) Release(ctx context.Context, userID, reservationID int64) (*model.Reservation, error) {
	var reservation model.Reservation

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND user_id = ? AND status = ?",
			reservationID, userID, model.ReservationActive).
			First(&reservation).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("active reservation %d for user %d: %w", reservationID, userID, store.ErrNotFound)
			}
			return fmt.Errorf("failed to load reservation %d: %w", reservationID, err)
		}

		var lot model.Lot
		if err := tx.First(&lot, reservation.LotID).Error; err != nil {
			return fmt.Errorf("failed to load lot %d for billing: %w", reservation.LotID, err)
		}

		now := time.Now().UTC()
		start := reservation.StartedAt
		// Clock skew or a malformed stored timestamp can put the start
		// after the end; bill zero rather than a negative amount.
		if start.After(now) {
			start = now
		}
		cost := Cost(start, now, lot.PricePerHour)

		res := tx.Model(&model.Reservation{}).
			Where("id = ? AND status = ?", reservation.ID, model.ReservationActive).
			Updates(map[string]interface{}{
				"ended_at": now,
				"cost":     cost,
				"status":   model.ReservationCompleted,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete reservation %d: %w", reservation.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("active reservation %d for user %d: %w", reservationID, userID, store.ErrNotFound)
		}

		free := tx.Model(&model.Spot{}).
			Where("id = ? AND status = ?", reservation.SpotID, model.SpotOccupied).
			Update("status", model.SpotFree)
		if free.Error != nil {
			return fmt.Errorf("failed to free spot %d: %w", reservation.SpotID, free.Error)
		}
		// An active reservation implies an occupied spot. Zero affected
		// rows means the stored state is inconsistent; roll back rather
		// than complete the release over it.
		if free.RowsAffected != 1 {
			return fmt.Errorf("spot %d of reservation %d is not occupied", reservation.SpotID, reservation.ID)
		}

		reservation.EndedAt = &now
		reservation.Cost = &cost
		reservation.Status = model.ReservationCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.invalidateSummaries()
	return &reservation, nil
}

// CreateLot creates a lot and its spots, numbered 1..SpotCount, all
// free, in one transaction.
func (e *Engine) CreateLot(ctx context.Context, params LotParams) (*model.Lot, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	lot := &model.Lot{
		Name:         params.Name,
		Address:      params.Address,
		PinCode:      params.PinCode,
		PricePerHour: params.PricePerHour,
		SpotCount:    params.SpotCount,
		IsActive:     params.IsActive,
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(lot).Error; err != nil {
			return fmt.Errorf("failed to create lot %q: %w", params.Name, err)
		}
		spots := newFreeSpots(lot.ID, 1, params.SpotCount)
		if err := tx.Create(&spots).Error; err != nil {
			return fmt.Errorf("failed to create %d spots for lot %q: %w", params.SpotCount, params.Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.invalidateSummaries()
	return lot, nil
}

// UpdateLot edits a lot's fields and resizes its spot range in one
// atomic unit. Growing appends free spots with ordinals old+1..new.
// Shrinking removes ordinals above the new bound, but only when none
// of them is occupied; otherwise nothing is applied.
func (e *Engine) UpdateLot(ctx context.Context, lotID int64, params LotParams) (*model.Lot, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	var lot model.Lot
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lot, lotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("lot %d: %w", lotID, store.ErrNotFound)
			}
			return fmt.Errorf("failed to load lot %d: %w", lotID, err)
		}

		oldCount := lot.SpotCount
		newCount := params.SpotCount

		switch {
		case newCount > oldCount:
			spots := newFreeSpots(lotID, oldCount+1, newCount)
			if err := tx.Create(&spots).Error; err != nil {
				return fmt.Errorf("failed to grow lot %d to %d spots: %w", lotID, newCount, err)
			}

		case newCount < oldCount:
			var occupied int64
			err := tx.Model(&model.Spot{}).
				Where("lot_id = ? AND spot_number > ? AND status = ?", lotID, newCount, model.SpotOccupied).
				Count(&occupied).Error
			if err != nil {
				return fmt.Errorf("failed to check spots %d..%d of lot %d: %w", newCount+1, oldCount, lotID, err)
			}
			if occupied > 0 {
				return fmt.Errorf("lot %d, spots %d..%d: %w", lotID, newCount+1, oldCount, ErrCapacityConflict)
			}

			res := tx.Where("lot_id = ? AND spot_number > ? AND status = ?", lotID, newCount, model.SpotFree).
				Delete(&model.Spot{})
			if res.Error != nil {
				return fmt.Errorf("failed to shrink lot %d to %d spots: %w", lotID, newCount, res.Error)
			}
			// A claim that raced past the check above leaves an occupied
			// spot behind; the guarded delete then removes fewer rows
			// than the range holds and the whole resize rolls back.
			if res.RowsAffected != int64(oldCount-newCount) {
				return fmt.Errorf("lot %d, spots %d..%d: %w", lotID, newCount+1, oldCount, ErrCapacityConflict)
			}
		}

		updates := map[string]interface{}{
			"name":           params.Name,
			"address":        params.Address,
			"pin_code":       params.PinCode,
			"price_per_hour": params.PricePerHour,
			"spot_count":     newCount,
			"is_active":      params.IsActive,
		}
		if err := tx.Model(&lot).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update lot %d: %w", lotID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.invalidateSummaries()
	return &lot, nil
}

// DeleteLot removes a lot and all its spots, provided none of them is
// occupied.
func (e *Engine) DeleteLot(ctx context.Context, lotID int64) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lot model.Lot
		if err := tx.First(&lot, lotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("lot %d: %w", lotID, store.ErrNotFound)
			}
			return fmt.Errorf("failed to load lot %d: %w", lotID, err)
		}

		var total, occupied int64
		if err := tx.Model(&model.Spot{}).Where("lot_id = ?", lotID).Count(&total).Error; err != nil {
			return fmt.Errorf("failed to count spots of lot %d: %w", lotID, err)
		}
		if err := tx.Model(&model.Spot{}).
			Where("lot_id = ? AND status = ?", lotID, model.SpotOccupied).
			Count(&occupied).Error; err != nil {
			return fmt.Errorf("failed to count occupied spots of lot %d: %w", lotID, err)
		}
		if occupied > 0 {
			return fmt.Errorf("lot %d has %d occupied spots: %w", lotID, occupied, ErrHasOccupiedSpots)
		}

		res := tx.Where("lot_id = ? AND status = ?", lotID, model.SpotFree).Delete(&model.Spot{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete spots of lot %d: %w", lotID, res.Error)
		}
		if res.RowsAffected != total {
			return fmt.Errorf("lot %d has occupied spots: %w", lotID, ErrHasOccupiedSpots)
		}

		if err := tx.Delete(&model.Lot{}, lotID).Error; err != nil {
			return fmt.Errorf("failed to delete lot %d: %w", lotID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.invalidateSummaries()
	return nil
}

// isDuplicateActive reports whether err is a violation of the partial
// unique index backing "one active reservation per user". Postgres and
// sqlite both name the violated index in the error text.
func isDuplicateActive(err error) bool {
	return err != nil && strings.Contains(err.Error(), "idx_one_active_per_user")
}

func newFreeSpots(lotID int64, from, to int) []model.Spot {
	spots := make([]model.Spot, 0, to-from+1)
	for n := from; n <= to; n++ {
		spots = append(spots, model.Spot{
			LotID:      lotID,
			SpotNumber: n,
			Status:     model.SpotFree,
		})
	}
	return spots
}
