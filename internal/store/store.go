package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"parking-backend/internal/model"
)

// Store defines the read and bookkeeping accessors over the durable
// state. Occupancy transitions themselves go through the engine, which
// is the sole writer of spot state.
type Store interface {
	DB() *gorm.DB

	FindLot(ctx context.Context, id int64) (*model.Lot, error)
	ListLots(ctx context.Context) ([]model.Lot, error)
	LotSummaries(ctx context.Context, includeInactive bool) ([]LotSummary, error)
	SpotDetails(ctx context.Context, lotID int64) ([]SpotDetail, error)
	Dashboard(ctx context.Context) (*DashboardSummary, error)

	CreateUser(ctx context.Context, user *model.User) error
	FindUser(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ActiveUsers(ctx context.Context) ([]model.User, error)

	CurrentReservation(ctx context.Context, userID int64) (*ReservationDetail, error)
	ReservationHistory(ctx context.Context, userID int64, oldestFirst bool) ([]ReservationDetail, error)
	HasReservationBetween(ctx context.Context, userID int64, from, to time.Time) (bool, error)
	MonthlyActivity(ctx context.Context, userID int64, from, to time.Time) ([]LotActivity, error)

	CreateExportJob(ctx context.Context, job *model.ExportJob) error
	FindExportJob(ctx context.Context, userID, id int64) (*model.ExportJob, error)
	FinishExportJob(ctx context.Context, id int64, status model.ExportStatus, filePath string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) FindLot(ctx context.Context, id int64) (*model.Lot, error) {
	var lot model.Lot
	if err := s.db.WithContext(ctx).First(&lot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lot %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load lot %d: %w", id, err)
	}
	return &lot, nil
}

func (s *gormStore) ListLots(ctx context.Context) ([]model.Lot, error) {
	var lots []model.Lot
	if err := s.db.WithContext(ctx).Order("name").Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	return lots, nil
}

// LotSummaries aggregates total and occupied spot counts per lot in a
// single query, so both counts reflect the same snapshot.
func (s *gormStore) LotSummaries(ctx context.Context, includeInactive bool) ([]LotSummary, error) {
	q := s.db.WithContext(ctx).
		Table("lots").
		Select(`lots.id, lots.name, lots.address, lots.pin_code, lots.price_per_hour,
			lots.spot_count AS total_spots,
			COALESCE(SUM(CASE WHEN spots.status = ? THEN 1 ELSE 0 END), 0) AS occupied_spots`,
			model.SpotOccupied).
		Joins("LEFT JOIN spots ON spots.lot_id = lots.id").
		Group("lots.id").
		Order("lots.name")
	if !includeInactive {
		q = q.Where("lots.is_active = ?", true)
	}

	var summaries []LotSummary
	if err := q.Scan(&summaries).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate lot summaries: %w", err)
	}
	for i := range summaries {
		summaries[i].AvailableSpots = summaries[i].TotalSpots - summaries[i].OccupiedSpots
	}
	return summaries, nil
}

func (s *gormStore) SpotDetails(ctx context.Context, lotID int64) ([]SpotDetail, error) {
	if _, err := s.FindLot(ctx, lotID); err != nil {
		return nil, err
	}

	var details []SpotDetail
	err := s.db.WithContext(ctx).
		Table("spots").
		Select(`spots.id, spots.spot_number, spots.status, spots.remarks,
			users.username AS username, reservations.started_at AS started_at`).
		Joins("LEFT JOIN reservations ON reservations.spot_id = spots.id AND reservations.status = ?",
			model.ReservationActive).
		Joins("LEFT JOIN users ON users.id = reservations.user_id").
		Where("spots.lot_id = ?", lotID).
		Order("spots.spot_number").
		Scan(&details).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load spots for lot %d: %w", lotID, err)
	}
	return details, nil
}

// Dashboard reads system-wide totals inside one transaction so the
// spot counts and lot count come from a consistent snapshot.
func (s *gormStore) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	var summary DashboardSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Lot{}).Count(&summary.TotalLots).Error; err != nil {
			return err
		}
		type spotAgg struct {
			TotalSpots    int64
			OccupiedSpots int64
		}
		var agg spotAgg
		if err := tx.Table("spots").
			Select(`COUNT(*) AS total_spots,
				COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS occupied_spots`,
				model.SpotOccupied).
			Scan(&agg).Error; err != nil {
			return err
		}
		summary.TotalSpots = agg.TotalSpots
		summary.OccupiedSpots = agg.OccupiedSpots
		summary.AvailableSpots = agg.TotalSpots - agg.OccupiedSpots
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build dashboard summary: %w", err)
	}
	return &summary, nil
}

func (s *gormStore) CreateUser(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user %q: %w", user.Username, err)
	}
	return nil
}

func (s *gormStore) FindUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return &user, nil
}

func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *gormStore) ActiveUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", "user", true).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	return users, nil
}

func (s *gormStore) CurrentReservation(ctx context.Context, userID int64) (*ReservationDetail, error) {
	var detail ReservationDetail
	err := s.reservationDetailQuery(ctx).
		Where("reservations.user_id = ? AND reservations.status = ?", userID, model.ReservationActive).
		Order("reservations.started_at DESC").
		Limit(1).
		Scan(&detail).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load current reservation for user %d: %w", userID, err)
	}
	if detail.ID == 0 {
		return nil, fmt.Errorf("active reservation for user %d: %w", userID, ErrNotFound)
	}
	return &detail, nil
}

// ReservationHistory returns the user's full ledger. The export
// consumer reads oldest first; the API shows newest first.
func (s *gormStore) ReservationHistory(ctx context.Context, userID int64, oldestFirst bool) ([]ReservationDetail, error) {
	order := "reservations.started_at DESC"
	if oldestFirst {
		order = "reservations.started_at ASC"
	}

	var details []ReservationDetail
	err := s.reservationDetailQuery(ctx).
		Where("reservations.user_id = ?", userID).
		Order(order).
		Scan(&details).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation history for user %d: %w", userID, err)
	}
	return details, nil
}

func (s *gormStore) reservationDetailQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("reservations").
		Select(`reservations.id, lots.name AS lot_name, spots.spot_number,
			reservations.started_at, reservations.ended_at, reservations.cost, reservations.status`).
		Joins("JOIN lots ON lots.id = reservations.lot_id").
		Joins("JOIN spots ON spots.id = reservations.spot_id")
}

func (s *gormStore) HasReservationBetween(ctx context.Context, userID int64, from, to time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("user_id = ? AND started_at >= ? AND started_at < ?", userID, from, to).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check reservations for user %d: %w", userID, err)
	}
	return count > 0, nil
}

// MonthlyActivity groups a user's reservations started in [from, to)
// by lot, with the visit count and summed cost per lot.
func (s *gormStore) MonthlyActivity(ctx context.Context, userID int64, from, to time.Time) ([]LotActivity, error) {
	var activity []LotActivity
	err := s.db.WithContext(ctx).
		Table("reservations").
		Select(`lots.name AS lot_name, COUNT(*) AS visits,
			COALESCE(SUM(reservations.cost), 0) AS total_cost`).
		Joins("JOIN lots ON lots.id = reservations.lot_id").
		Where("reservations.user_id = ? AND reservations.started_at >= ? AND reservations.started_at < ?",
			userID, from, to).
		Group("lots.name").
		Order("visits DESC").
		Scan(&activity).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly activity for user %d: %w", userID, err)
	}
	return activity, nil
}

func (s *gormStore) CreateExportJob(ctx context.Context, job *model.ExportJob) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create export job for user %d: %w", job.UserID, err)
	}
	return nil
}

func (s *gormStore) FindExportJob(ctx context.Context, userID, id int64) (*model.ExportJob, error) {
	var job model.ExportJob
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("export job %d for user %d: %w", id, userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load export job %d: %w", id, err)
	}
	return &job, nil
}

func (s *gormStore) FinishExportJob(ctx context.Context, id int64, status model.ExportStatus, filePath string) error {
	err := s.db.WithContext(ctx).
		Model(&model.ExportJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "file_path": filePath}).Error
	if err != nil {
		return fmt.Errorf("failed to finish export job %d: %w", id, err)
	}
	return nil
}
