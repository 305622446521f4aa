package store_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parking-backend/internal/db"
	"parking-backend/internal/model"
	"parking-backend/internal/store"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// seedLot inserts a lot and its spots directly, occupying the given
// ordinals.
func seedLot(t *testing.T, gdb *gorm.DB, name string, active bool, spotCount int, occupied ...int) *model.Lot {
	t.Helper()
	lot := model.Lot{Name: name, PricePerHour: 10, SpotCount: spotCount, IsActive: active}
	require.NoError(t, gdb.Create(&lot).Error)

	occupiedSet := make(map[int]bool, len(occupied))
	for _, n := range occupied {
		occupiedSet[n] = true
	}
	for n := 1; n <= spotCount; n++ {
		status := model.SpotFree
		if occupiedSet[n] {
			status = model.SpotOccupied
		}
		require.NoError(t, gdb.Create(&model.Spot{LotID: lot.ID, SpotNumber: n, Status: status}).Error)
	}
	return &lot
}

func seedUser(t *testing.T, gdb *gorm.DB, username string) *model.User {
	t.Helper()
	user := model.User{Username: username, Role: "user", IsActive: true}
	require.NoError(t, gdb.Create(&user).Error)
	return &user
}

func TestLotSummaries(t *testing.T) {
	gdb := newTestDB(t)
	s := store.NewGormStore(gdb)
	ctx := context.Background()

	seedLot(t, gdb, "Alpha", true, 5, 2, 4)
	seedLot(t, gdb, "Beta", true, 3)
	seedLot(t, gdb, "Closed", false, 2, 1)

	summaries, err := s.LotSummaries(ctx, false)
	require.NoError(t, err)
	require.Len(t, summaries, 2, "inactive lots are hidden from users")

	assert.Equal(t, "Alpha", summaries[0].Name)
	assert.Equal(t, 5, summaries[0].TotalSpots)
	assert.Equal(t, 2, summaries[0].OccupiedSpots)
	assert.Equal(t, 3, summaries[0].AvailableSpots)

	assert.Equal(t, "Beta", summaries[1].Name)
	assert.Equal(t, 0, summaries[1].OccupiedSpots)
	assert.Equal(t, 3, summaries[1].AvailableSpots)

	all, err := s.LotSummaries(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestSpotDetails(t *testing.T) {
	gdb := newTestDB(t)
	s := store.NewGormStore(gdb)
	ctx := context.Background()

	lot := seedLot(t, gdb, "Alpha", true, 2, 1)
	alice := seedUser(t, gdb, "alice")

	var occupiedSpot model.Spot
	require.NoError(t, gdb.Where("lot_id = ? AND spot_number = ?", lot.ID, 1).First(&occupiedSpot).Error)

	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, gdb.Create(&model.Reservation{
		UserID: alice.ID, LotID: lot.ID, SpotID: occupiedSpot.ID,
		StartedAt: started, Status: model.ReservationActive,
	}).Error)

	details, err := s.SpotDetails(ctx, lot.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)

	assert.Equal(t, 1, details[0].SpotNumber)
	assert.Equal(t, model.SpotOccupied, details[0].Status)
	require.NotNil(t, details[0].Username)
	assert.Equal(t, "alice", *details[0].Username)
	require.NotNil(t, details[0].StartedAt)
	assert.Equal(t, started.Unix(), details[0].StartedAt.Unix())

	assert.Equal(t, 2, details[1].SpotNumber)
	assert.Equal(t, model.SpotFree, details[1].Status)
	assert.Nil(t, details[1].Username)
	assert.Nil(t, details[1].StartedAt)
}

func TestSpotDetailsLotNotFound(t *testing.T) {
	gdb := newTestDB(t)
	s := store.NewGormStore(gdb)

	_, err := s.SpotDetails(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDashboard(t *testing.T) {
	gdb := newTestDB(t)
	s := store.NewGormStore(gdb)

	seedLot(t, gdb, "Alpha", true, 5, 1, 2)
	seedLot(t, gdb, "Beta", false, 3, 3)

	summary, err := s.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.TotalLots)
	assert.Equal(t, int64(8), summary.TotalSpots)
	assert.Equal(t, int64(3), summary.OccupiedSpots)
	assert.Equal(t, int64(5), summary.AvailableSpots)
}

func TestReservationHistoryOrdering(t *testing.T) {
	gdb := newTestDB(t)
	s := store.NewGormStore(gdb)
	ctx := context.Background()

	lot := seedLot(t, gdb, "Alpha", true, 3)
	alice := seedUser(t, gdb, "alice")

	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	cost := 5.0
	for i := 0; i < 3; i++ {
		ended := base.Add(time.Duration(i)*24*time.Hour + time.Hour)
		require.NoError(t, gdb.Create(&model.Reservation{
			UserID: alice.ID, LotID: lot.ID, SpotID: spotID(t, gdb, lot.ID, i+1),
			StartedAt: base.Add(time.Duration(i) * 24 * time.Hour),
			EndedAt:   &ended, Cost: &cost, Status: model.ReservationCompleted,
		}).Error)
	}

	oldest, err := s.ReservationHistory(ctx, alice.ID, true)
	require.NoError(t, err)
	require.Len(t, oldest, 3)
	assert.True(t, oldest[0].StartedAt.Before(oldest[2].StartedAt))
	assert.Equal(t, "Alpha", oldest[0].LotName)
	assert.Equal(t, 1, oldest[0].SpotNumber)

	newest, err := s.ReservationHistory(ctx, alice.ID, false)
	require.NoError(t, err)
	require.Len(t, newest, 3)
	assert.True(t, newest[0].StartedAt.After(newest[2].StartedAt))
}

func TestCurrentReservation(t *testing.T) {
	gdb := newTestDB(t)
	s := store.NewGormStore(gdb)
	ctx := context.Background()

	lot := seedLot(t, gdb, "Alpha", true, 2, 1)
	alice := seedUser(t, gdb, "alice")

	_, err := s.CurrentReservation(ctx, alice.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, gdb.Create(&model.Reservation{
		UserID: alice.ID, LotID: lot.ID, SpotID: spotID(t, gdb, lot.ID, 1),
		StartedAt: time.Now().UTC(), Status: model.ReservationActive,
	}).Error)

	current, err := s.CurrentReservation(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", current.LotName)
	assert.Equal(t, 1, current.SpotNumber)
	assert.Equal(t, model.ReservationActive, current.Status)
}

func TestHasReservationBetween(t *testing.T) {
	gdb := newTestDB(t)
	s := store.NewGormStore(gdb)
	ctx := context.Background()

	lot := seedLot(t, gdb, "Alpha", true, 2)
	alice := seedUser(t, gdb, "alice")

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gdb.Create(&model.Reservation{
		UserID: alice.ID, LotID: lot.ID, SpotID: spotID(t, gdb, lot.ID, 1),
		StartedAt: day.Add(10 * time.Hour), Status: model.ReservationCompleted,
	}).Error)

	parked, err := s.HasReservationBetween(ctx, alice.ID, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, parked)

	parked, err = s.HasReservationBetween(ctx, alice.ID, day.AddDate(0, 0, 1), day.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.False(t, parked)
}

func TestMonthlyActivity(t *testing.T) {
	gdb := newTestDB(t)
	s := store.NewGormStore(gdb)
	ctx := context.Background()

	alpha := seedLot(t, gdb, "Alpha", true, 3)
	beta := seedLot(t, gdb, "Beta", true, 3)
	alice := seedUser(t, gdb, "alice")

	monthStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	addReservation := func(lot *model.Lot, spotNumber int, start time.Time, cost float64) {
		require.NoError(t, gdb.Create(&model.Reservation{
			UserID: alice.ID, LotID: lot.ID, SpotID: spotID(t, gdb, lot.ID, spotNumber),
			StartedAt: start, Cost: &cost, Status: model.ReservationCompleted,
		}).Error)
	}
	addReservation(alpha, 1, monthStart.Add(24*time.Hour), 10.0)
	addReservation(alpha, 2, monthStart.Add(48*time.Hour), 7.5)
	addReservation(beta, 1, monthStart.Add(72*time.Hour), 3.0)
	// Outside the month, must not count.
	addReservation(beta, 2, monthStart.AddDate(0, 1, 1), 99.0)

	activity, err := s.MonthlyActivity(ctx, alice.ID, monthStart, monthStart.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, activity, 2)

	// Most visited lot first.
	assert.Equal(t, "Alpha", activity[0].LotName)
	assert.Equal(t, int64(2), activity[0].Visits)
	assert.InDelta(t, 17.5, activity[0].TotalCost, 0.001)
	assert.Equal(t, "Beta", activity[1].LotName)
	assert.InDelta(t, 3.0, activity[1].TotalCost, 0.001)
}

func TestExportJobLifecycle(t *testing.T) {
	gdb := newTestDB(t)
	s := store.NewGormStore(gdb)
	ctx := context.Background()

	alice := seedUser(t, gdb, "alice")
	bob := seedUser(t, gdb, "bob")

	job := model.ExportJob{UserID: alice.ID, Status: model.ExportPending}
	require.NoError(t, s.CreateExportJob(ctx, &job))
	require.NotZero(t, job.ID)

	// Scoped to the owner: another user cannot see the job.
	_, err := s.FindExportJob(ctx, bob.ID, job.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	found, err := s.FindExportJob(ctx, alice.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExportPending, found.Status)

	require.NoError(t, s.FinishExportJob(ctx, job.ID, model.ExportDone, "/tmp/export_1.csv"))

	found, err = s.FindExportJob(ctx, alice.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExportDone, found.Status)
	assert.Equal(t, "/tmp/export_1.csv", found.FilePath)
}

// TestLotSummariesStoreFailure verifies that a failing durable store
// surfaces as an error instead of an empty result.
func TestLotSummariesStoreFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	s := store.NewGormStore(gormDB)
	_, err = s.LotSummaries(context.Background(), true)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func spotID(t *testing.T, gdb *gorm.DB, lotID int64, spotNumber int) int64 {
	t.Helper()
	var spot model.Spot
	require.NoError(t, gdb.Where("lot_id = ? AND spot_number = ?", lotID, spotNumber).First(&spot).Error)
	return spot.ID
}
