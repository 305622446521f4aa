package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"parking-backend/config"
	"parking-backend/internal/store"
)

// Scheduler fires the daily reminder and the monthly report at their
// configured hours. It only reads aggregates from the store and hands
// payloads to the worker pool; delivery is the pool's problem.
type Scheduler struct {
	cfg   *config.SchedulerConfig
	store store.Store
	pool  *WorkerPool
	loc   *time.Location

	lastReminder string
	lastReport   string
}

// NewScheduler creates a scheduler over the given store and pool.
func NewScheduler(cfg *config.SchedulerConfig, s store.Store, pool *WorkerPool) *Scheduler {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Printf("Warning: invalid scheduler timezone %q: %v. Falling back to UTC.", cfg.Timezone, err)
		} else {
			loc = l
		}
	}
	return &Scheduler{cfg: cfg, store: s, pool: pool, loc: loc}
}

// Run checks every few minutes whether a job is due. Each job fires at
// most once per day (reminder) or per month (report).
func (s *Scheduler) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Scheduler is disabled. Not starting.")
		return
	}
	log.Println("Starting notification scheduler...")

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(ctx, time.Now().In(s.loc))
		case <-ctx.Done():
			log.Println("Notification scheduler shutting down")
			return
		}
	}
}

// Tick runs any job due at the given time.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	day := now.Format("2006-01-02")
	if now.Hour() >= s.cfg.ReminderHour && s.lastReminder != day {
		s.lastReminder = day
		if err := s.RunDailyReminder(ctx, now); err != nil {
			log.Printf("Daily reminder run failed: %v", err)
		}
	}

	month := now.Format("2006-01")
	if now.Day() == 1 && now.Hour() >= s.cfg.ReportHour && s.lastReport != month {
		s.lastReport = month
		if err := s.RunMonthlyReport(ctx, now); err != nil {
			log.Printf("Monthly report run failed: %v", err)
		}
	}
}

// RunDailyReminder notifies every active user who has not started a
// reservation today.
func (s *Scheduler) RunDailyReminder(ctx context.Context, now time.Time) error {
	users, err := s.store.ActiveUsers(ctx)
	if err != nil {
		return err
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	sent := 0
	for _, user := range users {
		parkedToday, err := s.store.HasReservationBetween(ctx, user.ID, dayStart.UTC(), dayEnd.UTC())
		if err != nil {
			log.Printf("Skipping reminder for user %d: %v", user.ID, err)
			continue
		}
		if parkedToday {
			continue
		}

		payload, err := json.Marshal(map[string]string{
			"title": "Daily Parking Reminder",
			"body":  fmt.Sprintf("Hello %s, you haven't used the parking lots today. Reserve a spot via the app if you need one.", user.Username),
		})
		if err != nil {
			continue
		}
		s.pool.Dispatch(Job{UserID: user.ID, Payload: payload})
		sent++
	}
	log.Printf("Daily reminder dispatched to %d users", sent)
	return nil
}

// RunMonthlyReport sends each user with activity in the current
// calendar month a summary: visit count, most used lot, total spent.
func (s *Scheduler) RunMonthlyReport(ctx context.Context, now time.Time) error {
	users, err := s.store.ActiveUsers(ctx)
	if err != nil {
		return err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	monthEnd := monthStart.AddDate(0, 1, 0)
	monthLabel := now.Format("January 2006")

	sent := 0
	for _, user := range users {
		activity, err := s.store.MonthlyActivity(ctx, user.ID, monthStart.UTC(), monthEnd.UTC())
		if err != nil {
			log.Printf("Skipping report for user %d: %v", user.ID, err)
			continue
		}
		if len(activity) == 0 {
			continue
		}

		var visits int64
		var spent float64
		for _, a := range activity {
			visits += a.Visits
			spent += a.TotalCost
		}
		// MonthlyActivity orders by visits descending.
		mostUsed := activity[0].LotName

		payload, err := json.Marshal(map[string]string{
			"title": fmt.Sprintf("Monthly Parking Report - %s", monthLabel),
			"body": fmt.Sprintf("Total visits: %d. Most used lot: %s. Total spent: %.2f.",
				visits, mostUsed, spent),
		})
		if err != nil {
			continue
		}
		s.pool.Dispatch(Job{UserID: user.ID, Payload: payload})
		sent++
	}
	log.Printf("Monthly report dispatched to %d users", sent)
	return nil
}
