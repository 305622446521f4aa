package notification

import (
	"context"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"parking-backend/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Job is one notification to deliver to every subscription of a user.
type Job struct {
	UserID  int64
	Payload []byte
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Job
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new notification worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			wp.SendToUser(ctx, job.UserID, job.Payload)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool.
func (wp *WorkerPool) Dispatch(job Job) {
	wp.jobs <- job
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

// SendToUser pushes the payload to every subscription the user holds.
func (wp *WorkerPool) SendToUser(ctx context.Context, userID int64, payload []byte) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for user %d: %v", userID, err)
		return
	}

	for _, sub := range subscriptions {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
