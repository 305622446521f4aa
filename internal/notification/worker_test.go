package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parking-backend/internal/db"
	"parking-backend/internal/model"
)

// mockSender is a mock implementation of the Sender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

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

func okResponse() *http.Response {
	return &http.Response{
		StatusCode: http.StatusCreated,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

func TestWorkerPoolDispatch(t *testing.T) {
	wp := NewWorkerPool(1, newTestDB(t), &webpush.Options{})

	wp.Dispatch(Job{UserID: 42, Payload: []byte("hello")})

	select {
	case job := <-wp.jobs:
		assert.Equal(t, int64(42), job.UserID)
		assert.Equal(t, "hello", string(job.Payload))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestSendToUserDeliversToAllSubscriptions(t *testing.T) {
	gormDB := newTestDB(t)
	wp := NewWorkerPool(1, gormDB, &webpush.Options{})

	require.NoError(t, gormDB.Create(&model.PushSubscription{
		Endpoint: "https://example.com/push/a", UserID: 1, P256DH: "k1", Auth: "a1",
	}).Error)
	require.NoError(t, gormDB.Create(&model.PushSubscription{
		Endpoint: "https://example.com/push/b", UserID: 1, P256DH: "k2", Auth: "a2",
	}).Error)
	// Another user's subscription must not receive anything.
	require.NoError(t, gormDB.Create(&model.PushSubscription{
		Endpoint: "https://example.com/push/other", UserID: 2, P256DH: "k3", Auth: "a3",
	}).Error)

	var mu sync.Mutex
	var endpoints []string
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			assert.Equal(t, "reminder", string(payload))
			mu.Lock()
			endpoints = append(endpoints, sub.Endpoint)
			mu.Unlock()
			return okResponse(), nil
		},
	}

	wp.SendToUser(context.Background(), 1, []byte("reminder"))

	assert.ElementsMatch(t, []string{
		"https://example.com/push/a",
		"https://example.com/push/b",
	}, endpoints)
}

func TestSendToUserDeletesExpiredSubscription(t *testing.T) {
	gormDB := newTestDB(t)
	wp := NewWorkerPool(1, gormDB, &webpush.Options{})

	require.NoError(t, gormDB.Create(&model.PushSubscription{
		Endpoint: "https://example.com/push/expired", UserID: 1, P256DH: "k", Auth: "a",
	}).Error)

	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusGone,
				Body:       io.NopCloser(bytes.NewBufferString("")),
			}, nil
		},
	}

	wp.SendToUser(context.Background(), 1, []byte("reminder"))

	var count int64
	require.NoError(t, gormDB.Model(&model.PushSubscription{}).Count(&count).Error)
	assert.Zero(t, count, "expired subscription should be removed")
}

func TestSendToUserSurvivesSenderError(t *testing.T) {
	gormDB := newTestDB(t)
	wp := NewWorkerPool(1, gormDB, &webpush.Options{})

	require.NoError(t, gormDB.Create(&model.PushSubscription{
		Endpoint: "https://example.com/push/broken", UserID: 1, P256DH: "k", Auth: "a",
	}).Error)

	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			return nil, fmt.Errorf("push service unreachable")
		},
	}

	// Must not panic, and the subscription stays for a later retry.
	wp.SendToUser(context.Background(), 1, []byte("reminder"))

	var count int64
	require.NoError(t, gormDB.Model(&model.PushSubscription{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
