package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotelflow-core/config"
	"hotelflow-core/internal/entity"
	"hotelflow-core/internal/model"
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
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.PushSubscription{}))
	return db
}

func newTestPool(t *testing.T, db *gorm.DB) *WorkerPool {
	t.Helper()
	return NewWorkerPool(&config.Config{
		WorkerPool: config.WorkerPoolConfig{Size: 1},
		Push:       config.PushConfig{Subject: "mailto:ops@example.com", TTL: 60},
	}, db)
}

func pushResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := newTestPool(t, newTestDB(t))

	wp.Dispatch(entity.Announcement{ID: "a1", Text: "pool closed"})

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, "a1", job.ID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	db := newTestDB(t)
	wp := newTestPool(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("sends notification to every subscription", func(t *testing.T) {
		require.NoError(t, db.Create(&model.PushSubscription{
			Endpoint: "https://example.com/push-1",
			P256DH:   "key1",
			Auth:     "auth1",
		}).Error)
		require.NoError(t, db.Create(&model.PushSubscription{
			Endpoint: "https://example.com/push-2",
			P256DH:   "key2",
			Auth:     "auth2",
		}).Error)

		var wg sync.WaitGroup
		wg.Add(2)

		var mu sync.Mutex
		endpoints := map[string]bool{}
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				var body announcementPayload
				require.NoError(t, json.Unmarshal(payload, &body))
				assert.Equal(t, "Announcement from frontdesk", body.Title)
				assert.Equal(t, "Pool reopens at noon", body.Body)
				mu.Lock()
				endpoints[sub.Endpoint] = true
				mu.Unlock()
				wg.Done()
				return pushResponse(http.StatusCreated), nil
			},
		}

		wp.Dispatch(entity.Announcement{ID: "a1", Author: "frontdesk", Text: "Pool reopens at noon"})
		wg.Wait()

		assert.True(t, endpoints["https://example.com/push-1"])
		assert.True(t, endpoints["https://example.com/push-2"])

		require.NoError(t, db.Where("1 = 1").Delete(&model.PushSubscription{}).Error)
	})

	t.Run("deletes expired subscription on 410", func(t *testing.T) {
		require.NoError(t, db.Create(&model.PushSubscription{
			Endpoint: "https://example.com/expired",
			P256DH:   "key_expired",
			Auth:     "auth_expired",
		}).Error)

		var wg sync.WaitGroup
		wg.Add(1)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				wg.Done()
				return pushResponse(http.StatusGone), nil
			},
		}

		wp.Dispatch(entity.Announcement{ID: "a2", Author: "frontdesk", Text: "old news"})
		wg.Wait()

		// The delete happens after the send returns; give the worker a beat.
		require.Eventually(t, func() bool {
			var count int64
			db.Model(&model.PushSubscription{}).Count(&count)
			return count == 0
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("send failure leaves subscription registered", func(t *testing.T) {
		require.NoError(t, db.Create(&model.PushSubscription{
			Endpoint: "https://example.com/flaky",
			P256DH:   "key_flaky",
			Auth:     "auth_flaky",
		}).Error)

		var wg sync.WaitGroup
		wg.Add(1)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				wg.Done()
				return nil, assert.AnError
			},
		}

		wp.Dispatch(entity.Announcement{ID: "a3", Author: "frontdesk", Text: "retry me"})
		wg.Wait()

		var count int64
		require.NoError(t, db.Model(&model.PushSubscription{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}
