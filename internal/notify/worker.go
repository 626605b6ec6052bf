package notify

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"hotelflow-core/config"
	"hotelflow-core/internal/entity"
	"hotelflow-core/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real implementation of Sender using the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// announcementPayload is the JSON body delivered to the browser.
type announcementPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// WorkerPool fans announcements out to every registered push subscription.
type WorkerPool struct {
	size    int
	jobs    chan entity.Announcement
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(cfg *config.Config, db *gorm.DB) *WorkerPool {
	return &WorkerPool{
		size: cfg.WorkerPool.Size,
		jobs: make(chan entity.Announcement, cfg.WorkerPool.Size),
		db:   db,
		webpush: &webpush.Options{
			Subscriber:      cfg.Push.Subject,
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			TTL:             cfg.Push.TTL,
		},
		sender: &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("notify worker %d started", id)
	for {
		select {
		case ann := <-wp.jobs:
			wp.fanOut(ctx, ann)
		case <-ctx.Done():
			log.Printf("notify worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an announcement for delivery.
func (wp *WorkerPool) Dispatch(ann entity.Announcement) {
	wp.jobs <- ann
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan entity.Announcement {
	return wp.jobs
}

// fanOut delivers one announcement to every registered subscription.
func (wp *WorkerPool) fanOut(ctx context.Context, ann entity.Announcement) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		log.Printf("error fetching subscriptions for announcement %s: %v", ann.ID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(announcementPayload{
		Title: "Announcement from " + ann.Author,
		Body:  ann.Text,
	})
	if err != nil {
		log.Printf("error encoding announcement %s: %v", ann.ID, err)
		return
	}

	log.Printf("sending %d notifications for announcement %s", len(subscriptions), ann.ID)
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
		log.Printf("error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("subscription %s expired, deleting", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
