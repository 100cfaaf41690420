package notification

import (
	"context"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/model"
)

// Attachment is a file sent along with an email.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is one notification. Email is sent when To is set; web push is
// sent to every subscription of UserID when Push is set.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
	UserID      int64
	Push        string
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Subscriptions is the subset of the store the pool needs for push delivery.
type Subscriptions interface {
	UserSubscriptions(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	RemoveSubscription(ctx context.Context, endpoint string) error
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Message
	subs    Subscriptions
	mailer  Mailer
	webpush *webpush.Options
	sender  NotificationSender
	metrics *metrics.Metrics
}

// NewWorkerPool creates a new worker pool. A nil mailer disables email and
// nil webpush options disable push.
func NewWorkerPool(size, queueSize int, subs Subscriptions, mailer Mailer, webpushOptions *webpush.Options, m *metrics.Metrics) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Message, queueSize),
		subs:    subs,
		mailer:  mailer,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		metrics: m,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case msg := <-wp.jobs:
			wp.deliver(ctx, msg)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a message without blocking. It reports false when the queue
// is full and the message was dropped.
func (wp *WorkerPool) Dispatch(msg Message) bool {
	select {
	case wp.jobs <- msg:
		return true
	default:
		log.Printf("Notification queue full, dropping %q for %s", msg.Subject, msg.To)
		wp.metrics.NotificationDropped()
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Message {
	return wp.jobs
}

func (wp *WorkerPool) deliver(ctx context.Context, msg Message) {
	if msg.To != "" && wp.mailer != nil {
		if err := wp.mailer.Send(ctx, msg); err != nil {
			log.Printf("Error sending email %q to %s: %v", msg.Subject, msg.To, err)
		}
	}
	if msg.Push != "" && msg.UserID != 0 {
		wp.pushToUser(ctx, msg.UserID, []byte(msg.Push))
	}
}

// pushToUser sends the payload to every subscription of the user.
func (wp *WorkerPool) pushToUser(ctx context.Context, userID int64, payload []byte) {
	if wp.webpush == nil || wp.subs == nil {
		return
	}

	subscriptions, err := wp.subs.UserSubscriptions(ctx, userID)
	if err != nil {
		log.Printf("Error fetching subscriptions for user %d: %v", userID, err)
		return
	}

	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
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
		if err := wp.subs.RemoveSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
