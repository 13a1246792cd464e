package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dorm-allocation-backend/internal/model"
)

// EventKind says what happened to a room.
type EventKind string

const (
	EventAssigned EventKind = "assigned"
	EventMovedOut EventKind = "moved_out"
)

// Event is a committed change to a room's occupants.
type Event struct {
	RoomID int64
	Kind   EventKind
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

// WorkerPool delivers room events to the browsers subscribed to the room.
type WorkerPool struct {
	size    int
	jobs    chan Event
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
	onDrop  func()
}

// NewWorkerPool creates a new worker pool. queueSize bounds the number of
// undelivered events; Dispatch drops events beyond it.
func NewWorkerPool(size, queueSize int, db *gorm.DB, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, queueSize),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log.Named("notification"),
	}
}

// OnDrop registers fn to be called whenever Dispatch drops an event.
func (wp *WorkerPool) OnDrop(fn func()) {
	wp.onDrop = fn
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.log.With(zap.Int("worker", id))
	log.Debug("worker started")
	for {
		select {
		case ev := <-wp.jobs:
			log.Debug("processing room event", zap.Int64("room_id", ev.RoomID), zap.String("kind", string(ev.Kind)))
			wp.notifyRoom(ctx, ev)
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		}
	}
}

// Dispatch queues an event without blocking the caller. It reports false
// when the queue is full and the event was dropped.
func (wp *WorkerPool) Dispatch(ev Event) bool {
	select {
	case wp.jobs <- ev:
		return true
	default:
		wp.log.Warn("notification queue full, dropping event",
			zap.Int64("room_id", ev.RoomID), zap.String("kind", string(ev.Kind)))
		if wp.onDrop != nil {
			wp.onDrop()
		}
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Event {
	return wp.jobs
}

func (wp *WorkerPool) notifyRoom(ctx context.Context, ev Event) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_room_mapping srm ON srm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("srm.room_id = ?", ev.RoomID).
		Find(&subscriptions).Error
	if err != nil {
		wp.log.Error("fetching subscriptions", zap.Int64("room_id", ev.RoomID), zap.Error(err))
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	wp.log.Info("sending notifications", zap.Int("count", len(subscriptions)), zap.Int64("room_id", ev.RoomID))

	message := []byte(Message(ev.Kind, wp.roomLabel(ctx, ev.RoomID)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, message)
	}
}

// roomLabel returns "A-0302" style labels, falling back to the room ID.
func (wp *WorkerPool) roomLabel(ctx context.Context, roomID int64) string {
	var row struct {
		Code       string
		RoomNumber string
	}
	err := wp.db.WithContext(ctx).
		Table("rooms").
		Select("buildings.code, rooms.room_number").
		Joins("JOIN buildings ON buildings.id = rooms.building_id").
		Where("rooms.id = ?", roomID).
		Take(&row).Error
	if err != nil {
		wp.log.Warn("fetching room label", zap.Int64("room_id", roomID), zap.Error(err))
		return fmt.Sprintf("%d", roomID)
	}
	return row.Code + "-" + row.RoomNumber
}

// Message renders the push text for an event.
func Message(kind EventKind, label string) string {
	switch kind {
	case EventMovedOut:
		return fmt.Sprintf("宿舍 %s 有床位空出", label)
	default:
		return fmt.Sprintf("宿舍 %s 有新的入住安排", label)
	}
}

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
		wp.log.Warn("sending notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.db.WithContext(ctx).Select("Rooms").Delete(&sub).Error; err != nil {
			wp.log.Error("deleting expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
