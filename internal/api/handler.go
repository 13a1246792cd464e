package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"dorm-allocation-backend/internal/allocation"
	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/mw"
	"dorm-allocation-backend/internal/notification"
	"dorm-allocation-backend/internal/store"
)

// Allocator is the part of the allocation engine the HTTP layer drives.
type Allocator interface {
	AssignSingle(ctx context.Context, req allocation.AssignSingleRequest) (*model.Assignment, error)
	AssignBatch(ctx context.Context, req allocation.AssignBatchRequest) (*allocation.BatchResult, error)
	MoveOut(ctx context.Context, req allocation.MoveOutRequest) (*model.Assignment, error)
	Reconcile(ctx context.Context, actor allocation.Actor) ([]allocation.Drift, error)
}

// Notifier receives room events after a committed mutation.
type Notifier interface {
	Dispatch(ev notification.Event) bool
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	engine   Allocator
	store    store.Store
	webpush  *webpush.Options
	cache    *mw.ResponseCache
	notifier Notifier
	log      *zap.Logger
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithCache flushes c after every successful mutation.
func WithCache(c *mw.ResponseCache) HandlerOption {
	return func(h *Handler) { h.cache = c }
}

// WithNotifier sends room events to n after every successful mutation.
func WithNotifier(n Notifier) HandlerOption {
	return func(h *Handler) { h.notifier = n }
}

// WithWebPush exposes the VAPID public key to clients.
func WithWebPush(o *webpush.Options) HandlerOption {
	return func(h *Handler) { h.webpush = o }
}

// NewHandler creates a new API handler.
func NewHandler(engine Allocator, s store.Store, log *zap.Logger, opts ...HandlerOption) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		engine: engine,
		store:  s,
		log:    log.Named("api"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// committed runs after a mutation touching the given rooms succeeded.
func (h *Handler) committed(kind notification.EventKind, roomIDs ...int64) {
	if h.cache != nil {
		h.cache.Flush()
	}
	if h.notifier == nil {
		return
	}
	for _, id := range roomIDs {
		h.notifier.Dispatch(notification.Event{RoomID: id, Kind: kind})
	}
}
