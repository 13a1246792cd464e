package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dorm-allocation-backend/internal/dbtest"
	"dorm-allocation-backend/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

type sent struct {
	endpoint string
	payload  string
}

func replyWith(status int, out chan<- sent) *mockSender {
	return &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			out <- sent{endpoint: sub.Endpoint, payload: string(payload)}
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(bytes.NewBufferString("")),
			}, nil
		},
	}
}

func seedSubscription(t *testing.T, gormDB *gorm.DB, endpoint string, rooms ...model.Room) model.PushSubscription {
	t.Helper()
	sub := model.PushSubscription{Endpoint: endpoint, P256DH: "p256dh", Auth: "auth", CreatedAt: time.Now()}
	for i := range rooms {
		sub.Rooms = append(sub.Rooms, &rooms[i])
	}
	require.NoError(t, gormDB.Create(&sub).Error)
	return sub
}

func recv(t *testing.T, ch <-chan sent) sent {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return sent{}
	}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, 1, nil, &webpush.Options{}, nil)
	dropped := 0
	wp.OnDrop(func() { dropped++ })

	assert.True(t, wp.Dispatch(Event{RoomID: 123, Kind: EventAssigned}))
	// Queue holds one event and nobody is consuming.
	assert.False(t, wp.Dispatch(Event{RoomID: 124, Kind: EventAssigned}))
	assert.Equal(t, 1, dropped)

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, Event{RoomID: 123, Kind: EventAssigned}, job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "宿舍 A-0302 有新的入住安排", Message(EventAssigned, "A-0302"))
	assert.Equal(t, "宿舍 A-0302 有床位空出", Message(EventMovedOut, "A-0302"))
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB := dbtest.Open(t)
	b := dbtest.Building(t, gormDB, "A", model.GenderTypeAny)
	watched := dbtest.Room(t, gormDB, b.ID, "0302", 4, model.GenderTypeAny)
	other := dbtest.Room(t, gormDB, b.ID, "0303", 4, model.GenderTypeAny)

	seedSubscription(t, gormDB, "https://example.com/push", watched)
	seedSubscription(t, gormDB, "https://example.com/other", other)

	wp := NewWorkerPool(1, 8, gormDB, &webpush.Options{}, nil)
	out := make(chan sent, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("sends notification to room subscribers only", func(t *testing.T) {
		wp.sender = replyWith(http.StatusCreated, out)
		wp.Start(ctx)

		wp.Dispatch(Event{RoomID: watched.ID, Kind: EventMovedOut})
		got := recv(t, out)
		assert.Equal(t, "https://example.com/push", got.endpoint)
		assert.Equal(t, "宿舍 A-0302 有床位空出", got.payload)

		select {
		case extra := <-out:
			t.Fatalf("unexpected notification to %s", extra.endpoint)
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = replyWith(http.StatusGone, out)

		wp.Dispatch(Event{RoomID: other.ID, Kind: EventAssigned})
		got := recv(t, out)
		assert.Equal(t, "宿舍 A-0303 有新的入住安排", got.payload)

		require.Eventually(t, func() bool {
			var n int64
			gormDB.Model(&model.PushSubscription{}).Where("endpoint = ?", "https://example.com/other").Count(&n)
			return n == 0
		}, 2*time.Second, 20*time.Millisecond)

		var mappings int64
		require.NoError(t, gormDB.Table("subscription_room_mapping").
			Where("push_subscription_endpoint = ?", "https://example.com/other").Count(&mappings).Error)
		assert.Zero(t, mappings)
	})

	t.Run("falls back to room ID when lookup fails", func(t *testing.T) {
		wp.sender = replyWith(http.StatusCreated, out)
		require.NoError(t, gormDB.Exec(
			"INSERT INTO subscription_room_mapping (push_subscription_endpoint, room_id) VALUES (?, ?)",
			"https://example.com/push", 999).Error)

		wp.Dispatch(Event{RoomID: 999, Kind: EventAssigned})
		got := recv(t, out)
		assert.Equal(t, "宿舍 999 有新的入住安排", got.payload)
	})
}
