package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dorm-allocation-backend/internal/dbtest"
	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/store"
)

func setupSubscriptionRouter(s store.Store) *gin.Engine {
	r := gin.New()
	handler := NewHandler(nil, s, nil)
	r.GET("/api/subscriptions", handler.GetSubscription)
	r.PUT("/api/subscriptions", handler.PutSubscription)
	r.DELETE("/api/subscriptions", handler.DeleteSubscription)
	return r
}

func TestPutSubscription(t *testing.T) {
	router := setupSubscriptionRouter(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/subscriptions", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request","code":"invalid_request"}`, w.Body.String())
}

func TestSubscriptionLifecycle(t *testing.T) {
	gormDB := dbtest.Open(t)
	router := setupSubscriptionRouter(store.NewGormStore(gormDB))
	b := dbtest.Building(t, gormDB, "A", model.GenderTypeAny)
	r1 := dbtest.Room(t, gormDB, b.ID, "0301", 4, model.GenderTypeAny)
	r2 := dbtest.Room(t, gormDB, b.ID, "0302", 4, model.GenderTypeAny)

	send := func(method, target, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	endpoint := "https://push.example.com/abc%3D"
	w := send(http.MethodPut, "/api/subscriptions",
		`{"endpoint":"`+endpoint+`","p256dh":"k","auth":"a","subscribed_rooms":[`+itoa(r1.ID)+`,`+itoa(r2.ID)+`]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = send(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		SubscribedRooms []int64 `json:"subscribed_rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.ElementsMatch(t, []int64{r1.ID, r2.ID}, got.SubscribedRooms)

	// Replacing narrows the room set.
	w = send(http.MethodPut, "/api/subscriptions",
		`{"endpoint":"`+endpoint+`","p256dh":"k2","auth":"a2","subscribed_rooms":[`+itoa(r2.ID)+`]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = send(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, "")
	assert.JSONEq(t, `{"subscribed_rooms":[`+itoa(r2.ID)+`]}`, w.Body.String())

	w = send(http.MethodDelete, "/api/subscriptions", `{"endpoint":"`+endpoint+`"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = send(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "subscription_not_found", decode(t, w)["code"])

	w = send(http.MethodGet, "/api/subscriptions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decode(t, w)["code"])

	w = send(http.MethodDelete, "/api/subscriptions", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decode(t, w)["code"])
}

func TestGetVAPIDPublicKey(t *testing.T) {
	get := func(h *Handler) *httptest.ResponseRecorder {
		r := gin.New()
		r.GET("/api/vapid_public_key", h.GetVAPIDPublicKey)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/vapid_public_key", nil))
		return w
	}

	w := get(NewHandler(nil, nil, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"room notifications are disabled","code":"push_disabled"}`, w.Body.String())

	w = get(NewHandler(nil, nil, nil, WithWebPush(&webpush.Options{VAPIDPublicKey: "BPub"})))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"BPub"}`, w.Body.String())
}
