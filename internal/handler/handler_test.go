package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-vault/internal/handler"
	"github.com/iliyamo/event-ticket-vault/internal/repository"
	"github.com/iliyamo/event-ticket-vault/internal/router"
	"github.com/iliyamo/event-ticket-vault/internal/service"
	"github.com/iliyamo/event-ticket-vault/internal/utils"
)

const jwtSecret = "handler-test-secret"

type api struct {
	t     *testing.T
	e     *echo.Echo
	token string
}

func newAPI(t *testing.T, opts ...service.Option) *api {
	t.Helper()
	e := echo.New()
	svc := service.NewTicketService(repository.NewMemoryEventRepo(), opts...)
	router.RegisterRoutes(e, nil)
	router.RegisterEvents(e, handler.NewEventHandler(svc), jwtSecret)
	tok, err := utils.NewAccessToken(jwtSecret, "alice", time.Hour)
	require.NoError(t, err)
	return &api{t: t, e: e, token: tok.Token}
}

func (a *api) do(method, path, body string) (int, map[string]any) {
	a.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestConcertOverHTTP(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/v1/events", `{"name":"concert","secret":"hunter2","count":20}`)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "concert", body["name"])
	assert.Equal(t, "sha256", body["digest"])

	code, body = a.do(http.MethodPost, "/v1/events/concert/tickets", "")
	require.Equal(t, http.StatusCreated, code, body)
	want, err := utils.Derive("hunter2", 0)
	require.NoError(t, err)
	cred := body["credential"].(string)
	assert.Equal(t, utils.EncodeCredential(want), cred)

	verify := `{"credential":"` + cred + `"}`
	code, body = a.do(http.MethodPost, "/v1/events/concert/verify", verify)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["valid"])
	_, body = a.do(http.MethodPost, "/v1/events/concert/verify", verify)
	assert.Equal(t, false, body["valid"])

	code, body = a.do(http.MethodPost, "/v1/events/concert/refund", verify)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["refunded"])

	code, body = a.do(http.MethodPost, "/v1/events/concert/tickets", "")
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, cred, body["credential"])

	code, body = a.do(http.MethodGet, "/v1/events/concert", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"total": 20.0, "sold": 1.0, "used": 0.0, "available": 19.0}, body["stats"])

	code, body = a.do(http.MethodPost, "/v1/events/concert/extend", `{"secret":"hunter2","count":5}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 25.0, body["stats"].(map[string]any)["total"])

	code, body = a.do(http.MethodGet, "/v1/events", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"concert"}, body["events"])

	code, _ = a.do(http.MethodDelete, "/v1/events/concert", "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = a.do(http.MethodGet, "/v1/events/concert", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStatusMapping(t *testing.T) {
	a := newAPI(t, service.WithMaxTickets(50))
	code, _ := a.do(http.MethodPost, "/v1/events", `{"name":"gig","secret":"pw","count":1}`)
	require.Equal(t, http.StatusCreated, code)
	unsold, err := utils.Derive("pw", 0)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"duplicate event", http.MethodPost, "/v1/events", `{"name":"gig","secret":"pw","count":1}`, http.StatusConflict},
		{"zero count", http.MethodPost, "/v1/events", `{"name":"x","secret":"pw","count":0}`, http.StatusBadRequest},
		{"over limit", http.MethodPost, "/v1/events", `{"name":"x","secret":"pw","count":51}`, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/v1/events", `{"secret":"pw","count":1}`, http.StatusBadRequest},
		{"missing secret", http.MethodPost, "/v1/events", `{"name":"x","count":1}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/v1/events", `{"name":`, http.StatusBadRequest},
		{"unknown event", http.MethodPost, "/v1/events/nope/tickets", "", http.StatusNotFound},
		{"refund unsold", http.MethodPost, "/v1/events/gig/refund", `{"credential":"` + utils.EncodeCredential(unsold) + `"}`, http.StatusConflict},
		{"bad hex", http.MethodPost, "/v1/events/gig/verify", `{"credential":"zz"}`, http.StatusBadRequest},
		{"empty credential", http.MethodPost, "/v1/events/gig/verify", `{"credential":""}`, http.StatusBadRequest},
		{"extend bad secret", http.MethodPost, "/v1/events/gig/extend", `{"secret":"nope","count":1}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := a.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, code, body)
			assert.NotEmpty(t, body["error"])
		})
	}

	code, _ = a.do(http.MethodPost, "/v1/events/gig/tickets", "")
	require.Equal(t, http.StatusCreated, code)
	code, body := a.do(http.MethodPost, "/v1/events/gig/tickets", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "no tickets available", body["error"])
}

func TestOwnersAreIsolated(t *testing.T) {
	a := newAPI(t)
	code, _ := a.do(http.MethodPost, "/v1/events", `{"name":"concert","secret":"pw","count":1}`)
	require.Equal(t, http.StatusCreated, code)

	bob, err := utils.NewAccessToken(jwtSecret, "bob", time.Hour)
	require.NoError(t, err)
	a.token = bob.Token
	code, _ = a.do(http.MethodGet, "/v1/events/concert", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = a.do(http.MethodPost, "/v1/events", `{"name":"concert","secret":"other","count":1}`)
	assert.Equal(t, http.StatusCreated, code)
}

func TestReady(t *testing.T) {
	e := echo.New()
	e.GET("/ok", handler.Ready(func(context.Context) error { return nil }))
	e.GET("/down", handler.Ready(func(context.Context) error { return errors.New("dial tcp: refused") }))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "refused")
}
