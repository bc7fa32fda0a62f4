package handler // handler defines http handlers

import (
	"errors"   // errors.Is matches the sentinel errors below
	"net/http" // http provides status code constants

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/iliyamo/event-ticket-vault/internal/lock"
	"github.com/iliyamo/event-ticket-vault/internal/logger"
	"github.com/iliyamo/event-ticket-vault/internal/middleware"
	"github.com/iliyamo/event-ticket-vault/internal/model"
	"github.com/iliyamo/event-ticket-vault/internal/repository"
	"github.com/iliyamo/event-ticket-vault/internal/service"
)

// EventHandler exposes the ticket service over HTTP.  Every route acts
// on the events of the authenticated owner.
type EventHandler struct {
	Svc *service.TicketService // Svc runs the ticket operations
}

// NewEventHandler constructs an EventHandler and panics if svc is nil.
func NewEventHandler(svc *service.TicketService) *EventHandler {
	if svc == nil {
		panic("nil service passed to NewEventHandler")
	}
	return &EventHandler{Svc: svc}
}

// eventView is the JSON shape returned for a single event.  Credentials
// are not listed; a credential is only disclosed when a ticket is issued.
type eventView struct {
	Name   string      `json:"name"`
	Digest string      `json:"digest"`
	Stats  model.Stats `json:"stats"`
}

func newEventView(ev *model.Event) eventView {
	return eventView{Name: ev.Name, Digest: ev.Digest, Stats: ev.Stats()}
}

// errorStatus maps service, domain and store errors to a status code
// and a client-facing message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		return http.StatusNotFound, "event not found"
	case errors.Is(err, repository.ErrEventExists):
		return http.StatusConflict, "event already exists"
	case errors.Is(err, model.ErrNoTicketsAvailable):
		return http.StatusConflict, "no tickets available"
	case errors.Is(err, model.ErrNotSold):
		return http.StatusConflict, "ticket is not sold"
	case errors.Is(err, service.ErrConflict), errors.Is(err, lock.ErrLockTimeout):
		return http.StatusConflict, "event is busy, retry later"
	case errors.Is(err, model.ErrBadSecret):
		return http.StatusForbidden, "secret does not match event"
	case errors.Is(err, model.ErrEncodingFailure):
		return http.StatusBadRequest, "secret must be valid UTF-8"
	case errors.Is(err, model.ErrInvalidCount):
		return http.StatusBadRequest, "count must be positive"
	case errors.Is(err, service.ErrTooManyTickets):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidName):
		return http.StatusBadRequest, "invalid event name"
	case errors.Is(err, service.ErrInvalidOwner):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// fail writes the mapped error response; 5xx causes are logged.
func fail(c echo.Context, err error) error {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf(c.Request().Context(), "%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, map[string]string{"error": msg})
}

// ownerOf returns the owner set by JWTAuth or writes 401.
func ownerOf(c echo.Context) (string, bool) {
	owner := middleware.Owner(c)
	return owner, owner != ""
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}
