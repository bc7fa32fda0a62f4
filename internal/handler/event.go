package handler // handler package contains the event management handlers

import (
	"net/http" // http provides status code constants
	"strings"  // strings offers trimming utilities

	"github.com/labstack/echo/v4" // echo is the web framework used for handlers
)

// CreateEvent handles POST /v1/events and derives a new event for the owner
func (h *EventHandler) CreateEvent(c echo.Context) error {
	owner, ok := ownerOf(c)
	if !ok {
		return unauthorized(c)
	}
	var body struct {
		Name   string `json:"name"`
		Secret string `json:"secret"`
		Count  int    `json:"count"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	name := strings.TrimSpace(body.Name) // surrounding spaces never belong to a name
	if name == "" {
		return badRequest(c, "name is required")
	}
	if body.Secret == "" {
		return badRequest(c, "secret is required")
	}
	ev, err := h.Svc.CreateEvent(c.Request().Context(), owner, body.Secret, name, body.Count)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, newEventView(ev))
}

// ListEvents handles GET /v1/events
func (h *EventHandler) ListEvents(c echo.Context) error {
	owner, ok := ownerOf(c)
	if !ok {
		return unauthorized(c)
	}
	names, err := h.Svc.ListEvents(c.Request().Context(), owner)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": names})
}

// GetEvent handles GET /v1/events/:name and returns ticket counts
func (h *EventHandler) GetEvent(c echo.Context) error {
	owner, ok := ownerOf(c)
	if !ok {
		return unauthorized(c)
	}
	ev, err := h.Svc.GetEvent(c.Request().Context(), owner, c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newEventView(ev))
}

// DeleteEvent handles DELETE /v1/events/:name
func (h *EventHandler) DeleteEvent(c echo.Context) error {
	owner, ok := ownerOf(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.Svc.DeleteEvent(c.Request().Context(), owner, c.Param("name")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ExtendEvent handles POST /v1/events/:name/extend.  The body must carry
// the secret the event was created with.
func (h *EventHandler) ExtendEvent(c echo.Context) error {
	owner, ok := ownerOf(c)
	if !ok {
		return unauthorized(c)
	}
	var body struct {
		Secret string `json:"secret"`
		Count  int    `json:"count"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	ev, err := h.Svc.ExtendEvent(c.Request().Context(), owner, c.Param("name"), body.Secret, body.Count)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newEventView(ev))
}
