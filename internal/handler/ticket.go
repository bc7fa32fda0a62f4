package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-vault/internal/utils"
)

type credentialBody struct {
	Credential string `json:"credential"`
}

// bindCredential decodes the hex credential from the request body.
func bindCredential(c echo.Context) ([]byte, bool) {
	var body credentialBody
	if err := c.Bind(&body); err != nil {
		return nil, false
	}
	cred, err := utils.DecodeCredential(strings.TrimSpace(body.Credential))
	if err != nil || len(cred) == 0 {
		return nil, false
	}
	return cred, true
}

// IssueTicket handles POST /v1/events/:name/tickets.  The response is
// the only place a credential is ever handed out.
func (h *EventHandler) IssueTicket(c echo.Context) error {
	owner, ok := ownerOf(c)
	if !ok {
		return unauthorized(c)
	}
	name := c.Param("name")
	t, err := h.Svc.IssueTicket(c.Request().Context(), owner, name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"event":      name,
		"credential": utils.EncodeCredential(t.Credential),
	})
}

// VerifyTicket handles POST /v1/events/:name/verify.  A valid answer
// consumes the ticket.
func (h *EventHandler) VerifyTicket(c echo.Context) error {
	owner, ok := ownerOf(c)
	if !ok {
		return unauthorized(c)
	}
	cred, ok := bindCredential(c)
	if !ok {
		return badRequest(c, "credential must be a hex string")
	}
	valid, err := h.Svc.VerifyTicket(c.Request().Context(), owner, c.Param("name"), cred)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": valid})
}

// RefundTicket handles POST /v1/events/:name/refund
func (h *EventHandler) RefundTicket(c echo.Context) error {
	owner, ok := ownerOf(c)
	if !ok {
		return unauthorized(c)
	}
	cred, ok := bindCredential(c)
	if !ok {
		return badRequest(c, "credential must be a hex string")
	}
	refunded, err := h.Svc.RefundTicket(c.Request().Context(), owner, c.Param("name"), cred)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"refunded": refunded})
}
