package conversation

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbot/medbot/internal/domain/appointment"
	"github.com/medbot/medbot/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/chat/sessions", auth.RequireExactRole(auth.RolePatient))
	g.POST("", h.StartSession)
	g.GET("/:id", h.GetSession)
	g.DELETE("/:id", h.EndSession)
	g.POST("/:id/messages", h.SubmitMessage)
	g.POST("/:id/symptoms", h.SubmitSymptom)
	g.POST("/:id/answers", h.SubmitAnswer)
	g.DELETE("/:id/history", h.ClearHistory)
	g.POST("/:id/bookings", h.Book)
}

type textRequest struct {
	Text string `json:"text"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) StartSession(c echo.Context) error {
	v, err := h.svc.StartSession(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.GetSession(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) EndSession(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	if err := h.svc.EndSession(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context())); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SubmitMessage(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	var req textRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	v, err := h.svc.SubmitMessage(ctx, id, auth.UserIDFromContext(ctx), req.Text)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) SubmitSymptom(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	var req textRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	v, err := h.svc.SubmitSymptomText(ctx, id, auth.UserIDFromContext(ctx), req.Text)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) SubmitAnswer(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	v, err := h.svc.SubmitFollowUpAnswer(ctx, id, auth.UserIDFromContext(ctx), req.Answer)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ClearHistory(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	v, err := h.svc.Clear(ctx, id, auth.UserIDFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Book(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	a, err := h.svc.Book(ctx, id, auth.UserIDFromContext(ctx), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func sessionID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	return id, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrFollowUpPending), errors.Is(err, ErrNoFollowUpPending):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSessionForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	return appointment.MapError(err)
}
