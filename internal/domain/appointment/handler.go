package appointment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medbot/medbot/internal/platform/auth"
	"github.com/medbot/medbot/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	readGroup.GET("/appointments", h.ListAppointments)

	doctorGroup := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctorGroup.PUT("/appointments/:index/status", h.UpdateStatus)
}

// ListAppointments returns the caller's own appointments, or every
// appointment paginated for admins.
func (h *Handler) ListAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	if id.Role == auth.RoleAdmin {
		pg := pagination.FromContext(c)
		items, total, err := h.svc.List(ctx, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks(c.Path(), pg))
	}

	items, err := h.svc.ListFor(ctx, id)
	if err != nil {
		return MapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  items,
		"total": len(items),
	})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus lets a doctor accept or reject one of their appointments,
// addressed by its position in the doctor's list.
func (h *Handler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	if id.Role != auth.RoleDoctor || id.DoctorName == "" {
		return echo.NewHTTPError(http.StatusForbidden, "only the owning doctor can change appointment status")
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid index")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		return MapError(err)
	}

	a, err := h.svc.SetStatus(ctx, id.DoctorName, index, status)
	if err != nil {
		return MapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// MapError translates ledger errors into HTTP errors.
func MapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrOutOfRangeSelection):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalidStatusTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
