package directory

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medbot/medbot/internal/domain/triage"
	"github.com/medbot/medbot/internal/platform/auth"
)

type Handler struct {
	dir  *Directory
	topN int
}

func NewHandler(dir *Directory, topN int) *Handler {
	return &Handler{dir: dir, topN: topN}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/doctors", h.ListDoctors)

	readGroup := api.Group("", auth.RequireRole(auth.RolePatient))
	readGroup.GET("/recommendations", h.Recommend)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	doctors := h.dir.All()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  doctors,
		"total": len(doctors),
	})
}

type recommendationResponse struct {
	Symptom     triage.Label `json:"symptom"`
	Specialties []string     `json:"specialties"`
	Doctors     []Doctor     `json:"doctors"`
}

func (h *Handler) Recommend(c echo.Context) error {
	symptom := strings.ToLower(strings.TrimSpace(c.QueryParam("symptom")))
	if symptom == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "symptom is required")
	}
	topN := h.topN
	if v := c.QueryParam("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "top must be a positive integer")
		}
		topN = n
	}
	label := triage.Label(symptom)
	return c.JSON(http.StatusOK, recommendationResponse{
		Symptom:     label,
		Specialties: h.dir.Specialties(label),
		Doctors:     h.dir.Recommend(label, topN),
	})
}
