package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type Handler struct {
	accounts *Accounts
	issuer   *TokenIssuer
	logger   zerolog.Logger
}

func NewHandler(accounts *Accounts, issuer *TokenIssuer, logger zerolog.Logger) *Handler {
	return &Handler{accounts: accounts, issuer: issuer, logger: logger}
}

// RegisterRoutes mounts login and /me. loginMW wraps only the login route.
func (h *Handler) RegisterRoutes(api *echo.Group, loginMW ...echo.MiddlewareFunc) {
	api.POST("/auth/login", h.Login, loginMW...)
	api.GET("/me", h.Me)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Identity  Identity  `json:"identity"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	if req.Role != "" && !req.Role.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "role must be Patient, Doctor or Admin")
	}

	id, err := h.accounts.Authenticate(req.Username, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.logger.Info().Str("username", req.Username).Msg("login rejected")
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	token, exp, err := h.issuer.Issue(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: exp, Identity: id})
}

// Me handles GET /me.
func (h *Handler) Me(c echo.Context) error {
	id, ok := IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return c.JSON(http.StatusOK, id)
}
