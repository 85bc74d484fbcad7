package main

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medbot/medbot/internal/config"
	"github.com/medbot/medbot/internal/dataset"
	"github.com/medbot/medbot/internal/domain/appointment"
	"github.com/medbot/medbot/internal/domain/conversation"
	"github.com/medbot/medbot/internal/domain/directory"
	"github.com/medbot/medbot/internal/domain/triage"
	"github.com/medbot/medbot/internal/platform/auth"
	"github.com/medbot/medbot/internal/platform/metrics"
	"github.com/medbot/medbot/internal/platform/middleware"
	"github.com/medbot/medbot/internal/platform/websocket"
)

const version = "0.1.0"

// app holds the process-wide components shared by the server and the CLI.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	dataset      *dataset.Dataset
	directory    *directory.Directory
	appointments *appointment.Service
	chat         *conversation.Service
	accounts     *auth.Accounts
	issuer       *auth.TokenIssuer
	events       *websocket.Hub
}

func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	ds, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	classifier, err := triage.NewTFIDFClassifier(ds.Intents, cfg.ClassifierMinScore)
	if err != nil {
		return nil, fmt.Errorf("train classifier: %w", err)
	}
	dir, err := directory.FromDataset(ds)
	if err != nil {
		return nil, fmt.Errorf("build directory: %w", err)
	}
	logger.Info().
		Int("intents", len(ds.Intents)).
		Int("symptoms", len(ds.Symptoms)).
		Int("doctors", len(ds.Doctors)).
		Msg("dataset loaded")

	events := websocket.NewHub(logger)
	appts := appointment.NewService(appointment.NewMemoryLedger(), events, logger)
	machine := conversation.NewMachine(classifier, ds)
	chat := conversation.NewService(machine, conversation.NewStore(cfg.SessionIdleTTL), dir, appts, cfg.RecommendTopN, logger)

	return &app{
		cfg:          cfg,
		logger:       logger,
		dataset:      ds,
		directory:    dir,
		appointments: appts,
		chat:         chat,
		accounts:     auth.NewAccounts(ds.Users),
		issuer:       auth.NewTokenIssuer([]byte(cfg.JWTSigningKey), cfg.TokenTTL),
		events:       events,
	}, nil
}

// devIdentity is the identity assumed by unauthenticated requests in
// development: the first patient account, or a placeholder patient.
func (a *app) devIdentity() auth.Identity {
	for _, u := range a.dataset.Users {
		if auth.Role(u.Role) == auth.RolePatient {
			return auth.Identity{UserID: u.Username, Role: auth.RolePatient}
		}
	}
	return auth.Identity{UserID: "dev-patient", Role: auth.RolePatient}
}

func (a *app) server() *echo.Echo {
	cfg, logger := a.cfg, a.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(a.issuer, a.devIdentity()))
	} else {
		e.Use(auth.JWTMiddleware(a.issuer, auth.SkipPublic))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/metrics", metrics.Handler())

	apiV1 := e.Group("/api/v1")

	loginLimit := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.LoginRateLimit,
		BurstSize:         cfg.LoginBurst,
	})
	auth.NewHandler(a.accounts, a.issuer, logger).RegisterRoutes(apiV1, loginLimit)
	directory.NewHandler(a.directory, cfg.RecommendTopN).RegisterRoutes(apiV1)
	conversation.NewHandler(a.chat).RegisterRoutes(apiV1)
	appointment.NewHandler(a.appointments).RegisterRoutes(apiV1)
	websocket.NewHandler(a.events, cfg.CORSOrigins).RegisterRoutes(apiV1)

	return e
}
