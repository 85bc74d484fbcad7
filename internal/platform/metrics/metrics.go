// Package metrics holds the Prometheus collectors shared by the domain
// packages and the HTTP handler that exposes them.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Classification outcomes.
const (
	OutcomeSymptom    = "symptom"
	OutcomeNonSymptom = "non_symptom"
	OutcomeUnknown    = "unknown"
)

var (
	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medbot_classifications_total",
			Help: "Symptom texts classified, by outcome",
		},
		[]string{"outcome"},
	)

	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medbot_recommendations_total",
			Help: "Doctor recommendation lookups, by whether any doctor matched",
		},
		[]string{"result"},
	)

	AppointmentsBooked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medbot_appointments_booked_total",
			Help: "Appointments appended to the ledger",
		},
	)

	StatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medbot_appointment_status_changes_total",
			Help: "Appointment status transitions applied by doctors",
		},
		[]string{"status"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "medbot_chat_sessions_active",
			Help: "Chat sessions currently held in memory",
		},
	)
)

// Handler serves the default registry in the Prometheus text format.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
