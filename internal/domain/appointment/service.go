package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medbot/medbot/internal/platform/auth"
	"github.com/medbot/medbot/internal/platform/metrics"
	"github.com/medbot/medbot/internal/platform/websocket"
)

var ErrForbidden = errors.New("not allowed to view appointments")

// Event types published on every ledger change.
const (
	EventBooked        = "appointment.booked"
	EventStatusChanged = "appointment.status_changed"
)

type Service struct {
	ledger    Ledger
	publisher websocket.EventPublisher
	logger    zerolog.Logger
}

// NewService wraps ledger. publisher may be nil.
func NewService(ledger Ledger, publisher websocket.EventPublisher, logger zerolog.Logger) *Service {
	return &Service{
		ledger:    ledger,
		publisher: publisher,
		logger:    logger.With().Str("component", "appointments").Logger(),
	}
}

// Book records a Pending appointment for patientID.
func (s *Service) Book(ctx context.Context, patientID, doctorName, timeSlot, symptom string) (*Appointment, error) {
	a, err := s.ledger.Book(ctx, patientID, doctorName, timeSlot, symptom)
	if err != nil {
		return nil, err
	}
	metrics.AppointmentsBooked.Inc()
	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("patient_id", a.PatientID).
		Str("doctor", a.DoctorName).
		Str("slot", a.TimeSlot).
		Msg("appointment booked")
	s.publish(ctx, EventBooked, a)
	return a, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	return s.ledger.ListForPatient(ctx, patientID)
}

func (s *Service) ListForDoctor(ctx context.Context, doctorName string) ([]Appointment, error) {
	return s.ledger.ListForDoctor(ctx, doctorName)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Appointment, int, error) {
	return s.ledger.List(ctx, limit, offset)
}

// ListFor returns the appointments id may see: its own bookings for a
// patient, its incoming appointments for a doctor.
func (s *Service) ListFor(ctx context.Context, id auth.Identity) ([]Appointment, error) {
	switch id.Role {
	case auth.RolePatient:
		return s.ListForPatient(ctx, id.UserID)
	case auth.RoleDoctor:
		if id.DoctorName == "" {
			return nil, fmt.Errorf("%w: doctor account %s has no directory entry", ErrForbidden, id.UserID)
		}
		return s.ListForDoctor(ctx, id.DoctorName)
	}
	return nil, ErrForbidden
}

// SetStatus accepts or rejects the index-th appointment of doctorName.
func (s *Service) SetStatus(ctx context.Context, doctorName string, index int, status Status) (*Appointment, error) {
	a, err := s.ledger.SetStatus(ctx, doctorName, index, status)
	if err != nil {
		s.logger.Debug().Err(err).Str("doctor", doctorName).Int("index", index).Msg("status change rejected")
		return nil, err
	}
	metrics.StatusChanges.WithLabelValues(string(a.Status)).Inc()
	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("doctor", doctorName).
		Str("status", string(a.Status)).
		Msg("appointment status changed")
	s.publish(ctx, EventStatusChanged, a)
	return a, nil
}

// publish notifies the patient, the doctor and admins of a change.
func (s *Service) publish(ctx context.Context, eventType string, a *Appointment) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode appointment event")
		return
	}
	topics := []string{
		websocket.PatientTopic(a.PatientID),
		websocket.DoctorTopic(a.DoctorName),
		websocket.AllTopic,
	}
	for _, topic := range topics {
		ev := websocket.Event{
			Type:       eventType,
			Topic:      topic,
			ResourceID: a.ID.String(),
			Timestamp:  a.UpdatedAt,
			Data:       data,
		}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("topic", topic).Msg("failed to publish appointment event")
		}
	}
}
