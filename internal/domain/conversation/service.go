package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbot/medbot/internal/domain/appointment"
	"github.com/medbot/medbot/internal/domain/directory"
	"github.com/medbot/medbot/internal/domain/triage"
)

type Recommender interface {
	Recommend(symptom triage.Label, topN int) []directory.Doctor
}

type Booker interface {
	Book(ctx context.Context, patientID, doctorName, timeSlot, symptom string) (*appointment.Appointment, error)
}

// BookingRequest picks a doctor from the current recommendations and one of
// that doctor's slots, by value or by index. Indexes are 0-based.
type BookingRequest struct {
	DoctorIndex int    `json:"doctor_index"`
	Slot        string `json:"slot,omitempty"`
	SlotIndex   *int   `json:"slot_index,omitempty"`
}

type Service struct {
	machine     *Machine
	store       *Store
	recommender Recommender
	booker      Booker
	topN        int
	logger      zerolog.Logger
}

func NewService(machine *Machine, store *Store, recommender Recommender, booker Booker, topN int, logger zerolog.Logger) *Service {
	return &Service{
		machine:     machine,
		store:       store,
		recommender: recommender,
		booker:      booker,
		topN:        topN,
		logger:      logger.With().Str("component", "conversation").Logger(),
	}
}

func (s *Service) StartSession(_ context.Context, patientID string) (*View, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, fmt.Errorf("%w: patient id", ErrInvalidInput)
	}
	sess := s.store.Create(patientID)
	s.logger.Debug().Str("session_id", sess.ID.String()).Str("patient_id", patientID).Msg("chat session started")

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.view(sess, 0), nil
}

func (s *Service) GetSession(_ context.Context, id uuid.UUID, patientID string) (*View, error) {
	sess, err := s.store.Get(id, patientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.view(sess, len(sess.state.ChatHistory)), nil
}

func (s *Service) EndSession(_ context.Context, id uuid.UUID, patientID string) error {
	return s.store.Delete(id, patientID)
}

// SubmitMessage routes text to the pending follow-up question when there is
// one, otherwise treats it as a new symptom description.
func (s *Service) SubmitMessage(ctx context.Context, id uuid.UUID, patientID, text string) (*View, error) {
	return s.apply(id, patientID, func(st *State) error {
		if st.AwaitingFollowUp {
			return s.machine.SubmitFollowUpAnswer(st, text)
		}
		return s.submitSymptom(st, id, text)
	})
}

func (s *Service) SubmitSymptomText(ctx context.Context, id uuid.UUID, patientID, text string) (*View, error) {
	return s.apply(id, patientID, func(st *State) error {
		return s.submitSymptom(st, id, text)
	})
}

func (s *Service) SubmitFollowUpAnswer(ctx context.Context, id uuid.UUID, patientID, answer string) (*View, error) {
	return s.apply(id, patientID, func(st *State) error {
		return s.machine.SubmitFollowUpAnswer(st, answer)
	})
}

// Clear resets the conversation. Booked appointments are unaffected.
func (s *Service) Clear(ctx context.Context, id uuid.UUID, patientID string) (*View, error) {
	return s.apply(id, patientID, func(st *State) error {
		s.machine.Clear(st)
		return nil
	})
}

// Book books one of the doctors recommended for the latest symptom.
func (s *Service) Book(ctx context.Context, id uuid.UUID, patientID string, req BookingRequest) (*appointment.Appointment, error) {
	sess, err := s.store.Get(id, patientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	symptom, ok := sess.state.LatestSymptom()
	if !ok {
		return nil, fmt.Errorf("%w: no symptom collected yet", appointment.ErrOutOfRangeSelection)
	}
	doctors := s.recommender.Recommend(symptom, s.topN)
	if req.DoctorIndex < 0 || req.DoctorIndex >= len(doctors) {
		return nil, fmt.Errorf("%w: doctor %d of %d", appointment.ErrOutOfRangeSelection, req.DoctorIndex, len(doctors))
	}
	doc := doctors[req.DoctorIndex]

	slot, err := pickSlot(doc, req)
	if err != nil {
		return nil, err
	}
	a, err := s.booker.Book(ctx, patientID, doc.Name, slot, string(symptom))
	if err != nil {
		return nil, err
	}
	sess.UpdatedAt = s.store.now()
	return a, nil
}

func pickSlot(doc directory.Doctor, req BookingRequest) (string, error) {
	if req.SlotIndex != nil {
		i := *req.SlotIndex
		if i < 0 || i >= len(doc.Slots) {
			return "", fmt.Errorf("%w: slot %d of %d", appointment.ErrOutOfRangeSelection, i, len(doc.Slots))
		}
		return doc.Slots[i], nil
	}
	slot := strings.TrimSpace(req.Slot)
	if slot == "" {
		return "", fmt.Errorf("%w: time slot is required", appointment.ErrInvalidInput)
	}
	if !doc.HasSlot(slot) {
		return "", fmt.Errorf("%w: %s has no slot %s", appointment.ErrOutOfRangeSelection, doc.Name, slot)
	}
	return slot, nil
}

func (s *Service) submitSymptom(st *State, id uuid.UUID, text string) error {
	out, err := s.machine.SubmitSymptomText(st, text)
	if err != nil {
		return err
	}
	if !out.IsSymptom {
		s.logger.Info().
			Str("session_id", id.String()).
			Str("label", string(out.Label)).
			Msg("symptom not recognized")
	}
	return nil
}

// apply runs fn on the session state under the session lock and returns a
// view whose Reply holds the turns fn appended.
func (s *Service) apply(id uuid.UUID, patientID string, fn func(*State) error) (*View, error) {
	sess, err := s.store.Get(id, patientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	before := len(sess.state.ChatHistory)
	if err := fn(&sess.state); err != nil {
		return nil, err
	}
	if len(sess.state.ChatHistory) < before {
		before = 0
	}
	sess.UpdatedAt = s.store.now()
	return s.view(sess, before), nil
}

// view snapshots sess. Callers hold sess.mu.
func (s *Service) view(sess *Session, replyFrom int) *View {
	st := sess.state.Clone()
	v := &View{
		SessionID: sess.ID,
		PatientID: sess.PatientID,
		State:     st,
		Reply:     st.ChatHistory[replyFrom:],
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}
	if q, ok := st.PendingQuestion(); ok {
		v.PendingQuestion = q
	}
	if symptom, ok := st.LatestSymptom(); ok {
		rec := &Recommendations{Symptom: symptom, Doctors: s.recommender.Recommend(symptom, s.topN)}
		if len(rec.Doctors) == 0 {
			rec.Message = msgNoDoctors
		}
		v.Recommendations = rec
	}
	return v
}
