package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbot/medbot/internal/dataset"
	"github.com/medbot/medbot/internal/domain/appointment"
	"github.com/medbot/medbot/internal/domain/directory"
)

const patientID = "patient_user"

func newTestService(t *testing.T) (*Service, *appointment.MemoryLedger) {
	t.Helper()
	dir, err := directory.New(
		[]dataset.DoctorRecord{
			{Name: "Dr. A", Specialty: "General Physician", Rating: 4.8, Slots: dataset.SlotList{"10:00", "11:00"}},
			{Name: "Dr. B", Specialty: "General Physician", Rating: 4.5, Slots: dataset.SlotList{"14:00"}},
		},
		map[string]dataset.SpecialtyList{
			"fever":   {"General Physician"},
			"allergy": {"Dermatologist"},
		},
	)
	if err != nil {
		t.Fatalf("build directory: %v", err)
	}
	ledger := appointment.NewMemoryLedger()
	svc := NewService(newTestMachine(), NewStore(DefaultIdleTTL), dir, ledger, 3, zerolog.Nop())
	return svc, ledger
}

func intPtr(i int) *int { return &i }

// completeFever runs a full fever intake on a new session.
func completeFever(t *testing.T, svc *Service) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	v, err := svc.StartSession(ctx, patientID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	for _, msg := range []string{"i have a fever", "two days", "no"} {
		if _, err := svc.SubmitMessage(ctx, v.SessionID, patientID, msg); err != nil {
			t.Fatalf("submit %q: %v", msg, err)
		}
	}
	return v.SessionID
}

func TestService_StartAndGetSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	v, err := svc.StartSession(ctx, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.State.Phase != PhaseIdle || v.Recommendations != nil {
		t.Errorf("unexpected new session view %+v", v)
	}

	got, err := svc.GetSession(ctx, v.SessionID, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SessionID != v.SessionID {
		t.Errorf("expected session %s, got %s", v.SessionID, got.SessionID)
	}

	if _, err := svc.GetSession(ctx, v.SessionID, "someone_else"); !errors.Is(err, ErrSessionForbidden) {
		t.Errorf("expected ErrSessionForbidden, got %v", err)
	}
	if _, err := svc.GetSession(ctx, uuid.New(), patientID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.StartSession(ctx, " "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty patient, got %v", err)
	}
}

func TestService_SubmitMessageRoutesAnswers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	v, _ := svc.StartSession(ctx, patientID)

	v, err := svc.SubmitMessage(ctx, v.SessionID, patientID, "i have a fever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.PendingQuestion != feverQ1 {
		t.Errorf("expected pending %q, got %q", feverQ1, v.PendingQuestion)
	}
	if len(v.Reply) != 3 {
		t.Errorf("expected 3 reply turns, got %d", len(v.Reply))
	}

	// "fever" would classify as a symptom, but a question is pending so it
	// is recorded as the answer.
	v, err = svc.SubmitMessage(ctx, v.SessionID, patientID, "fever since monday")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.State.FollowUpAnswers[feverQ1] != "fever since monday" {
		t.Errorf("expected message recorded as answer, got %v", v.State.FollowUpAnswers)
	}
}

func TestService_Recommendations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := completeFever(t, svc)

	v, err := svc.GetSession(ctx, id, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Recommendations == nil || len(v.Recommendations.Doctors) != 2 {
		t.Fatalf("expected two recommended doctors, got %+v", v.Recommendations)
	}
	if v.Recommendations.Doctors[0].Name != "Dr. A" {
		t.Errorf("expected highest rating first, got %s", v.Recommendations.Doctors[0].Name)
	}

	v, _ = svc.SubmitSymptomText(ctx, id, patientID, "allergy")
	if v.Recommendations == nil || len(v.Recommendations.Doctors) != 0 {
		t.Fatalf("expected empty recommendations, got %+v", v.Recommendations)
	}
	if v.Recommendations.Message != msgNoDoctors {
		t.Errorf("expected %q, got %q", msgNoDoctors, v.Recommendations.Message)
	}
}

func TestService_Book(t *testing.T) {
	svc, ledger := newTestService(t)
	ctx := context.Background()
	id := completeFever(t, svc)

	a, err := svc.Book(ctx, id, patientID, BookingRequest{DoctorIndex: 1, Slot: "14:00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.DoctorName != "Dr. B" || a.TimeSlot != "14:00" || a.Symptom != "fever" || a.Status != appointment.StatusPending {
		t.Errorf("unexpected appointment %+v", a)
	}

	a, err = svc.Book(ctx, id, patientID, BookingRequest{DoctorIndex: 0, SlotIndex: intPtr(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.TimeSlot != "11:00" {
		t.Errorf("expected slot by index 11:00, got %s", a.TimeSlot)
	}

	mine, _ := ledger.ListForPatient(ctx, patientID)
	if len(mine) != 2 {
		t.Errorf("expected 2 appointments, got %d", len(mine))
	}
}

func TestService_Book_Rejected(t *testing.T) {
	tests := []struct {
		name string
		req  BookingRequest
		want error
	}{
		{"doctor index past end", BookingRequest{DoctorIndex: 2, Slot: "10:00"}, appointment.ErrOutOfRangeSelection},
		{"negative doctor index", BookingRequest{DoctorIndex: -1, Slot: "10:00"}, appointment.ErrOutOfRangeSelection},
		{"slot of another doctor", BookingRequest{DoctorIndex: 0, Slot: "14:00"}, appointment.ErrOutOfRangeSelection},
		{"slot index past end", BookingRequest{DoctorIndex: 1, SlotIndex: intPtr(1)}, appointment.ErrOutOfRangeSelection},
		{"empty slot", BookingRequest{DoctorIndex: 0}, appointment.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, ledger := newTestService(t)
			ctx := context.Background()
			id := completeFever(t, svc)

			if _, err := svc.Book(ctx, id, patientID, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if _, total, _ := ledger.List(ctx, 0, 0); total != 0 {
				t.Errorf("expected no ledger mutation, got %d appointments", total)
			}
		})
	}
}

func TestService_Book_NoSymptomYet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	v, _ := svc.StartSession(ctx, patientID)
	_, err := svc.Book(ctx, v.SessionID, patientID, BookingRequest{DoctorIndex: 0, Slot: "10:00"})
	if !errors.Is(err, appointment.ErrOutOfRangeSelection) {
		t.Errorf("expected ErrOutOfRangeSelection, got %v", err)
	}
}

func TestService_ClearKeepsAppointments(t *testing.T) {
	svc, ledger := newTestService(t)
	ctx := context.Background()
	id := completeFever(t, svc)
	if _, err := svc.Book(ctx, id, patientID, BookingRequest{DoctorIndex: 0, Slot: "10:00"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := svc.Clear(ctx, id, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.State.ChatHistory) != 0 || len(v.State.SymptomsCollected) != 0 || v.Recommendations != nil {
		t.Errorf("expected cleared state, got %+v", v.State)
	}
	if mine, _ := ledger.ListForPatient(ctx, patientID); len(mine) != 1 {
		t.Errorf("expected appointment to survive clear, got %d", len(mine))
	}
}

func TestService_EndSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	v, _ := svc.StartSession(ctx, patientID)

	if err := svc.EndSession(ctx, v.SessionID, "intruder"); !errors.Is(err, ErrSessionForbidden) {
		t.Errorf("expected ErrSessionForbidden, got %v", err)
	}
	if err := svc.EndSession(ctx, v.SessionID, patientID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetSession(ctx, v.SessionID, patientID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after end, got %v", err)
	}
}
