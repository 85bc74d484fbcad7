package appointment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrOutOfRangeSelection     = errors.New("selection out of range")
	ErrInvalidStatus           = errors.New("status must be Accepted or Rejected")
	ErrInvalidStatusTransition = errors.New("appointment status is final")
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusAccepted Status = "Accepted"
	StatusRejected Status = "Rejected"
)

// ParseStatus accepts a status name in any letter case.
func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{StatusPending, StatusAccepted, StatusRejected} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Appointment is one booking. Symptom is empty when the booking was made
// without a classified symptom.
type Appointment struct {
	ID         uuid.UUID `json:"id"`
	PatientID  string    `json:"patient_id"`
	DoctorName string    `json:"doctor_name"`
	TimeSlot   string    `json:"time_slot"`
	Symptom    string    `json:"symptom,omitempty"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
