package appointment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is an in-memory Ledger. Every operation holds mu; reads
// return copies so callers never share state with the ledger.
type MemoryLedger struct {
	mu           sync.RWMutex
	appointments []*Appointment
	now          func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{now: time.Now}
}

// Book appends a Pending appointment. Duplicate bookings are allowed.
func (l *MemoryLedger) Book(_ context.Context, patientID, doctorName, timeSlot, symptom string) (*Appointment, error) {
	patientID = strings.TrimSpace(patientID)
	doctorName = strings.TrimSpace(doctorName)
	timeSlot = strings.TrimSpace(timeSlot)
	switch {
	case patientID == "":
		return nil, fmt.Errorf("%w: patient_id is required", ErrInvalidInput)
	case doctorName == "":
		return nil, fmt.Errorf("%w: doctor_name is required", ErrInvalidInput)
	case timeSlot == "":
		return nil, fmt.Errorf("%w: time_slot is required", ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	a := &Appointment{
		ID:         uuid.New(),
		PatientID:  patientID,
		DoctorName: doctorName,
		TimeSlot:   timeSlot,
		Symptom:    strings.TrimSpace(symptom),
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	l.appointments = append(l.appointments, a)
	out := *a
	return &out, nil
}

func (l *MemoryLedger) ListForPatient(_ context.Context, patientID string) ([]Appointment, error) {
	return l.filter(func(a *Appointment) bool { return a.PatientID == patientID }), nil
}

func (l *MemoryLedger) ListForDoctor(_ context.Context, doctorName string) ([]Appointment, error) {
	return l.filter(func(a *Appointment) bool { return a.DoctorName == doctorName }), nil
}

// List returns one page of all appointments in booking order and the total.
func (l *MemoryLedger) List(_ context.Context, limit, offset int) ([]Appointment, int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := len(l.appointments)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	out := make([]Appointment, 0, end-offset)
	for _, a := range l.appointments[offset:end] {
		out = append(out, *a)
	}
	return out, total, nil
}

// SetStatus moves the index-th appointment of doctorName (in booking order)
// from Pending to status.
func (l *MemoryLedger) SetStatus(_ context.Context, doctorName string, index int, status Status) (*Appointment, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidStatus, status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var target *Appointment
	n := 0
	for _, a := range l.appointments {
		if a.DoctorName != doctorName {
			continue
		}
		if n == index {
			target = a
			break
		}
		n++
	}
	if index < 0 || target == nil {
		return nil, fmt.Errorf("%w: appointment %d for %s", ErrOutOfRangeSelection, index, doctorName)
	}
	if target.Status.Terminal() {
		return nil, fmt.Errorf("%w: already %s", ErrInvalidStatusTransition, target.Status)
	}

	target.Status = status
	target.UpdatedAt = l.now()
	out := *target
	return &out, nil
}

func (l *MemoryLedger) filter(keep func(*Appointment) bool) []Appointment {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []Appointment{}
	for _, a := range l.appointments {
		if keep(a) {
			out = append(out, *a)
		}
	}
	return out
}
