package appointment

import "context"

// Ledger is the process-wide appointment store. Appointments are never
// deleted; only their status changes.
type Ledger interface {
	Book(ctx context.Context, patientID, doctorName, timeSlot, symptom string) (*Appointment, error)
	ListForPatient(ctx context.Context, patientID string) ([]Appointment, error)
	ListForDoctor(ctx context.Context, doctorName string) ([]Appointment, error)
	List(ctx context.Context, limit, offset int) ([]Appointment, int, error)
	SetStatus(ctx context.Context, doctorName string, index int, status Status) (*Appointment, error)
}
