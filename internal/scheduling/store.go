package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/therapease/scheduling/internal/appointment"
	"github.com/therapease/scheduling/internal/schedule"
	"github.com/therapease/scheduling/internal/waitlist"
)

var (
	ErrAvailabilityNotFound = errors.New("availability not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrEntryNotFound        = errors.New("waiting list entry not found")
)

// Store is the persistence contract the engine depends on. The engine
// itself performs no I/O beyond these calls and holds no state between
// them; transaction and locking semantics belong to implementations.
type Store interface {
	LoadAvailability(ctx context.Context, therapistID uuid.UUID) (schedule.WeeklyAvailability, error)
	// SaveAvailability replaces the therapist's whole weekly schedule
	// atomically: either every day commits or none do.
	SaveAvailability(ctx context.Context, therapistID uuid.UUID, weekly schedule.WeeklyAvailability) error

	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	// LoadAppointments returns the therapist's appointments with
	// from <= start_at < to, any status.
	LoadAppointments(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]appointment.Appointment, error)
	SaveAppointment(ctx context.Context, appt *appointment.Appointment) error
	// ListCancelledSince feeds the waitlist worker's catch-up sweep.
	ListCancelledSince(ctx context.Context, since time.Time) ([]appointment.Appointment, error)

	LoadWaitingList(ctx context.Context, therapistID uuid.UUID) ([]waitlist.Entry, error)
	GetWaitingListEntry(ctx context.Context, id uuid.UUID) (*waitlist.Entry, error)
	SaveWaitingListEntry(ctx context.Context, entry *waitlist.Entry) error

	InsertEvent(ctx context.Context, ev EventLog) error
}

// EventLog is an audit record of a scheduling state change.
type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
