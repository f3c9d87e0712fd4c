package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/therapease/scheduling/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status permits no further transition.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus maps a wire-format status string to a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

type Role string

const (
	RoleTherapist Role = "therapist"
	RolePatient   Role = "patient"
)

// Actor is the user attempting a lifecycle transition. The guards check
// both the role and that the ID matches the appointment's own therapist
// or patient.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Appointment is a single booked session. It is never deleted; terminal
// statuses keep it around as history.
type Appointment struct {
	ID                 uuid.UUID
	TherapistID        uuid.UUID
	PatientID          uuid.UUID
	StartAt            time.Time
	DurationMinutes    int
	Status             Status
	Notes              string
	VideoLink          string
	RescheduleCount    int
	CancelledBy        *uuid.UUID
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// New creates a Pending appointment. Slot validity against the
// therapist's availability is the caller's concern; the scheduling
// façade checks it under the schedule lock before persisting.
func New(therapistID, patientID uuid.UUID, startAt time.Time, durationMinutes int, notes, videoLink string, now time.Time) *Appointment {
	return &Appointment{
		ID:              uuid.New(),
		TherapistID:     therapistID,
		PatientID:       patientID,
		StartAt:         startAt,
		DurationMinutes: durationMinutes,
		Status:          StatusPending,
		Notes:           notes,
		VideoLink:       videoLink,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Window is the appointment's time-of-day footprint, in the timezone of
// StartAt. Durations are whole minutes so this stays integral.
func (a *Appointment) Window() schedule.TimeWindow {
	start := a.StartAt.Hour()*60 + a.StartAt.Minute()
	return schedule.TimeWindow{Start: start, End: start + a.DurationMinutes}
}

// OnDate reports whether the appointment falls on date's calendar day.
func (a *Appointment) OnDate(date time.Time) bool {
	y1, m1, d1 := a.StartAt.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// BusyWindows collects the occupied time-of-day intervals on date.
// Cancelled appointments have released their slot and are skipped, so
// the slot generator sees them as free again.
func BusyWindows(appts []Appointment, date time.Time) []schedule.TimeWindow {
	var busy []schedule.TimeWindow
	for i := range appts {
		a := &appts[i]
		if a.Status == StatusCancelled || !a.OnDate(date) {
			continue
		}
		busy = append(busy, a.Window())
	}
	return busy
}
