package waitlist

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusMatched   Status = "matched"
	StatusCancelled Status = "cancelled"
)

var ErrNotActive = errors.New("waiting list entry is not active")

// DayPart is the coarse time-of-day bucket used for preference matching.
type DayPart string

const (
	Morning   DayPart = "morning"
	Afternoon DayPart = "afternoon"
	Evening   DayPart = "evening"
)

// ParseDayPart maps a wire-format day part string to a DayPart.
func ParseDayPart(s string) (DayPart, bool) {
	switch DayPart(s) {
	case Morning, Afternoon, Evening:
		return DayPart(s), true
	}
	return "", false
}

// ClassifyDayPart buckets a slot start (minutes since midnight). The
// boundaries are fixed: before 12:00 is morning, before 16:00 is
// afternoon, from 16:00 on is evening.
func ClassifyDayPart(startMinute int) DayPart {
	switch {
	case startMinute < 12*60:
		return Morning
	case startMinute < 16*60:
		return Afternoon
	default:
		return Evening
	}
}

// Entry is a patient's standing request to be told when a slot with a
// given therapist frees up. An empty preference set means "any".
type Entry struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	TherapistID uuid.UUID
	Weekdays    []time.Weekday
	DayParts    []DayPart
	Notes       string
	Status      Status
	CreatedAt   time.Time
}

// NewEntry creates an active entry.
func NewEntry(patientID, therapistID uuid.UUID, weekdays []time.Weekday, parts []DayPart, notes string, now time.Time) *Entry {
	return &Entry{
		ID:          uuid.New(),
		PatientID:   patientID,
		TherapistID: therapistID,
		Weekdays:    weekdays,
		DayParts:    parts,
		Notes:       notes,
		Status:      StatusActive,
		CreatedAt:   now,
	}
}

// Cancel withdraws an active entry.
func (e *Entry) Cancel() error {
	if e.Status != StatusActive {
		return ErrNotActive
	}
	e.Status = StatusCancelled
	return nil
}

// Match marks an active entry as matched, after the patient accepted a
// freed slot. Only the façade calls this; the matcher itself never does.
func (e *Entry) Match() error {
	if e.Status != StatusActive {
		return ErrNotActive
	}
	e.Status = StatusMatched
	return nil
}

func (e *Entry) hasWeekday(d time.Weekday) bool {
	for _, w := range e.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

func (e *Entry) hasDayPart(p DayPart) bool {
	for _, dp := range e.DayParts {
		if dp == p {
			return true
		}
	}
	return false
}

// wantsWeekday treats an empty preference set as "any weekday".
func (e *Entry) wantsWeekday(d time.Weekday) bool {
	return len(e.Weekdays) == 0 || e.hasWeekday(d)
}

func (e *Entry) wantsDayPart(p DayPart) bool {
	return len(e.DayParts) == 0 || e.hasDayPart(p)
}
