package appointment

import (
	"errors"
	"fmt"
	"time"
)

// DefaultCancelNotice is the minimum lead time for a patient-initiated
// cancellation. The façade can override it from config.
const DefaultCancelNotice = 24 * time.Hour

var (
	ErrForbidden              = errors.New("actor may not perform this transition")
	ErrLateCancellation       = errors.New("cancellation is inside the required notice period")
	ErrInvalidStateTransition = errors.New("invalid appointment status transition")
)

// Confirm moves a pending appointment to confirmed. Only the
// appointment's own therapist may confirm.
func (a *Appointment) Confirm(actor Actor, now time.Time) error {
	if a.Status != StatusPending {
		return transitionError(a.Status, "confirm")
	}
	if actor.Role != RoleTherapist || actor.ID != a.TherapistID {
		return ErrForbidden
	}
	a.Status = StatusConfirmed
	a.UpdatedAt = now
	return nil
}

// Cancel moves a pending or confirmed appointment to cancelled. A
// patient must cancel at least notice before the start; a therapist may
// cancel at any time. Who cancelled and why is recorded.
func (a *Appointment) Cancel(actor Actor, reason string, now time.Time, notice time.Duration) error {
	if a.Status != StatusPending && a.Status != StatusConfirmed {
		return transitionError(a.Status, "cancel")
	}
	switch actor.Role {
	case RolePatient:
		if actor.ID != a.PatientID {
			return ErrForbidden
		}
		if a.StartAt.Sub(now) < notice {
			return ErrLateCancellation
		}
	case RoleTherapist:
		if actor.ID != a.TherapistID {
			return ErrForbidden
		}
	default:
		return ErrForbidden
	}

	cancelledBy := actor.ID
	a.Status = StatusCancelled
	a.CancelledBy = &cancelledBy
	a.CancellationReason = reason
	a.UpdatedAt = now
	return nil
}

// Complete closes out a confirmed appointment that has already started.
func (a *Appointment) Complete(actor Actor, now time.Time) error {
	if a.Status != StatusConfirmed {
		return transitionError(a.Status, "complete")
	}
	if actor.Role != RoleTherapist || actor.ID != a.TherapistID {
		return ErrForbidden
	}
	if a.StartAt.After(now) {
		return fmt.Errorf("%w: cannot complete an appointment before it starts", ErrInvalidStateTransition)
	}
	a.Status = StatusCompleted
	a.UpdatedAt = now
	return nil
}

// Reschedule moves the appointment to a new start without changing its
// status. Either party to the appointment may reschedule; the façade
// validates the new slot against availability before calling this.
func (a *Appointment) Reschedule(actor Actor, newStart time.Time, now time.Time) error {
	if a.Status != StatusPending && a.Status != StatusConfirmed {
		return transitionError(a.Status, "reschedule")
	}
	therapist := actor.Role == RoleTherapist && actor.ID == a.TherapistID
	patient := actor.Role == RolePatient && actor.ID == a.PatientID
	if !therapist && !patient {
		return ErrForbidden
	}
	a.StartAt = newStart
	a.RescheduleCount++
	a.UpdatedAt = now
	return nil
}

func transitionError(from Status, event string) error {
	return fmt.Errorf("%w: cannot %s a %s appointment", ErrInvalidStateTransition, event, from)
}
