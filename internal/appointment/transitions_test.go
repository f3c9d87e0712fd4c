package appointment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapease/scheduling/internal/schedule"
)

var (
	therapistID = uuid.New()
	patientID   = uuid.New()

	therapist = Actor{ID: therapistID, Role: RoleTherapist}
	patient   = Actor{ID: patientID, Role: RolePatient}
)

func newTestAppointment(status Status, startAt time.Time) *Appointment {
	now := startAt.Add(-72 * time.Hour)
	a := New(therapistID, patientID, startAt, 60, "", "", now)
	a.Status = status
	return a
}

func TestConfirm(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	now := start.Add(-48 * time.Hour)

	t.Run("therapist confirms pending", func(t *testing.T) {
		a := newTestAppointment(StatusPending, start)
		require.NoError(t, a.Confirm(therapist, now))
		assert.Equal(t, StatusConfirmed, a.Status)
	})

	t.Run("patient cannot confirm", func(t *testing.T) {
		a := newTestAppointment(StatusPending, start)
		assert.ErrorIs(t, a.Confirm(patient, now), ErrForbidden)
		assert.Equal(t, StatusPending, a.Status)
	})

	t.Run("another therapist cannot confirm", func(t *testing.T) {
		a := newTestAppointment(StatusPending, start)
		stranger := Actor{ID: uuid.New(), Role: RoleTherapist}
		assert.ErrorIs(t, a.Confirm(stranger, now), ErrForbidden)
	})

	t.Run("confirming a confirmed appointment fails", func(t *testing.T) {
		a := newTestAppointment(StatusConfirmed, start)
		assert.ErrorIs(t, a.Confirm(therapist, now), ErrInvalidStateTransition)
	})
}

func TestCancelNoticeGuard(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("patient cancel 23h59m before start is late", func(t *testing.T) {
		a := newTestAppointment(StatusConfirmed, start)
		now := start.Add(-(23*time.Hour + 59*time.Minute))
		err := a.Cancel(patient, "conflict", now, DefaultCancelNotice)
		assert.ErrorIs(t, err, ErrLateCancellation)
		assert.Equal(t, StatusConfirmed, a.Status)
	})

	t.Run("patient cancel 24h01m before start succeeds", func(t *testing.T) {
		a := newTestAppointment(StatusConfirmed, start)
		now := start.Add(-(24*time.Hour + time.Minute))
		require.NoError(t, a.Cancel(patient, "conflict", now, DefaultCancelNotice))
		assert.Equal(t, StatusCancelled, a.Status)
		require.NotNil(t, a.CancelledBy)
		assert.Equal(t, patientID, *a.CancelledBy)
		assert.Equal(t, "conflict", a.CancellationReason)
	})

	t.Run("therapist cancel has no notice guard", func(t *testing.T) {
		a := newTestAppointment(StatusConfirmed, start)
		now := start.Add(-time.Minute)
		require.NoError(t, a.Cancel(therapist, "emergency", now, DefaultCancelNotice))
		assert.Equal(t, StatusCancelled, a.Status)
		assert.Equal(t, therapistID, *a.CancelledBy)
	})

	t.Run("unrelated patient cannot cancel", func(t *testing.T) {
		a := newTestAppointment(StatusPending, start)
		stranger := Actor{ID: uuid.New(), Role: RolePatient}
		assert.ErrorIs(t, a.Cancel(stranger, "", start.Add(-48*time.Hour), DefaultCancelNotice), ErrForbidden)
	})
}

func TestComplete(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("therapist completes a started appointment", func(t *testing.T) {
		a := newTestAppointment(StatusConfirmed, start)
		require.NoError(t, a.Complete(therapist, start.Add(time.Hour)))
		assert.Equal(t, StatusCompleted, a.Status)
	})

	t.Run("cannot complete before start", func(t *testing.T) {
		a := newTestAppointment(StatusConfirmed, start)
		err := a.Complete(therapist, start.Add(-time.Hour))
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, StatusConfirmed, a.Status)
	})

	t.Run("cannot complete a pending appointment", func(t *testing.T) {
		a := newTestAppointment(StatusPending, start)
		assert.ErrorIs(t, a.Complete(therapist, start.Add(time.Hour)), ErrInvalidStateTransition)
	})

	t.Run("patient cannot complete", func(t *testing.T) {
		a := newTestAppointment(StatusConfirmed, start)
		assert.ErrorIs(t, a.Complete(patient, start.Add(time.Hour)), ErrForbidden)
	})
}

func TestReschedule(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	newStart := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	now := start.Add(-48 * time.Hour)

	t.Run("keeps status and counts reschedules", func(t *testing.T) {
		for _, status := range []Status{StatusPending, StatusConfirmed} {
			a := newTestAppointment(status, start)
			require.NoError(t, a.Reschedule(patient, newStart, now))
			assert.Equal(t, status, a.Status, "reschedule must not change status")
			assert.Equal(t, newStart, a.StartAt)
			assert.Equal(t, 1, a.RescheduleCount)

			require.NoError(t, a.Reschedule(therapist, start, now))
			assert.Equal(t, 2, a.RescheduleCount)
		}
	})

	t.Run("stranger cannot reschedule", func(t *testing.T) {
		a := newTestAppointment(StatusPending, start)
		stranger := Actor{ID: uuid.New(), Role: RolePatient}
		assert.ErrorIs(t, a.Reschedule(stranger, newStart, now), ErrForbidden)
	})
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	now := start.Add(2 * time.Hour)

	for _, status := range []Status{StatusCompleted, StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			a := newTestAppointment(status, start)
			before := *a

			assert.ErrorIs(t, a.Confirm(therapist, now), ErrInvalidStateTransition)
			assert.ErrorIs(t, a.Cancel(therapist, "", now, DefaultCancelNotice), ErrInvalidStateTransition)
			assert.ErrorIs(t, a.Cancel(patient, "", now, DefaultCancelNotice), ErrInvalidStateTransition)
			assert.ErrorIs(t, a.Complete(therapist, now), ErrInvalidStateTransition)
			assert.ErrorIs(t, a.Reschedule(patient, now.Add(48*time.Hour), now), ErrInvalidStateTransition)

			assert.Equal(t, before, *a, "failed transitions must leave the appointment unchanged")
		})
	}
}

func TestWindowAndBusyWindows(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	a := New(therapistID, patientID, start, 60, "", "", start.Add(-time.Hour))
	assert.Equal(t, schedule.TimeWindow{Start: 540, End: 600}, a.Window())

	cancelled := New(therapistID, patientID, start.Add(time.Hour), 60, "", "", start)
	cancelled.Status = StatusCancelled
	otherDay := New(therapistID, patientID, start.AddDate(0, 0, 1), 60, "", "", start)

	busy := BusyWindows([]Appointment{*a, *cancelled, *otherDay}, start)
	assert.Equal(t, []schedule.TimeWindow{{Start: 540, End: 600}}, busy,
		"cancelled and other-day appointments are not busy")
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("confirmed")
	require.True(t, ok)
	assert.Equal(t, StatusConfirmed, s)

	_, ok = ParseStatus("rescheduled")
	assert.False(t, ok, "rescheduled is an event, not a status")
}
