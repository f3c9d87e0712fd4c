package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/therapease/scheduling/internal/appointment"
	"github.com/therapease/scheduling/internal/notify"
	redisclient "github.com/therapease/scheduling/internal/redis"
	"github.com/therapease/scheduling/internal/schedule"
	"github.com/therapease/scheduling/internal/waitlist"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventWaitlistSlotFreed      = "WAITLIST_SLOT_FREED"
	EventWaitlistMatched        = "WAITLIST_MATCHED"
)

var (
	ErrSlotUnavailable = errors.New("requested slot is not available")
	ErrScheduleBusy    = errors.New("schedule is being modified, please retry")
)

// Service is the scheduling façade: it composes the availability model,
// slot generator, booking state machine and waitlist matcher behind the
// operations a caller needs, and owns nothing but the wiring — all
// state lives behind the Store.
type Service struct {
	store        Store
	locker       redisclient.Locker
	notifier     notify.Notifier
	logger       *zap.Logger
	cancelNotice time.Duration
	now          func() time.Time
}

func NewService(store Store, locker redisclient.Locker, notifier notify.Notifier, logger *zap.Logger, cancelNotice time.Duration) *Service {
	if cancelNotice <= 0 {
		cancelNotice = appointment.DefaultCancelNotice
	}
	return &Service{
		store:        store,
		locker:       locker,
		notifier:     notifier,
		logger:       logger,
		cancelNotice: cancelNotice,
		now:          time.Now,
	}
}

// SetAvailability validates and commits a therapist's whole weekly
// schedule. The commit is all-or-nothing: a single invalid day rejects
// the update and the previous schedule stays observable.
func (s *Service) SetAvailability(ctx context.Context, therapistID uuid.UUID, weekly schedule.WeeklyAvailability) (schedule.WeeklyAvailability, error) {
	norm := weekly.Normalized()
	if err := norm.Validate(); err != nil {
		return schedule.WeeklyAvailability{}, err
	}
	if err := s.store.SaveAvailability(ctx, therapistID, norm); err != nil {
		return schedule.WeeklyAvailability{}, fmt.Errorf("save availability: %w", err)
	}
	return norm, nil
}

// GetAvailability returns a read-only snapshot of the weekly schedule.
func (s *Service) GetAvailability(ctx context.Context, therapistID uuid.UUID) (schedule.WeeklyAvailability, error) {
	weekly, err := s.store.LoadAvailability(ctx, therapistID)
	if err != nil {
		return schedule.WeeklyAvailability{}, fmt.Errorf("load availability: %w", err)
	}
	return weekly, nil
}

// GetBookableSlots lists the open slots for a therapist on date:
// availability windows cut into session-length slots, minus everything
// a live (non-cancelled) appointment occupies.
func (s *Service) GetBookableSlots(ctx context.Context, therapistID uuid.UUID, date time.Time) ([]schedule.TimeWindow, error) {
	weekly, err := s.store.LoadAvailability(ctx, therapistID)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	return s.slotsForDay(ctx, weekly, therapistID, date, uuid.Nil)
}

// slotsForDay regenerates the day's slots from current occupancy.
// excludeID drops one appointment from the busy set, so a reschedule
// does not collide with the slot it is vacating.
func (s *Service) slotsForDay(ctx context.Context, weekly schedule.WeeklyAvailability, therapistID uuid.UUID, date time.Time, excludeID uuid.UUID) ([]schedule.TimeWindow, error) {
	dayStart := startOfDay(date)
	appts, err := s.store.LoadAppointments(ctx, therapistID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	if excludeID != uuid.Nil {
		kept := appts[:0]
		for _, a := range appts {
			if a.ID != excludeID {
				kept = append(kept, a)
			}
		}
		appts = kept
	}
	busy := appointment.BusyWindows(appts, date)
	return schedule.GenerateSlots(weekly, date, busy, weekly.SessionMinutes), nil
}

type BookRequest struct {
	TherapistID uuid.UUID
	PatientID   uuid.UUID
	StartAt     time.Time
	Notes       string
}

// Book reserves a slot for a patient. The slot check and the insert run
// under the per-(therapist, date) schedule lock, so two requests racing
// for the same slot cannot both succeed.
func (s *Service) Book(ctx context.Context, req BookRequest) (*appointment.Appointment, error) {
	weekly, err := s.store.LoadAvailability(ctx, req.TherapistID)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}

	var created *appointment.Appointment
	err = s.locker.WithScheduleLock(ctx, req.TherapistID, req.StartAt, func(lockCtx context.Context) error {
		slots, err := s.slotsForDay(lockCtx, weekly, req.TherapistID, req.StartAt, uuid.Nil)
		if err != nil {
			return err
		}
		want := windowAt(req.StartAt, weekly.SessionMinutes)
		if !containsSlot(slots, want) {
			return ErrSlotUnavailable
		}

		appt := appointment.New(req.TherapistID, req.PatientID, req.StartAt, weekly.SessionMinutes, req.Notes, weekly.VideoLink, s.now())
		if err := s.store.SaveAppointment(lockCtx, appt); err != nil {
			return fmt.Errorf("save appointment: %w", err)
		}
		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"therapist_id": req.TherapistID.String(),
			"patient_id":   req.PatientID.String(),
			"start_at":     req.StartAt,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	s.notifyUser(ctx, created.TherapistID, EventAppointmentBooked, created, nil)
	return created, nil
}

// Confirm moves a pending appointment to confirmed; the therapist's
// side of the handshake.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actor appointment.Actor) (*appointment.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if err := appt.Confirm(actor, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.SaveAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("save appointment: %w", err)
	}
	s.logEvent(ctx, appt.ID, EventAppointmentConfirmed, nil)
	s.notifyUser(ctx, appt.PatientID, EventAppointmentConfirmed, appt, nil)
	return appt, nil
}

// CancelResult carries the cancelled appointment plus the waiting-list
// candidates for its freed slot, best candidate first. Matched entries
// stay Active until a patient accepts through AcceptMatch.
type CancelResult struct {
	Appointment *appointment.Appointment
	Matches     []waitlist.Entry
}

// Cancel runs the cancel transition and, on success, matches the freed
// slot against the therapist's waiting list and notifies candidates.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor appointment.Actor, reason string) (*CancelResult, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if err := appt.Cancel(actor, reason, s.now(), s.cancelNotice); err != nil {
		return nil, err
	}
	if err := s.store.SaveAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("save appointment: %w", err)
	}
	s.logEvent(ctx, appt.ID, EventAppointmentCancelled, map[string]any{
		"cancelled_by": actor.ID.String(),
		"reason":       reason,
	})

	other := appt.PatientID
	if actor.Role == appointment.RolePatient {
		other = appt.TherapistID
	}
	s.notifyUser(ctx, other, EventAppointmentCancelled, appt, map[string]any{"reason": reason})

	// the cancellation is already committed; a matcher failure only
	// costs notifications, which the waitlist worker will retry
	matches, err := s.matchFreedSlot(ctx, appt)
	if err != nil {
		s.logger.Warn("waitlist match after cancellation failed",
			zap.String("appointment_id", appt.ID.String()), zap.Error(err))
	}

	return &CancelResult{Appointment: appt, Matches: matches}, nil
}

// Complete closes out a confirmed appointment that has started.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actor appointment.Actor) (*appointment.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if err := appt.Complete(actor, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.SaveAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("save appointment: %w", err)
	}
	s.logEvent(ctx, appt.ID, EventAppointmentCompleted, nil)
	s.notifyUser(ctx, appt.PatientID, EventAppointmentCompleted, appt, nil)
	return appt, nil
}

// Reschedule moves an appointment to a new start. The slot check for
// the new date runs under that date's schedule lock; the appointment's
// own current slot is excluded from the busy set so moving within a day
// works.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, actor appointment.Actor, newStart time.Time) (*appointment.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	weekly, err := s.store.LoadAvailability(ctx, appt.TherapistID)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}

	err = s.locker.WithScheduleLock(ctx, appt.TherapistID, newStart, func(lockCtx context.Context) error {
		slots, err := s.slotsForDay(lockCtx, weekly, appt.TherapistID, newStart, appt.ID)
		if err != nil {
			return err
		}
		if !containsSlot(slots, windowAt(newStart, weekly.SessionMinutes)) {
			return ErrSlotUnavailable
		}
		oldStart := appt.StartAt
		if err := appt.Reschedule(actor, newStart, s.now()); err != nil {
			return err
		}
		if err := s.store.SaveAppointment(lockCtx, appt); err != nil {
			return fmt.Errorf("save appointment: %w", err)
		}
		s.logEvent(lockCtx, appt.ID, EventAppointmentRescheduled, map[string]any{
			"from": oldStart,
			"to":   newStart,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	other := appt.PatientID
	if actor.Role == appointment.RolePatient {
		other = appt.TherapistID
	}
	s.notifyUser(ctx, other, EventAppointmentRescheduled, appt, nil)
	return appt, nil
}

type JoinWaitlistRequest struct {
	PatientID   uuid.UUID
	TherapistID uuid.UUID
	Weekdays    []time.Weekday
	DayParts    []waitlist.DayPart
	Notes       string
}

// JoinWaitingList creates an active entry for a patient who found no
// bookable slot.
func (s *Service) JoinWaitingList(ctx context.Context, req JoinWaitlistRequest) (*waitlist.Entry, error) {
	entry := waitlist.NewEntry(req.PatientID, req.TherapistID, req.Weekdays, req.DayParts, req.Notes, s.now())
	if err := s.store.SaveWaitingListEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("save waiting list entry: %w", err)
	}
	return entry, nil
}

// LeaveWaitingList withdraws a patient's own active entry.
func (s *Service) LeaveWaitingList(ctx context.Context, entryID uuid.UUID, actor appointment.Actor) (*waitlist.Entry, error) {
	entry, err := s.store.GetWaitingListEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("load waiting list entry: %w", err)
	}
	if actor.ID != entry.PatientID {
		return nil, appointment.ErrForbidden
	}
	if err := entry.Cancel(); err != nil {
		return nil, err
	}
	if err := s.store.SaveWaitingListEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("save waiting list entry: %w", err)
	}
	return entry, nil
}

// AcceptMatch records that the patient took a freed slot offered to
// them: the entry goes Active -> Matched and the therapist learns their
// waiting list shrank. Booking the actual slot is a separate Book call.
func (s *Service) AcceptMatch(ctx context.Context, entryID uuid.UUID, actor appointment.Actor) (*waitlist.Entry, error) {
	entry, err := s.store.GetWaitingListEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("load waiting list entry: %w", err)
	}
	if actor.ID != entry.PatientID {
		return nil, appointment.ErrForbidden
	}
	if err := entry.Match(); err != nil {
		return nil, err
	}
	if err := s.store.SaveWaitingListEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("save waiting list entry: %w", err)
	}
	s.logEvent(ctx, uuid.Nil, EventWaitlistMatched, map[string]any{
		"entry_id":   entry.ID.String(),
		"patient_id": entry.PatientID.String(),
	})
	s.notifyUser(ctx, entry.TherapistID, EventWaitlistMatched, nil, map[string]any{
		"entry_id": entry.ID.String(),
	})
	return entry, nil
}

// NotifyMatchesSince re-runs the waitlist matcher for every appointment
// cancelled after since. The waitlist worker calls this periodically to
// retry matches lost to notifier outages.
func (s *Service) NotifyMatchesSince(ctx context.Context, since time.Time) error {
	cancelled, err := s.store.ListCancelledSince(ctx, since)
	if err != nil {
		return fmt.Errorf("list cancelled appointments: %w", err)
	}
	for i := range cancelled {
		if _, err := s.matchFreedSlot(ctx, &cancelled[i]); err != nil {
			s.logger.Warn("waitlist sweep match failed",
				zap.String("appointment_id", cancelled[i].ID.String()), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) matchFreedSlot(ctx context.Context, appt *appointment.Appointment) ([]waitlist.Entry, error) {
	entries, err := s.store.LoadWaitingList(ctx, appt.TherapistID)
	if err != nil {
		return nil, fmt.Errorf("load waiting list: %w", err)
	}

	slot := appt.Window()
	matches := waitlist.FindMatches(slot, appt.StartAt.Weekday(), entries)
	for _, m := range matches {
		s.notifyUser(ctx, m.PatientID, EventWaitlistSlotFreed, appt, map[string]any{
			"entry_id": m.ID.String(),
			"date":     appt.StartAt.Format("2006-01-02"),
			"start":    schedule.FormatMinute(slot.Start),
			"end":      schedule.FormatMinute(slot.End),
		})
	}
	return matches, nil
}

func (s *Service) notifyUser(ctx context.Context, userID uuid.UUID, eventType string, appt *appointment.Appointment, payload map[string]any) {
	ev := notify.Event{
		Type:       eventType,
		Payload:    payload,
		OccurredAt: s.now(),
	}
	if appt != nil {
		id := appt.ID
		ev.AppointmentID = &id
	}
	if err := s.notifier.Notify(ctx, userID, ev); err != nil {
		s.logger.Warn("notify failed",
			zap.String("user_id", userID.String()),
			zap.String("event", eventType),
			zap.Error(err))
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("marshal event payload failed", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		Payload:   data,
		CreatedAt: s.now(),
	}
	if appointmentID != uuid.Nil {
		id := appointmentID
		ev.AppointmentID = &id
	}

	if err := s.store.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("insert event log failed",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err))
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func windowAt(startAt time.Time, durationMinutes int) schedule.TimeWindow {
	start := startAt.Hour()*60 + startAt.Minute()
	return schedule.TimeWindow{Start: start, End: start + durationMinutes}
}

func containsSlot(slots []schedule.TimeWindow, want schedule.TimeWindow) bool {
	for _, s := range slots {
		if s == want {
			return true
		}
	}
	return false
}
