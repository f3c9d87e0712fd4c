package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/therapease/scheduling/internal/appointment"
	"github.com/therapease/scheduling/internal/schedule"
	"github.com/therapease/scheduling/internal/waitlist"
)

type WindowPayload struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// SetAvailabilityRequest carries a whole weekly schedule; time-of-day
// strings use 24-hour HH:MM.
type SetAvailabilityRequest struct {
	Monday    []WindowPayload `json:"monday,omitempty"`
	Tuesday   []WindowPayload `json:"tuesday,omitempty"`
	Wednesday []WindowPayload `json:"wednesday,omitempty"`
	Thursday  []WindowPayload `json:"thursday,omitempty"`
	Friday    []WindowPayload `json:"friday,omitempty"`
	Saturday  []WindowPayload `json:"saturday,omitempty"`
	Sunday    []WindowPayload `json:"sunday,omitempty"`

	SessionDurationMinutes int    `json:"session_duration_minutes" validate:"omitempty,min=15,max=480"`
	VideoSessionLink       string `json:"video_session_link,omitempty" validate:"omitempty,url"`
}

func (r *SetAvailabilityRequest) days() map[time.Weekday][]WindowPayload {
	return map[time.Weekday][]WindowPayload{
		time.Monday:    r.Monday,
		time.Tuesday:   r.Tuesday,
		time.Wednesday: r.Wednesday,
		time.Thursday:  r.Thursday,
		time.Friday:    r.Friday,
		time.Saturday:  r.Saturday,
		time.Sunday:    r.Sunday,
	}
}

// toWeekly converts wire windows to minute-of-day integers. Per-window
// format errors surface here; overlap checks happen in the engine.
func (r *SetAvailabilityRequest) toWeekly() (schedule.WeeklyAvailability, error) {
	weekly := schedule.WeeklyAvailability{
		Days:           make(map[time.Weekday][]schedule.TimeWindow, 7),
		SessionMinutes: r.SessionDurationMinutes,
		VideoLink:      r.VideoSessionLink,
	}
	for day, payloads := range r.days() {
		for _, p := range payloads {
			w, err := schedule.ParseWindow(p.Start, p.End)
			if err != nil {
				return schedule.WeeklyAvailability{}, err
			}
			weekly.Days[day] = append(weekly.Days[day], w)
		}
	}
	return weekly, nil
}

type AvailabilityResponse struct {
	TherapistID            uuid.UUID                  `json:"therapist_id"`
	Days                   map[string][]WindowPayload `json:"days"`
	SessionDurationMinutes int                        `json:"session_duration_minutes"`
	VideoSessionLink       string                     `json:"video_session_link,omitempty"`
}

func newAvailabilityResponse(therapistID uuid.UUID, weekly schedule.WeeklyAvailability) AvailabilityResponse {
	resp := AvailabilityResponse{
		TherapistID:            therapistID,
		Days:                   make(map[string][]WindowPayload, 7),
		SessionDurationMinutes: weekly.SessionMinutes,
		VideoSessionLink:       weekly.VideoLink,
	}
	for day, windows := range weekly.Days {
		payloads := make([]WindowPayload, len(windows))
		for i, w := range windows {
			payloads[i] = WindowPayload{Start: schedule.FormatMinute(w.Start), End: schedule.FormatMinute(w.End)}
		}
		resp.Days[schedule.FormatWeekday(day)] = payloads
	}
	return resp
}

type SlotsResponse struct {
	TherapistID uuid.UUID       `json:"therapist_id"`
	Date        string          `json:"date"`
	Weekday     string          `json:"weekday"`
	Slots       []WindowPayload `json:"slots"`
}

type BookAppointmentRequest struct {
	TherapistID     string `json:"therapist_id" validate:"required,uuid"`
	PatientID       string `json:"patient_id" validate:"required,uuid"`
	AppointmentDate string `json:"appointment_date" validate:"required"`
	Notes           string `json:"notes,omitempty" validate:"max=2000"`
}

// ActorPayload identifies who is attempting a lifecycle transition.
type ActorPayload struct {
	ActorID   string `json:"actor_id" validate:"required,uuid"`
	ActorRole string `json:"actor_role" validate:"required,oneof=therapist patient"`
}

func (p ActorPayload) toActor() appointment.Actor {
	return appointment.Actor{
		ID:   uuid.MustParse(p.ActorID),
		Role: appointment.Role(p.ActorRole),
	}
}

type CancelAppointmentRequest struct {
	ActorPayload
	Reason string `json:"reason,omitempty" validate:"max=2000"`
}

type RescheduleAppointmentRequest struct {
	ActorPayload
	AppointmentDate string `json:"appointment_date" validate:"required"`
}

type AppointmentResponse struct {
	ID               uuid.UUID `json:"id"`
	TherapistID      uuid.UUID `json:"therapist_id"`
	PatientID        uuid.UUID `json:"patient_id"`
	AppointmentDate  time.Time `json:"appointment_date"`
	DurationMinutes  int       `json:"duration_minutes"`
	Status           string    `json:"status"`
	Notes            string    `json:"notes,omitempty"`
	VideoSessionLink string    `json:"video_session_link,omitempty"`
	RescheduleCount  int       `json:"reschedule_count"`
}

func newAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:               a.ID,
		TherapistID:      a.TherapistID,
		PatientID:        a.PatientID,
		AppointmentDate:  a.StartAt,
		DurationMinutes:  a.DurationMinutes,
		Status:           string(a.Status),
		Notes:            a.Notes,
		VideoSessionLink: a.VideoLink,
		RescheduleCount:  a.RescheduleCount,
	}
}

type JoinWaitlistRequest struct {
	PatientID          string   `json:"patient_id" validate:"required,uuid"`
	TherapistID        string   `json:"therapist_id" validate:"required,uuid"`
	PreferredDays      []string `json:"preferred_days" validate:"dive,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	PreferredTimeSlots []string `json:"preferred_time_slots" validate:"dive,oneof=morning afternoon evening"`
	Notes              string   `json:"notes,omitempty" validate:"max=2000"`
}

type WaitlistEntryResponse struct {
	ID                 uuid.UUID `json:"id"`
	PatientID          uuid.UUID `json:"patient_id"`
	TherapistID        uuid.UUID `json:"therapist_id"`
	PreferredDays      []string  `json:"preferred_days"`
	PreferredTimeSlots []string  `json:"preferred_time_slots"`
	Status             string    `json:"status"`
}

func newWaitlistEntryResponse(e *waitlist.Entry) WaitlistEntryResponse {
	days := make([]string, len(e.Weekdays))
	for i, d := range e.Weekdays {
		days[i] = schedule.FormatWeekday(d)
	}
	parts := make([]string, len(e.DayParts))
	for i, p := range e.DayParts {
		parts[i] = string(p)
	}
	return WaitlistEntryResponse{
		ID:                 e.ID,
		PatientID:          e.PatientID,
		TherapistID:        e.TherapistID,
		PreferredDays:      days,
		PreferredTimeSlots: parts,
		Status:             string(e.Status),
	}
}

type CancelResultResponse struct {
	Appointment AppointmentResponse     `json:"appointment"`
	Matches     []WaitlistEntryResponse `json:"waitlist_matches,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
