package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/therapease/scheduling/internal/appointment"
	"github.com/therapease/scheduling/internal/schedule"
	"github.com/therapease/scheduling/internal/scheduling"
	"github.com/therapease/scheduling/internal/waitlist"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// decodeAndValidate parses the body and runs struct validation; it
// writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func urlUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+param, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func setAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		therapistID, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}

		var req SetAvailabilityRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		weekly, err := req.toWeekly()
		if err != nil {
			handleSchedulingError(w, "set_availability", err)
			return
		}

		saved, err := svc.SetAvailability(r.Context(), therapistID, weekly)
		if err != nil {
			handleSchedulingError(w, "set_availability", err)
			return
		}

		writeJSON(w, http.StatusOK, newAvailabilityResponse(therapistID, saved))
	}
}

func getAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		therapistID, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}

		weekly, err := svc.GetAvailability(r.Context(), therapistID)
		if err != nil {
			handleSchedulingError(w, "get_availability", err)
			return
		}

		writeJSON(w, http.StatusOK, newAvailabilityResponse(therapistID, weekly))
	}
}

func getBookableSlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		therapistID, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}

		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.GetBookableSlots(r.Context(), therapistID, date)
		if err != nil {
			handleSchedulingError(w, "get_bookable_slots", err)
			return
		}

		payloads := make([]WindowPayload, len(slots))
		for i, s := range slots {
			payloads[i] = WindowPayload{Start: schedule.FormatMinute(s.Start), End: schedule.FormatMinute(s.End)}
		}
		writeJSON(w, http.StatusOK, SlotsResponse{
			TherapistID: therapistID,
			Date:        date.Format("2006-01-02"),
			Weekday:     schedule.FormatWeekday(date.Weekday()),
			Slots:       payloads,
		})
	}
}

func bookAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		startAt, err := time.Parse(time.RFC3339, req.AppointmentDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_date", "appointment_date must be ISO-8601")
			return
		}

		appt, err := svc.Book(r.Context(), scheduling.BookRequest{
			TherapistID: uuid.MustParse(req.TherapistID),
			PatientID:   uuid.MustParse(req.PatientID),
			StartAt:     startAt,
			Notes:       req.Notes,
		})
		if err != nil {
			handleSchedulingError(w, "book", err)
			return
		}

		writeJSON(w, http.StatusCreated, newAppointmentResponse(appt))
	}
}

func confirmAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}

		var req ActorPayload
		if !decodeAndValidate(w, r, &req) {
			return
		}

		appt, err := svc.Confirm(r.Context(), id, req.toActor())
		if err != nil {
			handleSchedulingError(w, "confirm", err)
			return
		}

		writeJSON(w, http.StatusOK, newAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}

		var req CancelAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		res, err := svc.Cancel(r.Context(), id, req.toActor(), req.Reason)
		if err != nil {
			handleSchedulingError(w, "cancel", err)
			return
		}

		resp := CancelResultResponse{Appointment: newAppointmentResponse(res.Appointment)}
		for i := range res.Matches {
			resp.Matches = append(resp.Matches, newWaitlistEntryResponse(&res.Matches[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func completeAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}

		var req ActorPayload
		if !decodeAndValidate(w, r, &req) {
			return
		}

		appt, err := svc.Complete(r.Context(), id, req.toActor())
		if err != nil {
			handleSchedulingError(w, "complete", err)
			return
		}

		writeJSON(w, http.StatusOK, newAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}

		var req RescheduleAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		newStart, err := time.Parse(time.RFC3339, req.AppointmentDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_date", "appointment_date must be ISO-8601")
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, req.toActor(), newStart)
		if err != nil {
			handleSchedulingError(w, "reschedule", err)
			return
		}

		writeJSON(w, http.StatusOK, newAppointmentResponse(appt))
	}
}

func joinWaitlistHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinWaitlistRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		weekdays := make([]time.Weekday, 0, len(req.PreferredDays))
		for _, d := range req.PreferredDays {
			day, err := schedule.ParseWeekday(d)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_preferred_days", err.Error())
				return
			}
			weekdays = append(weekdays, day)
		}
		parts := make([]waitlist.DayPart, 0, len(req.PreferredTimeSlots))
		for _, p := range req.PreferredTimeSlots {
			part, ok := waitlist.ParseDayPart(p)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_preferred_time_slots", "unknown time slot "+p)
				return
			}
			parts = append(parts, part)
		}

		entry, err := svc.JoinWaitingList(r.Context(), scheduling.JoinWaitlistRequest{
			PatientID:   uuid.MustParse(req.PatientID),
			TherapistID: uuid.MustParse(req.TherapistID),
			Weekdays:    weekdays,
			DayParts:    parts,
			Notes:       req.Notes,
		})
		if err != nil {
			handleSchedulingError(w, "join_waitlist", err)
			return
		}

		writeJSON(w, http.StatusCreated, newWaitlistEntryResponse(entry))
	}
}

func leaveWaitlistHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}

		var req ActorPayload
		if !decodeAndValidate(w, r, &req) {
			return
		}

		entry, err := svc.LeaveWaitingList(r.Context(), id, req.toActor())
		if err != nil {
			handleSchedulingError(w, "leave_waitlist", err)
			return
		}

		writeJSON(w, http.StatusOK, newWaitlistEntryResponse(entry))
	}
}

func acceptMatchHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}

		var req ActorPayload
		if !decodeAndValidate(w, r, &req) {
			return
		}

		entry, err := svc.AcceptMatch(r.Context(), id, req.toActor())
		if err != nil {
			handleSchedulingError(w, "accept_match", err)
			return
		}

		writeJSON(w, http.StatusOK, newWaitlistEntryResponse(entry))
	}
}

// handleSchedulingError maps the engine's typed errors onto HTTP status
// codes; op names the originating operation for the response details.
func handleSchedulingError(w http.ResponseWriter, op string, err error) {
	var validationErr *schedule.ValidationError
	var overlapErr *schedule.OverlapError

	switch {
	case errors.Is(err, scheduling.ErrAvailabilityNotFound):
		writeError(w, http.StatusNotFound, "availability_not_found", op+": "+err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", op+": "+err.Error())
	case errors.Is(err, scheduling.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "waitlist_entry_not_found", op+": "+err.Error())
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", op+": "+err.Error())
	case errors.Is(err, scheduling.ErrScheduleBusy):
		writeError(w, http.StatusConflict, "schedule_busy", "schedule is being modified, please retry shortly")
	case errors.Is(err, appointment.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", op+": "+err.Error())
	case errors.Is(err, appointment.ErrLateCancellation):
		writeError(w, http.StatusConflict, "late_cancellation", op+": "+err.Error())
	case errors.Is(err, appointment.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", op+": "+err.Error())
	case errors.Is(err, waitlist.ErrNotActive):
		writeError(w, http.StatusConflict, "waitlist_entry_not_active", op+": "+err.Error())
	case errors.As(err, &validationErr), errors.As(err, &overlapErr),
		errors.Is(err, schedule.ErrInvalidFormat),
		errors.Is(err, schedule.ErrInvertedRange),
		errors.Is(err, schedule.ErrInvalidSessionLength):
		writeError(w, http.StatusUnprocessableEntity, "invalid_availability", op+": "+err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", op+": "+err.Error())
	}
}
