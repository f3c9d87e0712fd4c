package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/therapease/scheduling/internal/appointment"
	"github.com/therapease/scheduling/internal/schedule"
	"github.com/therapease/scheduling/internal/waitlist"
)

// DB is the slice of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgStore struct {
	db DB
}

func NewPgStore(db DB) *PgStore {
	return &PgStore{db: db}
}

// Availability

func (s *PgStore) LoadAvailability(ctx context.Context, therapistID uuid.UUID) (schedule.WeeklyAvailability, error) {
	weekly := schedule.WeeklyAvailability{
		Days: make(map[time.Weekday][]schedule.TimeWindow, 7),
	}

	row := s.db.QueryRow(ctx, `
		SELECT session_minutes, video_link
		FROM availability_settings
		WHERE therapist_id = $1
	`, therapistID)
	var videoLink *string
	if err := row.Scan(&weekly.SessionMinutes, &videoLink); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.WeeklyAvailability{}, ErrAvailabilityNotFound
		}
		return schedule.WeeklyAvailability{}, err
	}
	if videoLink != nil {
		weekly.VideoLink = *videoLink
	}

	rows, err := s.db.Query(ctx, `
		SELECT weekday, start_minute, end_minute
		FROM availability_windows
		WHERE therapist_id = $1
		ORDER BY weekday, start_minute
	`, therapistID)
	if err != nil {
		return schedule.WeeklyAvailability{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var weekday int
		var w schedule.TimeWindow
		if err := rows.Scan(&weekday, &w.Start, &w.End); err != nil {
			return schedule.WeeklyAvailability{}, err
		}
		day := time.Weekday(weekday)
		weekly.Days[day] = append(weekly.Days[day], w)
	}
	if err := rows.Err(); err != nil {
		return schedule.WeeklyAvailability{}, err
	}

	return weekly.Normalized(), nil
}

func (s *PgStore) SaveAvailability(ctx context.Context, therapistID uuid.UUID, weekly schedule.WeeklyAvailability) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save availability: %w", err)
	}
	defer tx.Rollback(ctx)

	var videoLink *string
	if weekly.VideoLink != "" {
		videoLink = &weekly.VideoLink
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO availability_settings (therapist_id, session_minutes, video_link, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (therapist_id)
		DO UPDATE SET session_minutes = $2, video_link = $3, updated_at = now()
	`, therapistID, weekly.SessionMinutes, videoLink)
	if err != nil {
		return fmt.Errorf("upsert availability settings: %w", err)
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM availability_windows WHERE therapist_id = $1
	`, therapistID)
	if err != nil {
		return fmt.Errorf("clear availability windows: %w", err)
	}

	for day, windows := range weekly.Days {
		for _, w := range windows {
			_, err = tx.Exec(ctx, `
				INSERT INTO availability_windows (therapist_id, weekday, start_minute, end_minute)
				VALUES ($1, $2, $3, $4)
			`, therapistID, int(day), w.Start, w.End)
			if err != nil {
				return fmt.Errorf("insert availability window: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}

// Appointments

const appointmentColumns = `
	id, therapist_id, patient_id, start_at, duration_minutes, status,
	notes, video_link, reschedule_count, cancelled_by, cancellation_reason,
	created_at, updated_at`

func scanAppointment(row pgx.Row) (*appointment.Appointment, error) {
	var a appointment.Appointment
	var notes, videoLink, reason *string

	err := row.Scan(
		&a.ID,
		&a.TherapistID,
		&a.PatientID,
		&a.StartAt,
		&a.DurationMinutes,
		&a.Status,
		&notes,
		&videoLink,
		&a.RescheduleCount,
		&a.CancelledBy,
		&reason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if notes != nil {
		a.Notes = *notes
	}
	if videoLink != nil {
		a.VideoLink = *videoLink
	}
	if reason != nil {
		a.CancellationReason = *reason
	}
	return &a, nil
}

func (s *PgStore) GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (s *PgStore) LoadAppointments(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]appointment.Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE therapist_id = $1
		  AND start_at >= $2
		  AND start_at < $3
		ORDER BY start_at
	`, therapistID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (s *PgStore) ListCancelledSince(ctx context.Context, since time.Time) ([]appointment.Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'cancelled'
		  AND updated_at >= $1
		ORDER BY updated_at
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]appointment.Appointment, error) {
	var result []appointment.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PgStore) SaveAppointment(ctx context.Context, a *appointment.Appointment) error {
	var notes, videoLink, reason *string
	if a.Notes != "" {
		notes = &a.Notes
	}
	if a.VideoLink != "" {
		videoLink = &a.VideoLink
	}
	if a.CancellationReason != "" {
		reason = &a.CancellationReason
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (
			id, therapist_id, patient_id, start_at, duration_minutes, status,
			notes, video_link, reschedule_count, cancelled_by, cancellation_reason,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id)
		DO UPDATE SET
			start_at = $4,
			status = $6,
			notes = $7,
			reschedule_count = $9,
			cancelled_by = $10,
			cancellation_reason = $11,
			updated_at = $13
	`, a.ID, a.TherapistID, a.PatientID, a.StartAt, a.DurationMinutes, a.Status,
		notes, videoLink, a.RescheduleCount, a.CancelledBy, reason,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save appointment: %w", err)
	}
	return nil
}

// Waiting list

func scanWaitlistEntry(row pgx.Row) (*waitlist.Entry, error) {
	var e waitlist.Entry
	var weekdays, dayParts []string
	var notes *string

	err := row.Scan(
		&e.ID,
		&e.PatientID,
		&e.TherapistID,
		&weekdays,
		&dayParts,
		&notes,
		&e.Status,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	for _, w := range weekdays {
		day, err := schedule.ParseWeekday(w)
		if err != nil {
			return nil, fmt.Errorf("stored weekday: %w", err)
		}
		e.Weekdays = append(e.Weekdays, day)
	}
	for _, p := range dayParts {
		part, ok := waitlist.ParseDayPart(p)
		if !ok {
			return nil, fmt.Errorf("stored day part %q is unknown", p)
		}
		e.DayParts = append(e.DayParts, part)
	}
	if notes != nil {
		e.Notes = *notes
	}
	return &e, nil
}

func (s *PgStore) GetWaitingListEntry(ctx context.Context, id uuid.UUID) (*waitlist.Entry, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, patient_id, therapist_id, weekdays, day_parts, notes, status, created_at
		FROM waitlist_entries
		WHERE id = $1
	`, id)
	return scanWaitlistEntry(row)
}

func (s *PgStore) LoadWaitingList(ctx context.Context, therapistID uuid.UUID) ([]waitlist.Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, patient_id, therapist_id, weekdays, day_parts, notes, status, created_at
		FROM waitlist_entries
		WHERE therapist_id = $1 AND status = 'active'
		ORDER BY created_at
	`, therapistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []waitlist.Entry
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PgStore) SaveWaitingListEntry(ctx context.Context, e *waitlist.Entry) error {
	weekdays := make([]string, len(e.Weekdays))
	for i, d := range e.Weekdays {
		weekdays[i] = schedule.FormatWeekday(d)
	}
	dayParts := make([]string, len(e.DayParts))
	for i, p := range e.DayParts {
		dayParts[i] = string(p)
	}
	var notes *string
	if e.Notes != "" {
		notes = &e.Notes
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO waitlist_entries (id, patient_id, therapist_id, weekdays, day_parts, notes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET status = $7
	`, e.ID, e.PatientID, e.TherapistID, weekdays, dayParts, notes, e.Status, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("save waiting list entry: %w", err)
	}
	return nil
}

// Event log

func (s *PgStore) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
