package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapease/scheduling/internal/appointment"
	"github.com/therapease/scheduling/internal/schedule"
	"github.com/therapease/scheduling/internal/waitlist"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PgStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPgStore(mock)
}

func TestPgStoreLoadAvailability(t *testing.T) {
	mock, store := newMockStore(t)
	therapistID := uuid.New()
	link := "https://meet.example.com/abc"

	mock.ExpectQuery("SELECT session_minutes, video_link").
		WithArgs(therapistID).
		WillReturnRows(pgxmock.NewRows([]string{"session_minutes", "video_link"}).AddRow(60, &link))
	mock.ExpectQuery("SELECT weekday, start_minute, end_minute").
		WithArgs(therapistID).
		WillReturnRows(pgxmock.NewRows([]string{"weekday", "start_minute", "end_minute"}).
			AddRow(1, 540, 720).
			AddRow(1, 780, 1020).
			AddRow(3, 540, 720))

	weekly, err := store.LoadAvailability(context.Background(), therapistID)
	require.NoError(t, err)
	assert.Equal(t, 60, weekly.SessionMinutes)
	assert.Equal(t, link, weekly.VideoLink)
	assert.Equal(t, []schedule.TimeWindow{{Start: 540, End: 720}, {Start: 780, End: 1020}}, weekly.Days[time.Monday])
	assert.Empty(t, weekly.Days[time.Friday], "normalized: absent days are empty, not missing")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreLoadAvailabilityNotFound(t *testing.T) {
	mock, store := newMockStore(t)
	therapistID := uuid.New()

	mock.ExpectQuery("SELECT session_minutes, video_link").
		WithArgs(therapistID).
		WillReturnRows(pgxmock.NewRows([]string{"session_minutes", "video_link"}))

	_, err := store.LoadAvailability(context.Background(), therapistID)
	assert.ErrorIs(t, err, ErrAvailabilityNotFound)
}

func TestPgStoreSaveAvailabilityIsTransactional(t *testing.T) {
	mock, store := newMockStore(t)
	therapistID := uuid.New()

	weekly := schedule.WeeklyAvailability{
		Days: map[time.Weekday][]schedule.TimeWindow{
			time.Monday: {{Start: 540, End: 720}},
		},
		SessionMinutes: 60,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO availability_settings").
		WithArgs(therapistID, 60, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM availability_windows").
		WithArgs(therapistID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO availability_windows").
		WithArgs(therapistID, 1, 540, 720).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	require.NoError(t, store.SaveAvailability(context.Background(), therapistID, weekly))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreSaveAppointment(t *testing.T) {
	mock, store := newMockStore(t)

	now := time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC)
	appt := appointment.New(uuid.New(), uuid.New(),
		time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), 60, "first session", "", now)

	notes := appt.Notes
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(appt.ID, appt.TherapistID, appt.PatientID, appt.StartAt, 60,
			appointment.StatusPending, &notes, (*string)(nil), 0, (*uuid.UUID)(nil), (*string)(nil),
			now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveAppointment(context.Background(), appt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreGetAppointmentNotFound(t *testing.T) {
	mock, store := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("FROM appointments").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := store.GetAppointment(context.Background(), id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestPgStoreSaveWaitingListEntry(t *testing.T) {
	mock, store := newMockStore(t)

	now := time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC)
	entry := waitlist.NewEntry(uuid.New(), uuid.New(),
		[]time.Weekday{time.Monday, time.Wednesday},
		[]waitlist.DayPart{waitlist.Morning}, "", now)

	mock.ExpectExec("INSERT INTO waitlist_entries").
		WithArgs(entry.ID, entry.PatientID, entry.TherapistID,
			[]string{"monday", "wednesday"}, []string{"morning"},
			(*string)(nil), waitlist.StatusActive, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveWaitingListEntry(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreInsertEvent(t *testing.T) {
	mock, store := newMockStore(t)
	apptID := uuid.New()
	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(EventAppointmentBooked, &apptID, []byte(`{}`), &created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.InsertEvent(context.Background(), EventLog{
		EventType:     EventAppointmentBooked,
		AppointmentID: &apptID,
		Payload:       []byte(`{}`),
		CreatedAt:     created,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
