package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/therapease/scheduling/internal/appointment"
	"github.com/therapease/scheduling/internal/db"
	"github.com/therapease/scheduling/internal/schedule"
	"github.com/therapease/scheduling/internal/scheduling"
	"github.com/therapease/scheduling/internal/waitlist"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())
	store := scheduling.NewPgStore(pool)

	therapists, err := seedTherapists(context.Background(), store, 25)
	if err != nil {
		log.Fatalf("seed therapists: %v", err)
	}
	if err := seedAppointments(context.Background(), store, therapists, 200); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}
	if err := seedWaitlist(context.Background(), store, therapists, 60); err != nil {
		log.Fatalf("seed waitlist: %v", err)
	}

	log.Println("seed complete")
}

var sessionLengths = []int{45, 50, 60}

var dayShapes = [][]schedule.TimeWindow{
	{{Start: 9 * 60, End: 12 * 60}, {Start: 13 * 60, End: 17 * 60}},
	{{Start: 8 * 60, End: 13 * 60}},
	{{Start: 14 * 60, End: 20 * 60}},
	{{Start: 10 * 60, End: 12 * 60}, {Start: 15 * 60, End: 18 * 60}},
}

func seedTherapists(ctx context.Context, store *scheduling.PgStore, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d therapist availabilities", count)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()

		weekly := schedule.WeeklyAvailability{
			Days:           make(map[time.Weekday][]schedule.TimeWindow),
			SessionMinutes: sessionLengths[gofakeit.Number(0, len(sessionLengths)-1)],
			VideoLink:      gofakeit.URL(),
		}
		// Working weekdays only; a few therapists also take Saturdays.
		for d := time.Monday; d <= time.Friday; d++ {
			if gofakeit.Bool() {
				weekly.Days[d] = dayShapes[gofakeit.Number(0, len(dayShapes)-1)]
			}
		}
		if gofakeit.Number(0, 4) == 0 {
			weekly.Days[time.Saturday] = []schedule.TimeWindow{{Start: 9 * 60, End: 13 * 60}}
		}

		weekly = weekly.Normalized()
		if err := weekly.Validate(); err != nil {
			return nil, err
		}
		if err := store.SaveAvailability(ctx, id, weekly); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	log.Println("therapists seeded")
	return ids, nil
}

func seedAppointments(ctx context.Context, store *scheduling.PgStore, therapists []uuid.UUID, count int) error {
	log.Printf("seeding %d appointments", count)

	now := time.Now()
	seeded := 0
	for attempts := 0; seeded < count && attempts < count*10; attempts++ {
		therapistID := therapists[gofakeit.Number(0, len(therapists)-1)]

		weekly, err := store.LoadAvailability(ctx, therapistID)
		if err != nil {
			return err
		}

		date := now.AddDate(0, 0, gofakeit.Number(1, 21))
		date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

		busyAppts, err := store.LoadAppointments(ctx, therapistID, date, date.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		slots := schedule.GenerateSlots(weekly, date, appointment.BusyWindows(busyAppts, date), 0)
		if len(slots) == 0 {
			continue
		}

		slot := slots[gofakeit.Number(0, len(slots)-1)]
		startAt := date.Add(time.Duration(slot.Start) * time.Minute)

		appt := appointment.New(therapistID, uuid.New(), startAt, slot.End-slot.Start, gofakeit.Sentence(6), weekly.VideoLink, now)
		if gofakeit.Bool() {
			if err := appt.Confirm(appointment.Actor{ID: therapistID, Role: appointment.RoleTherapist}, now); err != nil {
				return err
			}
		}
		if err := store.SaveAppointment(ctx, appt); err != nil {
			return err
		}
		seeded++
	}

	log.Printf("appointments seeded: %d", seeded)
	return nil
}

func seedWaitlist(ctx context.Context, store *scheduling.PgStore, therapists []uuid.UUID, count int) error {
	log.Printf("seeding %d waitlist entries", count)

	allDays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	allParts := []waitlist.DayPart{waitlist.Morning, waitlist.Afternoon, waitlist.Evening}

	for i := 0; i < count; i++ {
		therapistID := therapists[gofakeit.Number(0, len(therapists)-1)]

		var days []time.Weekday
		for _, d := range allDays {
			if gofakeit.Number(0, 2) == 0 {
				days = append(days, d)
			}
		}
		var parts []waitlist.DayPart
		for _, p := range allParts {
			if gofakeit.Bool() {
				parts = append(parts, p)
			}
		}

		entry := waitlist.NewEntry(uuid.New(), therapistID, days, parts, gofakeit.Sentence(5), time.Now())
		if err := store.SaveWaitingListEntry(ctx, entry); err != nil {
			return err
		}
	}

	log.Println("waitlist entries seeded")
	return nil
}
