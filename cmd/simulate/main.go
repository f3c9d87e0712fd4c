package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Booking-race simulator: many workers hammer the same therapist's
// bookable slots through the HTTP API. With the schedule lock in place
// every slot must be booked at most once; double bookings show up as
// successes exceeding the slot count.
type SimConfig struct {
	APIBaseURL  string
	TherapistID uuid.UUID
	Date        string
	Workers     int
	Duration    time.Duration
}

type Metrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *Metrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *Metrics) Percentile(p int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func main() {
	log.SetFlags(log.LstdFlags)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}

	slots, err := fetchSlots(ctx, client, cfg)
	if err != nil {
		log.Fatalf("fetch slots: %v", err)
	}
	if len(slots) == 0 {
		log.Fatal("therapist has no bookable slots on that date; seed first")
	}
	log.Printf("racing %d workers over %d slots for %s", cfg.Workers, len(slots), cfg.Duration)

	metrics := &Metrics{}
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for ctx.Err() == nil {
				tryBook(ctx, client, cfg, slots[rng.Intn(len(slots))], metrics)
			}
		}(time.Now().UnixNano() + int64(i))
	}
	wg.Wait()

	fmt.Printf("\ntotal=%d success=%d conflict=%d error=%d\n",
		metrics.Total, metrics.Success, metrics.Conflict, metrics.Error)
	fmt.Printf("latency p50=%s p95=%s\n", metrics.Percentile(50), metrics.Percentile(95))
	if metrics.Success > int64(len(slots)) {
		fmt.Println("DOUBLE BOOKING DETECTED: more successes than slots")
		os.Exit(1)
	}
	fmt.Println("no double bookings observed")
}

func loadConfig() (SimConfig, error) {
	idStr := os.Getenv("SIM_THERAPIST_ID")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return SimConfig{}, fmt.Errorf("SIM_THERAPIST_ID must be a UUID: %w", err)
	}

	date := os.Getenv("SIM_DATE")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return SimConfig{}, fmt.Errorf("SIM_DATE must be YYYY-MM-DD: %w", err)
	}

	workers := 16
	if v := os.Getenv("SIM_WORKERS"); v != "" {
		if workers, err = strconv.Atoi(v); err != nil {
			return SimConfig{}, fmt.Errorf("SIM_WORKERS: %w", err)
		}
	}

	duration := 30 * time.Second
	if v := os.Getenv("SIM_DURATION"); v != "" {
		if duration, err = time.ParseDuration(v); err != nil {
			return SimConfig{}, fmt.Errorf("SIM_DURATION: %w", err)
		}
	}

	base := os.Getenv("SIM_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	return SimConfig{
		APIBaseURL:  base,
		TherapistID: id,
		Date:        date,
		Workers:     workers,
		Duration:    duration,
	}, nil
}

type slotsPayload struct {
	Slots []struct {
		Start string `json:"start"`
	} `json:"slots"`
}

func fetchSlots(ctx context.Context, client *http.Client, cfg SimConfig) ([]string, error) {
	url := fmt.Sprintf("%s/therapists/%s/slots?date=%s", cfg.APIBaseURL, cfg.TherapistID, cfg.Date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var payload slotsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	starts := make([]string, len(payload.Slots))
	for i, s := range payload.Slots {
		starts[i] = s.Start
	}
	return starts, nil
}

func tryBook(ctx context.Context, client *http.Client, cfg SimConfig, slotStart string, metrics *Metrics) {
	body, _ := json.Marshal(map[string]string{
		"therapist_id":     cfg.TherapistID.String(),
		"patient_id":       uuid.New().String(),
		"appointment_date": fmt.Sprintf("%sT%s:00Z", cfg.Date, slotStart),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIBaseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			metrics.Record(time.Since(start), 0)
		}
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	metrics.Record(time.Since(start), resp.StatusCode)
}
