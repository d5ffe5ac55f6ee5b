package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/pkg/logging"
)

// The simulator races many patients for the same doctor slots against a
// running api-server and checks that no slot is ever booked twice.

type SimConfig struct {
	APIBaseURL   string
	Slots        int
	Contenders   int
	DaysAhead    int
	PatientLimit int
	PostgresDSN  string
	Location     *time.Location
}

type target struct {
	DoctorID uuid.UUID
	Date     string
	Slot     string
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Simulator struct {
	config   SimConfig
	logger   zerolog.Logger
	client   *http.Client
	patients []uuid.UUID
	targets  []target
	booking  OperationMetrics
	// winners per target index
	winners []int64
}

func main() {
	logger := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("APP_ENV"))
	logger.Info().Msg("simulator starting")

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, 4)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	sim := &Simulator{
		config: cfg,
		logger: logger,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	if err := sim.load(ctx, pgPool); err != nil {
		logger.Fatal().Err(err).Msg("load simulation data")
	}

	logger.Info().
		Int("patients", len(sim.patients)).
		Int("slots", len(sim.targets)).
		Int("contenders_per_slot", cfg.Contenders).
		Msg("loaded")

	sim.Run()

	if violations := sim.PrintReport(); violations > 0 {
		os.Exit(1)
	}
}

func loadConfig() (SimConfig, error) {
	baseCfg, err := config.Load()
	if err != nil {
		return SimConfig{}, fmt.Errorf("load base config: %w", err)
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Slots:        getInt("SIM_SLOTS", 10),
		Contenders:   getInt("SIM_CONTENDERS", 20),
		DaysAhead:    getInt("SIM_DAYS_AHEAD", 14),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 2000),
		PostgresDSN:  baseCfg.PostgresDSN,
		Location:     baseCfg.ClinicTimezone,
	}

	if cfg.Slots <= 0 || cfg.Contenders < 2 {
		return SimConfig{}, fmt.Errorf("SIM_SLOTS must be > 0 and SIM_CONTENDERS >= 2")
	}
	return cfg, nil
}

// load picks patients and free future doctor slots from the database.
func (s *Simulator) load(ctx context.Context, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, s.config.PatientLimit)
	if err != nil {
		return fmt.Errorf("load patients: %w", err)
	}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		s.patients = append(s.patients, id)
	}
	rows.Close()
	if len(s.patients) < s.config.Contenders {
		return fmt.Errorf("need at least %d patients, found %d", s.config.Contenders, len(s.patients))
	}

	repo := appointment.NewPgRepository(pool)
	doctors, err := repo.ListDoctors(ctx)
	if err != nil {
		return fmt.Errorf("load doctors: %w", err)
	}

	today := time.Now().In(s.config.Location)
	for d := 1; d <= s.config.DaysAhead && len(s.targets) < s.config.Slots; d++ {
		date := today.AddDate(0, 0, d).Format(appointment.DateLayout)
		day, _ := appointment.WeekdayOf(date)
		for _, doc := range doctors {
			declared, ok := appointment.SlotsFor(doc.Availability, day)
			if !ok {
				continue
			}
			for _, slot := range declared.Slots {
				if len(s.targets) >= s.config.Slots {
					break
				}
				if _, err := repo.FindActiveBySlot(ctx, doc.ID, date, slot); err == nil {
					continue
				}
				s.targets = append(s.targets, target{DoctorID: doc.ID, Date: date, Slot: slot})
			}
		}
	}
	if len(s.targets) == 0 {
		return fmt.Errorf("no free slots in the next %d days", s.config.DaysAhead)
	}
	s.winners = make([]int64, len(s.targets))
	return nil
}

// Run fires Contenders concurrent bookings at every target slot at once.
func (s *Simulator) Run() {
	s.logger.Info().Msg("starting race")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i, t := range s.targets {
		contenders := rng.Perm(len(s.patients))[:s.config.Contenders]
		for _, p := range contenders {
			wg.Add(1)
			go func(idx int, t target, patientID uuid.UUID) {
				defer wg.Done()
				<-start
				s.book(idx, t, patientID)
			}(i, t, s.patients[p])
		}
	}

	close(start)
	wg.Wait()
	s.logger.Info().Msg("race complete")
}

func (s *Simulator) book(idx int, t target, patientID uuid.UUID) {
	body, _ := json.Marshal(api.BookAppointmentRequest{
		DoctorID: t.DoctorID.String(),
		Date:     t.Date,
		Slot:     t.Slot,
	})

	req, _ := http.NewRequest(http.MethodPost, s.config.APIBaseURL+"/patient/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.HeaderActorID, patientID.String())
	req.Header.Set(api.HeaderActorRole, string(appointment.RolePatient))

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusCreated:
			success = true
			atomic.AddInt64(&s.winners[idx], 1)
		case http.StatusConflict:
			conflict = true
		default:
			s.logger.Warn().Int("status", resp.StatusCode).Str("slot", t.Slot).Msg("unexpected booking response")
		}
	} else {
		s.logger.Warn().Err(err).Msg("booking request failed")
	}

	s.booking.Record(latency, success, conflict)
}

// PrintReport prints the outcome and returns the number of slots booked
// more than once.
func (s *Simulator) PrintReport() int {
	avg, min, max, p50, p95 := s.booking.Stats()

	fmt.Println()
	fmt.Println("=== booking race ===")
	fmt.Printf("requests:  %d\n", atomic.LoadInt64(&s.booking.Total))
	fmt.Printf("booked:    %d\n", atomic.LoadInt64(&s.booking.Success))
	fmt.Printf("conflicts: %d\n", atomic.LoadInt64(&s.booking.Conflict))
	fmt.Printf("errors:    %d\n", atomic.LoadInt64(&s.booking.Error))
	fmt.Printf("latency:   avg=%s min=%s max=%s p50=%s p95=%s\n", avg, min, max, p50, p95)

	violations := 0
	for i, t := range s.targets {
		if n := atomic.LoadInt64(&s.winners[i]); n > 1 {
			violations++
			fmt.Printf("DOUBLE BOOKED: doctor=%s date=%s slot=%s winners=%d\n", t.DoctorID, t.Date, t.Slot, n)
		}
	}
	fmt.Printf("slots: %d, double booked: %d\n", len(s.targets), violations)
	return violations
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
