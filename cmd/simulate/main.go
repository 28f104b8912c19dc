package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/booking"
	"github.com/hackgods/clinic-scheduling/internal/client"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	BookingRatio  float64
	DeferredRatio float64
	ConfirmRatio  float64
	BrowseRatio   float64
	PatientLimit  int
	PostgresDSN   string
	JWTSecret     string
	VaultBackend  string // "redis" or "file"
	VaultDir      string
	VaultTTL      time.Duration
	LockTTL       time.Duration
}

type bookedAppointment struct {
	ID       uuid.UUID
	DoctorID uuid.UUID
}

type DataPool struct {
	Patients     []uuid.UUID
	Specialties  []directory.Specialty
	mu           sync.RWMutex
	appointments []bookedAppointment // Thread-safe list of created appointments
}

func (dp *DataPool) AddAppointment(a *appointment.Appointment) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, bookedAppointment{ID: a.ID, DoctorID: a.DoctorID})
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (bookedAppointment, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return bookedAppointment{}, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
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

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	if len(latencies) > 0 {
		p50Idx := len(latencies) * 50 / 100
		if p50Idx >= len(latencies) {
			p50Idx = len(latencies) - 1
		}
		p50 = latencies[p50Idx]

		p95Idx := len(latencies) * 95 / 100
		if p95Idx >= len(latencies) {
			p95Idx = len(latencies) - 1
		}
		p95 = latencies[p95Idx]
	}

	return avg, min, max, p50, p95
}

type Metrics struct {
	Booking  OperationMetrics
	Deferred OperationMetrics
	Confirm  OperationMetrics
	Browse   OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	api     *client.Client
	rdb     *redis.Client
	log     zerolog.Logger
	metrics Metrics
}

func main() {
	cfg, baseCfg := loadConfig()
	log := logging.New(baseCfg.LogLevel, baseCfg.Env)
	if err := validateConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	log.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("deferred", cfg.DeferredRatio).
		Float64("confirm", cfg.ConfirmRatio).
		Float64("browse", cfg.BrowseRatio).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	var rdb *redis.Client
	if cfg.VaultBackend == "redis" {
		rdb, err = redisclient.Connect(ctx, redisclient.Options{
			Addr:     baseCfg.RedisAddr,
			Username: baseCfg.RedisUsername,
			Password: baseCfg.RedisPassword,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		defer rdb.Close()
	}

	apiClient := client.New(cfg.APIBaseURL, 10*time.Second)
	dataPool, err := loadDataPool(ctx, pgPool, apiClient, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("load data pool")
	}
	log.Info().Int("patients", len(dataPool.Patients)).Int("specialties", len(dataPool.Specialties)).Msg("data pool loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		api:    apiClient,
		rdb:    rdb,
		log:    log,
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() (SimConfig, config.Config) {
	baseCfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "dev")
		boot.Fatal().Err(err).Msg("failed to load base config")
	}

	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		BookingRatio:  getFloat("SIM_BOOKING_RATIO", 0.4),
		DeferredRatio: getFloat("SIM_DEFERRED_RATIO", 0.1),
		ConfirmRatio:  getFloat("SIM_CONFIRM_RATIO", 0.2),
		BrowseRatio:   getFloat("SIM_BROWSE_RATIO", 0.3),
		PatientLimit:  getInt("SIM_PATIENT_LIMIT", 4000),
		PostgresDSN:   baseCfg.PostgresDSN,
		JWTSecret:     baseCfg.JWTSecret,
		VaultBackend:  getEnv("SIM_VAULT_BACKEND", "redis"),
		VaultDir:      getEnv("SIM_VAULT_DIR", os.TempDir()),
		VaultTTL:      baseCfg.VaultTTL,
		LockTTL:       baseCfg.LockTTL,
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.DeferredRatio + cfg.ConfirmRatio + cfg.BrowseRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.DeferredRatio /= total
		cfg.ConfirmRatio /= total
		cfg.BrowseRatio /= total
	}

	return cfg, baseCfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.VaultBackend != "redis" && cfg.VaultBackend != "file" {
		return fmt.Errorf("SIM_VAULT_BACKEND must be redis or file, got %q", cfg.VaultBackend)
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, apiClient *client.Client, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT id FROM patients LIMIT $1
	`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dataPool.Specialties, err = apiClient.ListSpecialties(ctx)
	if err != nil {
		return nil, fmt.Errorf("load specialties: %w", err)
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}
	if len(dataPool.Specialties) == 0 {
		return nil, fmt.Errorf("no specialties loaded")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.log.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.DeferredRatio:
				s.doDeferredBooking(ctx, rng, workerID)
			case r < s.config.BookingRatio+s.config.DeferredRatio+s.config.ConfirmRatio:
				s.doConfirm(ctx, rng)
			default:
				s.doBrowse(ctx, rng)
			}
		}
	}
}

func (s *Simulator) token(who actor.Actor) (string, error) {
	return api.IssueToken(s.config.JWTSecret, who, time.Hour)
}

// walkCascade picks a random specialty, doctor, date and open time. It
// returns false when the random path ran into an empty level.
func (s *Simulator) walkCascade(ctx context.Context, rng *rand.Rand, c *booking.Cascade) (bool, error) {
	sp := s.pool.Specialties[rng.Intn(len(s.pool.Specialties))]
	if err := c.SelectSpecialty(ctx, booking.Option{ID: sp.ID, Name: sp.Name}); err != nil {
		return false, err
	}
	doctors := c.State().Doctors
	if len(doctors) == 0 {
		return false, nil
	}
	if err := c.SelectDoctor(ctx, doctors[rng.Intn(len(doctors))].ID); err != nil {
		return false, err
	}
	dates := c.State().Dates
	if len(dates) == 0 {
		return false, nil
	}
	if err := c.SelectDate(ctx, dates[rng.Intn(len(dates))]); err != nil {
		return false, err
	}

	var open []schedule.TimeSlot
	for _, slot := range c.State().Slots {
		if slot.Status == schedule.SlotAvailable {
			open = append(open, slot)
		}
	}
	if len(open) == 0 {
		return false, nil
	}
	return true, c.SelectTime(open[rng.Intn(len(open))].Time)
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	tok, err := s.token(actor.Patient(patientID))
	if err != nil {
		s.log.Error().Err(err).Msg("issue token")
		return
	}

	start := time.Now()
	c := booking.NewCascade(s.api, s.api.WithToken(tok), nil)
	c.SetPatient(&patientID)

	ok, err := s.walkCascade(ctx, rng, c)
	if err == nil && ok {
		var res *booking.SubmitResult
		res, err = c.Submit(ctx)
		if err == nil {
			s.pool.AddAppointment(res.Appointment)
		}
	}
	if !ok && err == nil {
		return
	}
	s.metrics.Booking.Record(time.Since(start), err == nil, isConflict(err))
	s.logFailure("booking", err)
}

// newVault gives each worker its own browser session. With Redis the
// booking lives under session:sim-worker-<n>:deferred_booking for VaultTTL
// and Complete holds the session lock.
func (s *Simulator) newVault(workerID int, booker booking.Booker) *booking.Vault {
	if s.rdb == nil {
		storage := booking.NewFileStorage(filepath.Join(s.config.VaultDir, fmt.Sprintf("clinic-sim-vault-%d.json", workerID)))
		return booking.NewVault(storage, booker, s.log)
	}
	slot := redisclient.NewSessionSlot(s.rdb, "deferred_booking", fmt.Sprintf("sim-worker-%d", workerID), s.config.VaultTTL)
	return booking.NewVault(slot, booker, s.log).
		WithLocker(redisclient.NewRedisLocker(s.rdb, s.config.LockTTL), slot.Key())
}

// doDeferredBooking books as a visitor, parks the booking in the vault,
// then signs in as a patient and replays it.
func (s *Simulator) doDeferredBooking(ctx context.Context, rng *rand.Rand, workerID int) {
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	tok, err := s.token(actor.Patient(patientID))
	if err != nil {
		s.log.Error().Err(err).Msg("issue token")
		return
	}

	vault := s.newVault(workerID, s.api.WithToken(tok))

	start := time.Now()
	c := booking.NewCascade(s.api, s.api, vault)
	c.SetIdentity(booking.PatientIdentity{Name: "Simulated Visitor", NationalID: strconv.Itoa(workerID), Phone: "555-0100"})

	ok, err := s.walkCascade(ctx, rng, c)
	if !ok && err == nil {
		return
	}
	if err == nil {
		_, err = c.Submit(ctx)
	}
	if err == nil {
		var appt *appointment.Appointment
		appt, err = vault.Complete(ctx, patientID)
		if appt != nil {
			s.pool.AddAppointment(appt)
		}
		if err != nil {
			_ = vault.Discard(ctx)
		}
	}
	s.metrics.Deferred.Record(time.Since(start), err == nil, isConflict(err))
	s.logFailure("deferred booking", err)
}

func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	tok, err := s.token(actor.Doctor(appt.DoctorID))
	if err != nil {
		s.log.Error().Err(err).Msg("issue token")
		return
	}

	start := time.Now()
	_, err = s.api.WithToken(tok).Confirm(ctx, appt.ID)
	conflict := errors.Is(err, appointment.ErrInvalidTransition)
	s.metrics.Confirm.Record(time.Since(start), err == nil, conflict)
	if !conflict {
		s.logFailure("confirm", err)
	}
}

func (s *Simulator) doBrowse(ctx context.Context, rng *rand.Rand) {
	start := time.Now()
	c := booking.NewCascade(s.api, s.api, nil)
	_, err := s.walkCascade(ctx, rng, c)
	s.metrics.Browse.Record(time.Since(start), err == nil, false)
	s.logFailure("browse", err)
}

func isConflict(err error) bool {
	return errors.Is(err, appointment.ErrSlotUnavailable)
}

func (s *Simulator) logFailure(op string, err error) {
	if err == nil || isConflict(err) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	s.log.Warn().Err(err).Str("op", op).Msg("operation failed")
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Direct booking", &s.metrics.Booking)
	printOperationReport("Deferred booking", &s.metrics.Deferred)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Browse", &s.metrics.Browse)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	error := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if error > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", error, float64(error)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func repeat(s string, n int) string {
	return strings.Repeat(s, n)
}
