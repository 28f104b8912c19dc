package main

import (
	"context"
	"flag"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	doctors := flag.Int("doctors", 100, "number of doctors to create")
	patients := flag.Int("patients", 9000, "number of patients to create")
	days := flag.Int("days", 28, "days of availability to publish per doctor, starting tomorrow")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "dev")
		boot.Fatal().Err(err).Msg("config load error")
	}
	log := logging.New(cfg.LogLevel, cfg.Env)
	log.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	ctx = context.Background()
	if err := db.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	specialtyIDs, err := seedSpecialties(ctx, pool, log)
	if err != nil {
		log.Fatal().Err(err).Msg("seed specialties")
	}
	doctorIDs, err := seedDoctors(ctx, pool, specialtyIDs, *doctors, log)
	if err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedPatients(ctx, pool, *patients, log); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}

	authoring := schedule.NewAuthoring(schedule.NewPgRepository(pool), cfg.ClinicLocation, cfg.MaxScheduleRangeDays, zerolog.Nop())
	if err := seedWindows(ctx, authoring, doctorIDs, *days, cfg.ClinicLocation, log); err != nil {
		log.Fatal().Err(err).Msg("seed availability")
	}

	log.Info().Msg("seed complete")
}

func seedSpecialties(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(specialties))
	for _, name := range specialties {
		var id uuid.UUID
		err := pool.QueryRow(ctx, `
			INSERT INTO specialties (id, name, created_at, updated_at)
			VALUES ($1, $2, now(), now())
			ON CONFLICT (name) DO UPDATE SET updated_at = now()
			RETURNING id
		`, uuid.New(), name).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	log.Info().Int("count", len(ids)).Msg("specialties seeded")
	return ids, nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, specialtyIDs []uuid.UUID, count int, log zerolog.Logger) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding doctors")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	durations := []any{nil, 15, 20, 30, 45}
	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		spec := specialtyIDs[gofakeit.Number(0, len(specialtyIDs)-1)]
		minutes := durations[gofakeit.Number(0, len(durations)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty_id, consultation_minutes, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, "Dr. "+gofakeit.Name(), spec, minutes, gofakeit.Number(1, 20) > 1)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Info().Msg("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int, log zerolog.Logger) error {
	log.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			var email *string
			if gofakeit.Bool() {
				e := gofakeit.Email()
				email = &e
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, national_id, phone, email, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.SSN(), gofakeit.Phone(), email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return nil
}

// seedWindows publishes a weekday morning or afternoon block for every doctor
// through the same path doctors use, so re-running the seed only fills gaps.
func seedWindows(ctx context.Context, authoring *schedule.Authoring, doctorIDs []uuid.UUID, days int, loc *time.Location, log zerolog.Logger) error {
	tomorrow := calendar.Today(time.Now(), loc).AddDays(1)
	blocks := [][2]string{{"08:00", "12:00"}, {"13:00", "17:00"}, {"09:00", "15:00"}}
	weekdays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

	var created, skipped int
	for _, id := range doctorIDs {
		block := blocks[gofakeit.Number(0, len(blocks)-1)]
		res, err := authoring.Publish(ctx, actor.Doctor(id), schedule.RangeRequest{
			StartDate: tomorrow,
			EndDate:   tomorrow.AddDays(days - 1),
			StartTime: calendar.MustTime(block[0]),
			EndTime:   calendar.MustTime(block[1]),
			Weekdays:  weekdays,
		})
		if err != nil {
			return err
		}
		created += len(res.Created)
		skipped += len(res.Skipped)
	}

	log.Info().Int("created", created).Int("skipped", skipped).Msg("availability seeded")
	return nil
}
