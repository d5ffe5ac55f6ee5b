package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/pkg/logging"
)

var specializations = []string{
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

var staffRoles = []string{"nurse", "receptionist", "technician", "assistant"}

func main() {
	logger := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("APP_ENV"))
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 4)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	_ = gofakeit.Seed(0)

	doctors, err := seedDoctors(context.Background(), pool, logger, 20)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedStaff(context.Background(), pool, logger, doctors, 2); err != nil {
		logger.Fatal().Err(err).Msg("seed staff")
	}
	if err := seedPatients(context.Background(), pool, logger, 2000); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}

	logger.Info().Msg("seed complete")
}

// uniqueEmail keeps fake addresses clear of the email unique constraints.
func uniqueEmail(id uuid.UUID) string {
	return fmt.Sprintf("%s.%s@example.com", gofakeit.Username(), id.String()[:8])
}

// weeklyAvailability gives every weekday a morning of consecutive
// 30 minute slots. Weekends are off.
func weeklyAvailability() []appointment.DayAvailability {
	startHour := gofakeit.Number(8, 10)
	slots := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		start := startHour*60 + i*30
		slots = append(slots, appointment.TimeRange{Start: start, End: start + 30}.String())
	}

	days := []appointment.Weekday{appointment.Mon, appointment.Tue, appointment.Wed, appointment.Thu, appointment.Fri}
	out := make([]appointment.DayAvailability, 0, len(days))
	for _, d := range days {
		out = append(out, appointment.DayAvailability{Day: d, Slots: slots})
	}
	return out
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, count int) ([]uuid.UUID, error) {
	logger.Info().Int("count", count).Msg("seeding doctors")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		availability := weeklyAvailability()
		if err := appointment.ValidateAvailability(availability); err != nil {
			return nil, fmt.Errorf("generated availability is invalid: %w", err)
		}
		data, err := json.Marshal(availability)
		if err != nil {
			return nil, err
		}

		id := uuid.New()
		_, err = tx.Exec(ctx, `
			INSERT INTO doctors (id, name, email, specialization, availability, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, "Dr. "+gofakeit.Name(), uniqueEmail(id), specializations[gofakeit.Number(0, len(specializations)-1)], data)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	logger.Info().Msg("doctors seeded")
	return ids, nil
}

func seedStaff(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, doctors []uuid.UUID, perDoctor int) error {
	logger.Info().Int("per_doctor", perDoctor).Msg("seeding staff")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, doctorID := range doctors {
		for i := 0; i < perDoctor; i++ {
			id := uuid.New()
			_, err := tx.Exec(ctx, `
				INSERT INTO staff (id, doctor_id, name, email, role, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, id, doctorID, gofakeit.Name(), uniqueEmail(id), staffRoles[gofakeit.Number(0, len(staffRoles)-1)])
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Info().Msg("staff seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, count int) error {
	logger.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, gofakeit.Name(), uniqueEmail(id), gofakeit.Phone())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info().Int("seeded", end).Int("total", count).Msg("patients batch committed")
	}

	logger.Info().Msg("patients seeded")
	return nil
}
