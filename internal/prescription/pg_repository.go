package prescription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

const (
	appointmentKey = "prescriptions_appointment_key"

	prescriptionColumns = `id, appointment_id, doctor_id, patient_id, medicines, notes, created_at, updated_at`
)

type PgRepository struct {
	pool db.DBTX
}

func NewPgRepository(pool db.DBTX) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var medicines []byte

	err := row.Scan(&p.ID, &p.AppointmentID, &p.DoctorID, &p.PatientID, &medicines, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(medicines, &p.Medicines); err != nil {
		return nil, fmt.Errorf("decode medicines for prescription %s: %w", p.ID, err)
	}
	return &p, nil
}

func (r *PgRepository) Create(ctx context.Context, in NewPrescription) (*Prescription, error) {
	medicines, err := json.Marshal(in.Medicines)
	if err != nil {
		return nil, fmt.Errorf("encode medicines: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO prescriptions (id, appointment_id, doctor_id, patient_id, medicines, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+prescriptionColumns,
		uuid.New(), in.AppointmentID, in.DoctorID, in.PatientID, medicines, in.Notes)

	p, err := scanPrescription(row)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok && constraint == appointmentKey {
			return nil, ErrPrescriptionExists
		}
		return nil, err
	}
	return p, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		WHERE id = $1
	`, id)
	return scanPrescription(row)
}

func (r *PgRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Prescription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		WHERE appointment_id = $1
	`, appointmentID)
	return scanPrescription(row)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Prescription, error) {
	return r.list(ctx, `WHERE doctor_id = $1`, doctorID)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Prescription, error) {
	return r.list(ctx, `WHERE patient_id = $1`, patientID)
}

func (r *PgRepository) list(ctx context.Context, where string, arg any) ([]Prescription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		`+where+`
		ORDER BY created_at DESC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Prescription{}
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
