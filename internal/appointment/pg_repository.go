package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

const (
	activeSlotConstraint        = "appointments_active_slot_uidx"
	activePatientSlotConstraint = "appointments_active_patient_slot_uidx"
	staffEmailConstraint        = "staff_doctor_id_email_key"

	staffColumns       = `id, doctor_id, name, email, role, created_at, updated_at`
	appointmentColumns = `id, patient_id, doctor_id, date, slot, status, session_start_time, session_end_time, notes, created_at, updated_at`
)

type PgRepository struct {
	pool db.DBTX
}

func NewPgRepository(pool db.DBTX) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var availability []byte

	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Specialization, &availability, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Availability = []DayAvailability{}
	if len(availability) > 0 {
		if err := json.Unmarshal(availability, &d.Availability); err != nil {
			return nil, fmt.Errorf("decode availability for doctor %s: %w", d.ID, err)
		}
	}
	return &d, nil
}

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.DoctorID, &s.Name, &s.Email, &s.Role, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.Slot,
		&a.Status,
		&a.SessionStartTime,
		&a.SessionEndTime,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, specialization, availability, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, specialization, availability, created_at, updated_at
		FROM doctors
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDoctor)
}

func (r *PgRepository) GetStaffByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+staffColumns+`
		FROM staff
		WHERE id = $1
	`, id)
	return scanStaff(row)
}

func (r *PgRepository) ListStaffByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Staff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+staffColumns+`
		FROM staff
		WHERE doctor_id = $1
		ORDER BY name
	`, doctorID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanStaff)
}

func (r *PgRepository) CreateStaff(ctx context.Context, doctorID uuid.UUID, in StaffDraft) (*Staff, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO staff (id, doctor_id, name, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING `+staffColumns,
		uuid.New(), doctorID, in.Name, in.Email, in.Role)

	return staffWriteResult(scanStaff(row))
}

func (r *PgRepository) UpdateStaff(ctx context.Context, doctorID, id uuid.UUID, in StaffDraft) (*Staff, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE staff
		SET name = $3,
		    email = $4,
		    role = $5,
		    updated_at = now()
		WHERE id = $1
		  AND doctor_id = $2
		RETURNING `+staffColumns,
		id, doctorID, in.Name, in.Email, in.Role)

	return staffWriteResult(scanStaff(row))
}

func staffWriteResult(s *Staff, err error) (*Staff, error) {
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok && constraint == staffEmailConstraint {
			return nil, ErrStaffEmailExists
		}
		return nil, err
	}
	return s, nil
}

func (r *PgRepository) DeleteStaff(ctx context.Context, doctorID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM staff WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return fmt.Errorf("delete staff: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaffNotFound
	}
	return nil
}

func (r *PgRepository) ListPatientsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.email, p.phone, p.created_at, p.updated_at
		FROM patients p
		WHERE EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.patient_id = p.id AND a.doctor_id = $1
		)
		ORDER BY p.name
	`, doctorID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPatient)
}

func (r *PgRepository) ReplaceAvailability(ctx context.Context, doctorID uuid.UUID, availability []DayAvailability) (*Doctor, error) {
	data, err := json.Marshal(availability)
	if err != nil {
		return nil, fmt.Errorf("encode availability: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE doctors
		SET availability = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, name, email, specialization, availability, created_at, updated_at
	`, doctorID, data)
	return scanDoctor(row)
}

func (r *PgRepository) FindActiveBySlot(ctx context.Context, doctorID uuid.UUID, date, slot string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND slot = $3 AND status <> 'cancelled'
	`, doctorID, date, slot)
	return scanAppointment(row)
}

func (r *PgRepository) FindActiveForPatient(ctx context.Context, patientID uuid.UUID, date, slot string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1 AND date = $2 AND slot = $3 AND status <> 'cancelled'
		LIMIT 1
	`, patientID, date, slot)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, in NewAppointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, date, slot, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6, now(), now())
		RETURNING `+appointmentColumns,
		id, in.PatientID, in.DoctorID, in.Date, in.Slot, in.Notes)

	appt, err := scanAppointment(row)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok {
			switch constraint {
			case activeSlotConstraint:
				return nil, ErrSlotTaken
			case activePatientSlotConstraint:
				return nil, ErrPatientConflict
			}
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, change StatusChange) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    session_start_time = COALESCE($4, session_start_time),
		    session_end_time = COALESCE($5, session_end_time),
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns,
		id, change.To, change.From, change.SessionStartTime, change.SessionEndTime)

	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f Filter) ([]Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.DoctorID != nil {
		add("doctor_id = $%d", *f.DoctorID)
	}
	if f.PatientID != nil {
		add("patient_id = $%d", *f.PatientID)
	}
	if f.Date != "" {
		add("date = $%d", f.Date)
	}
	if f.From != "" {
		add("date >= $%d", f.From)
	}
	if f.To != "" {
		add("date <= $%d", f.To)
	}
	if f.ActiveOnly {
		where = append(where, "status <> 'cancelled'")
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date, slot`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAppointment)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
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
