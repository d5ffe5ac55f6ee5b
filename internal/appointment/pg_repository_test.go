package appointment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgRepository(mock), mock
}

func TestPgRepository_CreateAppointmentMapsConstraints(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{constraint: activeSlotConstraint, want: ErrSlotTaken},
		{constraint: activePatientSlotConstraint, want: ErrPatientConflict},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			in := NewAppointment{PatientID: uuid.New(), DoctorID: uuid.New(), Date: "2026-10-26", Slot: "09:00-09:30"}

			mock.ExpectQuery("INSERT INTO appointments").
				WithArgs(pgxmock.AnyArg(), in.PatientID, in.DoctorID, in.Date, in.Slot, in.Notes).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			_, err := repo.CreateAppointment(context.Background(), in)
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPgRepository_CreateAppointmentPassesOtherErrors(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := &pgconn.PgError{Code: "23503", ConstraintName: "appointments_doctor_id_fkey"}

	in := NewAppointment{PatientID: uuid.New(), DoctorID: uuid.New(), Date: "2026-10-26", Slot: "09:00-09:30"}

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), in.PatientID, in.DoctorID, in.Date, in.Slot, in.Notes).
		WillReturnError(boom)

	_, err := repo.CreateAppointment(context.Background(), in)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSlotTaken))
	assert.ErrorAs(t, err, &boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_NoRowsMapsToNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	ctx := context.Background()

	mock.ExpectQuery("FROM appointments").WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err := repo.GetAppointmentByID(ctx, id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	mock.ExpectQuery("FROM doctors").WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetDoctorByID(ctx, id)
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	mock.ExpectQuery("FROM staff").WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetStaffByID(ctx, id)
	assert.ErrorIs(t, err, ErrStaffNotFound)

	mock.ExpectQuery("FROM patients").WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetPatientByID(ctx, id)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_UpdateStatusIsCompareAndSet(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	// a stale From matches no row
	mock.ExpectQuery(`UPDATE appointments\s+SET status = \$2`).
		WithArgs(id, StatusConfirmed, StatusPending, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.UpdateAppointmentStatus(context.Background(), id, StatusChange{From: StatusPending, To: StatusConfirmed})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_ListAppointmentsBuildsFilter(t *testing.T) {
	repo, mock := newMockRepo(t)
	doctorID := uuid.New()

	mock.ExpectQuery(`WHERE doctor_id = \$1 AND date >= \$2 AND status <> 'cancelled' ORDER BY date, slot`).
		WithArgs(doctorID, "2026-10-19").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "doctor_id", "date", "slot", "status",
			"session_start_time", "session_end_time", "notes", "created_at", "updated_at",
		}))

	appts, err := repo.ListAppointments(context.Background(), Filter{DoctorID: &doctorID, From: "2026-10-19", ActiveOnly: true})
	require.NoError(t, err)
	assert.NotNil(t, appts)
	assert.Empty(t, appts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_InsertEvent(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(EventAppointmentBooked, &id, []byte(`{}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.InsertEvent(context.Background(), EventLog{EventType: EventAppointmentBooked, AppointmentID: &id, Payload: []byte(`{}`)})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(EventAppointmentCancelled, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	err = repo.InsertEvent(context.Background(), EventLog{EventType: EventAppointmentCancelled})
	assert.ErrorContains(t, err, "insert event log")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_StaffEmailConstraint(t *testing.T) {
	repo, mock := newMockRepo(t)
	doctorID := uuid.New()
	in := StaffDraft{Name: "Kiran", Email: "kiran@clinic.example", Role: "nurse"}

	mock.ExpectQuery("INSERT INTO staff").
		WithArgs(pgxmock.AnyArg(), doctorID, in.Name, in.Email, in.Role).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: staffEmailConstraint})

	_, err := repo.CreateStaff(context.Background(), doctorID, in)
	assert.ErrorIs(t, err, ErrStaffEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_StaffWritesAreDoctorScoped(t *testing.T) {
	repo, mock := newMockRepo(t)
	doctorID, staffID := uuid.New(), uuid.New()
	in := StaffDraft{Name: "Kiran", Email: "kiran@clinic.example", Role: "nurse"}
	ctx := context.Background()

	mock.ExpectQuery(`UPDATE staff[\s\S]+WHERE id = \$1\s+AND doctor_id = \$2`).
		WithArgs(staffID, doctorID, in.Name, in.Email, in.Role).
		WillReturnError(pgx.ErrNoRows)
	_, err := repo.UpdateStaff(ctx, doctorID, staffID, in)
	assert.ErrorIs(t, err, ErrStaffNotFound)

	mock.ExpectExec(`DELETE FROM staff WHERE id = \$1 AND doctor_id = \$2`).
		WithArgs(staffID, doctorID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	err = repo.DeleteStaff(ctx, doctorID, staffID)
	assert.ErrorIs(t, err, ErrStaffNotFound)

	mock.ExpectExec(`DELETE FROM staff`).
		WithArgs(staffID, doctorID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	assert.NoError(t, repo.DeleteStaff(ctx, doctorID, staffID))

	assert.NoError(t, mock.ExpectationsWereMet())
}
