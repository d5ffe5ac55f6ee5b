package billing

import (
	"context"
	"errors"
	"testing"
	"time"

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

func newBillArgs() []any {
	args := make([]any, 15)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPgRepository_CreateMapsAppointmentKey(t *testing.T) {
	repo, mock := newMockRepo(t)
	in := NewBill{
		AppointmentID:  uuid.New(),
		DoctorID:       uuid.New(),
		PatientID:      uuid.New(),
		Items:          []LineItem{{Label: "Consultation", Qty: 1, UnitPrice: 50000}},
		Totals:         Totals{Subtotal: 50000, Tax: 9000, Total: 59000},
		TaxBasisPoints: 1800,
		State:          Unbilled(),
		IssuedAt:       time.Now(),
	}

	mock.ExpectQuery("INSERT INTO bills").
		WithArgs(newBillArgs()...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: appointmentKey})

	_, err := repo.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrBillExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_CreatePassesOtherErrors(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := &pgconn.PgError{Code: "23503", ConstraintName: "bills_appointment_id_fkey"}

	mock.ExpectQuery("INSERT INTO bills").
		WithArgs(newBillArgs()...).
		WillReturnError(boom)

	_, err := repo.Create(context.Background(), NewBill{AppointmentID: uuid.New(), State: Unbilled()})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrBillExists))
	assert.ErrorAs(t, err, &boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_UpdatePaymentIsCompareAndSet(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	paidAt := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	from := AwaitingOnline()
	to := SettledOnline(paidAt)

	// the stored state moved on, so the guarded update matches no row
	mock.ExpectQuery(`WHERE id = \$1\s+AND payment_method = \$2\s+AND payment_status = \$3\s+AND status = \$4`).
		WithArgs(id, MethodOnline, SettlementPending, LedgerUnpaid, MethodOnline, SettlementPaid, LedgerPaid, to.PaidAt).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.UpdatePayment(context.Background(), id, from, to)
	assert.ErrorIs(t, err, ErrBillNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_GetNoRowsMapsToNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	ctx := context.Background()

	mock.ExpectQuery(`FROM bills\s+WHERE id = \$1`).WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err := repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, ErrBillNotFound)

	mock.ExpectQuery(`FROM bills\s+WHERE appointment_id = \$1`).WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByAppointment(ctx, id)
	assert.ErrorIs(t, err, ErrBillNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_ListEmptyIsNonNil(t *testing.T) {
	repo, mock := newMockRepo(t)
	patientID := uuid.New()

	mock.ExpectQuery(`WHERE patient_id = \$1\s+ORDER BY issued_at DESC`).
		WithArgs(patientID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "appointment_id", "prescription_id", "doctor_id", "patient_id", "items", "subtotal", "tax", "total",
			"tax_basis_points", "payment_method", "payment_status", "status", "paid_at", "issued_at", "created_at", "updated_at",
		}))

	bills, err := repo.ListByPatient(context.Background(), patientID)
	require.NoError(t, err)
	assert.NotNil(t, bills)
	assert.Empty(t, bills)
	assert.NoError(t, mock.ExpectationsWereMet())
}
