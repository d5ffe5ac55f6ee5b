package billing

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
	appointmentKey = "bills_appointment_key"

	billColumns = `id, appointment_id, prescription_id, doctor_id, patient_id, items, subtotal, tax, total, tax_basis_points,
		payment_method, payment_status, status, paid_at, issued_at, created_at, updated_at`
)

type PgRepository struct {
	pool db.DBTX
}

func NewPgRepository(pool db.DBTX) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	var items []byte

	err := row.Scan(
		&b.ID,
		&b.AppointmentID,
		&b.PrescriptionID,
		&b.DoctorID,
		&b.PatientID,
		&items,
		&b.Subtotal,
		&b.Tax,
		&b.Total,
		&b.TaxBasisPoints,
		&b.Method,
		&b.Settlement,
		&b.Ledger,
		&b.PaidAt,
		&b.IssuedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(items, &b.Items); err != nil {
		return nil, fmt.Errorf("decode items for bill %s: %w", b.ID, err)
	}
	return &b, nil
}

func (r *PgRepository) Create(ctx context.Context, in NewBill) (*Bill, error) {
	items, err := json.Marshal(in.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO bills (id, appointment_id, prescription_id, doctor_id, patient_id, items, subtotal, tax, total,
		                   tax_basis_points, payment_method, payment_status, status, paid_at, issued_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
		RETURNING `+billColumns,
		uuid.New(), in.AppointmentID, in.PrescriptionID, in.DoctorID, in.PatientID, items,
		in.Totals.Subtotal, in.Totals.Tax, in.Totals.Total, in.TaxBasisPoints,
		in.State.Method, in.State.Settlement, in.State.Ledger, in.State.PaidAt, in.IssuedAt)

	b, err := scanBill(row)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok && constraint == appointmentKey {
			return nil, ErrBillExists
		}
		return nil, err
	}
	return b, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+billColumns+`
		FROM bills
		WHERE id = $1
	`, id)
	return scanBill(row)
}

func (r *PgRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Bill, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+billColumns+`
		FROM bills
		WHERE appointment_id = $1
	`, appointmentID)
	return scanBill(row)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Bill, error) {
	return r.list(ctx, `WHERE doctor_id = $1`, doctorID)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Bill, error) {
	return r.list(ctx, `WHERE patient_id = $1`, patientID)
}

func (r *PgRepository) list(ctx context.Context, where string, arg any) ([]Bill, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+billColumns+`
		FROM bills
		`+where+`
		ORDER BY issued_at DESC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Bill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) UpdatePayment(ctx context.Context, id uuid.UUID, from, to PaymentState) (*Bill, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bills
		SET payment_method = $5,
		    payment_status = $6,
		    status = $7,
		    paid_at = $8,
		    updated_at = now()
		WHERE id = $1
		  AND payment_method = $2
		  AND payment_status = $3
		  AND status = $4
		RETURNING `+billColumns,
		id, from.Method, from.Settlement, from.Ledger,
		to.Method, to.Settlement, to.Ledger, to.PaidAt)

	return scanBill(row)
}
