package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps bills in process, one per appointment.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]Bill
	byApp map[uuid.UUID]uuid.UUID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[uuid.UUID]Bill),
		byApp: make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *MemoryRepository) Create(_ context.Context, in NewBill) (*Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byApp[in.AppointmentID]; ok {
		return nil, ErrBillExists
	}

	now := time.Now().UTC()
	b := Bill{
		ID:             uuid.New(),
		AppointmentID:  in.AppointmentID,
		PrescriptionID: in.PrescriptionID,
		DoctorID:       in.DoctorID,
		PatientID:      in.PatientID,
		Items:          append([]LineItem(nil), in.Items...),
		Totals:         in.Totals,
		TaxBasisPoints: in.TaxBasisPoints,
		PaymentState:   in.State,
		IssuedAt:       in.IssuedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.byID[b.ID] = b
	r.byApp[b.AppointmentID] = b.ID
	return &b, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, ErrBillNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byApp[appointmentID]
	if !ok {
		return nil, ErrBillNotFound
	}
	b := r.byID[id]
	return &b, nil
}

func (r *MemoryRepository) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]Bill, error) {
	return r.filter(func(b Bill) bool { return b.DoctorID == doctorID }), nil
}

func (r *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Bill, error) {
	return r.filter(func(b Bill) bool { return b.PatientID == patientID }), nil
}

func (r *MemoryRepository) filter(keep func(Bill) bool) []Bill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []Bill{}
	for _, b := range r.byID {
		if keep(b) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].IssuedAt.After(result[j].IssuedAt) })
	return result
}

func (r *MemoryRepository) UpdatePayment(_ context.Context, id uuid.UUID, from, to PaymentState) (*Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok || !b.PaymentState.Same(from) {
		return nil, ErrBillNotFound
	}
	b.PaymentState = to
	b.UpdatedAt = time.Now().UTC()
	r.byID[id] = b
	return &b, nil
}
