package prescription

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps prescriptions in process with the same
// one-per-appointment rule as the Postgres unique constraint.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]Prescription
	byApp map[uuid.UUID]uuid.UUID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[uuid.UUID]Prescription),
		byApp: make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *MemoryRepository) Create(_ context.Context, in NewPrescription) (*Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byApp[in.AppointmentID]; ok {
		return nil, ErrPrescriptionExists
	}

	now := time.Now().UTC()
	p := Prescription{
		ID:            uuid.New(),
		AppointmentID: in.AppointmentID,
		DoctorID:      in.DoctorID,
		PatientID:     in.PatientID,
		Medicines:     append([]Medicine(nil), in.Medicines...),
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.byID[p.ID] = p
	r.byApp[p.AppointmentID] = p.ID
	return &p, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byApp[appointmentID]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	p := r.byID[id]
	return &p, nil
}

func (r *MemoryRepository) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]Prescription, error) {
	return r.filter(func(p Prescription) bool { return p.DoctorID == doctorID }), nil
}

func (r *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Prescription, error) {
	return r.filter(func(p Prescription) bool { return p.PatientID == patientID }), nil
}

func (r *MemoryRepository) filter(keep func(Prescription) bool) []Prescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []Prescription{}
	for _, p := range r.byID {
		if keep(p) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}
