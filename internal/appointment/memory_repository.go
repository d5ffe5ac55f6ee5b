package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository. It enforces the same
// active-slot uniqueness rules as the Postgres partial indexes, atomically
// under its lock.
type MemoryRepository struct {
	mu           sync.RWMutex
	patients     map[uuid.UUID]Patient
	doctors      map[uuid.UUID]Doctor
	staff        map[uuid.UUID]Staff
	appointments map[uuid.UUID]Appointment
	events       []EventLog
	now          func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:     make(map[uuid.UUID]Patient),
		doctors:      make(map[uuid.UUID]Doctor),
		staff:        make(map[uuid.UUID]Staff),
		appointments: make(map[uuid.UUID]Appointment),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) AddPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = p
}

func (r *MemoryRepository) AddDoctor(d Doctor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.Availability = cloneAvailability(d.Availability)
	r.doctors[d.ID] = d
}

func (r *MemoryRepository) AddStaff(s Staff) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staff[s.ID] = s
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventLog(nil), r.events...)
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	d.Availability = cloneAvailability(d.Availability)
	return &d, nil
}

func (r *MemoryRepository) ListDoctors(_ context.Context) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		d.Availability = cloneAvailability(d.Availability)
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRepository) GetStaffByID(_ context.Context, id uuid.UUID) (*Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.staff[id]
	if !ok {
		return nil, ErrStaffNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) ListStaffByDoctor(_ context.Context, doctorID uuid.UUID) ([]Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []Staff{}
	for _, s := range r.staff {
		if s.DoctorID == doctorID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRepository) CreateStaff(_ context.Context, doctorID uuid.UUID, in StaffDraft) (*Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.staffEmailTaken(doctorID, uuid.Nil, in.Email) {
		return nil, ErrStaffEmailExists
	}

	now := r.now()
	email := in.Email
	s := Staff{ID: uuid.New(), DoctorID: doctorID, Name: in.Name, Email: &email, Role: in.Role, CreatedAt: now, UpdatedAt: now}
	r.staff[s.ID] = s
	return &s, nil
}

func (r *MemoryRepository) UpdateStaff(_ context.Context, doctorID, id uuid.UUID, in StaffDraft) (*Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.staff[id]
	if !ok || s.DoctorID != doctorID {
		return nil, ErrStaffNotFound
	}
	if r.staffEmailTaken(doctorID, id, in.Email) {
		return nil, ErrStaffEmailExists
	}

	email := in.Email
	s.Name, s.Email, s.Role, s.UpdatedAt = in.Name, &email, in.Role, r.now()
	r.staff[id] = s
	return &s, nil
}

func (r *MemoryRepository) DeleteStaff(_ context.Context, doctorID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.staff[id]
	if !ok || s.DoctorID != doctorID {
		return ErrStaffNotFound
	}
	delete(r.staff, id)
	return nil
}

// staffEmailTaken mirrors UNIQUE (doctor_id, email). Callers hold r.mu.
func (r *MemoryRepository) staffEmailTaken(doctorID, except uuid.UUID, email string) bool {
	for _, s := range r.staff {
		if s.ID != except && s.DoctorID == doctorID && s.Email != nil && *s.Email == email {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) ListPatientsByDoctor(_ context.Context, doctorID uuid.UUID) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[uuid.UUID]bool)
	result := []Patient{}
	for _, a := range r.appointments {
		if a.DoctorID != doctorID || seen[a.PatientID] {
			continue
		}
		seen[a.PatientID] = true
		if p, ok := r.patients[a.PatientID]; ok {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRepository) ReplaceAvailability(_ context.Context, doctorID uuid.UUID, availability []DayAvailability) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[doctorID]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	d.Availability = cloneAvailability(availability)
	d.UpdatedAt = r.now()
	r.doctors[doctorID] = d

	d.Availability = cloneAvailability(d.Availability)
	return &d, nil
}

func (r *MemoryRepository) FindActiveBySlot(_ context.Context, doctorID uuid.UUID, date, slot string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.Slot == slot && a.Status.Active() {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemoryRepository) FindActiveForPatient(_ context.Context, patientID uuid.UUID, date, slot string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.appointments {
		if a.PatientID == patientID && a.Date == date && a.Slot == slot && a.Status.Active() {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, in NewAppointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// The doctor's slot is checked before the patient's, whatever the map order.
	patientBusy := false
	for _, a := range r.appointments {
		if !a.Status.Active() || a.Date != in.Date || a.Slot != in.Slot {
			continue
		}
		if a.DoctorID == in.DoctorID {
			return nil, ErrSlotTaken
		}
		if a.PatientID == in.PatientID {
			patientBusy = true
		}
	}
	if patientBusy {
		return nil, ErrPatientConflict
	}

	now := r.now()
	appt := Appointment{
		ID:        uuid.New(),
		PatientID: in.PatientID,
		DoctorID:  in.DoctorID,
		Date:      in.Date,
		Slot:      in.Slot,
		Status:    StatusPending,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.appointments[appt.ID] = appt
	return &appt, nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, change StatusChange) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.Status != change.From {
		return nil, ErrAppointmentNotFound
	}
	a.Status = change.To
	if change.SessionStartTime != nil {
		a.SessionStartTime = change.SessionStartTime
	}
	if change.SessionEndTime != nil {
		a.SessionEndTime = change.SessionEndTime
	}
	a.UpdatedAt = r.now()
	r.appointments[id] = a
	return &a, nil
}

func (r *MemoryRepository) ListAppointments(_ context.Context, f Filter) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []Appointment{}
	for _, a := range r.appointments {
		switch {
		case f.DoctorID != nil && a.DoctorID != *f.DoctorID,
			f.PatientID != nil && a.PatientID != *f.PatientID,
			f.Date != "" && a.Date != f.Date,
			f.From != "" && a.Date < f.From,
			f.To != "" && a.Date > f.To,
			f.ActiveOnly && !a.Status.Active():
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Slot < result[j].Slot
	})
	return result, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = r.now()
	}
	r.events = append(r.events, ev)
	return nil
}

func cloneAvailability(in []DayAvailability) []DayAvailability {
	out := make([]DayAvailability, len(in))
	for i, d := range in {
		out[i] = DayAvailability{Day: d.Day, Slots: append([]string(nil), d.Slots...)}
	}
	return out
}
