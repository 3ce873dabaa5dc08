// Package gatewaytest provides an in-memory implementation of the gateway
// repositories for tests in other packages. It enforces the same uniqueness
// rules as the PostgreSQL schema.
package gatewaytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/carehospital/portal/internal/platform/gateway"
)

// Memory holds every table. Zero value is not usable; call NewMemory.
type Memory struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]*gateway.User
	sessions      map[uuid.UUID]*gateway.Session
	patients      map[uuid.UUID]*gateway.Patient
	departments   map[uuid.UUID]*gateway.Department
	doctors       map[uuid.UUID]*gateway.Doctor
	services      map[uuid.UUID]*gateway.Service
	appointments  map[uuid.UUID]*gateway.Appointment
	checkIns      map[uuid.UUID]*gateway.CheckIn
	consultations map[uuid.UUID]*gateway.Consultation

	// Calls counts repository invocations by "table.method".
	Calls map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		users:         map[uuid.UUID]*gateway.User{},
		sessions:      map[uuid.UUID]*gateway.Session{},
		patients:      map[uuid.UUID]*gateway.Patient{},
		departments:   map[uuid.UUID]*gateway.Department{},
		doctors:       map[uuid.UUID]*gateway.Doctor{},
		services:      map[uuid.UUID]*gateway.Service{},
		appointments:  map[uuid.UUID]*gateway.Appointment{},
		checkIns:      map[uuid.UUID]*gateway.CheckIn{},
		consultations: map[uuid.UUID]*gateway.Consultation{},
		Calls:         map[string]int{},
	}
}

// Repos returns repositories backed by m.
func (m *Memory) Repos() gateway.Repos {
	return gateway.Repos{
		Users:         memUsers{m},
		Sessions:      memSessions{m},
		Patients:      memPatients{m},
		Departments:   memDepartments{m},
		Doctors:       memDoctors{m},
		Services:      memServices{m},
		Appointments:  memAppointments{m},
		CheckIns:      memCheckIns{m},
		Consultations: memConsultations{m},
	}
}

// CallCount is safe to use while handlers are running.
func (m *Memory) CallCount(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Calls[key]
}

func (m *Memory) lock(call string) func() {
	m.mu.Lock()
	m.Calls[call]++
	return m.mu.Unlock
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

func values[T any](src map[uuid.UUID]*T, keep func(*T) bool) []*T {
	var out []*T
	for _, v := range src {
		if keep == nil || keep(v) {
			out = append(out, clone(v))
		}
	}
	return out
}

// =========== users ===========

type memUsers struct{ m *Memory }

func (r memUsers) Create(ctx context.Context, u *gateway.User) error {
	defer r.m.lock("users.Create")()
	for _, existing := range r.m.users {
		if existing.Email == u.Email {
			return gateway.ErrConflict
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.m.users[u.ID] = clone(u)
	return nil
}

func (r memUsers) GetByID(ctx context.Context, id uuid.UUID) (*gateway.User, error) {
	defer r.m.lock("users.GetByID")()
	if u, ok := r.m.users[id]; ok {
		return clone(u), nil
	}
	return nil, gateway.ErrNotFound
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*gateway.User, error) {
	defer r.m.lock("users.GetByEmail")()
	for _, u := range r.m.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, gateway.ErrNotFound
}

// =========== sessions ===========

type memSessions struct{ m *Memory }

func (r memSessions) Create(ctx context.Context, s *gateway.Session) error {
	defer r.m.lock("sessions.Create")()
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	r.m.sessions[s.ID] = clone(s)
	return nil
}

func (r memSessions) GetByID(ctx context.Context, id uuid.UUID) (*gateway.Session, error) {
	defer r.m.lock("sessions.GetByID")()
	if s, ok := r.m.sessions[id]; ok {
		return clone(s), nil
	}
	return nil, gateway.ErrNotFound
}

func (r memSessions) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	defer r.m.lock("sessions.Revoke")()
	s, ok := r.m.sessions[id]
	if !ok || s.RevokedAt != nil {
		return gateway.ErrNotFound
	}
	s.RevokedAt = &at
	return nil
}

// =========== patients ===========

type memPatients struct{ m *Memory }

func (r memPatients) Create(ctx context.Context, p *gateway.Patient) error {
	defer r.m.lock("patients.Create")()
	for _, existing := range r.m.patients {
		if existing.UserID == p.UserID {
			return gateway.ErrConflict
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.m.patients[p.ID] = clone(p)
	return nil
}

func (r memPatients) GetByUserID(ctx context.Context, userID uuid.UUID) (*gateway.Patient, error) {
	defer r.m.lock("patients.GetByUserID")()
	for _, p := range r.m.patients {
		if p.UserID == userID {
			return clone(p), nil
		}
	}
	return nil, gateway.ErrNotFound
}

func (r memPatients) Update(ctx context.Context, p *gateway.Patient) error {
	defer r.m.lock("patients.Update")()
	existing, ok := r.m.patients[p.ID]
	if !ok {
		return gateway.ErrNotFound
	}
	p.UserID = existing.UserID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	r.m.patients[p.ID] = clone(p)
	return nil
}

// =========== departments ===========

type memDepartments struct{ m *Memory }

func (r memDepartments) List(ctx context.Context) ([]*gateway.Department, error) {
	defer r.m.lock("departments.List")()
	items := values(r.m.departments, nil)
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (r memDepartments) GetByID(ctx context.Context, id uuid.UUID) (*gateway.Department, error) {
	defer r.m.lock("departments.GetByID")()
	if d, ok := r.m.departments[id]; ok {
		return clone(d), nil
	}
	return nil, gateway.ErrNotFound
}

func (r memDepartments) Upsert(ctx context.Context, d *gateway.Department) error {
	defer r.m.lock("departments.Upsert")()
	for _, existing := range r.m.departments {
		if existing.Name == d.Name {
			d.ID, d.CreatedAt = existing.ID, existing.CreatedAt
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	r.m.departments[d.ID] = clone(d)
	return nil
}

func (m *Memory) departmentSummary(id uuid.UUID) *gateway.DepartmentSummary {
	if d, ok := m.departments[id]; ok {
		return &gateway.DepartmentSummary{Name: d.Name}
	}
	return &gateway.DepartmentSummary{}
}

func (m *Memory) doctorSummary(id uuid.UUID) *gateway.DoctorSummary {
	if d, ok := m.doctors[id]; ok {
		return &gateway.DoctorSummary{FirstName: d.FirstName, LastName: d.LastName, Specialization: d.Specialization}
	}
	return &gateway.DoctorSummary{}
}

// =========== doctors ===========

type memDoctors struct{ m *Memory }

func (r memDoctors) list(filter func(*gateway.Doctor) bool) []*gateway.Doctor {
	items := values(r.m.doctors, filter)
	for _, d := range items {
		d.Department = r.m.departmentSummary(d.DepartmentID)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].LastName < items[j].LastName })
	return items
}

func (r memDoctors) ListAvailable(ctx context.Context) ([]*gateway.Doctor, error) {
	defer r.m.lock("doctors.ListAvailable")()
	return r.list(func(d *gateway.Doctor) bool { return d.Available }), nil
}

func (r memDoctors) ListAvailableByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*gateway.Doctor, error) {
	defer r.m.lock("doctors.ListAvailableByDepartment")()
	return r.list(func(d *gateway.Doctor) bool { return d.Available && d.DepartmentID == departmentID }), nil
}

func (r memDoctors) Upsert(ctx context.Context, d *gateway.Doctor) error {
	defer r.m.lock("doctors.Upsert")()
	for _, existing := range r.m.doctors {
		if existing.FirstName == d.FirstName && existing.LastName == d.LastName && existing.DepartmentID == d.DepartmentID {
			d.ID, d.CreatedAt = existing.ID, existing.CreatedAt
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	r.m.doctors[d.ID] = clone(d)
	return nil
}

// =========== services ===========

type memServices struct{ m *Memory }

func (r memServices) list(filter func(*gateway.Service) bool) []*gateway.Service {
	items := values(r.m.services, filter)
	for _, s := range items {
		s.Department = r.m.departmentSummary(s.DepartmentID)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

func (r memServices) List(ctx context.Context) ([]*gateway.Service, error) {
	defer r.m.lock("services.List")()
	return r.list(nil), nil
}

func (r memServices) ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*gateway.Service, error) {
	defer r.m.lock("services.ListByDepartment")()
	return r.list(func(s *gateway.Service) bool { return s.DepartmentID == departmentID }), nil
}

func (r memServices) Upsert(ctx context.Context, s *gateway.Service) error {
	defer r.m.lock("services.Upsert")()
	for _, existing := range r.m.services {
		if existing.Name == s.Name && existing.DepartmentID == s.DepartmentID {
			s.ID, s.CreatedAt = existing.ID, existing.CreatedAt
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	r.m.services[s.ID] = clone(s)
	return nil
}

// =========== appointments ===========

type memAppointments struct{ m *Memory }

func (r memAppointments) Create(ctx context.Context, a *gateway.Appointment) error {
	defer r.m.lock("appointments.Create")()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.m.appointments[a.ID] = clone(a)
	return nil
}

func (r memAppointments) GetByID(ctx context.Context, id uuid.UUID) (*gateway.Appointment, error) {
	defer r.m.lock("appointments.GetByID")()
	if a, ok := r.m.appointments[id]; ok {
		return clone(a), nil
	}
	return nil, gateway.ErrNotFound
}

func (r memAppointments) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*gateway.Appointment, error) {
	defer r.m.lock("appointments.ListByPatient")()
	items := values(r.m.appointments, func(a *gateway.Appointment) bool { return a.PatientID == patientID })
	for _, a := range items {
		a.Doctor = r.m.doctorSummary(a.DoctorID)
		a.Department = r.m.departmentSummary(a.DepartmentID)
		if a.ServiceID != nil {
			if s, ok := r.m.services[*a.ServiceID]; ok {
				a.Service = &gateway.ServiceSummary{Name: s.Name}
			}
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AppointmentDate.Equal(items[j].AppointmentDate) {
			return items[i].AppointmentDate.After(items[j].AppointmentDate)
		}
		return items[i].AppointmentTime > items[j].AppointmentTime
	})
	return items, nil
}

func (r memAppointments) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	defer r.m.lock("appointments.UpdateStatus")()
	a, ok := r.m.appointments[id]
	if !ok {
		return gateway.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}

// =========== check-ins ===========

type memCheckIns struct{ m *Memory }

func (r memCheckIns) Create(ctx context.Context, c *gateway.CheckIn) error {
	defer r.m.lock("check_ins.Create")()
	if c.Status == gateway.CheckInActive {
		for _, existing := range r.m.checkIns {
			if existing.PatientID == c.PatientID && existing.Status == gateway.CheckInActive {
				return gateway.ErrConflict
			}
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	r.m.checkIns[c.ID] = clone(c)
	return nil
}

func (r memCheckIns) GetActive(ctx context.Context, patientID uuid.UUID) (*gateway.CheckIn, error) {
	defer r.m.lock("check_ins.GetActive")()
	var latest *gateway.CheckIn
	for _, c := range r.m.checkIns {
		if c.PatientID == patientID && c.Status == gateway.CheckInActive {
			if latest == nil || c.CheckInTime.After(latest.CheckInTime) {
				latest = c
			}
		}
	}
	if latest == nil {
		return nil, gateway.ErrNotFound
	}
	return clone(latest), nil
}

func (r memCheckIns) CheckOut(ctx context.Context, id uuid.UUID, at time.Time) (*gateway.CheckIn, error) {
	defer r.m.lock("check_ins.CheckOut")()
	c, ok := r.m.checkIns[id]
	if !ok || c.Status != gateway.CheckInActive {
		return nil, gateway.ErrNotFound
	}
	c.CheckOutTime = &at
	c.Status = gateway.CheckInClosed
	return clone(c), nil
}

func (r memCheckIns) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*gateway.CheckIn, error) {
	defer r.m.lock("check_ins.ListByPatient")()
	items := values(r.m.checkIns, func(c *gateway.CheckIn) bool { return c.PatientID == patientID })
	sort.Slice(items, func(i, j int) bool { return items[i].CheckInTime.After(items[j].CheckInTime) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// =========== consultations ===========

type memConsultations struct{ m *Memory }

func (r memConsultations) Create(ctx context.Context, c *gateway.Consultation) error {
	defer r.m.lock("consultations.Create")()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.m.consultations[c.ID] = clone(c)
	return nil
}

func (r memConsultations) GetByID(ctx context.Context, id uuid.UUID) (*gateway.Consultation, error) {
	defer r.m.lock("consultations.GetByID")()
	if c, ok := r.m.consultations[id]; ok {
		return clone(c), nil
	}
	return nil, gateway.ErrNotFound
}

func (r memConsultations) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*gateway.Consultation, error) {
	defer r.m.lock("consultations.ListByPatient")()
	items := values(r.m.consultations, func(c *gateway.Consultation) bool { return c.PatientID == patientID })
	for _, c := range items {
		c.Doctor = r.m.doctorSummary(c.DoctorID)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (r memConsultations) Respond(ctx context.Context, id uuid.UUID, response string, at time.Time) error {
	defer r.m.lock("consultations.Respond")()
	c, ok := r.m.consultations[id]
	if !ok {
		return gateway.ErrNotFound
	}
	c.Response = &response
	c.RespondedAt = &at
	c.Status = gateway.ConsultationResponded
	c.UpdatedAt = time.Now()
	return nil
}

// memTx satisfies pgx.Tx for InTx. Writes made inside it are not undone on
// rollback; only the commit is counted.
type memTx struct {
	pgx.Tx
	m         *Memory
	committed bool
}

func (t *memTx) Commit(ctx context.Context) error {
	defer t.m.lock("tx.Commit")()
	t.committed = true
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	defer t.m.lock("tx.Rollback")()
	return nil
}

// Begin lets Memory stand in for the pool in gateway.New.
func (m *Memory) Begin(ctx context.Context) (pgx.Tx, error) {
	defer m.lock("tx.Begin")()
	return &memTx{m: m}, nil
}

// NewGateway returns a gateway over m that logs nowhere.
func NewGateway(m *Memory) *gateway.Gateway {
	return gateway.New(m.Repos(), m, zerolog.Nop())
}
