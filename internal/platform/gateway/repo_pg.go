package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehospital/portal/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// pgBase uses the transaction on the context, or the pool.
type pgBase struct{ pool *pgxpool.Pool }

func (b pgBase) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return b.pool
}

// NewPGRepos builds the PostgreSQL implementation of every repository.
func NewPGRepos(pool *pgxpool.Pool) Repos {
	b := pgBase{pool: pool}
	return Repos{
		Users:         &userRepoPG{b},
		Sessions:      &sessionRepoPG{b},
		Patients:      &patientRepoPG{b},
		Departments:   &departmentRepoPG{b},
		Doctors:       &doctorRepoPG{b},
		Services:      &serviceRepoPG{b},
		Appointments:  &appointmentRepoPG{b},
		CheckIns:      &checkInRepoPG{b},
		Consultations: &consultationRepoPG{b},
	}
}

func one[T any](v *T, err error) (*T, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func collect[T any](rows pgx.Rows, err error, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Users ===========

type userRepoPG struct{ pgBase }

const userCols = `id, email, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, role)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.PasswordHash, u.Role).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return one(scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return one(scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email)))
}

// =========== Sessions ===========

type sessionRepoPG struct{ pgBase }

const sessionCols = `id, user_id, created_at, expires_at, revoked_at`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &s.RevokedAt)
	return &s, err
}

func (r *sessionRepoPG) Create(ctx context.Context, s *Session) error {
	s.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO auth_sessions (id, user_id, expires_at)
		VALUES ($1,$2,$3)
		RETURNING created_at`,
		s.ID, s.UserID, s.ExpiresAt).Scan(&s.CreatedAt)
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	return one(scanSession(r.conn(ctx).QueryRow(ctx, `SELECT `+sessionCols+` FROM auth_sessions WHERE id = $1`, id)))
}

func (r *sessionRepoPG) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	return affected(r.conn(ctx).Exec(ctx,
		`UPDATE auth_sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at))
}

// =========== Patients ===========

type patientRepoPG struct{ pgBase }

const patientCols = `id, user_id, first_name, last_name, phone, gender, date_of_birth,
	address, emergency_contact, blood_group, allergies, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.Phone, &p.Gender, &p.DateOfBirth,
		&p.Address, &p.EmergencyContact, &p.BloodGroup, &p.Allergies, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, user_id, first_name, last_name, phone, gender, date_of_birth,
			address, emergency_contact, blood_group, allergies)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.FirstName, p.LastName, p.Phone, p.Gender, p.DateOfBirth,
		p.Address, p.EmergencyContact, p.BloodGroup, p.Allergies).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return one(scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE user_id = $1`, userID)))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET first_name=$2, last_name=$3, phone=$4, gender=$5, date_of_birth=$6,
			address=$7, emergency_contact=$8, blood_group=$9, allergies=$10, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FirstName, p.LastName, p.Phone, p.Gender, p.DateOfBirth,
		p.Address, p.EmergencyContact, p.BloodGroup, p.Allergies).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// =========== Departments ===========

type departmentRepoPG struct{ pgBase }

const deptCols = `id, name, description, icon, created_at`

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Icon, &d.CreatedAt)
	return &d, err
}

func (r *departmentRepoPG) List(ctx context.Context) ([]*Department, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+deptCols+` FROM departments ORDER BY name`)
	return collect(rows, err, scanDepartment)
}

func (r *departmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	return one(scanDepartment(r.conn(ctx).QueryRow(ctx, `SELECT `+deptCols+` FROM departments WHERE id = $1`, id)))
}

func (r *departmentRepoPG) Upsert(ctx context.Context, d *Department) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO departments (id, name, description, icon)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, icon = EXCLUDED.icon
		RETURNING id, created_at`,
		d.ID, d.Name, d.Description, d.Icon).Scan(&d.ID, &d.CreatedAt)
}

// =========== Doctors ===========

type doctorRepoPG struct{ pgBase }

const doctorSelect = `SELECT d.id, d.department_id, d.first_name, d.last_name, d.specialization,
	d.qualification, d.experience_years, d.image_url, d.bio, d.available, d.created_at, dep.name
	FROM doctors d JOIN departments dep ON dep.id = d.department_id`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var deptName string
	err := row.Scan(&d.ID, &d.DepartmentID, &d.FirstName, &d.LastName, &d.Specialization,
		&d.Qualification, &d.ExperienceYears, &d.ImageURL, &d.Bio, &d.Available, &d.CreatedAt, &deptName)
	d.Department = &DepartmentSummary{Name: deptName}
	return &d, err
}

func (r *doctorRepoPG) ListAvailable(ctx context.Context) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, doctorSelect+` WHERE d.available ORDER BY d.last_name`)
	return collect(rows, err, scanDoctor)
}

func (r *doctorRepoPG) ListAvailableByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, doctorSelect+` WHERE d.available AND d.department_id = $1 ORDER BY d.last_name`, departmentID)
	return collect(rows, err, scanDoctor)
}

func (r *doctorRepoPG) Upsert(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (id, department_id, first_name, last_name, specialization, qualification,
			experience_years, image_url, bio, available)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (first_name, last_name, department_id) DO UPDATE SET
			specialization = EXCLUDED.specialization, qualification = EXCLUDED.qualification,
			experience_years = EXCLUDED.experience_years, image_url = EXCLUDED.image_url,
			bio = EXCLUDED.bio, available = EXCLUDED.available
		RETURNING id, created_at`,
		d.ID, d.DepartmentID, d.FirstName, d.LastName, d.Specialization, d.Qualification,
		d.ExperienceYears, d.ImageURL, d.Bio, d.Available).Scan(&d.ID, &d.CreatedAt)
}

// =========== Services ===========

type serviceRepoPG struct{ pgBase }

const serviceSelect = `SELECT s.id, s.department_id, s.name, s.description, s.duration_minutes,
	s.price, s.created_at, dep.name
	FROM services s JOIN departments dep ON dep.id = s.department_id`

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	var deptName string
	err := row.Scan(&s.ID, &s.DepartmentID, &s.Name, &s.Description, &s.DurationMinutes,
		&s.Price, &s.CreatedAt, &deptName)
	s.Department = &DepartmentSummary{Name: deptName}
	return &s, err
}

func (r *serviceRepoPG) List(ctx context.Context) ([]*Service, error) {
	rows, err := r.conn(ctx).Query(ctx, serviceSelect+` ORDER BY s.name`)
	return collect(rows, err, scanService)
}

func (r *serviceRepoPG) ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Service, error) {
	rows, err := r.conn(ctx).Query(ctx, serviceSelect+` WHERE s.department_id = $1 ORDER BY s.name`, departmentID)
	return collect(rows, err, scanService)
}

func (r *serviceRepoPG) Upsert(ctx context.Context, s *Service) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO services (id, department_id, name, description, duration_minutes, price)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (department_id, name) DO UPDATE SET
			description = EXCLUDED.description, duration_minutes = EXCLUDED.duration_minutes,
			price = EXCLUDED.price
		RETURNING id, created_at`,
		s.ID, s.DepartmentID, s.Name, s.Description, s.DurationMinutes, s.Price).Scan(&s.ID, &s.CreatedAt)
}

// =========== Appointments ===========

type appointmentRepoPG struct{ pgBase }

const apptCols = `id, patient_id, doctor_id, department_id, service_id, appointment_date,
	appointment_time, notes, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.DepartmentID, &a.ServiceID, &a.AppointmentDate,
		&a.AppointmentTime, &a.Notes, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func scanAppointmentJoined(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var doc DoctorSummary
	var deptName string
	var serviceName *string
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.DepartmentID, &a.ServiceID, &a.AppointmentDate,
		&a.AppointmentTime, &a.Notes, &a.Status, &a.CreatedAt, &a.UpdatedAt,
		&doc.FirstName, &doc.LastName, &doc.Specialization, &deptName, &serviceName)
	a.Doctor = &doc
	a.Department = &DepartmentSummary{Name: deptName}
	if serviceName != nil {
		a.Service = &ServiceSummary{Name: *serviceName}
	}
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, department_id, service_id,
			appointment_date, appointment_time, notes, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.DepartmentID, a.ServiceID,
		a.AppointmentDate, a.AppointmentTime, a.Notes, a.Status).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return one(scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id)))
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.patient_id, a.doctor_id, a.department_id, a.service_id, a.appointment_date,
			a.appointment_time, a.notes, a.status, a.created_at, a.updated_at,
			d.first_name, d.last_name, d.specialization, dep.name, s.name
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		JOIN departments dep ON dep.id = a.department_id
		LEFT JOIN services s ON s.id = a.service_id
		WHERE a.patient_id = $1
		ORDER BY a.appointment_date DESC, a.appointment_time DESC`, patientID)
	return collect(rows, err, scanAppointmentJoined)
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return affected(r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`, id, status))
}

// =========== Check-ins ===========

type checkInRepoPG struct{ pgBase }

const checkInCols = `id, patient_id, appointment_id, check_in_time, check_out_time, reason, status, created_at`

func scanCheckIn(row pgx.Row) (*CheckIn, error) {
	var c CheckIn
	err := row.Scan(&c.ID, &c.PatientID, &c.AppointmentID, &c.CheckInTime, &c.CheckOutTime,
		&c.Reason, &c.Status, &c.CreatedAt)
	return &c, err
}

func (r *checkInRepoPG) Create(ctx context.Context, c *CheckIn) error {
	c.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO check_ins (id, patient_id, appointment_id, check_in_time, reason, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		c.ID, c.PatientID, c.AppointmentID, c.CheckInTime, c.Reason, c.Status).Scan(&c.CreatedAt)
}

func (r *checkInRepoPG) GetActive(ctx context.Context, patientID uuid.UUID) (*CheckIn, error) {
	return one(scanCheckIn(r.conn(ctx).QueryRow(ctx, `
		SELECT `+checkInCols+` FROM check_ins
		WHERE patient_id = $1 AND status = 'checked_in'
		ORDER BY check_in_time DESC LIMIT 1`, patientID)))
}

func (r *checkInRepoPG) CheckOut(ctx context.Context, id uuid.UUID, at time.Time) (*CheckIn, error) {
	return one(scanCheckIn(r.conn(ctx).QueryRow(ctx, `
		UPDATE check_ins SET check_out_time = $2, status = 'checked_out'
		WHERE id = $1 AND status = 'checked_in'
		RETURNING `+checkInCols, id, at)))
}

func (r *checkInRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*CheckIn, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+checkInCols+` FROM check_ins
		WHERE patient_id = $1
		ORDER BY check_in_time DESC LIMIT $2`, patientID, limit)
	return collect(rows, err, scanCheckIn)
}

// =========== Consultations ===========

type consultationRepoPG struct{ pgBase }

const consultCols = `id, patient_id, doctor_id, subject, message, callback_requested,
	preferred_contact_time, status, response, responded_at, created_at, updated_at`

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(&c.ID, &c.PatientID, &c.DoctorID, &c.Subject, &c.Message, &c.CallbackRequested,
		&c.PreferredContactTime, &c.Status, &c.Response, &c.RespondedAt, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func scanConsultationJoined(row pgx.Row) (*Consultation, error) {
	var c Consultation
	var doc DoctorSummary
	err := row.Scan(&c.ID, &c.PatientID, &c.DoctorID, &c.Subject, &c.Message, &c.CallbackRequested,
		&c.PreferredContactTime, &c.Status, &c.Response, &c.RespondedAt, &c.CreatedAt, &c.UpdatedAt,
		&doc.FirstName, &doc.LastName, &doc.Specialization)
	c.Doctor = &doc
	return &c, err
}

func (r *consultationRepoPG) Create(ctx context.Context, c *Consultation) error {
	c.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consultations (id, patient_id, doctor_id, subject, message,
			callback_requested, preferred_contact_time, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		c.ID, c.PatientID, c.DoctorID, c.Subject, c.Message,
		c.CallbackRequested, c.PreferredContactTime, c.Status).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *consultationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return one(scanConsultation(r.conn(ctx).QueryRow(ctx, `SELECT `+consultCols+` FROM consultations WHERE id = $1`, id)))
}

func (r *consultationRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Consultation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT c.id, c.patient_id, c.doctor_id, c.subject, c.message, c.callback_requested,
			c.preferred_contact_time, c.status, c.response, c.responded_at, c.created_at, c.updated_at,
			d.first_name, d.last_name, d.specialization
		FROM consultations c
		JOIN doctors d ON d.id = c.doctor_id
		WHERE c.patient_id = $1
		ORDER BY c.created_at DESC`, patientID)
	return collect(rows, err, scanConsultationJoined)
}

func (r *consultationRepoPG) Respond(ctx context.Context, id uuid.UUID, response string, at time.Time) error {
	return affected(r.conn(ctx).Exec(ctx, `
		UPDATE consultations SET response = $2, responded_at = $3, status = 'responded', updated_at = NOW()
		WHERE id = $1`, id, response, at))
}
