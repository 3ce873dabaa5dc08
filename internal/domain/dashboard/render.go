package dashboard

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/carehospital/portal/internal/domain/session"
	"github.com/carehospital/portal/internal/platform/gateway"
)

const (
	NoAppointments  = "No appointments found. Book your first appointment!"
	NoConsultations = "No consultations found. Send your first consultation request!"
)

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	return t.Local().Format("Jan 2, 2006 3:04 PM")
}

func doctorLabel(d *gateway.DoctorSummary) string {
	if d == nil {
		return "Doctor"
	}
	return fmt.Sprintf("Dr. %s %s", d.FirstName, d.LastName)
}

var funcs = template.FuncMap{
	"date":        formatDate,
	"dateTime":    formatDateTime,
	"doctor":      doctorLabel,
	"cancellable": Cancellable,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"derefTime": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return formatDateTime(*t)
	},
}

var panels = template.Must(template.New("dashboard").Funcs(funcs).Parse(`
{{- define "notice"}}<p class="notice">{{.}}</p>{{end}}

{{- define "book"}}
<form class="dashboard-form" id="booking-form" data-endpoint="/api/v1/dashboard/appointments" data-reset="true">
  <label>Department
    <select name="department_id" required data-options="/api/v1/dashboard/booking/department-options">
      {{- range .Departments}}<option value="{{.Value}}">{{.Label}}</option>{{end}}
    </select>
  </label>
  <label>Doctor
    <select name="doctor_id" required data-list="doctors"><option value="">Select Doctor</option></select>
  </label>
  <label>Service
    <select name="service_id" data-list="services"><option value="">Select Service</option></select>
  </label>
  <label>Date <input type="date" name="appointment_date" min="{{.MinDate}}" required></label>
  <label>Time <input type="time" name="appointment_time" required></label>
  <label>Notes <textarea name="notes" rows="3"></textarea></label>
  <div class="error-message"></div>
  <div class="success-message"></div>
  <button type="submit" class="btn btn-primary">Book Appointment</button>
</form>
{{- end}}

{{- define "appointments"}}
{{- if .Unavailable}}{{template "notice" "Appointments are unavailable right now. Please try again later."}}{{end}}
{{- range .Items}}
<div class="appointment-card status-{{.Status}}">
  <h4>{{doctor .Doctor}}{{if .Department}} - {{.Department.Name}}{{end}}</h4>
  <p><strong>Date:</strong> {{date .AppointmentDate}} at {{.AppointmentTime}}</p>
  {{- if .Service}}<p><strong>Service:</strong> {{.Service.Name}}</p>{{end}}
  {{- if .Notes}}<p><strong>Notes:</strong> {{.Notes}}</p>{{end}}
  <p><strong>Status:</strong> <span class="status">{{.Status}}</span></p>
  {{- if cancellable .}}
  <button type="button" class="btn btn-secondary" data-action="/api/v1/dashboard/appointments/{{.ID}}/cancel">Cancel</button>
  {{- end}}
</div>
{{- else}}
{{- if not .Unavailable}}<p>No appointments found. Book your first appointment!</p>{{end}}
{{- end}}
{{- end}}

{{- define "check-in"}}
{{- if .Unavailable}}{{template "notice" "Check-in status may be out of date. Please try again later."}}{{end}}
<div class="check-in-status">
  <h4>{{.Status}}</h4>
  {{- with .Active}}
  <p><strong>Since:</strong> {{dateTime .CheckInTime}}</p>
  <p><strong>Reason:</strong> {{.Reason}}</p>
  {{- end}}
</div>
<form class="dashboard-form" id="check-in-form" data-endpoint="/api/v1/dashboard/check-in" data-reset="true" data-reload="true">
  <label>Reason for visit <input type="text" name="reason" required{{if not .CanCheckIn}} disabled{{end}}></label>
  <div class="error-message"></div>
  <div class="success-message"></div>
  <button type="submit" class="btn btn-primary"{{if not .CanCheckIn}} disabled{{end}}>Check In</button>
</form>
<button type="button" class="btn btn-secondary" data-action="/api/v1/dashboard/check-out"{{if not .CanCheckOut}} disabled{{end}}>Check Out</button>
<h4>Recent visits</h4>
{{- range .History}}
<div class="check-in-item">
  <p>{{dateTime .CheckInTime}}{{with .CheckOutTime}} to {{derefTime .}}{{end}}</p>
  <p>{{.Reason}}</p>
</div>
{{- end}}
{{- end}}

{{- define "profile"}}
<form class="dashboard-form" id="profile-form" data-endpoint="/api/v1/dashboard/profile" data-method="PUT">
  <label>First Name <input type="text" name="first_name" value="{{.FirstName}}"></label>
  <label>Last Name <input type="text" name="last_name" value="{{.LastName}}"></label>
  <label>Phone <input type="tel" name="phone" value="{{.Phone}}"></label>
  <label>Gender
    <select name="gender">
      <option value=""{{if eq .Gender ""}} selected{{end}}>Select Gender</option>
      <option value="male"{{if eq .Gender "male"}} selected{{end}}>Male</option>
      <option value="female"{{if eq .Gender "female"}} selected{{end}}>Female</option>
      <option value="other"{{if eq .Gender "other"}} selected{{end}}>Other</option>
    </select>
  </label>
  <label>Date of Birth <input type="date" name="date_of_birth" value="{{.DateOfBirth}}"></label>
  <label>Address <textarea name="address" rows="2">{{.Address}}</textarea></label>
  <label>Emergency Contact <input type="text" name="emergency_contact" value="{{.EmergencyContact}}"></label>
  <label>Blood Group <input type="text" name="blood_group" value="{{.BloodGroup}}"></label>
  <label>Allergies <textarea name="allergies" rows="2">{{.Allergies}}</textarea></label>
  <div class="error-message"></div>
  <div class="success-message"></div>
  <button type="submit" class="btn btn-primary">Update Profile</button>
</form>
{{- end}}

{{- define "consultation"}}
<form class="dashboard-form" id="consultation-form" data-endpoint="/api/v1/dashboard/consultations" data-reset="true" data-reload="true">
  <label>Doctor
    <select name="doctor_id" required>
      {{- range .Doctors}}<option value="{{.Value}}">{{.Label}}</option>{{end}}
    </select>
  </label>
  <label>Subject <input type="text" name="subject" required></label>
  <label>Message <textarea name="message" rows="4" required></textarea></label>
  <label><input type="checkbox" name="callback_requested"> Request a callback</label>
  <label>Preferred contact time <input type="text" name="preferred_contact_time"></label>
  <div class="error-message"></div>
  <div class="success-message"></div>
  <button type="submit" class="btn btn-primary">Send Request</button>
</form>
<h4>My Consultations</h4>
{{- with .History}}
{{- if .Unavailable}}{{template "notice" "Consultations are unavailable right now. Please try again later."}}{{end}}
{{- range .Items}}
<div class="consultation-card status-{{.Status}}">
  <h4>{{.Subject}}</h4>
  <p><strong>To:</strong> {{doctor .Doctor}}</p>
  <p>{{.Message}}</p>
  <p class="consultation-date">{{dateTime .CreatedAt}}</p>
  {{- if .Response}}
  <div class="consultation-response"><strong>Response:</strong> {{deref .Response}}</div>
  {{- else}}
  <p class="awaiting">Awaiting doctor response...</p>
  {{- end}}
</div>
{{- else}}
{{- if not .Unavailable}}<p>No consultations found. Send your first consultation request!</p>{{end}}
{{- end}}
{{- end}}
{{- end}}
`))

type consultationPanel struct {
	Doctors []Option
	History *ConsultationsView
}

func RenderBook(w io.Writer, opts BookingOptions) error {
	return panels.ExecuteTemplate(w, string(TabBook), opts)
}

func RenderAppointments(w io.Writer, v *AppointmentsView) error {
	return panels.ExecuteTemplate(w, string(TabAppointments), v)
}

func RenderCheckIn(w io.Writer, v *CheckInView) error {
	return panels.ExecuteTemplate(w, string(TabCheckIn), v)
}

func RenderProfile(w io.Writer, f session.ProfileFields) error {
	return panels.ExecuteTemplate(w, string(TabProfile), f)
}

func RenderConsultation(w io.Writer, doctors []Option, history *ConsultationsView) error {
	return panels.ExecuteTemplate(w, string(TabConsultation), consultationPanel{Doctors: doctors, History: history})
}

// RenderNotice writes a single message in place of a panel, used when the
// patient has no profile yet.
func RenderNotice(w io.Writer, msg string) error {
	return panels.ExecuteTemplate(w, "notice", msg)
}
