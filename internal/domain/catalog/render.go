package catalog

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/carehospital/portal/internal/platform/gateway"
)

var departmentIcons = map[string]string{
	"emergency":     "🚑",
	"cardiology":    "❤️",
	"pediatrics":    "👶",
	"orthopedics":   "🦴",
	"neurology":     "🧠",
	"radiology":     "🔬",
	"dermatology":   "🧴",
	"ophthalmology": "👁️",
	"gynecology":    "👩‍⚕️",
	"urology":       "🩺",
}

const fallbackIcon = "🏥"

// DepartmentIcon maps an icon key to its glyph, falling back to a hospital.
func DepartmentIcon(key string) string {
	if icon, ok := departmentIcons[strings.ToLower(strings.TrimSpace(key))]; ok {
		return icon
	}
	return fallbackIcon
}

// Price formats a service price with two decimals.
func Price(p float64) string {
	return fmt.Sprintf("$%.2f", p)
}

func DoctorName(first, last string) string {
	return "Dr. " + strings.TrimSpace(first+" "+last)
}

var funcs = template.FuncMap{
	"icon":       DepartmentIcon,
	"price":      Price,
	"doctorName": DoctorName,
}

var cards = template.Must(template.New("catalog").Funcs(funcs).Parse(`
{{- define "status"}}
  {{- if eq .State "loading"}}<div class="loading">Loading {{.Kind}}...</div>
  {{- else if eq .State "unavailable"}}<p class="unavailable">{{.Title}} are unavailable right now. Please try again later.</p>
  {{- else if eq .State "empty"}}<p>No {{.Kind}} available at the moment.</p>
  {{- end}}
{{- end}}

{{- define "departments"}}
{{- range .Items}}
<div class="department-card">
  <div class="department-icon">{{icon .Icon}}</div>
  <h3>{{.Name}}</h3>
  <p>{{.Description}}</p>
</div>
{{- end}}
{{- end}}

{{- define "doctors"}}
{{- range .Items}}
<div class="doctor-card">
  {{- if .ImageURL}}
  <img src="{{.ImageURL}}" alt="{{doctorName .FirstName .LastName}}" class="doctor-image">
  {{- end}}
  <div class="doctor-info">
    <h3 class="doctor-name">{{doctorName .FirstName .LastName}}</h3>
    <p class="doctor-specialization">{{.Specialization}}</p>
    <p class="doctor-details">
      <strong>Qualification:</strong> {{.Qualification}}<br>
      <strong>Experience:</strong> {{.ExperienceYears}} years<br>
      {{- if .Department}}
      <strong>Department:</strong> {{.Department.Name}}
      {{- end}}
    </p>
    {{- if .Bio}}
    <p class="doctor-bio">{{.Bio}}</p>
    {{- end}}
  </div>
</div>
{{- end}}
{{- end}}

{{- define "services"}}
{{- range .Items}}
<div class="service-card">
  <h3>{{.Name}}</h3>
  <p>{{.Description}}</p>
  {{- if .Department}}
  <p><strong>Department:</strong> {{.Department.Name}}</p>
  {{- end}}
  <div class="service-meta">
    <span class="service-duration">⏱️ {{.DurationMinutes}} minutes</span>
    <span class="service-price">{{price .Price}}</span>
  </div>
</div>
{{- end}}
{{- end}}
`))

type view[T any] struct {
	State State
	Kind  string
	Title string
	Items []T
}

func render[T any](w io.Writer, kind string, l Listing[T]) error {
	v := view[T]{State: l.state(), Kind: kind, Title: strings.ToUpper(kind[:1]) + kind[1:], Items: l.Items}
	name := kind
	if v.State != StateReady {
		name = "status"
	}
	if err := cards.ExecuteTemplate(w, name, v); err != nil {
		return fmt.Errorf("render %s: %w", kind, err)
	}
	return nil
}

func RenderDepartments(w io.Writer, l Listing[*gateway.Department]) error {
	return render(w, "departments", l)
}

func RenderDoctors(w io.Writer, l Listing[*gateway.Doctor]) error {
	return render(w, "doctors", l)
}

func RenderServices(w io.Writer, l Listing[*gateway.Service]) error {
	return render(w, "services", l)
}
