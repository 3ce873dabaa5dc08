// Package shell routes the single-page portal between its sections and
// decides which auth controls are visible.
package shell

import "strings"

type Section string

const (
	Home        Section = "home"
	About       Section = "about"
	Departments Section = "departments"
	Doctors     Section = "doctors"
	Services    Section = "services"
	Contact     Section = "contact"
	Dashboard   Section = "dashboard"
)

// Sections in navigation order.
var Sections = []Section{Home, About, Departments, Doctors, Services, Contact, Dashboard}

var known = map[Section]bool{
	Home: true, About: true, Departments: true, Doctors: true,
	Services: true, Contact: true, Dashboard: true,
}

// Resolve maps a URL hash ("#doctors", "doctors" or "") to the section that
// should be visible. Unknown hashes fall back to home, and the dashboard is
// only reachable while authenticated.
func Resolve(hash string, authenticated bool) Section {
	s := Section(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(hash), "#")))
	if !known[s] {
		return Home
	}
	if s == Dashboard && !authenticated {
		return Home
	}
	return s
}

// Hash is the URL fragment that selects s.
func (s Section) Hash() string {
	return "#" + string(s)
}

// AuthUI lists which auth-dependent controls the page shows.
type AuthUI struct {
	Authenticated    bool `json:"authenticated"`
	ShowLogin        bool `json:"show_login"`
	ShowLogout       bool `json:"show_logout"`
	ShowDashboardNav bool `json:"show_dashboard_nav"`
	// AuthDialogOpen is false after every state change; only the login
	// button or the hero action opens the dialog.
	AuthDialogOpen bool `json:"auth_dialog_open"`
}

func AuthUIFor(authenticated bool) AuthUI {
	return AuthUI{
		Authenticated:    authenticated,
		ShowLogin:        !authenticated,
		ShowLogout:       authenticated,
		ShowDashboardNav: authenticated,
	}
}

// HeroAction is where the "Book Appointment" button leads.
type HeroAction struct {
	Hash           string `json:"hash,omitempty"`
	Tab            string `json:"tab,omitempty"`
	OpenAuthDialog bool   `json:"open_auth_dialog"`
}

// BookTab names the dashboard tab the hero action opens. It matches the
// dashboard's booking tab.
const BookTab = "book"

func BookAppointmentAction(authenticated bool) HeroAction {
	if !authenticated {
		return HeroAction{OpenAuthDialog: true}
	}
	return HeroAction{Hash: Dashboard.Hash(), Tab: BookTab}
}

var titles = map[Section]string{
	Home: "Home", About: "About", Departments: "Departments", Doctors: "Doctors",
	Services: "Services", Contact: "Contact", Dashboard: "Dashboard",
}

func (s Section) Title() string {
	return titles[s]
}
