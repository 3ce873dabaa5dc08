package shell

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carehospital/portal/internal/platform/auth"
)

// SectionHeader carries the section that was actually rendered so the page
// script can correct the URL hash after a forced redirect.
const SectionHeader = "X-Section"

// Tab is a dashboard tab as shown in the dashboard section.
type Tab struct {
	Name  string
	Label string
}

type Handler struct {
	tabs []Tab
}

// NewHandler builds the shell handler. tabs are listed in the dashboard
// section; the first one is selected initially.
func NewHandler(tabs []Tab) *Handler {
	return &Handler{tabs: tabs}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Page)
	e.GET("/fragments/section/:name", h.Section)
}

type pageData struct {
	Nav    []Section
	Active Section
	UI     AuthUI
	Hero   HeroAction
}

// Page renders the shell. The initial section is home; the script reads the
// real hash and loads the matching section on start.
func (h *Handler) Page(c echo.Context) error {
	authenticated := auth.SessionFromContext(c.Request().Context()) != nil
	return render(c, pageTmpl, "page", pageData{
		Nav:    Sections,
		Active: Home,
		UI:     AuthUIFor(authenticated),
		Hero:   BookAppointmentAction(authenticated),
	})
}

type sectionData struct {
	Tabs []Tab
	Tab  string
}

func (h *Handler) Section(c echo.Context) error {
	authenticated := auth.SessionFromContext(c.Request().Context()) != nil
	s := Resolve(c.Param("name"), authenticated)
	c.Response().Header().Set(SectionHeader, string(s))

	data := sectionData{Tabs: h.tabs}
	if len(h.tabs) > 0 {
		data.Tab = h.tabs[0].Name
	}
	return render(c, sectionTmpl, string(s), data)
}

func render(c echo.Context, t *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
