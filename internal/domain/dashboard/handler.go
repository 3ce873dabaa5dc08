package dashboard

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehospital/portal/internal/domain/session"
	"github.com/carehospital/portal/internal/domain/shell"
	"github.com/carehospital/portal/internal/platform/auth"
	"github.com/carehospital/portal/internal/platform/gateway"
	"github.com/carehospital/portal/pkg/pagination"
)

const (
	msgBooked               = "Appointment booked successfully!"
	msgBookFailed           = "Failed to book appointment. Please try again."
	msgCancelled            = "Appointment cancelled."
	msgCheckedIn            = "Checked in successfully!"
	msgCheckedOut           = "Checked out successfully!"
	msgProfileUpdated       = "Profile updated successfully!"
	msgConsultationSent     = "Consultation request sent successfully! The doctor will respond soon."
	msgConsultationAnswered = "Response sent."
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the patient API under api/dashboard, the staff API
// under api/staff and the panels under fragments/dashboard.
func (h *Handler) RegisterRoutes(api, fragments *echo.Group) {
	d := api.Group("/dashboard", auth.RequireSession())
	d.GET("/booking/options", h.BookingOptions)
	d.GET("/booking/department-options", h.DepartmentOptions)
	d.POST("/appointments", h.Book)
	d.GET("/appointments", h.ListAppointments)
	d.POST("/appointments/:id/cancel", h.Cancel)
	d.GET("/check-in", h.CheckInStatus)
	d.POST("/check-in", h.CheckIn)
	d.POST("/check-out", h.CheckOut)
	d.GET("/profile", h.GetProfile)
	d.PUT("/profile", h.UpdateProfile)
	d.GET("/consultations/doctors", h.ConsultationDoctors)
	d.POST("/consultations", h.RequestConsultation)
	d.GET("/consultations", h.ListConsultations)

	staff := api.Group("/staff", auth.RequireRole(gateway.RoleStaff))
	staff.PATCH("/appointments/:id/status", h.UpdateAppointmentStatus)
	staff.POST("/consultations/:id/respond", h.RespondConsultation)

	fragments.GET("/dashboard/:tab", h.Panel, auth.RequireSession())
}

// -- Booking --

func (h *Handler) BookingOptions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.BookingOptions(c.Request().Context()))
}

func (h *Handler) DepartmentOptions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.DepartmentChanged(c.Request().Context(), c.QueryParam("department_id")))
}

func (h *Handler) Book(c echo.Context) error {
	var form BookingForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Book(c.Request().Context(), session.FromContext(c), form)
	if err != nil {
		return bookError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"appointment": a,
		"flash":       shell.Success(msgBooked),
	})
}

// bookError keeps the specific message for caller mistakes and replaces
// storage failures with a generic retry message.
func bookError(err error) error {
	herr := httpError(err)
	if he, ok := herr.(*echo.HTTPError); ok && he.Code >= http.StatusInternalServerError {
		return echo.NewHTTPError(he.Code, msgBookFailed).SetInternal(err)
	}
	return herr
}

func (h *Handler) ListAppointments(c echo.Context) error {
	v, err := h.svc.Appointments(c.Request().Context(), session.FromContext(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, page(c, v.Items, v.Unavailable))
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Cancel(c.Request().Context(), session.FromContext(c), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"appointment": a,
		"flash":       shell.Success(msgCancelled),
	})
}

// -- Check-in --

func (h *Handler) CheckInStatus(c echo.Context) error {
	v, err := h.svc.CheckInStatus(c.Request().Context(), session.FromContext(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) CheckIn(c echo.Context) error {
	var form CheckInForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ci, err := h.svc.CheckIn(c.Request().Context(), session.FromContext(c), form)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"check_in": ci,
		"flash":    shell.Success(msgCheckedIn),
	})
}

func (h *Handler) CheckOut(c echo.Context) error {
	ci, err := h.svc.CheckOut(c.Request().Context(), session.FromContext(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"check_in": ci,
		"flash":    shell.Success(msgCheckedOut),
	})
}

// -- Profile --

func (h *Handler) GetProfile(c echo.Context) error {
	fields, err := h.svc.ProfileForm(session.FromContext(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, fields)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var fields session.ProfileFields
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.UpdateProfile(c.Request().Context(), session.FromContext(c), fields)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient": p,
		"flash":   shell.Success(msgProfileUpdated),
	})
}

// -- Consultations --

func (h *Handler) ConsultationDoctors(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.ConsultationDoctors(c.Request().Context()))
}

func (h *Handler) RequestConsultation(c echo.Context) error {
	var form ConsultationForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cons, err := h.svc.RequestConsultation(c.Request().Context(), session.FromContext(c), form)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"consultation": cons,
		"flash":        shell.Success(msgConsultationSent),
	})
}

func (h *Handler) ListConsultations(c echo.Context) error {
	v, err := h.svc.Consultations(c.Request().Context(), session.FromContext(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, page(c, v.Items, v.Unavailable))
}

// -- Staff --

func (h *Handler) UpdateAppointmentStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) RespondConsultation(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Response string `json:"response"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cons, err := h.svc.Respond(c.Request().Context(), id, body.Response)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"consultation": cons,
		"flash":        shell.Success(msgConsultationAnswered),
	})
}

// -- Panels --

// Panel renders one dashboard tab. A patient without a profile sees a
// notice instead of the tab.
func (h *Handler) Panel(c echo.Context) error {
	tab, err := ParseTab(c.Param("tab"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	ctx := c.Request().Context()
	snap := session.FromContext(c)

	var buf bytes.Buffer
	switch tab {
	case TabBook:
		err = RenderBook(&buf, h.svc.BookingOptions(ctx))
	case TabAppointments:
		var v *AppointmentsView
		if v, err = h.svc.Appointments(ctx, snap); err == nil {
			err = RenderAppointments(&buf, v)
		}
	case TabCheckIn:
		var v *CheckInView
		if v, err = h.svc.CheckInStatus(ctx, snap); err == nil {
			err = RenderCheckIn(&buf, v)
		}
	case TabProfile:
		var f session.ProfileFields
		if f, err = h.svc.ProfileForm(snap); err == nil {
			err = RenderProfile(&buf, f)
		}
	case TabConsultation:
		var v *ConsultationsView
		if v, err = h.svc.Consultations(ctx, snap); err == nil {
			err = RenderConsultation(&buf, h.svc.ConsultationDoctors(ctx), v)
		}
	}

	if errors.Is(err, ErrProfileIncomplete) {
		buf.Reset()
		err = RenderNotice(&buf, "Please complete your profile first.")
	}
	if err != nil {
		return httpError(err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// -- Helpers --

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

type listPage struct {
	*pagination.Response
	Unavailable bool `json:"unavailable"`
}

func page[T any](c echo.Context, items []T, unavailable bool) listPage {
	p := pagination.FromContext(c)
	resp := pagination.Page(items, p)
	resp.Links = p.Links(c.Request().URL.Path, resp.Total)
	return listPage{Response: resp, Unavailable: unavailable}
}

func httpError(err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.Is(err, ErrNotAuthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrProfileIncomplete):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrAlreadyCheckedIn), errors.Is(err, ErrNotCheckedIn), errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, gateway.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
}
