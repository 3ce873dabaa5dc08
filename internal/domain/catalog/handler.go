package catalog

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	loader *Loader
}

func NewHandler(loader *Loader) *Handler {
	return &Handler{loader: loader}
}

// RegisterRoutes mounts the JSON lists on api and the HTML fragments on
// fragments. Both are public.
func (h *Handler) RegisterRoutes(api, fragments *echo.Group) {
	api.GET("/departments", h.ListDepartments)
	api.GET("/doctors", h.ListDoctors)
	api.GET("/services", h.ListServices)

	fragments.GET("/departments", h.DepartmentsFragment)
	fragments.GET("/doctors", h.DoctorsFragment)
	fragments.GET("/services", h.ServicesFragment)
}

// A failed read is reported through the listing state, not the status code.

func (h *Handler) ListDepartments(c echo.Context) error {
	return c.JSON(http.StatusOK, h.loader.Departments(c.Request().Context()))
}

func (h *Handler) ListDoctors(c echo.Context) error {
	return c.JSON(http.StatusOK, h.loader.Doctors(c.Request().Context()))
}

func (h *Handler) ListServices(c echo.Context) error {
	return c.JSON(http.StatusOK, h.loader.Services(c.Request().Context()))
}

func (h *Handler) DepartmentsFragment(c echo.Context) error {
	var buf bytes.Buffer
	if err := RenderDepartments(&buf, h.loader.Departments(c.Request().Context())); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (h *Handler) DoctorsFragment(c echo.Context) error {
	var buf bytes.Buffer
	if err := RenderDoctors(&buf, h.loader.Doctors(c.Request().Context())); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (h *Handler) ServicesFragment(c echo.Context) error {
	var buf bytes.Buffer
	if err := RenderServices(&buf, h.loader.Services(c.Request().Context())); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
