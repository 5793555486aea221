package emr

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/domain/result"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/emr", auth.RequireRole(auth.RoleDoctor, auth.RoleReception, auth.RoleLabDirector))
	g.POST("/patient/register", h.RegisterPatient)
	g.POST("/lab-order/create", h.CreateOrder)
	g.GET("/patient/:uhid", h.GetPatient)
	g.GET("/results/patient/:patient_id", h.PatientResults)
	g.GET("/sample/status/:code", h.SpecimenStatus)
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var in PatientInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	reg, err := h.svc.RegisterPatient(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	code := http.StatusCreated
	if reg.Status == StatusExists {
		code = http.StatusOK
	}
	return c.JSON(code, reg)
}

func (h *Handler) CreateOrder(c echo.Context) error {
	var in OrderInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	order, err := h.svc.CreateOrder(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.PatientByUHID(c.Request().Context(), c.Param("uhid"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) PatientResults(c echo.Context) error {
	id, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	items, err := h.svc.PatientResults(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*result.Result{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) SpecimenStatus(c echo.Context) error {
	sp, err := h.svc.SpecimenStatus(c.Request().Context(), c.Param("code"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, sp)
}
