package qc

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

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
	g := api.Group("/qc", auth.RequireRole(auth.RoleLabTechnician, auth.RoleQualityManager, auth.RoleLabDirector))
	g.GET("", h.List)
	g.GET("/summary", h.Summary)
	g.POST("", h.Record)
}

func (h *Handler) Record(c echo.Context) error {
	var in RecordInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.Record(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := h.svc.List(c.Request().Context(), Filter{
		TestName: c.QueryParam("test_name"),
		QCType:   c.QueryParam("qc_type"),
	}, limit)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Measurement{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Summary(c echo.Context) error {
	rows, err := h.svc.Summary(c.Request().Context(), c.QueryParam("test_name"))
	if err != nil {
		return apperr.HTTP(err)
	}
	if rows == nil {
		rows = []SummaryRow{}
	}
	return c.JSON(http.StatusOK, rows)
}
