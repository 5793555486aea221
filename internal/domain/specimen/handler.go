package specimen

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleReception, auth.RoleLabTechnician, auth.RolePathologist,
		auth.RoleLabDirector, auth.RoleDoctor))
	read.GET("/specimens", h.List)
	read.GET("/specimens/:id", h.Get)
	read.GET("/specimens/code/:code", h.GetByCode)

	collect := api.Group("", auth.RequireRole(auth.RoleReception, auth.RoleLabTechnician))
	collect.POST("/specimens", h.Create)

	bench := api.Group("", auth.RequireRole(auth.RoleLabTechnician, auth.RolePathologist))
	bench.PUT("/specimens/:id/status", h.SetStatus)
	bench.POST("/specimens/:id/reject", h.Reject)
}

// view adds the live TAT breach flag to a specimen.
type view struct {
	*Specimen
	TATBreached bool `json:"tat_breached"`
}

func (h *Handler) view(s *Specimen) view {
	return view{Specimen: s, TATBreached: h.svc.Breached(s)}
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, h.view(s))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	s, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, h.view(s))
}

func (h *Handler) GetByCode(c echo.Context) error {
	s, err := h.svc.GetBySampleCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, h.view(s))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{Status: Status(c.QueryParam("status"))}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = id
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	views := make([]view, 0, len(items))
	for _, s := range items {
		views = append(views, h.view(s))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s, err := h.svc.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, h.view(s))
}

// rejectRequest accepts rejection_reason; reason is the older spelling.
type rejectRequest struct {
	RejectionReason string `json:"rejection_reason"`
	Reason          string `json:"reason"`
}

func (r rejectRequest) reason() string {
	if r.RejectionReason != "" {
		return r.RejectionReason
	}
	return r.Reason
}

func (h *Handler) Reject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s, err := h.svc.Reject(c.Request().Context(), id, req.reason())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, h.view(s))
}
