package nabl

import (
	"net/http"

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
	read := api.Group("", auth.RequireRole(auth.RoleQualityManager, auth.RoleLabDirector, auth.RolePathologist,
		auth.RoleLabTechnician))
	read.GET("/nabl-documents", h.List)

	write := api.Group("", auth.RequireRole(auth.RoleQualityManager, auth.RoleLabDirector))
	write.POST("/nabl-documents", h.Create)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	docs, total, err := h.svc.List(c.Request().Context(), c.QueryParam("document_type"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if docs == nil {
		docs = []*Document{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(docs, total, pg))
}
