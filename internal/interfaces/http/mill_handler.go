package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/molino-api/internal/application/dto"
	"github.com/jhoicas/molino-api/internal/application/usecase"
)

// MillHandler molino del usuario, menú del dashboard y reporte de accesos.
type MillHandler struct {
	mills  *usecase.MillUseCase
	nav    *usecase.NavigationUseCase
	report *usecase.AccessReportUseCase
}

// NewMillHandler construye el handler.
func NewMillHandler(mills *usecase.MillUseCase, nav *usecase.NavigationUseCase, report *usecase.AccessReportUseCase) *MillHandler {
	return &MillHandler{mills: mills, nav: nav, report: report}
}

// Current godoc
// @Summary      Molino de la sesión
// @Tags         mills
// @Produce      json
// @Success      200   {object}  dto.MillResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/mills/current [get]
func (h *MillHandler) Current(c *fiber.Ctx) error {
	out, err := h.mills.Current(c.UserContext(), usecase.ActorFromSession(GetSession(c)))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar molinos visibles
// @Tags         mills
// @Produce      json
// @Success      200   {array}  dto.MillResponse
// @Router       /api/mills [get]
func (h *MillHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	out, err := h.mills.List(c.UserContext(), usecase.ActorFromSession(GetSession(c)), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Navigation godoc
// @Summary      Secciones del dashboard que el rol puede abrir
// @Tags         navigation
// @Produce      json
// @Success      200   {array}  dto.NavSectionResponse
// @Router       /api/navigation [get]
func (h *MillHandler) Navigation(c *fiber.Ctx) error {
	return c.JSON(h.nav.For(GetSession(c)))
}

// AccessReport godoc
// @Summary      Reporte de accesos del molino en PDF
// @Tags         reports
// @Produce      application/pdf
// @Success      200
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/reports/access.pdf [get]
func (h *MillHandler) AccessReport(c *fiber.Ctx) error {
	doc, err := h.report.Render(c.UserContext(), usecase.ActorFromSession(GetSession(c)))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="accesos-%s.pdf"`, c.Context().Time().Format("20060102")))
	return c.Send(doc)
}
