package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/molino-api/internal/application/dto"
	"github.com/jhoicas/molino-api/internal/application/usecase"
	"github.com/jhoicas/molino-api/internal/domain/entity"
)

// UserHandler administración de usuarios y roles del molino.
type UserHandler struct {
	uc       *usecase.UserUseCase
	validate *validator.Validate
}

// NewUserHandler construye el handler de usuarios.
func NewUserHandler(uc *usecase.UserUseCase) *UserHandler {
	return &UserHandler{uc: uc, validate: newValidator()}
}

// List godoc
// @Summary      Listar usuarios del molino
// @Tags         users
// @Produce      json
// @Param        limit   query  int  false  "máximo 100"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200   {object}  dto.UserListResponse
// @Failure      403   {object}  dto.RedirectResponse
// @Router       /api/users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	page.DefaultPage()
	if err := h.validate.Struct(page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: validationMessage(err)})
	}
	out, err := h.uc.List(c.UserContext(), usecase.ActorFromSession(GetSession(c)), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener un usuario
// @Tags         users
// @Produce      json
// @Param        id   path  string  true  "user id"
// @Success      200   {object}  dto.UserResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), usecase.ActorFromSession(GetSession(c)), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ChangeRole godoc
// @Summary      Cambiar el rol de un usuario (revoca sus sesiones)
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "user id"
// @Param        body  body  dto.ChangeRoleRequest  true  "rol nuevo"
// @Success      200   {object}  dto.UserResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/users/{id}/role [patch]
func (h *UserHandler) ChangeRole(c *fiber.Ctx) error {
	var in dto.ChangeRoleRequest
	if ok, err := bind(c, h.validate, &in); !ok {
		return err
	}
	out, err := h.uc.ChangeRole(c.UserContext(), usecase.ActorFromSession(GetSession(c)), c.Params("id"), entity.Role(in.Role))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetActive godoc
// @Summary      Activar o desactivar una cuenta
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "user id"
// @Param        body  body  dto.SetActiveRequest  true  "estado"
// @Success      200   {object}  dto.UserResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/users/{id}/active [patch]
func (h *UserHandler) SetActive(c *fiber.Ctx) error {
	var in dto.SetActiveRequest
	if ok, err := bind(c, h.validate, &in); !ok {
		return err
	}
	out, err := h.uc.SetActive(c.UserContext(), usecase.ActorFromSession(GetSession(c)), c.Params("id"), *in.Active)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
