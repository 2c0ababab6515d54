package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/molino-api/internal/application/dto"
	"github.com/jhoicas/molino-api/internal/domain"
)

// errorStatus traduce un error de dominio o de autenticación a status + código.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		return fiber.StatusConflict, "EMAIL_EXISTS"
	case errors.Is(err, domain.ErrUserNotFound):
		return fiber.StatusNotFound, "USER_NOT_FOUND"
	case errors.Is(err, domain.ErrMillNotFound):
		return fiber.StatusNotFound, "MILL_NOT_FOUND"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	}
	var ae *domain.AuthError
	if errors.As(err, &ae) {
		switch ae.Kind {
		case domain.AuthInvalidCredentials:
			return fiber.StatusUnauthorized, string(ae.Kind)
		case domain.AuthUnconfirmedAccount:
			return fiber.StatusForbidden, string(ae.Kind)
		case domain.AuthRateLimited:
			return fiber.StatusTooManyRequests, string(ae.Kind)
		case domain.AuthNetworkUnavailable:
			return fiber.StatusServiceUnavailable, string(ae.Kind)
		default:
			// Unknown llega de validaciones del proveedor: se muestra en el formulario.
			return fiber.StatusBadRequest, string(ae.Kind)
		}
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

// writeError responde con dto.ErrorResponse. Los errores internos no exponen su detalle.
func writeError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	msg := err.Error()
	var ae *domain.AuthError
	switch {
	case status == fiber.StatusInternalServerError:
		msg = "error interno"
		if log := loggerFrom(c); log != nil {
			log.Error().Err(err).Str("path", c.Path()).Msg("error no controlado")
		}
	case errors.As(err, &ae):
		msg = ae.Message()
	}
	if status == fiber.StatusTooManyRequests {
		c.Set(fiber.HeaderRetryAfter, "60")
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// bind parsea el cuerpo y lo valida. Devuelve false si ya respondió con 400.
func bind(c *fiber.Ctx, v *validator.Validate, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := v.Struct(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: validationMessage(err)})
	}
	return true, nil
}

// validationMessage resume los campos inválidos: "email: email, password: min".
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
