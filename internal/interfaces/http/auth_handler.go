package http

import (
	"context"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/molino-api/internal/application/dto"
	"github.com/jhoicas/molino-api/internal/application/guard"
	"github.com/jhoicas/molino-api/internal/domain"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/internal/domain/rbac"
)

// IdentityService operaciones del proveedor que no pasan por el Session Store.
// Lo implementa *identity.Service.
type IdentityService interface {
	TokenResolver
	IssueToken(ctx context.Context, email, password string) (*entity.Session, error)
	SignOut(ctx context.Context, token string) error
	ConfirmEmail(ctx context.Context, token string) error
	CompletePasswordReset(ctx context.Context, token, password string) error
	UpdateProfile(ctx context.Context, token string, patch entity.ProfilePatch) (*entity.Identity, error)
}

// newValidator validador que reporta los campos con su nombre JSON.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// AuthHandler formularios de autenticación: login, registro, recuperación y perfil.
type AuthHandler struct {
	svc      IdentityService
	policy   guard.PathPolicy
	sessions SessionConfig
	validate *validator.Validate
}

// NewAuthHandler construye el handler de auth. sessions emite la cookie rotada
// tras un inicio de sesión.
func NewAuthHandler(svc IdentityService, policy guard.PathPolicy, sessions SessionConfig) *AuthHandler {
	return &AuthHandler{svc: svc, policy: policy, sessions: sessions, validate: newValidator()}
}

// Login godoc
// @Summary      Iniciar sesión en el navegador
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.LoginResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      429   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if ok, err := bind(c, h.validate, &in); !ok {
		return err
	}
	store := GetStore(c)
	if store == nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "COOKIE_REQUIRED", Message: "use /api/auth/token para clientes con Bearer"})
	}
	if err := store.SignIn(c.UserContext(), in.Email, in.Password); err != nil {
		return writeError(c, err)
	}
	h.sessions.rotate(c)
	out := dto.LoginResponse{Session: sessionResponse(true, store.Current())}
	if target, ok := h.policy.AfterSignIn(c.Query("from")); ok {
		out.RedirectTo = target
	}
	return c.JSON(out)
}

// SignUp godoc
// @Summary      Registrar una cuenta dentro de un molino
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SignUpRequest  true  "email, password, mill_id"
// @Success      201   {object}  dto.SignUpResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/auth/signup [post]
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var in dto.SignUpRequest
	if ok, err := bind(c, h.validate, &in); !ok {
		return err
	}
	store := GetStore(c)
	if store == nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "COOKIE_REQUIRED", Message: "el registro se hace desde el navegador"})
	}
	meta := entity.ProfileMetadata{
		Profile: entity.Profile{FullName: in.FullName, Phone: in.Phone, Department: in.Department},
		MillID:  in.MillID,
		Role:    entity.Role(in.Role),
	}
	pending, err := store.SignUp(c.UserContext(), in.Email, in.Password, meta)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.SignUpResponse{ConfirmationRequired: pending}
	if !pending {
		h.sessions.rotate(c)
		s := sessionResponse(true, store.Current())
		out.Session = &s
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Logout godoc
// @Summary      Cerrar sesión
// @Tags         auth
// @Produce      json
// @Success      200   {object}  dto.RedirectResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if store := GetStore(c); store != nil {
		store.SignOut(c.UserContext())
	} else if token := GetBearerToken(c); token != "" {
		if err := h.svc.SignOut(c.UserContext(), token); err != nil {
			return writeError(c, err)
		}
	}
	return c.JSON(dto.RedirectResponse{Code: "SIGNED_OUT", Message: "sesión cerrada", RedirectTo: h.policy.AfterSignOut()})
}

// ResetPassword godoc
// @Summary      Solicitar enlace de recuperación de contraseña
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ResetPasswordRequest  true  "email"
// @Success      202   {object}  dto.ErrorResponse
// @Failure      429   {object}  dto.ErrorResponse
// @Router       /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var in dto.ResetPasswordRequest
	if ok, err := bind(c, h.validate, &in); !ok {
		return err
	}
	store := GetStore(c)
	if store == nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "COOKIE_REQUIRED", Message: "la recuperación se hace desde el navegador"})
	}
	if err := store.ResetPassword(c.UserContext(), in.Email); err != nil {
		return writeError(c, err)
	}
	// Misma respuesta exista o no la cuenta.
	return c.Status(fiber.StatusAccepted).JSON(dto.ErrorResponse{Code: "RESET_SENT", Message: "si la cuenta existe, recibirá un correo con el enlace"})
}

// UpdatePassword godoc
// @Summary      Completar la recuperación con el token del correo
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.UpdatePasswordRequest  true  "token, password"
// @Success      200   {object}  dto.RedirectResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/auth/update-password [post]
func (h *AuthHandler) UpdatePassword(c *fiber.Ctx) error {
	var in dto.UpdatePasswordRequest
	if ok, err := bind(c, h.validate, &in); !ok {
		return err
	}
	if err := h.svc.CompletePasswordReset(c.UserContext(), in.Token, in.Password); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.RedirectResponse{Code: "PASSWORD_UPDATED", Message: "contraseña actualizada; inicie sesión de nuevo", RedirectTo: h.policy.AfterSignOut()})
}

// Confirm godoc
// @Summary      Confirmar el email con el enlace recibido
// @Tags         auth
// @Param        token  query  string  true  "token de confirmación"
// @Success      302
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/auth/confirm [get]
func (h *AuthHandler) Confirm(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "token requerido"})
	}
	if err := h.svc.ConfirmEmail(c.UserContext(), token); err != nil {
		return writeError(c, err)
	}
	target := h.policy.AfterSignOut() + "?" + url.Values{"confirmed": {"1"}}.Encode()
	return c.Redirect(target, fiber.StatusFound)
}

// Session godoc
// @Summary      Estado de la sesión del navegador
// @Tags         auth
// @Produce      json
// @Success      200   {object}  dto.SessionResponse
// @Router       /api/auth/session [get]
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	snap := snapshot(c)
	return c.JSON(sessionResponse(snap.Resolved, snap.Session))
}

// UpdateProfile godoc
// @Summary      Modificar nombre, teléfono o departamento
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ProfilePatchRequest  true  "campos a cambiar"
// @Success      200   {object}  dto.SessionResponse
// @Failure      401   {object}  dto.RedirectResponse
// @Router       /api/auth/profile [patch]
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var in dto.ProfilePatchRequest
	if ok, err := bind(c, h.validate, &in); !ok {
		return err
	}
	patch := entity.ProfilePatch{FullName: in.FullName, Phone: in.Phone, Department: in.Department}

	if store := GetStore(c); store != nil {
		if err := store.UpdateProfile(c.UserContext(), patch); err != nil {
			return writeError(c, err)
		}
		return c.JSON(sessionResponse(true, store.Current()))
	}
	sess := GetSession(c)
	if sess == nil {
		return writeError(c, domain.ErrUnauthorized)
	}
	ident, err := h.svc.UpdateProfile(c.UserContext(), GetBearerToken(c), patch)
	if err != nil {
		return writeError(c, err)
	}
	sess.Identity = *ident
	return c.JSON(sessionResponse(true, sess))
}

// Token godoc
// @Summary      Emitir un token Bearer para clientes de API
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.TokenResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/token [post]
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if ok, err := bind(c, h.validate, &in); !ok {
		return err
	}
	sess, err := h.svc.IssueToken(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.TokenResponse{
		AccessToken: sess.Token,
		TokenType:   "Bearer",
		ExpiresAt:   sess.ExpiresAt,
		User:        identityResponse(sess.Identity),
	})
}

// sessionResponse arma la vista pública de la sesión; el token nunca sale del servidor.
func sessionResponse(resolved bool, s *entity.Session) dto.SessionResponse {
	out := dto.SessionResponse{Resolved: resolved}
	if s == nil {
		return out
	}
	ident := identityResponse(s.Identity)
	exp := s.ExpiresAt
	perms := rbac.PermissionsFor(s.Identity.Role)
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	out.Authenticated = true
	out.User = &ident
	out.TenantScope = s.TenantScope
	out.ExpiresAt = &exp
	out.Permissions = names
	return out
}

func identityResponse(id entity.Identity) dto.IdentityResponse {
	return dto.IdentityResponse{
		UserID:     id.UserID,
		Email:      id.Email,
		Role:       string(id.Role),
		FullName:   id.Profile.FullName,
		Phone:      id.Profile.Phone,
		Department: id.Profile.Department,
	}
}
