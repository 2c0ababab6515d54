package http

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/molino-api/internal/application/dto"
	"github.com/jhoicas/molino-api/internal/application/guard"
	"github.com/jhoicas/molino-api/internal/application/session"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/pkg/logger"
)

// Locals keys de Fiber.
const (
	LocalSession = "session"
	LocalStore   = "session_store"
	LocalSID     = "session_id"
	LocalToken   = "bearer_token"
	localLogger  = "logger"
)

// SessionCookie nombre de la cookie con el id opaco del navegador. Nunca lleva el token.
const SessionCookie = "molino_sid"

// TokenResolver valida tokens Bearer. Lo implementa *identity.Service.
type TokenResolver interface {
	Session(ctx context.Context, token string) (*entity.Session, error)
}

// SessionConfig dependencias del middleware de sesión.
type SessionConfig struct {
	Registry     *session.Registry
	Tokens       TokenResolver
	CookieSecure bool
	CookieMaxAge time.Duration
	// Policy decide en qué rutas un Bearer inválido corta la petición.
	// En rutas públicas se ignora y la petición sigue con la cookie.
	Policy guard.PathPolicy
}

// setCookie emite la cookie del navegador con el id dado.
func (cfg SessionConfig) setCookie(c *fiber.Ctx, sid string) {
	cookie := &fiber.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if cfg.CookieMaxAge > 0 {
		cookie.MaxAge = int(cfg.CookieMaxAge.Seconds())
	}
	c.Cookie(cookie)
	c.Locals(LocalSID, sid)
}

// rotate cambia el id del navegador tras autenticarse; el id anterior deja de valer.
func (cfg SessionConfig) rotate(c *fiber.Ctx) {
	sid, _ := c.Locals(LocalSID).(string)
	if cfg.Registry == nil || sid == "" {
		return
	}
	next, ok := cfg.Registry.Rotate(sid)
	if !ok {
		return
	}
	cfg.setCookie(c, next)
}

// RequestLogger deja el logger en el contexto y registra cada petición.
func RequestLogger(log *logger.Logger) fiber.Handler {
	log = log.Component("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		c.Locals(localLogger, log)
		err := c.Next()
		log.Debug().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
		return err
	}
}

func loggerFrom(c *fiber.Ctx) *logger.Logger {
	l, _ := c.Locals(localLogger).(*logger.Logger)
	return l
}

// SessionMiddleware resuelve la sesión de la petición y la deja en c.Locals.
//
// Con "Authorization: Bearer" la sesión sale del token (clientes de API). Sin él,
// la cookie identifica el Session Store del navegador; si no existe se abre uno.
func SessionMiddleware(cfg SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if header := c.Get(fiber.HeaderAuthorization); header != "" {
			sess, token, code, err := bearer(c, cfg.Tokens, header)
			switch {
			case err != nil:
				return writeError(c, err)
			case sess != nil:
				c.Locals(LocalToken, token)
				c.Locals(LocalSession, sess)
				return c.Next()
			case cfg.Policy.RequiresSession(c.Path()):
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: code, Message: bearerMessages[code]})
			}
			// Ruta pública: el encabezado inválido no cuenta, sigue la cookie.
		}

		ctx := c.UserContext()
		sid := c.Cookies(SessionCookie)
		store, ok := cfg.Registry.Get(sid)
		if ok {
			c.Locals(LocalSID, sid)
			if store.Current() != nil {
				// Renueva el token si está por vencer y descarta sesiones revocadas.
				store.Revalidate(ctx)
			}
		} else {
			sid, store = cfg.Registry.Open(ctx)
			cfg.setCookie(c, sid)
		}
		c.Locals(LocalStore, store)
		c.Locals(LocalSession, store.Current())
		return c.Next()
	}
}

var bearerMessages = map[string]string{
	"INVALID_TOKEN": "token inválido o expirado",
	"MISSING_TOKEN": "token vacío",
}

// bearer resuelve la sesión de un encabezado Authorization. Sin sesión, code
// indica el motivo (INVALID_TOKEN o MISSING_TOKEN).
func bearer(c *fiber.Ctx, tokens TokenResolver, header string) (sess *entity.Session, token, code string, err error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, "", "INVALID_TOKEN", nil
	}
	token = strings.TrimSpace(parts[1])
	if token == "" {
		return nil, "", "MISSING_TOKEN", nil
	}
	sess, err = tokens.Session(c.UserContext(), token)
	if err != nil {
		return nil, "", "", err
	}
	if sess == nil {
		return nil, "", "INVALID_TOKEN", nil
	}
	return sess, token, "", nil
}

// GetSession devuelve la sesión de la petición (nil si no hay).
func GetSession(c *fiber.Ctx) *entity.Session {
	s, _ := c.Locals(LocalSession).(*entity.Session)
	return s
}

// GetStore devuelve el Session Store del navegador; nil en peticiones Bearer.
func GetStore(c *fiber.Ctx) *session.Store {
	s, _ := c.Locals(LocalStore).(*session.Store)
	return s
}

// GetBearerToken devuelve el token de una petición Bearer.
func GetBearerToken(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalToken).(string)
	return s
}

// isAPI distingue las peticiones JSON de las de página.
func isAPI(c *fiber.Ctx) bool {
	return underPath(c.Path(), "/api")
}

func underPath(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// snapshot lee la sesión de la petición como la vería el guard.
func snapshot(c *fiber.Ctx) guard.Snapshot {
	resolved := true
	if store := GetStore(c); store != nil {
		resolved = store.Resolved()
	}
	return guard.Snapshot{Resolved: resolved, Session: GetSession(c)}
}

// RequireAccess aplica un guard a la ruta. En la API responde 401/403 con el destino
// en redirect_to; en páginas redirige con 302.
func RequireAccess(req guard.Requirement, paths guard.Paths) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := guard.Evaluate(snapshot(c), req, paths)
		if d.Render() {
			return c.Next()
		}
		return respondDecision(c, d)
	}
}

// respondDecision traduce una decisión que no permite el acceso.
func respondDecision(c *fiber.Ctx, d guard.Decision) error {
	if !isAPI(c) {
		if d.Redirects() {
			return c.Redirect(d.Target, fiber.StatusFound)
		}
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}
	switch d.Outcome {
	case guard.OutcomeRedirectToLogin:
		return c.Status(fiber.StatusUnauthorized).JSON(dto.RedirectResponse{
			Code: "UNAUTHENTICATED", Message: "inicie sesión para continuar", RedirectTo: d.Target,
		})
	case guard.OutcomeRedirectToDefault:
		return c.Status(fiber.StatusForbidden).JSON(dto.RedirectResponse{
			Code: "FORBIDDEN", Message: "su rol no tiene acceso a este recurso", RedirectTo: d.Target,
		})
	default:
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Code: "SESSION_CHECKING", Message: "verificando sesión",
		})
	}
}

// PathPolicyMiddleware redirige por prefijo antes de cualquier handler.
func PathPolicyMiddleware(policy guard.PathPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authenticated := GetSession(c) != nil
		target, ok := policy.Redirect(c.Path(), authenticated)
		if !ok {
			return c.Next()
		}
		if isAPI(c) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.RedirectResponse{
				Code: "UNAUTHENTICATED", Message: "inicie sesión para continuar", RedirectTo: target,
			})
		}
		return c.Redirect(target, fiber.StatusFound)
	}
}

// SectionResolver requisito de una sección del dashboard. Lo implementa *usecase.NavigationUseCase.
type SectionResolver interface {
	RequirementFor(path string) (guard.Requirement, bool)
}

// SectionGuard protege las páginas /dashboard/<sección> con el requisito de su sección.
func SectionGuard(sections SectionResolver, paths guard.Paths) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, ok := sections.RequirementFor(c.Path())
		if !ok {
			return c.Next()
		}
		d := guard.Evaluate(snapshot(c), req, paths)
		if d.Render() {
			return c.Next()
		}
		return respondDecision(c, d)
	}
}
