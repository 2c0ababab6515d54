package http

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/molino-api/internal/application/guard"
	"github.com/jhoicas/molino-api/internal/application/session"
	"github.com/jhoicas/molino-api/internal/application/usecase"
	"github.com/jhoicas/molino-api/internal/domain/rbac"
	"github.com/jhoicas/molino-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Registry     *session.Registry
	Identity     IdentityService
	UserUC       *usecase.UserUseCase
	MillUC       *usecase.MillUseCase
	NavigationUC *usecase.NavigationUseCase
	AccessReport *usecase.AccessReportUseCase
	Paths        guard.Paths
	CookieSecure bool
	CookieMaxAge time.Duration
	// StaticDir build del dashboard; vacío sirve un shell mínimo.
	StaticDir string
	// StreamHeartbeat intervalo de ": ping" en /api/guard/stream; cero usa 15s.
	StreamHeartbeat time.Duration
	Log             *logger.Logger
}

// ServerConfig configuración de Fiber del servicio. No fija WriteTimeout: fasthttp
// aplica un único plazo de escritura a toda la respuesta y cortaría /api/guard/stream.
// ReadTimeout e IdleTimeout siguen acotando clientes lentos o inactivos.
func ServerConfig(appName string) fiber.Config {
	return fiber.Config{
		AppName:     appName,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

// Router registra middlewares, API y páginas.
func Router(app *fiber.App, deps RouterDeps) {
	paths := deps.Paths.WithDefaults()
	policy := guard.NewPathPolicy(paths)
	// El guard responde con su propia decisión, también sin sesión.
	policy.Public = append(policy.Public, "/api/guard")

	app.Use(RequestLogger(deps.Log))
	sessions := SessionConfig{
		Registry:     deps.Registry,
		Tokens:       deps.Identity,
		CookieSecure: deps.CookieSecure,
		CookieMaxAge: deps.CookieMaxAge,
		Policy:       policy,
	}
	app.Use(SessionMiddleware(sessions))
	app.Use(PathPolicyMiddleware(policy))

	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.Identity, policy, sessions)
	authGroup := api.Group("/auth")
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/signup", authHandler.SignUp)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Post("/reset-password", authHandler.ResetPassword)
	authGroup.Post("/update-password", authHandler.UpdatePassword)
	authGroup.Get("/confirm", authHandler.Confirm)
	authGroup.Get("/session", authHandler.Session)
	authGroup.Post("/token", authHandler.Token)
	authGroup.Patch("/profile", RequireAccess(guard.Requirement{}, paths), authHandler.UpdateProfile)

	// Guard
	guardHandler := NewGuardHandler(paths, deps.StreamHeartbeat, deps.Log)
	api.Get("/guard/check", guardHandler.Check)
	api.Get("/guard/stream", guardHandler.Stream)

	// Molino, navegación y reportes
	millHandler := NewMillHandler(deps.MillUC, deps.NavigationUC, deps.AccessReport)
	api.Get("/navigation", millHandler.Navigation)
	api.Get("/mills", require(rbac.MillsRead, paths), millHandler.List)
	api.Get("/mills/current", require(rbac.MillsRead, paths), millHandler.Current)
	api.Get("/reports/access.pdf", require(rbac.UsersRead, paths), millHandler.AccessReport)

	// Usuarios
	userHandler := NewUserHandler(deps.UserUC)
	users := api.Group("/users")
	users.Get("/", require(rbac.UsersRead, paths), userHandler.List)
	users.Get("/:id", require(rbac.UsersRead, paths), userHandler.GetByID)
	users.Patch("/:id/role", require(rbac.UsersUpdate, paths), userHandler.ChangeRole)
	users.Patch("/:id/active", require(rbac.UsersUpdate, paths), userHandler.SetActive)

	// Páginas del dashboard renderizado en el cliente
	page := pageHandler(deps.StaticDir)
	app.Get("/", func(c *fiber.Ctx) error {
		if GetSession(c) != nil {
			return c.Redirect(paths.Default, fiber.StatusFound)
		}
		return c.Redirect(paths.Login, fiber.StatusFound)
	})
	app.Get("/auth/*", page)
	app.Get("/dashboard", SectionGuard(deps.NavigationUC, paths), page)
	app.Get("/dashboard/*", SectionGuard(deps.NavigationUC, paths), page)
	if deps.StaticDir != "" {
		app.Static("/", deps.StaticDir)
	}
}

func require(p rbac.Permission, paths guard.Paths) fiber.Handler {
	return RequireAccess(guard.Requirement{RequiredPermission: string(p)}, paths)
}

const shellHTML = `<!doctype html>
<html lang="es"><head><meta charset="utf-8"><title>Molino</title></head>
<body><div id="app"></div></body></html>`

// pageHandler sirve el index.html del dashboard; el enrutado fino lo hace el cliente.
func pageHandler(dir string) fiber.Handler {
	index := ""
	if dir != "" {
		candidate := filepath.Join(dir, "index.html")
		if _, err := os.Stat(candidate); err == nil {
			index = candidate
		}
	}
	return func(c *fiber.Ctx) error {
		if index != "" {
			return c.SendFile(index)
		}
		c.Type("html")
		return c.SendString(shellHTML)
	}
}
