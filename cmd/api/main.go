package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/molino-api/internal/application/guard"
	"github.com/jhoicas/molino-api/internal/application/session"
	"github.com/jhoicas/molino-api/internal/application/usecase"
	"github.com/jhoicas/molino-api/internal/domain/repository"
	"github.com/jhoicas/molino-api/internal/infrastructure/identity"
	"github.com/jhoicas/molino-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/molino-api/internal/infrastructure/pdf"
	"github.com/jhoicas/molino-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/molino-api/internal/interfaces/http"
	"github.com/jhoicas/molino-api/pkg/config"
	"github.com/jhoicas/molino-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		userRepo repository.UserRepository
		millRepo repository.MillRepository
	)
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		// Sin persistencia: útil para desarrollo local y demos.
		userRepo = memory.NewUserRepository()
		millRepo = memory.NewMillRepository()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		userRepo = postgres.NewUserRepository(pool)
		millRepo = postgres.NewMillRepository(pool)
	}

	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: se usa un secreto de desarrollo")
		cfg.JWT.Secret = "molino-dev-secret"
	}

	identitySvc := identity.NewService(userRepo, millRepo, identity.Config{
		JWTSecret:                cfg.JWT.Secret,
		Issuer:                   cfg.JWT.Issuer,
		TokenTTL:                 cfg.JWT.TTL(),
		RequireEmailConfirmation: cfg.Auth.RequireEmailConfirmation,
		LoginAttemptsPerMinute:   cfg.Auth.LoginAttemptsPerMinute,
		LoginBurst:               cfg.Auth.LoginBurst,
		ResetRedirectURL:         cfg.Auth.ResetRedirectURL,
	}, identity.LogMailer{Log: log}, log)

	// Un Store por navegador; el Client lleva el token y se suscribe a revocaciones.
	registry := session.NewRegistry(cfg.Auth.SessionIdle(), func() *session.Store {
		return session.NewStore(identity.NewClient(identitySvc, cfg.Auth.RefreshWindow(), log), log)
	}, log)

	paths := guard.Paths{Login: cfg.Auth.LoginPath, Default: cfg.Auth.DefaultPath}
	userUC := usecase.NewUserUseCase(userRepo, identitySvc, log)
	millUC := usecase.NewMillUseCase(millRepo)
	navigationUC := usecase.NewNavigationUseCase(paths)
	accessReportUC := usecase.NewAccessReportUseCase(userRepo, millRepo, infrapdf.NewAccessReportGenerator())

	// Sin WriteTimeout: el stream SSE del guard mantiene la respuesta abierta.
	app := fiber.New(httpRouter.ServerConfig(cfg.App.Name))
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Molino API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "sessions": registry.Len()})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Registry:     registry,
		Identity:     identitySvc,
		UserUC:       userUC,
		MillUC:       millUC,
		NavigationUC: navigationUC,
		AccessReport: accessReportUC,
		Paths:        paths,
		CookieSecure: cfg.Auth.CookieSecure,
		CookieMaxAge: cfg.Auth.SessionIdle(),
		StaticDir:    cfg.HTTP.StaticDir,
		Log:          log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
