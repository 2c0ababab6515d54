// Package cli comandos de operación de millctl: consulta de roles y alta de administradores.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/molino-api/internal/domain/repository"
	"github.com/jhoicas/molino-api/internal/infrastructure/postgres"
	"github.com/jhoicas/molino-api/pkg/config"
)

// UserStoreOpener abre el repositorio de usuarios; close libera la conexión.
type UserStoreOpener func(ctx context.Context) (users repository.UserRepository, close func(), err error)

// Deps dependencias inyectables de los comandos.
type Deps struct {
	OpenUsers UserStoreOpener
}

// NewRootCommand arma el árbol de comandos de millctl.
func NewRootCommand(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "millctl",
		Short: "Herramientas de operación del back-office del molino",
		Long: `millctl consulta la tabla de roles y permisos del back-office
y crea la cuenta super_admin inicial directamente en la base de datos.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRolesCommand(),
		newCanCommand(),
		newHashPasswordCommand(),
		newSeedAdminCommand(deps),
	)
	return root
}

// ExecuteContext ejecuta millctl contra la base configurada por entorno.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand(Deps{OpenUsers: openPostgresUsers}).ExecuteContext(ctx)
}

func openPostgresUsers(ctx context.Context) (repository.UserRepository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("cargar configuración: %w", err)
	}
	if cfg.Storage.Driver != config.StoragePostgres {
		return nil, nil, fmt.Errorf("seed-admin requiere STORAGE_DRIVER=postgres (actual %q)", cfg.Storage.Driver)
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return postgres.NewUserRepository(pool), pool.Close, nil
}
