package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/molino-api/internal/domain/entity"
)

const minPasswordLength = 8

func newHashPasswordCommand() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [contraseña]",
		Short: "Genera un hash bcrypt (lee de stdin si no se pasa argumento)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordArg(cmd, args)
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
			if err != nil {
				return fmt.Errorf("hash: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "costo bcrypt")
	return cmd
}

func newSeedAdminCommand(deps Deps) *cobra.Command {
	var email, password, fullName string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Crea la cuenta super_admin inicial",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" || !strings.Contains(email, "@") {
				return errors.New("--email inválido")
			}
			if len(password) < minPasswordLength {
				return fmt.Errorf("--password debe tener al menos %d caracteres", minPasswordLength)
			}
			if deps.OpenUsers == nil {
				return errors.New("sin repositorio de usuarios")
			}
			ctx := cmd.Context()
			users, closeFn, err := deps.OpenUsers(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			existing, err := users.GetByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("buscar usuario: %w", err)
			}
			if existing != nil {
				return fmt.Errorf("ya existe una cuenta con email %s (rol %s)", email, existing.Role)
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash: %w", err)
			}
			now := time.Now().UTC()
			user := &entity.User{
				ID:             uuid.New().String(),
				Email:          email,
				PasswordHash:   string(hash),
				FullName:       fullName,
				Role:           entity.RoleSuperAdmin,
				Status:         entity.UserStatusActive,
				EmailConfirmed: true,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := users.Create(ctx, user); err != nil {
				return fmt.Errorf("crear usuario: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "super_admin creado: %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email de la cuenta")
	cmd.Flags().StringVar(&password, "password", "", "contraseña inicial")
	cmd.Flags().StringVar(&fullName, "name", "Administrador", "nombre visible")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func passwordArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("contraseña vacía")
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("contraseña vacía")
	}
	return line, nil
}
