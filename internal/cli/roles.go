package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/internal/domain/rbac"
)

func newRolesCommand() *cobra.Command {
	var expand bool
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Lista los roles y sus permisos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ROL\tALCANCE\tPERMISOS")
			for _, role := range entity.Roles() {
				perms := rbac.PermissionsFor(role)
				if expand {
					perms = rbac.Expand(role)
				}
				scope := "molino"
				if !role.Scoped() {
					scope = "global"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", role, scope, joinPermissions(perms))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&expand, "expand", false, "resolver comodines en permisos concretos")
	return cmd
}

func newCanCommand() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "can <rol> <permiso>",
		Short: "Indica si un rol satisface un permiso (recurso:acción)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, ok := entity.ParseRole(args[0])
			if !ok {
				return fmt.Errorf("rol desconocido %q", args[0])
			}
			allowed := rbac.HasPermission(role, args[1])
			answer := "no"
			if allowed {
				answer = "sí"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", role, args[1], answer)
			if strict && !allowed {
				return fmt.Errorf("%s no tiene %s", role, args[1])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "terminar con error si el permiso no se concede")
	return cmd
}

func joinPermissions(perms []rbac.Permission) string {
	if len(perms) == 0 {
		return "-"
	}
	parts := make([]string, len(perms))
	for i, p := range perms {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}
