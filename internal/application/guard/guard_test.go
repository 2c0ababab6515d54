package guard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/molino-api/internal/application/guard"
	"github.com/jhoicas/molino-api/internal/domain/entity"
)

func sessionWithRole(role entity.Role) *entity.Session {
	return &entity.Session{
		Identity:    entity.Identity{UserID: "u-1", Email: "u@molino.co", Role: role},
		Token:       "tok",
		TenantScope: "mill-1",
	}
}

func resolved(s *entity.Session) guard.Snapshot {
	return guard.Snapshot{Resolved: true, Session: s}
}

func TestEvaluate_SinResolverEsPendiente(t *testing.T) {
	d := guard.Evaluate(guard.Snapshot{}, guard.Requirement{RequiredPermission: "farmers:read"}, guard.Paths{})
	assert.Equal(t, guard.StateChecking, d.State)
	assert.Equal(t, guard.OutcomePending, d.Outcome)
	assert.False(t, d.Render())
	assert.False(t, d.Redirects(), "mientras carga no se redirige")
}

func TestEvaluate_Escenarios(t *testing.T) {
	cases := []struct {
		name    string
		snap    guard.Snapshot
		req     guard.Requirement
		state   guard.State
		outcome guard.Outcome
		target  string
	}{
		{
			name:    "sin sesión con permiso requerido va al login",
			snap:    resolved(nil),
			req:     guard.Requirement{RequiredPermission: "farmers:read"},
			state:   guard.StateUnauthenticated,
			outcome: guard.OutcomeRedirectToLogin,
			target:  "/auth/login",
		},
		{
			name:    "sin sesión con fallback configurado",
			snap:    resolved(nil),
			req:     guard.Requirement{FallbackPath: "/auth/otra"},
			state:   guard.StateUnauthenticated,
			outcome: guard.OutcomeRedirectToLogin,
			target:  "/auth/otra",
		},
		{
			name:    "operator sin mills:update va al inicio",
			snap:    resolved(sessionWithRole(entity.RoleOperator)),
			req:     guard.Requirement{RequiredPermission: "mills:update"},
			state:   guard.StateUnauthorized,
			outcome: guard.OutcomeRedirectToDefault,
			target:  "/dashboard",
		},
		{
			name:    "mill_owner con farmers:create pasa",
			snap:    resolved(sessionWithRole(entity.RoleMillOwner)),
			req:     guard.Requirement{RequiredPermission: "farmers:create"},
			state:   guard.StateAuthorized,
			outcome: guard.OutcomeAllow,
		},
		{
			name:    "rol distinto al requerido va al inicio, no al login",
			snap:    resolved(sessionWithRole(entity.RoleManager)),
			req:     guard.Requirement{RequiredRole: "mill_owner"},
			state:   guard.StateUnauthorized,
			outcome: guard.OutcomeRedirectToDefault,
			target:  "/dashboard",
		},
		{
			name:    "rol requerido igual pasa",
			snap:    resolved(sessionWithRole(entity.RoleAccountant)),
			req:     guard.Requirement{RequiredRole: "accountant", RequiredPermission: "reports:update"},
			state:   guard.StateAuthorized,
			outcome: guard.OutcomeAllow,
		},
		{
			name:    "rol correcto pero sin permiso",
			snap:    resolved(sessionWithRole(entity.RoleAccountant)),
			req:     guard.Requirement{RequiredRole: "accountant", RequiredPermission: "sales:create"},
			state:   guard.StateUnauthorized,
			outcome: guard.OutcomeRedirectToDefault,
			target:  "/dashboard",
		},
		{
			name:    "sin requisitos basta con estar autenticado",
			snap:    resolved(sessionWithRole(entity.RoleOperator)),
			state:   guard.StateAuthorized,
			outcome: guard.OutcomeAllow,
		},
		{
			name:    "super_admin pasa cualquier permiso",
			snap:    resolved(sessionWithRole(entity.RoleSuperAdmin)),
			req:     guard.Requirement{RequiredPermission: "mills:delete"},
			state:   guard.StateAuthorized,
			outcome: guard.OutcomeAllow,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := guard.Evaluate(tc.snap, tc.req, guard.Paths{})
			assert.Equal(t, tc.state, d.State)
			assert.Equal(t, tc.outcome, d.Outcome)
			assert.Equal(t, tc.target, d.Target)
			assert.Equal(t, tc.outcome == guard.OutcomeAllow, d.Render())
			assert.False(t, d.Render() && d.Redirects(), "nunca se renderiza mientras se redirige")
		})
	}
}

func TestEvaluate_RutasConfiguradas(t *testing.T) {
	paths := guard.Paths{Login: "/ingresar", Default: "/inicio"}
	d := guard.Evaluate(resolved(nil), guard.Requirement{}, paths)
	assert.Equal(t, "/ingresar", d.Target)

	d = guard.Evaluate(resolved(sessionWithRole(entity.RoleOperator)), guard.Requirement{RequiredPermission: "users:read"}, paths)
	assert.Equal(t, "/inicio", d.Target)
}
