package rbac_test

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/internal/domain/rbac"
)

// ──────────────────────────────────────────────────────────────────────────────
// HasPermission
// ──────────────────────────────────────────────────────────────────────────────

func TestHasPermission_PermisoVacioSiempreFalso(t *testing.T) {
	for _, role := range append(entity.Roles(), entity.Role("desconocido")) {
		assert.False(t, rbac.HasPermission(role, ""), "rol %s con permiso vacío", role)
		var undefined string
		assert.False(t, rbac.HasPermission(role, undefined), "rol %s con permiso sin definir", role)
	}
}

func TestHasPermission_SuperAdminTodoNoVacio(t *testing.T) {
	for _, p := range []string{"farmers:create", "mills:delete", "lo-que-sea", "x:y:z", ":", "*"} {
		assert.True(t, rbac.HasPermission(entity.RoleSuperAdmin, p), "super_admin debe tener %q", p)
	}
}

func TestHasPermission_Tabla(t *testing.T) {
	cases := []struct {
		role entity.Role
		perm string
		want bool
	}{
		{entity.RoleManager, "farmers:create", true}, // farmers:*
		{entity.RoleManager, "mills:update", false},
		{entity.RoleManager, "reports:read", true},
		{entity.RoleManager, "reports:delete", false},
		{entity.RoleOperator, "mills:update", false},
		{entity.RoleOperator, "farmers:delete", false},
		{entity.RoleOperator, "procurement:delete", true},
		{entity.RoleMillOwner, "farmers:create", true},
		{entity.RoleMillOwner, "mills:delete", false},
		{entity.RoleMillOwner, "users:delete", false},
		{entity.RoleAccountant, "reports:update", true},
		{entity.RoleAccountant, "sales:create", false},
		// Sin ':' no aplica el comodín de recurso.
		{entity.RoleManager, "farmers", false},
		{entity.Role("desconocido"), "farmers:read", false},
	}
	for _, tc := range cases {
		t.Run(string(tc.role)+"/"+tc.perm, func(t *testing.T) {
			assert.Equal(t, tc.want, rbac.HasPermission(tc.role, tc.perm))
		})
	}
}

func TestCan_Tipado(t *testing.T) {
	assert.True(t, rbac.Can(entity.RoleOperator, rbac.SalesCreate))
	assert.False(t, rbac.Can(entity.RoleOperator, rbac.UsersRead))
}

// ──────────────────────────────────────────────────────────────────────────────
// Invariantes de la tabla
// ──────────────────────────────────────────────────────────────────────────────

func TestPermissionsFor_SuperAdminEsComodinGlobal(t *testing.T) {
	assert.Equal(t, []rbac.Permission{rbac.All}, rbac.PermissionsFor(entity.RoleSuperAdmin))
}

func TestPermissionsFor_RolDesconocidoVacio(t *testing.T) {
	assert.Empty(t, rbac.PermissionsFor(entity.Role("root")))
}

func TestPermissionsFor_DevuelveCopia(t *testing.T) {
	perms := rbac.PermissionsFor(entity.RoleOperator)
	require.NotEmpty(t, perms)
	perms[0] = rbac.All
	assert.False(t, rbac.HasPermission(entity.RoleOperator, "mills:update"), "mutar la copia no debe alterar la tabla")
}

func TestPermissionsFor_CardinalidadJerarquica(t *testing.T) {
	owner := len(rbac.PermissionsFor(entity.RoleMillOwner))
	manager := len(rbac.PermissionsFor(entity.RoleManager))
	operator := len(rbac.PermissionsFor(entity.RoleOperator))
	assert.Greater(t, owner, manager)
	assert.Greater(t, manager, operator)
}

func TestPermissionsFor_TodosLosPermisosSonValidos(t *testing.T) {
	for _, role := range entity.Roles() {
		for _, p := range rbac.PermissionsFor(role) {
			_, ok := rbac.Parse(string(p))
			assert.True(t, ok, "permiso %q del rol %s no pertenece al conjunto cerrado", p, role)
		}
	}
}

func TestExpand_SubconjuntoEstrictoNoVacio(t *testing.T) {
	all := len(rbac.Concrete())
	for _, role := range entity.Roles() {
		if role == entity.RoleSuperAdmin {
			assert.Len(t, rbac.Expand(role), all)
			continue
		}
		n := len(rbac.Expand(role))
		assert.Greater(t, n, 0, "rol %s sin permisos", role)
		assert.Less(t, n, all, "rol %s no debe otorgar todo", role)
	}
}

func TestPermissionsFor_SinConjuntosRepetidos(t *testing.T) {
	seen := map[string]entity.Role{}
	for _, role := range entity.Roles() {
		perms := rbac.Expand(role)
		keys := make([]string, len(perms))
		for i, p := range perms {
			keys[i] = string(p)
		}
		sort.Strings(keys)
		key := strings.Join(keys, ",")
		prev, dup := seen[key]
		assert.False(t, dup, "roles %s y %s otorgan el mismo conjunto", prev, role)
		seen[key] = role
	}
}

// La jerarquía se exige por contención con comodines, no por comparación literal:
// manager declara reports:read, que mill_owner cubre con reports:*.
func TestCovers_JerarquiaConComodines(t *testing.T) {
	assert.True(t, rbac.Covers(entity.RoleMillOwner, entity.RoleManager))
	assert.True(t, rbac.Covers(entity.RoleManager, entity.RoleOperator))
	assert.True(t, rbac.Covers(entity.RoleMillOwner, entity.RoleOperator))
	assert.True(t, rbac.Covers(entity.RoleSuperAdmin, entity.RoleMillOwner))

	assert.False(t, rbac.Covers(entity.RoleManager, entity.RoleMillOwner))
	assert.False(t, rbac.Covers(entity.RoleOperator, entity.RoleManager))
	assert.False(t, rbac.Covers(entity.RoleMillOwner, entity.RoleSuperAdmin))
	assert.False(t, rbac.Covers(entity.Role("x"), entity.RoleOperator))
}

func TestCovers_NoEsContencionLiteral(t *testing.T) {
	owner := map[rbac.Permission]bool{}
	for _, p := range rbac.PermissionsFor(entity.RoleMillOwner) {
		owner[p] = true
	}
	literal := true
	for _, p := range rbac.PermissionsFor(entity.RoleManager) {
		if !owner[p] {
			literal = false
		}
	}
	assert.False(t, literal, "la tabla no está anidada por cadenas; la jerarquía depende de Covers")
}

// ──────────────────────────────────────────────────────────────────────────────
// Parse
// ──────────────────────────────────────────────────────────────────────────────

func TestParse(t *testing.T) {
	valid := []string{"*", "farmers:*", "sales:read", "users:delete"}
	for _, s := range valid {
		p, ok := rbac.Parse(s)
		assert.True(t, ok, s)
		assert.Equal(t, rbac.Permission(s), p)
	}
	invalid := []string{"", "farmer:read", "sales:approve", "sales", ":read", "sales:read:x"}
	for _, s := range invalid {
		_, ok := rbac.Parse(s)
		assert.False(t, ok, s)
	}
}

func TestPermission_ResourceYComodin(t *testing.T) {
	assert.Equal(t, rbac.ResourceSales, rbac.SalesRead.Resource())
	assert.Equal(t, rbac.Resource(""), rbac.All.Resource())
	assert.True(t, rbac.FarmersAll.IsWildcard())
	assert.True(t, rbac.All.IsWildcard())
	assert.False(t, rbac.FarmersRead.IsWildcard())
	assert.Equal(t, rbac.Wildcard(rbac.ResourceFarmers), rbac.FarmersAll)
	assert.Equal(t, rbac.Of(rbac.ResourceMills, rbac.ActionUpdate), rbac.MillsUpdate)
}
