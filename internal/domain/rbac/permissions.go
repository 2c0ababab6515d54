// Package rbac resuelve qué puede hacer cada rol. Es puro y sin efectos laterales:
// la tabla rol → permisos es estática y no se modifica en tiempo de ejecución.
package rbac

import (
	"strings"

	"github.com/jhoicas/molino-api/internal/domain/entity"
)

// Permission par recurso:acción, comodín de recurso (recurso:*) o comodín global (*).
type Permission string

// Resource recursos protegidos del back-office.
type Resource string

const (
	ResourceMills       Resource = "mills"
	ResourceUsers       Resource = "users"
	ResourceFarmers     Resource = "farmers"
	ResourceProcurement Resource = "procurement"
	ResourceInventory   Resource = "inventory"
	ResourceSales       Resource = "sales"
	ResourceReports     Resource = "reports"
)

// Action acciones sobre un recurso.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Comodín global.
const All Permission = "*"

const (
	MillsRead   Permission = "mills:read"
	MillsCreate Permission = "mills:create"
	MillsUpdate Permission = "mills:update"
	MillsDelete Permission = "mills:delete"
	MillsAll    Permission = "mills:*"

	UsersRead   Permission = "users:read"
	UsersCreate Permission = "users:create"
	UsersUpdate Permission = "users:update"
	UsersDelete Permission = "users:delete"
	UsersAll    Permission = "users:*"

	FarmersRead   Permission = "farmers:read"
	FarmersCreate Permission = "farmers:create"
	FarmersUpdate Permission = "farmers:update"
	FarmersDelete Permission = "farmers:delete"
	FarmersAll    Permission = "farmers:*"

	ProcurementRead   Permission = "procurement:read"
	ProcurementCreate Permission = "procurement:create"
	ProcurementUpdate Permission = "procurement:update"
	ProcurementDelete Permission = "procurement:delete"
	ProcurementAll    Permission = "procurement:*"

	InventoryRead   Permission = "inventory:read"
	InventoryCreate Permission = "inventory:create"
	InventoryUpdate Permission = "inventory:update"
	InventoryDelete Permission = "inventory:delete"
	InventoryAll    Permission = "inventory:*"

	SalesRead   Permission = "sales:read"
	SalesCreate Permission = "sales:create"
	SalesUpdate Permission = "sales:update"
	SalesDelete Permission = "sales:delete"
	SalesAll    Permission = "sales:*"

	ReportsRead   Permission = "reports:read"
	ReportsCreate Permission = "reports:create"
	ReportsUpdate Permission = "reports:update"
	ReportsDelete Permission = "reports:delete"
	ReportsAll    Permission = "reports:*"
)

// Resources devuelve los recursos en orden estable.
func Resources() []Resource {
	return []Resource{
		ResourceMills, ResourceUsers, ResourceFarmers, ResourceProcurement,
		ResourceInventory, ResourceSales, ResourceReports,
	}
}

// Actions devuelve las acciones en orden estable.
func Actions() []Action {
	return []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}
}

// Of arma el permiso concreto recurso:acción.
func Of(r Resource, a Action) Permission {
	return Permission(string(r) + ":" + string(a))
}

// Wildcard arma el comodín recurso:*.
func Wildcard(r Resource) Permission {
	return Permission(string(r) + ":*")
}

// Concrete devuelve la unión de todos los permisos concretos (sin comodines).
func Concrete() []Permission {
	out := make([]Permission, 0, len(Resources())*len(Actions()))
	for _, r := range Resources() {
		for _, a := range Actions() {
			out = append(out, Of(r, a))
		}
	}
	return out
}

// Parse valida un permiso recibido como texto contra el conjunto cerrado.
func Parse(s string) (Permission, bool) {
	if s == string(All) {
		return All, true
	}
	res, act, ok := strings.Cut(s, ":")
	if !ok || !validResource(Resource(res)) {
		return "", false
	}
	if act == "*" {
		return Permission(s), true
	}
	for _, a := range Actions() {
		if Action(act) == a {
			return Permission(s), true
		}
	}
	return "", false
}

// Resource recurso del permiso; vacío para el comodín global.
func (p Permission) Resource() Resource {
	res, _, ok := strings.Cut(string(p), ":")
	if !ok {
		return ""
	}
	return Resource(res)
}

// IsWildcard informa si el permiso es un comodín (global o de recurso).
func (p Permission) IsWildcard() bool {
	return p == All || strings.HasSuffix(string(p), ":*")
}

func validResource(r Resource) bool {
	for _, v := range Resources() {
		if v == r {
			return true
		}
	}
	return false
}

// rolePermissions tabla estática rol → conjunto ordenado de permisos.
var rolePermissions = map[entity.Role][]Permission{
	entity.RoleSuperAdmin: {All},
	entity.RoleMillOwner: {
		MillsRead, MillsUpdate,
		UsersCreate, UsersRead, UsersUpdate,
		FarmersAll, ProcurementAll, InventoryAll, SalesAll, ReportsAll,
	},
	entity.RoleManager: {
		FarmersAll, ProcurementAll, InventoryAll, SalesAll,
		ReportsRead, ReportsCreate,
		UsersRead, MillsRead,
	},
	entity.RoleOperator: {
		FarmersRead, FarmersCreate, FarmersUpdate,
		ProcurementAll,
		InventoryRead,
		SalesCreate, SalesRead,
	},
	entity.RoleAccountant: {
		FarmersRead, ProcurementRead, InventoryRead, SalesRead,
		ReportsAll,
	},
}
