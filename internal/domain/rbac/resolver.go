package rbac

import (
	"strings"

	"github.com/jhoicas/molino-api/internal/domain/entity"
)

// PermissionsFor devuelve una copia del conjunto de permisos del rol.
// Un rol desconocido devuelve un conjunto vacío (falla cerrado).
func PermissionsFor(role entity.Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// HasPermission decide si el rol satisface el permiso pedido.
//
// Precedencia: comodín global, coincidencia exacta, comodín del recurso (el texto
// antes del primer ':'). No existen permisos de denegación: la ausencia es la única negativa.
func HasPermission(role entity.Role, permission string) bool {
	if permission == "" {
		return false
	}
	perms := rolePermissions[role]
	if len(perms) == 0 {
		return false
	}
	res, _, hasResource := strings.Cut(permission, ":")
	for _, p := range perms {
		switch {
		case p == All:
			return true
		case string(p) == permission:
			return true
		case hasResource && p == Permission(res+":*"):
			return true
		}
	}
	return false
}

// Can versión tipada de HasPermission.
func Can(role entity.Role, p Permission) bool {
	return HasPermission(role, string(p))
}

// Expand devuelve los permisos concretos que otorga el rol (comodines resueltos).
func Expand(role entity.Role) []Permission {
	var out []Permission
	for _, p := range Concrete() {
		if Can(role, p) {
			out = append(out, p)
		}
	}
	return out
}

// Covers informa si el rol a otorga, al menos, todo lo que otorga b.
// Es contención con comodines, no comparación literal de cadenas.
func Covers(a, b entity.Role) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	for _, p := range Expand(b) {
		if !Can(a, p) {
			return false
		}
	}
	return true
}
