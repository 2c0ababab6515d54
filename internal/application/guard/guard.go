// Package guard decide si el contenido protegido puede mostrarse para la sesión actual.
//
// El guard no guarda estado propio más allá de la última decisión: cada evaluación
// lee un snapshot de la sesión y lo compara con el requisito declarado.
package guard

import (
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/internal/domain/rbac"
)

// Rutas por defecto.
const (
	DefaultLoginPath   = "/auth/login"
	DefaultLandingPath = "/dashboard"
)

// State estado de la máquina del guard.
type State string

const (
	StateChecking        State = "checking"
	StateUnauthenticated State = "unauthenticated"
	StateUnauthorized    State = "unauthorized"
	StateAuthorized      State = "authorized"
)

// Outcome efecto que debe ejecutar quien monta el guard.
type Outcome string

const (
	// OutcomePending: carga en curso; mostrar un indicador neutro, sin redirigir.
	OutcomePending           Outcome = "pending"
	OutcomeAllow             Outcome = "allow"
	OutcomeRedirectToLogin   Outcome = "redirect_to_login"
	OutcomeRedirectToDefault Outcome = "redirect_to_default"
)

// Requirement superficie declarativa del guard. Campos vacíos = sin requisito.
type Requirement struct {
	RequiredPermission string `json:"required_permission,omitempty" query:"required_permission"`
	RequiredRole       string `json:"required_role,omitempty" query:"required_role"`
	// FallbackPath reemplaza la ruta de login como destino de los no autenticados.
	FallbackPath string `json:"fallback_path,omitempty" query:"fallback_path"`
}

// Paths destinos de redirección configurados.
type Paths struct {
	Login   string
	Default string
}

// WithDefaults completa las rutas vacías.
func (p Paths) WithDefaults() Paths {
	if p.Login == "" {
		p.Login = DefaultLoginPath
	}
	if p.Default == "" {
		p.Default = DefaultLandingPath
	}
	return p
}

// Snapshot lectura puntual del Session Store.
type Snapshot struct {
	Resolved bool
	Session  *entity.Session
}

// Decision resultado transitorio de una evaluación; nunca se persiste.
type Decision struct {
	State   State   `json:"state"`
	Outcome Outcome `json:"outcome"`
	Target  string  `json:"redirect_to,omitempty"`
}

// Render informa si se puede mostrar el contenido protegido.
func (d Decision) Render() bool {
	return d.Outcome == OutcomeAllow
}

// Redirects informa si la decisión exige redirigir.
func (d Decision) Redirects() bool {
	return d.Outcome == OutcomeRedirectToLogin || d.Outcome == OutcomeRedirectToDefault
}

// Evaluate calcula la decisión. Es pura: no redirige ni muta nada.
func Evaluate(snap Snapshot, req Requirement, paths Paths) Decision {
	paths = paths.WithDefaults()
	if !snap.Resolved {
		return Decision{State: StateChecking, Outcome: OutcomePending}
	}
	if snap.Session == nil {
		target := paths.Login
		if req.FallbackPath != "" {
			target = req.FallbackPath
		}
		return Decision{State: StateUnauthenticated, Outcome: OutcomeRedirectToLogin, Target: target}
	}
	role := snap.Session.Identity.Role
	// El usuario sí está autenticado: un rol o permiso insuficiente lleva al inicio, no al login.
	if req.RequiredRole != "" && string(role) != req.RequiredRole {
		return Decision{State: StateUnauthorized, Outcome: OutcomeRedirectToDefault, Target: paths.Default}
	}
	if req.RequiredPermission != "" && !rbac.HasPermission(role, req.RequiredPermission) {
		return Decision{State: StateUnauthorized, Outcome: OutcomeRedirectToDefault, Target: paths.Default}
	}
	return Decision{State: StateAuthorized, Outcome: OutcomeAllow}
}
