package usecase

import (
	"strings"

	"github.com/jhoicas/molino-api/internal/application/dto"
	"github.com/jhoicas/molino-api/internal/application/guard"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/internal/domain/rbac"
)

// Section sección del dashboard con el requisito que la protege.
type Section struct {
	Key         string
	Label       string
	Path        string
	Requirement guard.Requirement
}

// dashboardSections orden del menú lateral.
var dashboardSections = []Section{
	{Key: "dashboard", Label: "Dashboard", Path: "/dashboard"},
	{Key: "farmers", Label: "Agricultores", Path: "/dashboard/farmers", Requirement: guard.Requirement{RequiredPermission: string(rbac.FarmersRead)}},
	{Key: "procurement", Label: "Compras de arroz paddy", Path: "/dashboard/procurement", Requirement: guard.Requirement{RequiredPermission: string(rbac.ProcurementRead)}},
	{Key: "production", Label: "Producción", Path: "/dashboard/production", Requirement: guard.Requirement{RequiredPermission: string(rbac.InventoryRead)}},
	{Key: "inventory", Label: "Inventario", Path: "/dashboard/inventory", Requirement: guard.Requirement{RequiredPermission: string(rbac.InventoryRead)}},
	{Key: "sales", Label: "Ventas", Path: "/dashboard/sales", Requirement: guard.Requirement{RequiredPermission: string(rbac.SalesRead)}},
	{Key: "reports", Label: "Reportes", Path: "/dashboard/reports", Requirement: guard.Requirement{RequiredPermission: string(rbac.ReportsRead)}},
	{Key: "analytics", Label: "Analítica", Path: "/dashboard/analytics", Requirement: guard.Requirement{RequiredPermission: string(rbac.ReportsRead)}},
	{Key: "kpi", Label: "KPIs", Path: "/dashboard/kpi", Requirement: guard.Requirement{RequiredPermission: string(rbac.ReportsRead)}},
	{Key: "executive", Label: "Ejecutivo", Path: "/dashboard/executive", Requirement: guard.Requirement{RequiredPermission: string(rbac.MillsUpdate)}},
	{Key: "report-builder", Label: "Constructor de reportes", Path: "/dashboard/report-builder", Requirement: guard.Requirement{RequiredPermission: string(rbac.ReportsCreate)}},
	{Key: "users", Label: "Usuarios", Path: "/dashboard/users", Requirement: guard.Requirement{RequiredPermission: string(rbac.UsersRead)}},
	{Key: "settings", Label: "Configuración", Path: "/dashboard/settings", Requirement: guard.Requirement{RequiredPermission: string(rbac.MillsUpdate)}},
	{Key: "profile", Label: "Perfil", Path: "/dashboard/profile"},
}

// Sections devuelve una copia de las secciones del dashboard.
func Sections() []Section {
	out := make([]Section, len(dashboardSections))
	copy(out, dashboardSections)
	return out
}

// NavigationUseCase resuelve qué secciones puede abrir una sesión.
type NavigationUseCase struct {
	paths guard.Paths
}

// NewNavigationUseCase construye el caso de uso con las rutas del guard.
func NewNavigationUseCase(paths guard.Paths) *NavigationUseCase {
	return &NavigationUseCase{paths: paths.WithDefaults()}
}

// For secciones que la sesión puede abrir. Sin sesión no hay menú.
func (uc *NavigationUseCase) For(sess *entity.Session) []dto.NavSectionResponse {
	out := []dto.NavSectionResponse{}
	if sess == nil {
		return out
	}
	snap := guard.Snapshot{Resolved: true, Session: sess}
	for _, s := range dashboardSections {
		if !guard.Evaluate(snap, s.Requirement, uc.paths).Render() {
			continue
		}
		out = append(out, dto.NavSectionResponse{
			Key:                s.Key,
			Label:              s.Label,
			Path:               s.Path,
			RequiredPermission: s.Requirement.RequiredPermission,
			RequiredRole:       s.Requirement.RequiredRole,
		})
	}
	return out
}

// RequirementFor requisito de la sección que contiene path. ok=false fuera del dashboard.
// /dashboard solo coincide exactamente; las subsecciones por prefijo de segmento.
func (uc *NavigationUseCase) RequirementFor(path string) (guard.Requirement, bool) {
	path = strings.TrimSuffix(path, "/")
	var (
		best  Section
		found bool
	)
	for _, s := range dashboardSections {
		match := path == s.Path || (s.Path != "/dashboard" && strings.HasPrefix(path, s.Path+"/"))
		if match && (!found || len(s.Path) > len(best.Path)) {
			best, found = s, true
		}
	}
	if !found && strings.HasPrefix(path, "/dashboard/") {
		// Subruta desconocida: basta con estar autenticado.
		return guard.Requirement{}, true
	}
	return best.Requirement, found
}
