package ports

import (
	"context"

	"github.com/jhoicas/molino-api/internal/application/dto"
)

// AccessReportRenderer define el puerto de salida que convierte el reporte de accesos
// en un documento descargable. El adaptador actual genera PDF con Maroto v2.
type AccessReportRenderer interface {
	RenderAccessReport(ctx context.Context, report *dto.AccessReport) ([]byte, error)
}
