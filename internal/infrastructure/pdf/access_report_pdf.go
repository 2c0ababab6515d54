// Package pdf genera el reporte de accesos del molino con Maroto v2.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Molino + título  │  Fecha + generado por            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ROLES: Rol | Usuarios | Permisos                            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  USUARIOS: Nombre | Email | Rol | Estado | Último acceso     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: leyenda de confidencialidad                         │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/molino-api/internal/application/dto"
	"github.com/jhoicas/molino-api/internal/application/ports"
)

var _ ports.AccessReportRenderer = (*AccessReportGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
	colorHeader  = &props.Color{Red: 0, Green: 70, Blue: 127}
)

// permissionsPerLine permisos por renglón en la tabla de roles.
const permissionsPerLine = 4

// ── Generator ─────────────────────────────────────────────────────────────────

// AccessReportGenerator implementa ports.AccessReportRenderer usando Maroto v2.
type AccessReportGenerator struct{}

// NewAccessReportGenerator construye el generador.
func NewAccessReportGenerator() *AccessReportGenerator { return &AccessReportGenerator{} }

// RenderAccessReport genera el PDF y devuelve sus bytes.
func (g *AccessReportGenerator) RenderAccessReport(_ context.Context, report *dto.AccessReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("pdf: reporte vacío")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Reporte de accesos", true).
		WithAuthor(report.MillName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(sectionTitle("ROLES Y PERMISOS"))
	m.AddRows(roleHeaderRow())
	m.AddRows(roleRows(report.Roles)...)

	m.AddRows(line.NewRow(4))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(sectionTitle(fmt.Sprintf("USUARIOS (%d)", len(report.Users))))
	m.AddRows(userHeaderRow())
	m.AddRows(userRows(report.Users)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow())

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: molino + título (izq) y fecha + autor (der).
func headerRow(report *dto.AccessReport) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(report.MillName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Reporte de accesos del back-office", props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("Fecha: "+report.GeneratedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
			text.New("Generado por: "+nonEmpty(report.GeneratedBy, "-"), props.Text{
				Size: 8, Align: align.Right, Top: 8, Color: colorGray,
			}),
		),
	)
}

func sectionTitle(title string) core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New(title, props.Text{Style: fontstyle.Bold, Size: 9, Color: colorPrimary, Top: 2}),
	))
}

// headerCells cabecera de tabla con texto blanco sobre la franja primaria.
func headerCells(cells ...headerCell) core.Row {
	cols := make([]core.Col, 0, len(cells))
	for _, c := range cells {
		cols = append(cols, col.New(c.size).Add(text.New(c.label, props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorWhite, Top: 2, Left: 1, Right: 1,
		})))
	}
	return row.New(8).Add(cols...).WithStyle(&props.Cell{BackgroundColor: colorHeader})
}

type headerCell struct {
	label string
	size  int
}

func roleHeaderRow() core.Row {
	return headerCells(headerCell{"Rol", 3}, headerCell{"Usuarios", 2}, headerCell{"Permisos", 7})
}

// roleRows: una fila por rol; los permisos se reparten en renglones.
func roleRows(roles []dto.RoleAccessRow) []core.Row {
	rows := make([]core.Row, 0, len(roles))
	for _, r := range roles {
		lines := chunk(r.Permissions, permissionsPerLine)
		if len(lines) == 0 {
			lines = []string{"-"}
		}
		perms := make([]core.Component, 0, len(lines))
		for i, l := range lines {
			perms = append(perms, text.New(l, props.Text{Size: 7.5, Top: 1 + float64(i)*4, Left: 1}))
		}
		rows = append(rows, row.New(float64(len(lines))*4+3).Add(
			col.New(3).Add(text.New(r.Role, props.Text{Style: fontstyle.Bold, Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(fmt.Sprintf("%d", r.UserCount), props.Text{Size: 8, Top: 1, Align: align.Center})),
			col.New(7).Add(perms...),
		))
	}
	return rows
}

func userHeaderRow() core.Row {
	return headerCells(headerCell{"Nombre", 3}, headerCell{"Email", 4}, headerCell{"Rol", 2}, headerCell{"Estado", 1}, headerCell{"Último acceso", 2})
}

// userRows: una fila por usuario.
func userRows(users []dto.UserResponse) []core.Row {
	if len(users) == 0 {
		return []core.Row{row.New(7).Add(col.New(12).Add(
			text.New("Sin usuarios registrados.", props.Text{Size: 8, Top: 1, Color: colorGray, Align: align.Center}),
		))}
	}
	rows := make([]core.Row, 0, len(users))
	for _, u := range users {
		last := "-"
		if u.LastLogin != nil {
			last = u.LastLogin.Format("02/01/2006 15:04")
		}
		small := props.Text{Size: 7.5, Top: 1, Left: 1}
		rows = append(rows, row.New(6).Add(
			col.New(3).Add(text.New(nonEmpty(u.FullName, "-"), small)),
			col.New(4).Add(text.New(u.Email, small)),
			col.New(2).Add(text.New(u.Role, small)),
			col.New(1).Add(text.New(u.Status, small)),
			col.New(2).Add(text.New(last, small)),
		))
	}
	return rows
}

func footerRow() core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New(
			"Documento interno. Contiene datos personales de los usuarios del molino; "+
				"no lo comparta fuera de la administración.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// chunk agrupa items en renglones de a n, separados por coma.
func chunk(items []string, n int) []string {
	var lines []string
	for len(items) > n {
		lines = append(lines, strings.Join(items[:n], ", "))
		items = items[n:]
	}
	if len(items) > 0 {
		lines = append(lines, strings.Join(items, ", "))
	}
	return lines
}
