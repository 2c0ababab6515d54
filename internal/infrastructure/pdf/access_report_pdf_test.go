package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/molino-api/internal/application/dto"
)

func TestRenderAccessReport_GeneraPDF(t *testing.T) {
	last := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	report := &dto.AccessReport{
		MillName:    "Molino El Espinal",
		GeneratedAt: time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
		GeneratedBy: "owner-a",
		Roles: []dto.RoleAccessRow{
			{Role: "operator", UserCount: 2, Permissions: []string{
				"farmers:read", "farmers:create", "farmers:update", "procurement:*",
				"inventory:read", "sales:create", "sales:read",
			}},
			{Role: "super_admin", Permissions: []string{"*"}},
		},
		Users: []dto.UserResponse{
			{Email: "op@molino.test", FullName: "Ana Operaria", Role: "operator", Status: "active", LastLogin: &last},
			{Email: "op2@molino.test", Role: "operator", Status: "inactive"},
		},
	}

	out, err := NewAccessReportGenerator().RenderAccessReport(context.Background(), report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderAccessReport_SinUsuarios(t *testing.T) {
	out, err := NewAccessReportGenerator().RenderAccessReport(context.Background(), &dto.AccessReport{MillName: "Vacío"})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRenderAccessReport_Nil(t *testing.T) {
	_, err := NewAccessReportGenerator().RenderAccessReport(context.Background(), nil)
	assert.Error(t, err)
}

func TestChunk(t *testing.T) {
	assert.Nil(t, chunk(nil, 3))
	assert.Equal(t, []string{"a, b", "c"}, chunk([]string{"a", "b", "c"}, 2))
	assert.Equal(t, []string{"a, b"}, chunk([]string{"a", "b"}, 2))
}
