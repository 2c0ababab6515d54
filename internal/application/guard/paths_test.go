package guard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/molino-api/internal/application/guard"
)

func TestPathPolicy_Redirect(t *testing.T) {
	p := guard.NewPathPolicy(guard.Paths{})
	cases := []struct {
		path          string
		authenticated bool
		target        string
		ok            bool
	}{
		{"/dashboard", false, "/auth/login", true},
		{"/dashboard/farmers", false, "/auth/login", true},
		{"/api/users", false, "/auth/login", true},
		{"/api/auth/login", false, "", false},
		{"/auth/login", false, "", false},
		{"/", false, "", false},
		{"/dashboardx", false, "", false},

		{"/auth/login", true, "/dashboard", true},
		{"/auth/reset-password", true, "/dashboard", true},
		{"/dashboard/users", true, "", false},
		{"/api/users", true, "", false},
	}
	for _, tc := range cases {
		target, ok := p.Redirect(tc.path, tc.authenticated)
		assert.Equal(t, tc.ok, ok, "%s auth=%v", tc.path, tc.authenticated)
		assert.Equal(t, tc.target, target, "%s auth=%v", tc.path, tc.authenticated)
	}
}

func TestPathPolicy_AfterSignIn(t *testing.T) {
	p := guard.NewPathPolicy(guard.Paths{})

	target, ok := p.AfterSignIn("/auth/login")
	assert.True(t, ok)
	assert.Equal(t, "/dashboard", target)

	_, ok = p.AfterSignIn("/dashboard/sales")
	assert.False(t, ok, "ya dentro del dashboard no se redirige")

	assert.Equal(t, "/auth/login", p.AfterSignOut())
}

func TestPathPolicy_RequiresSession(t *testing.T) {
	p := guard.NewPathPolicy(guard.Paths{})
	p.Public = append(p.Public, "/api/guard")

	assert.True(t, p.RequiresSession("/api/users"))
	assert.True(t, p.RequiresSession("/dashboard/sales"))
	assert.False(t, p.RequiresSession("/api/auth/login"))
	assert.False(t, p.RequiresSession("/api/guard/check"))
	assert.False(t, p.RequiresSession("/auth/login"))
	assert.False(t, p.RequiresSession("/"))
}
