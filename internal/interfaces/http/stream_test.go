package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/molino-api/internal/application/dto"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	apphttp "github.com/jhoicas/molino-api/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Stream del guard sobre un listener real
// ──────────────────────────────────────────────────────────────────────────────

func TestServerConfig_SinWriteTimeout(t *testing.T) {
	cfg := apphttp.ServerConfig("molino-api")
	assert.Equal(t, "molino-api", cfg.AppName)
	assert.Zero(t, cfg.WriteTimeout)
	assert.Positive(t, cfg.ReadTimeout)
	assert.Positive(t, cfg.IdleTimeout)
}

func TestGuardStream_SobreviveAlosTimeoutsDelServidor(t *testing.T) {
	cfg := apphttp.ServerConfig("molino-api-test")
	// Plazos cortos: el stream debe seguir vivo mucho después de vencerlos.
	cfg.ReadTimeout = 100 * time.Millisecond
	cfg.IdleTimeout = 100 * time.Millisecond
	srv := newTestServerWith(t, cfg, 40*time.Millisecond)
	srv.addUser(t, "op-1", "op@molino.co", entity.RoleOperator)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.app.Listener(ln) }()
	t.Cleanup(func() { _ = srv.app.ShutdownWithTimeout(time.Second) })
	base := "http://" + ln.Addr().String()

	raw, err := json.Marshal(dto.LoginRequest{Email: "op@molino.co", Password: testPassword})
	require.NoError(t, err)
	resp, err := http.Post(base+"/api/auth/login", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sid string
	for _, c := range resp.Cookies() {
		if c.Name == apphttp.SessionCookie {
			sid = c.Value
		}
	}
	require.NotEmpty(t, sid)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/guard/stream", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: apphttp.SessionCookie, Value: sid})
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(stream.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	next := func(timeout time.Duration) (string, bool) {
		select {
		case l, ok := <-lines:
			return l, ok
		case <-time.After(timeout):
			return "", false
		}
	}

	// Pings durante varias veces el ReadTimeout y el IdleTimeout.
	pings := 0
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		l, ok := next(time.Second)
		require.True(t, ok, "el servidor cortó el stream")
		if l == ": ping" {
			pings++
		}
	}
	assert.GreaterOrEqual(t, pings, 5)

	// La conexión sigue entregando eventos: una revocación remota llega como redirect.
	srv.svc.RevokeUser(context.Background(), "op-1")
	for {
		l, ok := next(2 * time.Second)
		require.True(t, ok, "no llegó el redirect")
		if l == "event: redirect" {
			data, ok := next(time.Second)
			require.True(t, ok)
			assert.True(t, strings.HasPrefix(data, "data: "))
			assert.Contains(t, data, "redirect_to")
			return
		}
	}
}
