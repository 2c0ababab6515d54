package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/molino-api/internal/application/session"
	"github.com/jhoicas/molino-api/internal/domain"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Proveedor falso: se comporta como el SDK del servicio alojado, emitiendo
// SIGNED_IN / SIGNED_OUT además de devolver el resultado.
// ──────────────────────────────────────────────────────────────────────────────

type fakeProvider struct {
	mu                sync.Mutex
	accounts          map[string]string // email -> password
	active            *entity.Session
	activeErr         error
	signOutErr        error
	handlers          []func(entity.SessionEvent)
	needsConfirmation bool
	resets            []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]string{
		"dueno@molino.co":    "secreto-123",
		"operario@molino.co": "secreto-456",
	}}
}

func sessionFor(email string) *entity.Session {
	return &entity.Session{
		Identity: entity.Identity{
			UserID: "u-" + email,
			Email:  email,
			Role:   entity.RoleMillOwner,
		},
		Token:       "tok-" + email,
		TenantScope: "mill-1",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func (f *fakeProvider) emit(ev entity.SessionEvent) {
	f.mu.Lock()
	hs := append([]func(entity.SessionEvent){}, f.handlers...)
	f.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

func (f *fakeProvider) VerifyCredentials(_ context.Context, email, password string) (*entity.Session, error) {
	f.mu.Lock()
	pw, ok := f.accounts[email]
	f.mu.Unlock()
	if !ok || pw != password {
		return nil, domain.ErrInvalidCredentials
	}
	s := sessionFor(email)
	f.mu.Lock()
	f.active = s
	f.mu.Unlock()
	f.emit(entity.SessionEvent{Kind: entity.EventSignedIn, Session: s.Clone()})
	return s, nil
}

func (f *fakeProvider) CreateAccount(_ context.Context, email, password string, _ entity.ProfileMetadata) (*entity.Session, error) {
	f.mu.Lock()
	if _, exists := f.accounts[email]; exists {
		f.mu.Unlock()
		return nil, domain.NewAuthError(domain.AuthUnknown, "el email ya está registrado")
	}
	f.accounts[email] = password
	confirm := f.needsConfirmation
	f.mu.Unlock()
	if confirm {
		return nil, nil
	}
	return sessionFor(email), nil
}

func (f *fakeProvider) GetActiveSession(context.Context) (*entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	return f.active.Clone(), nil
}

func (f *fakeProvider) InvalidateSession(context.Context) error {
	f.mu.Lock()
	f.active = nil
	err := f.signOutErr
	f.mu.Unlock()
	if err == nil {
		f.emit(entity.SessionEvent{Kind: entity.EventSignedOut})
	}
	return err
}

func (f *fakeProvider) RequestPasswordReset(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, email)
	return nil
}

func (f *fakeProvider) ApplyProfilePatch(_ context.Context, patch entity.ProfilePatch) (*entity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return nil, domain.NewAuthError(domain.AuthUnknown, "sin sesión")
	}
	f.active.Identity.Profile = patch.Apply(f.active.Identity.Profile)
	// Un proveedor malicioso no debe poder cambiar el rol a través del perfil.
	ident := f.active.Identity
	ident.Role = entity.RoleSuperAdmin
	return &ident, nil
}

func (f *fakeProvider) SubscribeToSessionEvents(h func(entity.SessionEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, h)
	idx := len(f.handlers) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.handlers[idx] = func(entity.SessionEvent) {}
	}
}

// recorder acumula los cambios recibidos por un suscriptor.
type recorder struct {
	mu      sync.Mutex
	changes []session.Change
}

func (r *recorder) listen(c session.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) events() []entity.AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.AuthEvent, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Event
	}
	return out
}

func newStore(t *testing.T) (*session.Store, *fakeProvider) {
	t.Helper()
	p := newFakeProvider()
	s := session.NewStore(p, logger.Nop())
	t.Cleanup(s.Close)
	return s, p
}

// ──────────────────────────────────────────────────────────────────────────────
// Consulta y resolución inicial
// ──────────────────────────────────────────────────────────────────────────────

func TestStore_AntesDeInitNoHaySesion(t *testing.T) {
	s, _ := newStore(t)
	assert.False(t, s.Resolved())
	assert.Nil(t, s.Current())
}

func TestStore_InitFallidoEsSinSesion(t *testing.T) {
	s, p := newStore(t)
	p.activeErr = errors.New("servicio caído")
	rec := &recorder{}
	s.OnSessionChange(rec.listen)

	s.Init(context.Background())

	assert.True(t, s.Resolved())
	assert.Nil(t, s.Current())
	require.Equal(t, []entity.AuthEvent{entity.EventInitialSession}, rec.events())
	assert.Nil(t, rec.changes[0].Session)
}

func TestStore_InitRecuperaSesionExistente(t *testing.T) {
	s, p := newStore(t)
	p.active = sessionFor("dueno@molino.co")

	s.Init(context.Background())

	require.NotNil(t, s.Current())
	assert.Equal(t, "dueno@molino.co", s.Current().Identity.Email)
}

func TestStore_InitNoPisaUnSignInPrevio(t *testing.T) {
	s, p := newStore(t)
	require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))
	p.active = nil

	s.Init(context.Background())

	require.NotNil(t, s.Current(), "Init tardío no debe borrar la sesión ya resuelta")
}

// ──────────────────────────────────────────────────────────────────────────────
// SignIn / SignOut
// ──────────────────────────────────────────────────────────────────────────────

func TestStore_SignInYSignOut_RoundTrip(t *testing.T) {
	s, _ := newStore(t)
	s.Init(context.Background())

	require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))
	cur := s.Current()
	require.NotNil(t, cur)
	assert.Equal(t, "dueno@molino.co", cur.Identity.Email)

	s.SignOut(context.Background())
	assert.Nil(t, s.Current())
}

func TestStore_SignOutDosVecesEsIdempotente(t *testing.T) {
	s, _ := newStore(t)
	s.Init(context.Background())
	require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))
	rec := &recorder{}
	s.OnSessionChange(rec.listen)

	s.SignOut(context.Background())
	assert.Nil(t, s.Current())
	s.SignOut(context.Background())
	assert.Nil(t, s.Current())

	assert.Equal(t, []entity.AuthEvent{entity.EventSignedOut}, rec.events())
}

func TestStore_SignOutLimpiaAunqueFalleElProveedor(t *testing.T) {
	s, p := newStore(t)
	require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))
	p.signOutErr = errors.New("red caída")

	s.SignOut(context.Background())

	assert.Nil(t, s.Current(), "no debe quedar la credencial retenida")
}

func TestStore_SignInFallidoNoAlteraLaSesion(t *testing.T) {
	s, _ := newStore(t)
	s.Init(context.Background())
	require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))
	rec := &recorder{}
	s.OnSessionChange(rec.listen)

	err := s.SignIn(context.Background(), "operario@molino.co", "incorrecta")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	require.NotNil(t, s.Current())
	assert.Equal(t, "dueno@molino.co", s.Current().Identity.Email)
	assert.Empty(t, rec.events())
}

func TestStore_SignInSinDatosEsCredencialInvalida(t *testing.T) {
	s, _ := newStore(t)
	err := s.SignIn(context.Background(), "", "")
	var ae *domain.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, domain.AuthInvalidCredentials, ae.Kind)
}

// Orden: SIGNED_IN antes que SIGNED_OUT, exactamente dos notificaciones aunque
// el proveedor también emita sus propios eventos.
func TestStore_OrdenDeNotificaciones(t *testing.T) {
	s, _ := newStore(t)
	s.Init(context.Background())
	rec := &recorder{}
	s.OnSessionChange(rec.listen)

	require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))
	s.SignOut(context.Background())

	require.Equal(t, []entity.AuthEvent{entity.EventSignedIn, entity.EventSignedOut}, rec.events())
	require.NotNil(t, rec.changes[0].Session)
	assert.Equal(t, "dueno@molino.co", rec.changes[0].Session.Identity.Email)
	assert.Nil(t, rec.changes[1].Session)
}

// Un suscriptor que muta el store no debe reordenar ni bloquear las notificaciones.
func TestStore_SuscriptorReentrante(t *testing.T) {
	s, _ := newStore(t)
	s.Init(context.Background())
	var got []entity.AuthEvent
	s.OnSessionChange(func(c session.Change) {
		got = append(got, c.Event)
		if c.Event == entity.EventSignedIn {
			s.SignOut(context.Background())
		}
	})
	second := &recorder{}
	s.OnSessionChange(second.listen)

	require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))

	assert.Equal(t, []entity.AuthEvent{entity.EventSignedIn, entity.EventSignedOut}, got)
	assert.Equal(t, []entity.AuthEvent{entity.EventSignedIn, entity.EventSignedOut}, second.events(),
		"todos los suscriptores ven el mismo orden")
	assert.Nil(t, s.Current())
}

func TestStore_SuscriptorQueEntraEnPanicNoCortaLaEntrega(t *testing.T) {
	s, _ := newStore(t)
	s.OnSessionChange(func(session.Change) { panic("ui desmontada") })
	rec := &recorder{}
	s.OnSessionChange(rec.listen)

	require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))
	s.SignOut(context.Background())

	assert.Equal(t, []entity.AuthEvent{entity.EventSignedIn, entity.EventSignedOut}, rec.events())
}

func TestStore_CancelarSuscripcion(t *testing.T) {
	s, _ := newStore(t)
	rec := &recorder{}
	unsubscribe := s.OnSessionChange(rec.listen)
	unsubscribe()
	unsubscribe()

	require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))
	assert.Empty(t, rec.events())
}

// ──────────────────────────────────────────────────────────────────────────────
// Eventos del proveedor
// ──────────────────────────────────────────────────────────────────────────────

func TestStore_RevocacionRemota(t *testing.T) {
	s, p := newStore(t)
	require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))
	rec := &recorder{}
	s.OnSessionChange(rec.listen)

	p.emit(entity.SessionEvent{Kind: entity.EventSignedOut})

	assert.Nil(t, s.Current())
	assert.Equal(t, []entity.AuthEvent{entity.EventSignedOut}, rec.events())
}

func TestStore_RefreshSilenciosoNoNotifica(t *testing.T) {
	s, p := newStore(t)
	require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))
	rec := &recorder{}
	s.OnSessionChange(rec.listen)

	refreshed := sessionFor("dueno@molino.co")
	refreshed.Token = "tok-nuevo"
	p.emit(entity.SessionEvent{Kind: entity.EventTokenRefreshed, Session: refreshed})

	assert.Empty(t, rec.events())
	assert.Equal(t, "tok-nuevo", s.Current().Token, "el token nuevo queda retenido")
}

func TestStore_RevalidateDescartaSesionDesconocida(t *testing.T) {
	s, p := newStore(t)
	require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))
	p.mu.Lock()
	p.active = nil
	p.mu.Unlock()

	s.Revalidate(context.Background())

	assert.Nil(t, s.Current())
}

func TestStore_RevalidateConFalloDelProveedorCierraSesion(t *testing.T) {
	for _, cause := range []error{context.DeadlineExceeded, errors.New("servicio caído")} {
		t.Run(cause.Error(), func(t *testing.T) {
			s, p := newStore(t)
			require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))
			rec := &recorder{}
			s.OnSessionChange(rec.listen)
			p.mu.Lock()
			p.activeErr = cause
			p.mu.Unlock()

			s.Revalidate(context.Background())

			assert.Nil(t, s.Current(), "un fallo de consulta equivale a no tener sesión")
			assert.True(t, s.Resolved())
			assert.Equal(t, []entity.AuthEvent{entity.EventSignedOut}, rec.events())
		})
	}
}

func TestStore_CerradoIgnoraEventosTardios(t *testing.T) {
	p := newFakeProvider()
	s := session.NewStore(p, logger.Nop())
	rec := &recorder{}
	s.OnSessionChange(rec.listen)
	s.Close()

	assert.NotPanics(t, func() {
		_ = s.SignIn(context.Background(), "dueno@molino.co", "secreto-123")
		p.emit(entity.SessionEvent{Kind: entity.EventSignedOut})
	})
	assert.Empty(t, rec.events())
	assert.Nil(t, s.Current())
}

// ──────────────────────────────────────────────────────────────────────────────
// SignUp, ResetPassword, UpdateProfile
// ──────────────────────────────────────────────────────────────────────────────

func TestStore_SignUpConConfirmacionNoAbreSesion(t *testing.T) {
	s, p := newStore(t)
	p.needsConfirmation = true

	pending, err := s.SignUp(context.Background(), "nuevo@molino.co", "secreto-789", entity.ProfileMetadata{MillID: "mill-1"})

	require.NoError(t, err)
	assert.True(t, pending)
	assert.Nil(t, s.Current())
}

func TestStore_SignUpSinConfirmacionAbreSesion(t *testing.T) {
	s, _ := newStore(t)

	pending, err := s.SignUp(context.Background(), "nuevo@molino.co", "secreto-789", entity.ProfileMetadata{MillID: "mill-1"})

	require.NoError(t, err)
	assert.False(t, pending)
	require.NotNil(t, s.Current())
	assert.Equal(t, "nuevo@molino.co", s.Current().Identity.Email)
}

func TestStore_SignUpDuplicadoDevuelveAuthError(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.SignUp(context.Background(), "dueno@molino.co", "x", entity.ProfileMetadata{})
	var ae *domain.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, domain.AuthUnknown, ae.Kind)
}

func TestStore_ResetPasswordNoCambiaLaSesion(t *testing.T) {
	s, p := newStore(t)
	s.Init(context.Background())
	rec := &recorder{}
	s.OnSessionChange(rec.listen)

	require.NoError(t, s.ResetPassword(context.Background(), "dueno@molino.co"))

	assert.Equal(t, []string{"dueno@molino.co"}, p.resets)
	assert.Nil(t, s.Current())
	assert.Empty(t, rec.events())
}

func TestStore_UpdateProfileNoTocaRolNiToken(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.SignIn(context.Background(), "dueno@molino.co", "secreto-123"))
	before := s.Current()
	rec := &recorder{}
	s.OnSessionChange(rec.listen)

	name := "Doña Rosa"
	require.NoError(t, s.UpdateProfile(context.Background(), entity.ProfilePatch{FullName: &name}))

	after := s.Current()
	assert.Equal(t, "Doña Rosa", after.Identity.Profile.FullName)
	assert.Equal(t, before.Identity.Role, after.Identity.Role)
	assert.Equal(t, before.Token, after.Token)
	assert.Equal(t, []entity.AuthEvent{entity.EventUserUpdated}, rec.events())
}

func TestStore_UpdateProfileSinSesion(t *testing.T) {
	s, _ := newStore(t)
	name := "x"
	err := s.UpdateProfile(context.Background(), entity.ProfilePatch{FullName: &name})
	var ae *domain.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, domain.AuthUnknown, ae.Kind)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia: gana la última escritura resuelta, sin estados mezclados.
// ──────────────────────────────────────────────────────────────────────────────

func TestStore_SignInConcurrentesDejanUnaSesionCoherente(t *testing.T) {
	s, p := newStore(t)
	emails := make([]string, 8)
	for i := range emails {
		emails[i] = fmt.Sprintf("u%d@molino.co", i)
		p.accounts[emails[i]] = "pw"
	}

	var wg sync.WaitGroup
	for _, e := range emails {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			_ = s.SignIn(context.Background(), email, "pw")
		}(e)
	}
	wg.Wait()

	cur := s.Current()
	require.NotNil(t, cur)
	assert.Contains(t, emails, cur.Identity.Email)
	assert.Equal(t, "tok-"+cur.Identity.Email, cur.Token, "token e identidad deben pertenecer al mismo intento")
}
