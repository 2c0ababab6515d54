// Package session mantiene la única fuente de verdad de "quién inició sesión ahora",
// sincronizada con el proveedor de autenticación externo.
package session

import (
	"context"
	"sync"

	"github.com/jhoicas/molino-api/internal/application/ports"
	"github.com/jhoicas/molino-api/internal/domain"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/pkg/logger"
)

// Change notificación entregada a los suscriptores. Session nil = sin sesión.
type Change struct {
	Event   entity.AuthEvent
	Session *entity.Session
}

// Listener recibe los cambios de sesión en el orden en que ocurrieron.
type Listener func(Change)

type listenerEntry struct {
	id uint64
	fn Listener
}

// Store custodia la sesión actual. Es el único dueño del estado mutable;
// el resto de componentes solo reciben copias.
//
// Dos SignIn concurrentes no se serializan: gana la última resolución aplicada.
type Store struct {
	provider ports.AuthProvider
	log      *logger.Logger

	mu       sync.RWMutex
	current  *entity.Session
	resolved bool
	closed   bool
	// Último token aplicado: evita reaplicar el resultado de una llamada cuyo
	// evento del proveedor ya se procesó (y quizá ya fue superado).
	lastToken string

	lmu       sync.Mutex
	listeners []listenerEntry
	nextID    uint64

	// Cola de notificaciones: se encola bajo mu y la drena un solo goroutine a la vez.
	qmu      sync.Mutex
	queue    []Change
	draining bool

	unsubscribe func()
}

// NewStore construye el store y lo suscribe a los eventos del proveedor.
func NewStore(provider ports.AuthProvider, log *logger.Logger) *Store {
	s := &Store{provider: provider, log: log.Component("session_store")}
	s.unsubscribe = provider.SubscribeToSessionEvents(s.handleProviderEvent)
	return s
}

// Init resuelve la verificación inicial de sesión. Un fallo del proveedor se
// trata como "sin sesión". Si otra operación ya resolvió el estado, no lo pisa.
func (s *Store) Init(ctx context.Context) {
	sess, err := s.provider.GetActiveSession(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("verificación inicial de sesión fallida; se asume sin sesión")
		sess = nil
	}
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return
	}
	queued := s.applyLocked(sess, entity.EventInitialSession)
	s.mu.Unlock()
	if queued {
		s.drain()
	}
}

// Resolved informa si la verificación inicial ya terminó.
func (s *Store) Resolved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolved
}

// Current devuelve una copia de la sesión vigente; nil antes de Init o tras SignOut.
func (s *Store) Current() *entity.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// SignIn delega la verificación en el proveedor. Un fallo no altera la sesión retenida.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return &domain.AuthError{Kind: domain.AuthInvalidCredentials}
	}
	sess, err := s.provider.VerifyCredentials(ctx, email, password)
	if err != nil {
		ae := domain.AsAuthError(err)
		s.log.Debug().Str("kind", string(ae.Kind)).Msg("inicio de sesión rechazado")
		return ae
	}
	if sess == nil {
		return domain.NewAuthError(domain.AuthUnknown, "el proveedor no devolvió sesión")
	}
	s.applyResult(sess)
	return nil
}

// SignUp crea la cuenta. confirmationRequired es true cuando el proveedor exige
// confirmar el email; en ese caso no se abre sesión.
func (s *Store) SignUp(ctx context.Context, email, password string, meta entity.ProfileMetadata) (confirmationRequired bool, err error) {
	sess, err := s.provider.CreateAccount(ctx, email, password, meta)
	if err != nil {
		return false, domain.AsAuthError(err)
	}
	if sess == nil {
		return true, nil
	}
	s.applyResult(sess)
	return false, nil
}

// SignOut siempre limpia el estado local, aunque falle la llamada al proveedor.
func (s *Store) SignOut(ctx context.Context) {
	if err := s.provider.InvalidateSession(ctx); err != nil {
		s.log.Warn().Err(err).Msg("cierre de sesión remoto fallido; se limpia la sesión local")
	}
	s.apply(nil, entity.EventSignedOut)
}

// ResetPassword solicita el enlace de recuperación; no cambia la sesión actual.
func (s *Store) ResetPassword(ctx context.Context, email string) error {
	if email == "" {
		return domain.NewAuthError(domain.AuthUnknown, "email requerido")
	}
	if err := s.provider.RequestPasswordReset(ctx, email); err != nil {
		return domain.AsAuthError(err)
	}
	return nil
}

// UpdateProfile modifica nombre, teléfono o departamento sin tocar rol ni token.
func (s *Store) UpdateProfile(ctx context.Context, patch entity.ProfilePatch) error {
	cur := s.Current()
	if cur == nil {
		return domain.NewAuthError(domain.AuthUnknown, "no hay sesión activa")
	}
	if patch.Empty() {
		return nil
	}
	ident, err := s.provider.ApplyProfilePatch(ctx, patch)
	if err != nil {
		return domain.AsAuthError(err)
	}
	if ident == nil {
		return domain.NewAuthError(domain.AuthUnknown, "el proveedor no devolvió la identidad")
	}
	s.applyProfile(cur.Identity.UserID, ident.Profile)
	return nil
}

// Revalidate consulta al proveedor la sesión vigente (puede refrescar el token).
// Si el proveedor ya no la reconoce o la consulta falla, la sesión local se descarta.
func (s *Store) Revalidate(ctx context.Context) {
	sess, err := s.provider.GetActiveSession(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("revalidación de sesión fallida, se descarta la sesión")
		s.apply(nil, entity.EventSignedOut)
		return
	}
	if sess == nil {
		s.apply(nil, entity.EventSignedOut)
		return
	}
	s.apply(sess, entity.EventTokenRefreshed)
}

// OnSessionChange registra un suscriptor. Devuelve la función para cancelarlo.
func (s *Store) OnSessionChange(fn Listener) (unsubscribe func()) {
	s.lmu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			defer s.lmu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close desconecta el store del proveedor. Resoluciones tardías se descartan.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.lmu.Lock()
	s.listeners = nil
	s.lmu.Unlock()
}

func (s *Store) handleProviderEvent(ev entity.SessionEvent) {
	switch ev.Kind {
	case entity.EventSignedOut:
		s.apply(nil, entity.EventSignedOut)
	case entity.EventSignedIn, entity.EventTokenRefreshed, entity.EventUserUpdated:
		if ev.Session == nil {
			return
		}
		s.apply(ev.Session, ev.Kind)
	}
}

func (s *Store) apply(next *entity.Session, ev entity.AuthEvent) {
	s.mu.Lock()
	queued := s.applyLocked(next, ev)
	s.mu.Unlock()
	if queued {
		s.drain()
	}
}

// applyResult aplica la sesión devuelta por una llamada, salvo que el evento
// equivalente del proveedor ya la haya aplicado.
func (s *Store) applyResult(sess *entity.Session) {
	s.mu.Lock()
	if sess.Token != "" && sess.Token == s.lastToken {
		s.mu.Unlock()
		return
	}
	queued := s.applyLocked(sess, entity.EventSignedIn)
	s.mu.Unlock()
	if queued {
		s.drain()
	}
}

func (s *Store) applyProfile(userID string, p entity.Profile) {
	s.mu.Lock()
	if s.current == nil || s.current.Identity.UserID != userID {
		s.mu.Unlock()
		return
	}
	next := s.current.Clone()
	next.Identity.Profile = p
	queued := s.applyLocked(next, entity.EventUserUpdated)
	s.mu.Unlock()
	if queued {
		s.drain()
	}
}

// applyLocked requiere mu tomado. Devuelve true si encoló una notificación.
func (s *Store) applyLocked(next *entity.Session, ev entity.AuthEvent) bool {
	if s.closed {
		return false
	}
	prev := s.current
	wasResolved := s.resolved
	s.resolved = true
	s.current = next.Clone()
	if next != nil {
		s.lastToken = next.Token
	}

	var c Change
	switch {
	case !prev.SameIdentity(next):
		c = Change{Event: ev, Session: next.Clone()}
		if next == nil && ev != entity.EventInitialSession {
			c.Event = entity.EventSignedOut
		}
	case !wasResolved:
		c = Change{Event: entity.EventInitialSession, Session: next.Clone()}
	default:
		// Refresh silencioso o evento repetido: sin cambio visible.
		return false
	}

	s.qmu.Lock()
	s.queue = append(s.queue, c)
	s.qmu.Unlock()
	return true
}

func (s *Store) drain() {
	s.qmu.Lock()
	if s.draining {
		s.qmu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		c := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		for _, l := range s.snapshotListeners() {
			s.deliver(l, c)
		}

		s.qmu.Lock()
	}
	s.draining = false
	s.qmu.Unlock()
}

func (s *Store) snapshotListeners() []Listener {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	out := make([]Listener, len(s.listeners))
	for i, l := range s.listeners {
		out[i] = l.fn
	}
	return out
}

func (s *Store) deliver(fn Listener, c Change) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("event", string(c.Event)).Msg("suscriptor de sesión falló")
		}
	}()
	fn(c)
}
