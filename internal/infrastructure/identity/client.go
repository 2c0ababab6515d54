package identity

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/molino-api/internal/application/ports"
	"github.com/jhoicas/molino-api/internal/domain"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/pkg/jwt"
	"github.com/jhoicas/molino-api/pkg/logger"
)

var _ ports.AuthProvider = (*Client)(nil)

// Client es la vista de un navegador sobre el Service: guarda su propia sesión,
// la renueva en silencio y emite los eventos de sesión hacia el Session Store.
// Los eventos se entregan en la goroutine que produjo el cambio.
type Client struct {
	svc           *Service
	refreshWindow time.Duration
	log           *logger.Logger

	mu       sync.Mutex
	session  *entity.Session
	sid      string // jti del token actual
	detach   func()
	handlers map[int]func(entity.SessionEvent)
	nextID   int
}

// NewClient crea un cliente sin sesión. refreshWindow es el margen previo a la
// expiración dentro del cual GetActiveSession renueva el token.
func NewClient(svc *Service, refreshWindow time.Duration, log *logger.Logger) *Client {
	return &Client{
		svc:           svc,
		refreshWindow: refreshWindow,
		log:           log.Component("identity_client"),
		handlers:      make(map[int]func(entity.SessionEvent)),
	}
}

// Restore adopta un token existente (p. ej. un Bearer) si sigue vigente.
func (c *Client) Restore(ctx context.Context, token string) error {
	sess, err := c.svc.Session(ctx, token)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.setLocked(sess)
	c.mu.Unlock()
	return nil
}

func (c *Client) VerifyCredentials(ctx context.Context, email, password string) (*entity.Session, error) {
	sess, err := c.svc.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.setLocked(sess)
	c.mu.Unlock()
	c.emit(entity.SessionEvent{Kind: entity.EventSignedIn, Session: sess.Clone()})
	return sess, nil
}

func (c *Client) CreateAccount(ctx context.Context, email, password string, meta entity.ProfileMetadata) (*entity.Session, error) {
	sess, err := c.svc.SignUp(ctx, email, password, meta)
	if err != nil || sess == nil {
		return nil, err
	}
	c.mu.Lock()
	c.setLocked(sess)
	c.mu.Unlock()
	c.emit(entity.SessionEvent{Kind: entity.EventSignedIn, Session: sess.Clone()})
	return sess, nil
}

func (c *Client) GetActiveSession(ctx context.Context) (*entity.Session, error) {
	c.mu.Lock()
	cur := c.session.Clone()
	c.mu.Unlock()
	if cur == nil {
		return nil, nil
	}

	var (
		next      *entity.Session
		err       error
		refreshed bool
	)
	if c.refreshWindow > 0 && time.Until(cur.ExpiresAt) <= c.refreshWindow {
		next, err = c.svc.Refresh(ctx, cur.Token)
		refreshed = next != nil
	} else {
		next, err = c.svc.Session(ctx, cur.Token)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.session == nil || c.session.Token != cur.Token {
		// Otra operación cambió la sesión mientras se validaba.
		latest := c.session.Clone()
		c.mu.Unlock()
		return latest, nil
	}
	c.setLocked(next)
	c.mu.Unlock()

	if refreshed {
		c.emit(entity.SessionEvent{Kind: entity.EventTokenRefreshed, Session: next.Clone()})
	}
	return next, nil
}

func (c *Client) InvalidateSession(ctx context.Context) error {
	c.mu.Lock()
	cur := c.session
	c.setLocked(nil)
	c.mu.Unlock()
	if cur == nil {
		return nil
	}
	err := c.svc.SignOut(ctx, cur.Token)
	c.emit(entity.SessionEvent{Kind: entity.EventSignedOut})
	return err
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.svc.RequestPasswordReset(ctx, email)
}

func (c *Client) ApplyProfilePatch(ctx context.Context, patch entity.ProfilePatch) (*entity.Identity, error) {
	c.mu.Lock()
	cur := c.session.Clone()
	c.mu.Unlock()
	if cur == nil {
		return nil, domain.NewAuthError(domain.AuthUnknown, "no hay sesión activa")
	}
	id, err := c.svc.UpdateProfile(ctx, cur.Token, patch)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.session != nil && c.session.Token == cur.Token {
		c.session.Identity.Profile = id.Profile
	}
	c.mu.Unlock()
	return id, nil
}

func (c *Client) SubscribeToSessionEvents(handler func(entity.SessionEvent)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = handler
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers, id)
			if len(c.handlers) == 0 && c.detach != nil {
				// Sin suscriptores nadie escucha los avisos remotos.
				c.detach()
				c.detach = nil
			}
			c.mu.Unlock()
		})
	}
}

// Token devuelve el token vigente ("" sin sesión).
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

// setLocked reemplaza la sesión y mueve la suscripción a los avisos del usuario. Requiere c.mu.
func (c *Client) setLocked(sess *entity.Session) {
	prevUser := ""
	if c.session != nil {
		prevUser = c.session.Identity.UserID
	}
	c.session = sess.Clone()
	c.sid = ""
	if sess == nil {
		if c.detach != nil {
			c.detach()
			c.detach = nil
		}
		return
	}
	if claims, err := jwt.Parse(c.svc.cfg.JWTSecret, sess.Token); err == nil {
		c.sid = claims.ID
	}
	if c.detach != nil && prevUser == sess.Identity.UserID {
		return
	}
	if c.detach != nil {
		c.detach()
	}
	c.detach = c.svc.Subscribe(sess.Identity.UserID, c.handleNotice)
}

func (c *Client) handleNotice(n Notice) {
	c.mu.Lock()
	if c.session == nil || c.session.Identity.UserID != n.UserID {
		c.mu.Unlock()
		return
	}
	switch n.Kind {
	case entity.EventSignedOut:
		if !affects(n.SessionIDs, c.sid) {
			c.mu.Unlock()
			return
		}
		c.setLocked(nil)
		c.mu.Unlock()
		c.log.Info().Str("user_id", n.UserID).Msg("sesión revocada remotamente")
		c.emit(entity.SessionEvent{Kind: entity.EventSignedOut})
	case entity.EventUserUpdated:
		if n.Identity == nil || n.Origin == c.sid {
			c.mu.Unlock()
			return
		}
		c.session.Identity = *n.Identity
		sess := c.session.Clone()
		c.mu.Unlock()
		c.emit(entity.SessionEvent{Kind: entity.EventUserUpdated, Session: sess})
	default:
		c.mu.Unlock()
	}
}

func (c *Client) emit(ev entity.SessionEvent) {
	c.mu.Lock()
	hs := make([]func(entity.SessionEvent), 0, len(c.handlers))
	for _, h := range c.handlers {
		hs = append(hs, h)
	}
	c.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

func affects(ids []string, sid string) bool {
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if id == sid {
			return true
		}
	}
	return false
}
