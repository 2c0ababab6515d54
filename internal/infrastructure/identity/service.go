// Package identity implementa el servicio de autenticación alojado: cuentas, emisión y
// revocación de tokens, recuperación de contraseña y el cliente por navegador que
// consume el Session Store.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/jhoicas/molino-api/internal/domain"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/internal/domain/repository"
	"github.com/jhoicas/molino-api/pkg/jwt"
	"github.com/jhoicas/molino-api/pkg/logger"
)

// MinPasswordLength largo mínimo de contraseña aceptado en registro y recuperación.
const MinPasswordLength = 8

const (
	resetTokenTTL        = time.Hour
	confirmationTokenTTL = 24 * time.Hour
	limiterIdleTTL       = 10 * time.Minute
)

// Config parámetros del servicio.
type Config struct {
	JWTSecret                string
	Issuer                   string
	TokenTTL                 time.Duration
	RequireEmailConfirmation bool
	LoginAttemptsPerMinute   int
	LoginBurst               int
	// ResetRedirectURL página que completa la recuperación; recibe ?token=.
	ResetRedirectURL string
	// ConfirmURL página que confirma el email; recibe ?token=.
	ConfirmURL string
}

func (c Config) withDefaults() Config {
	if c.TokenTTL <= 0 {
		c.TokenTTL = time.Hour
	}
	if c.LoginAttemptsPerMinute <= 0 {
		c.LoginAttemptsPerMinute = 10
	}
	if c.LoginBurst <= 0 {
		c.LoginBurst = 5
	}
	if c.ResetRedirectURL == "" {
		c.ResetRedirectURL = "/auth/reset-password"
	}
	if c.ConfirmURL == "" {
		c.ConfirmURL = "/api/auth/confirm"
	}
	return c
}

// Mailer envía los enlaces de recuperación y confirmación.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, link string) error
	SendConfirmation(ctx context.Context, email, link string) error
}

// LogMailer registra el envío sin entregar correo (desarrollo).
type LogMailer struct {
	Log *logger.Logger
}

func (m LogMailer) SendPasswordReset(_ context.Context, email, _ string) error {
	m.Log.Component("mailer").Info().Str("email", email).Msg("enlace de recuperación de contraseña generado")
	return nil
}

func (m LogMailer) SendConfirmation(_ context.Context, email, _ string) error {
	m.Log.Component("mailer").Info().Str("email", email).Msg("enlace de confirmación de cuenta generado")
	return nil
}

// Notice aviso del servicio a los clientes de un usuario.
type Notice struct {
	Kind   entity.AuthEvent
	UserID string
	// SessionIDs afectados por un SIGNED_OUT; vacío = todas las sesiones del usuario.
	SessionIDs []string
	Identity   *entity.Identity
	// Origin sesión que provocó el cambio; esa sesión ya lo conoce.
	Origin string
}

type tokenRecord struct {
	UserID string
}

// Service es el colaborador de identidad: guarda cuentas y emite, valida y revoca tokens.
type Service struct {
	users  repository.UserRepository
	mills  repository.MillRepository
	cfg    Config
	mailer Mailer
	log    *logger.Logger

	tokens        *cache.Cache // jti -> tokenRecord
	resets        *cache.Cache // token de recuperación -> userID
	confirmations *cache.Cache // token de confirmación -> userID
	limiters      *cache.Cache // clave -> *rate.Limiter

	mu      sync.Mutex
	subs    map[string]map[int]func(Notice)
	nextSub int
}

// NewService construye el servicio. mailer nil usa LogMailer.
func NewService(users repository.UserRepository, mills repository.MillRepository, cfg Config, mailer Mailer, log *logger.Logger) *Service {
	cfg = cfg.withDefaults()
	if mailer == nil {
		mailer = LogMailer{Log: log}
	}
	return &Service{
		users:         users,
		mills:         mills,
		cfg:           cfg,
		mailer:        mailer,
		log:           log.Component("identity"),
		tokens:        cache.New(cfg.TokenTTL, time.Minute),
		resets:        cache.New(resetTokenTTL, time.Minute),
		confirmations: cache.New(confirmationTokenTTL, time.Minute),
		limiters:      cache.New(limiterIdleTTL, time.Minute),
		subs:          make(map[string]map[int]func(Notice)),
	}
}

// SignInWithPassword valida credenciales y emite un token nuevo.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if !s.limiter("login:" + email).Allow() {
		s.log.Warn().Str("email", email).Msg("inicio de sesión limitado por exceso de intentos")
		return nil, domain.ErrRateLimited
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.AsAuthError(err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active() {
		return nil, domain.NewAuthError(domain.AuthUnknown, "la cuenta está deshabilitada")
	}
	if s.cfg.RequireEmailConfirmation && !user.EmailConfirmed {
		return nil, domain.ErrUnconfirmedAccount
	}
	if user.Role.Scoped() && user.MillID == "" {
		return nil, domain.NewAuthError(domain.AuthUnknown, "la cuenta no tiene un molino asignado")
	}

	now := time.Now()
	user.LastLogin = &now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, domain.AsAuthError(err)
	}
	sess, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("sesión iniciada")
	return sess, nil
}

// IssueToken emite un token para clientes de API que usan Authorization: Bearer.
func (s *Service) IssueToken(ctx context.Context, email, password string) (*entity.Session, error) {
	return s.SignInWithPassword(ctx, email, password)
}

// SignUp crea una cuenta. Devuelve sesión nil cuando hay que confirmar el email.
func (s *Service) SignUp(ctx context.Context, email, password string, meta entity.ProfileMetadata) (*entity.Session, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.NewAuthError(domain.AuthUnknown, "el email no es válido")
	}
	if len(password) < MinPasswordLength {
		return nil, domain.NewAuthError(domain.AuthUnknown, "la contraseña debe tener al menos 8 caracteres")
	}
	role := meta.Role
	if role == "" {
		role = entity.RoleOperator
	}
	if !role.Valid() {
		return nil, domain.NewAuthError(domain.AuthUnknown, "rol desconocido")
	}
	if role == entity.RoleSuperAdmin {
		return nil, domain.NewAuthError(domain.AuthUnknown, "no se permite el registro como super_admin")
	}
	if meta.MillID == "" {
		return nil, domain.NewAuthError(domain.AuthUnknown, "debe indicar el molino")
	}
	mill, err := s.mills.GetByID(ctx, meta.MillID)
	if err != nil {
		return nil, domain.AsAuthError(err)
	}
	if mill == nil || !mill.IsActive {
		return nil, domain.NewAuthError(domain.AuthUnknown, domain.ErrMillNotFound.Error())
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.AsAuthError(err)
	}
	if existing != nil {
		return nil, &domain.AuthError{Kind: domain.AuthUnknown, Reason: domain.ErrEmailAlreadyExists.Error(), Err: domain.ErrEmailAlreadyExists}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.AsAuthError(err)
	}
	now := time.Now()
	name := meta.FullName
	if name == "" {
		name = email
	}
	user := &entity.User{
		ID:             uuid.New().String(),
		MillID:         meta.MillID,
		Email:          email,
		PasswordHash:   string(hash),
		FullName:       name,
		Phone:          meta.Phone,
		Department:     meta.Department,
		Role:           role,
		Status:         entity.UserStatusActive,
		EmailConfirmed: !s.cfg.RequireEmailConfirmation,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return nil, &domain.AuthError{Kind: domain.AuthUnknown, Reason: err.Error(), Err: err}
		}
		return nil, domain.AsAuthError(err)
	}
	s.log.Info().Str("user_id", user.ID).Str("mill_id", user.MillID).Msg("cuenta creada")

	if s.cfg.RequireEmailConfirmation {
		token := uuid.NewString()
		s.confirmations.Set(token, user.ID, cache.DefaultExpiration)
		if err := s.mailer.SendConfirmation(ctx, email, s.cfg.ConfirmURL+"?token="+token); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("no se pudo enviar la confirmación")
		}
		return nil, nil
	}
	return s.issue(user)
}

// ConfirmEmail marca la cuenta como confirmada. El token es de un solo uso.
func (s *Service) ConfirmEmail(ctx context.Context, token string) error {
	v, ok := s.confirmations.Get(token)
	if !ok {
		return domain.NewAuthError(domain.AuthUnknown, "el enlace de confirmación no es válido o expiró")
	}
	user, err := s.users.GetByID(ctx, v.(string))
	if err != nil {
		return domain.AsAuthError(err)
	}
	if user == nil {
		return domain.NewAuthError(domain.AuthUnknown, domain.ErrUserNotFound.Error())
	}
	user.EmailConfirmed = true
	user.UpdatedAt = time.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return domain.AsAuthError(err)
	}
	s.confirmations.Delete(token)
	return nil
}

// Session valida un token: firma, vigencia, que no esté revocado y que la cuenta siga activa.
// Devuelve (nil, nil) si el token ya no representa una sesión.
func (s *Service) Session(ctx context.Context, token string) (*entity.Session, error) {
	claims, ok := s.claims(token)
	if !ok {
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, domain.AsAuthError(err)
	}
	if !user.Active() {
		s.tokens.Delete(claims.ID)
		return nil, nil
	}
	return sessionFor(user, token, claims.ExpiresAt.Time), nil
}

// Refresh canjea un token vigente por uno nuevo del mismo usuario.
func (s *Service) Refresh(ctx context.Context, token string) (*entity.Session, error) {
	claims, ok := s.claims(token)
	if !ok {
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, domain.AsAuthError(err)
	}
	s.tokens.Delete(claims.ID)
	if !user.Active() {
		return nil, nil
	}
	s.log.Debug().Str("user_id", user.ID).Msg("token renovado")
	return s.issue(user)
}

// SignOut revoca el token. Un token ya inválido no es un error.
func (s *Service) SignOut(_ context.Context, token string) error {
	if claims, ok := s.claims(token); ok {
		s.tokens.Delete(claims.ID)
	}
	return nil
}

// RevokeUser revoca todas las sesiones del usuario y avisa a sus clientes. Devuelve cuántas revocó.
func (s *Service) RevokeUser(_ context.Context, userID string) int {
	var ids []string
	for jti, item := range s.tokens.Items() {
		if rec, ok := item.Object.(tokenRecord); ok && rec.UserID == userID {
			s.tokens.Delete(jti)
			ids = append(ids, jti)
		}
	}
	s.log.Info().Str("user_id", userID).Int("sessions", len(ids)).Msg("sesiones revocadas")
	s.notify(Notice{Kind: entity.EventSignedOut, UserID: userID})
	return len(ids)
}

// RequestPasswordReset genera un enlace de recuperación. Un email sin cuenta no es un error.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return domain.NewAuthError(domain.AuthUnknown, "debe indicar el email")
	}
	if !s.limiter("reset:" + email).Allow() {
		return domain.ErrRateLimited
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return domain.AsAuthError(err)
	}
	if user == nil {
		return nil
	}
	token := uuid.NewString()
	s.resets.Set(token, user.ID, cache.DefaultExpiration)
	if err := s.mailer.SendPasswordReset(ctx, email, s.cfg.ResetRedirectURL+"?token="+token); err != nil {
		return domain.AsAuthError(err)
	}
	return nil
}

// CompletePasswordReset fija la nueva contraseña y cierra las sesiones abiertas del usuario.
func (s *Service) CompletePasswordReset(ctx context.Context, token, password string) error {
	if len(password) < MinPasswordLength {
		return domain.NewAuthError(domain.AuthUnknown, "la contraseña debe tener al menos 8 caracteres")
	}
	v, ok := s.resets.Get(token)
	if !ok {
		return domain.NewAuthError(domain.AuthUnknown, "el enlace de recuperación no es válido o expiró")
	}
	user, err := s.users.GetByID(ctx, v.(string))
	if err != nil {
		return domain.AsAuthError(err)
	}
	if user == nil {
		return domain.NewAuthError(domain.AuthUnknown, domain.ErrUserNotFound.Error())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.AsAuthError(err)
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = time.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return domain.AsAuthError(err)
	}
	s.resets.Delete(token)
	s.RevokeUser(ctx, user.ID)
	return nil
}

// UpdateProfile aplica el patch al perfil del dueño del token. Rol y token no cambian.
func (s *Service) UpdateProfile(ctx context.Context, token string, patch entity.ProfilePatch) (*entity.Identity, error) {
	claims, ok := s.claims(token)
	if !ok {
		return nil, domain.NewAuthError(domain.AuthUnknown, "la sesión expiró")
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, domain.AsAuthError(err)
	}
	if !user.Active() {
		return nil, domain.NewAuthError(domain.AuthUnknown, "la cuenta está deshabilitada")
	}
	p := patch.Apply(user.Profile())
	user.FullName, user.Phone, user.Department = p.FullName, p.Phone, p.Department
	user.UpdatedAt = time.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, domain.AsAuthError(err)
	}
	id := user.Identity()
	s.notify(Notice{Kind: entity.EventUserUpdated, UserID: user.ID, Identity: &id, Origin: claims.ID})
	return &id, nil
}

// Subscribe registra fn para los avisos de un usuario.
func (s *Service) Subscribe(userID string, fn func(Notice)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[int]func(Notice))
	}
	s.subs[userID][id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[userID], id)
			if len(s.subs[userID]) == 0 {
				delete(s.subs, userID)
			}
		})
	}
}

// ActiveSessions cuántos tokens vigentes tiene el usuario.
func (s *Service) ActiveSessions(userID string) int {
	n := 0
	for _, item := range s.tokens.Items() {
		if rec, ok := item.Object.(tokenRecord); ok && rec.UserID == userID {
			n++
		}
	}
	return n
}

func (s *Service) notify(n Notice) {
	s.mu.Lock()
	fns := make([]func(Notice), 0, len(s.subs[n.UserID]))
	for _, fn := range s.subs[n.UserID] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(n)
	}
}

// claims parsea el token y comprueba que no esté revocado.
func (s *Service) claims(token string) (*jwt.Claims, bool) {
	if token == "" {
		return nil, false
	}
	claims, err := jwt.Parse(s.cfg.JWTSecret, token)
	if err != nil {
		return nil, false
	}
	if _, ok := s.tokens.Get(claims.ID); !ok {
		return nil, false
	}
	return claims, true
}

// issue emite un token nuevo y lo registra como vigente.
func (s *Service) issue(user *entity.User) (*entity.Session, error) {
	jti := uuid.NewString()
	token, exp, err := jwt.Generate(s.cfg.JWTSecret, s.cfg.Issuer, s.cfg.TokenTTL, jwt.Subject{
		UserID:    user.ID,
		MillID:    tenantScope(user),
		Role:      string(user.Role),
		Email:     user.Email,
		SessionID: jti,
	})
	if err != nil {
		return nil, domain.AsAuthError(err)
	}
	s.tokens.Set(jti, tokenRecord{UserID: user.ID}, s.cfg.TokenTTL)
	return sessionFor(user, token, exp), nil
}

func (s *Service) limiter(key string) *rate.Limiter {
	if v, ok := s.limiters.Get(key); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.cfg.LoginAttemptsPerMinute)), s.cfg.LoginBurst)
	if err := s.limiters.Add(key, lim, cache.DefaultExpiration); err != nil {
		// Otro goroutine lo creó primero.
		if v, ok := s.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

func sessionFor(user *entity.User, token string, exp time.Time) *entity.Session {
	return &entity.Session{
		Identity:    user.Identity(),
		Token:       token,
		TenantScope: tenantScope(user),
		ExpiresAt:   exp,
	}
}

func tenantScope(user *entity.User) string {
	if !user.Role.Scoped() {
		return ""
	}
	return user.MillID
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
