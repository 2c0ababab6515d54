package ports

import (
	"context"

	"github.com/jhoicas/molino-api/internal/domain/entity"
)

// AuthProvider define el puerto de salida hacia el servicio de autenticación alojado.
// El Session Store solo conoce este contrato: emisión de sesiones, hash de contraseñas
// y almacenamiento de cuentas son responsabilidad del adaptador.
//
// Los errores devueltos deberían ser *domain.AuthError; cualquier otro se clasifica
// con domain.AsAuthError.
type AuthProvider interface {
	// VerifyCredentials valida email/password y devuelve la sesión emitida.
	VerifyCredentials(ctx context.Context, email, password string) (*entity.Session, error)
	// CreateAccount crea la identidad. Devuelve sesión nil si el proveedor exige
	// confirmar el email antes del primer inicio de sesión.
	CreateAccount(ctx context.Context, email, password string, meta entity.ProfileMetadata) (*entity.Session, error)
	// GetActiveSession devuelve la sesión vigente (nil si no hay). Puede refrescar el token.
	GetActiveSession(ctx context.Context) (*entity.Session, error)
	// InvalidateSession cierra la sesión en el proveedor.
	InvalidateSession(ctx context.Context) error
	// RequestPasswordReset solicita el envío del enlace de recuperación.
	RequestPasswordReset(ctx context.Context, email string) error
	// ApplyProfilePatch modifica metadatos de perfil y devuelve la identidad resultante.
	ApplyProfilePatch(ctx context.Context, patch entity.ProfilePatch) (*entity.Identity, error)
	// SubscribeToSessionEvents registra un handler; los eventos llegan en el orden
	// en que ocurrieron. Devuelve la función para cancelar la suscripción.
	SubscribeToSessionEvents(handler func(entity.SessionEvent)) (unsubscribe func())
}
