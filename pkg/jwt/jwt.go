package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims incluye los claims estándar JWT más los campos propios de la aplicación.
// Role y MillID viajan en el token para que el middleware pueda decidir sin consultar la DB.
// El jti (RegisteredClaims.ID) identifica la sesión y permite revocarla.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	MillID string `json:"mill_id,omitempty"`
	Role   string `json:"role"` // "super_admin" | "mill_owner" | "manager" | "operator" | "accountant"
	Email  string `json:"email"`
}

// Subject datos de la identidad que se firman en el token.
type Subject struct {
	UserID    string
	MillID    string
	Role      string
	Email     string
	SessionID string
}

// Generate genera un token JWT firmado (HS256) con la identidad del sujeto.
// Devuelve también el instante de expiración.
func Generate(secret, issuer string, ttl time.Duration, s Subject) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, fmt.Errorf("jwt: secret vacío")
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("jwt: duración inválida")
	}
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.SessionID,
			Issuer:    issuer,
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: s.UserID,
		MillID: s.MillID,
		Role:   s.Role,
		Email:  s.Email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse valida el token y devuelve sus claims.
// Retorna error si el token es inválido, expirado o tiene firma incorrecta.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("claims inválidos")
	}
	return claims, nil
}

// Identity reconstruye el sujeto a partir de los claims.
func (c *Claims) Identity() Subject {
	return Subject{UserID: c.UserID, MillID: c.MillID, Role: c.Role, Email: c.Email, SessionID: c.ID}
}
