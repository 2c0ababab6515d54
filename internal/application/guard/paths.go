package guard

import "strings"

// PathPolicy reglas de redirección por prefijo de ruta, evaluadas antes de
// cualquier handler (equivalente al middleware de borde del dashboard).
type PathPolicy struct {
	Paths      Paths
	AuthPrefix string
	// Protected exigen sesión; Public son excepciones dentro de Protected.
	Protected []string
	Public    []string
}

// NewPathPolicy política por defecto: /dashboard y /api exigen sesión salvo
// los endpoints de autenticación; /auth con sesión vuelve al inicio.
func NewPathPolicy(paths Paths) PathPolicy {
	return PathPolicy{
		Paths:      paths.WithDefaults(),
		AuthPrefix: "/auth",
		Protected:  []string{"/dashboard", "/api"},
		Public:     []string{"/api/auth"},
	}
}

// Redirect decide el destino para una ruta solicitada. ok=false significa continuar.
func (p PathPolicy) Redirect(path string, authenticated bool) (target string, ok bool) {
	paths := p.Paths.WithDefaults()
	if authenticated {
		if p.AuthPrefix != "" && underPrefix(path, p.AuthPrefix) {
			return paths.Default, true
		}
		return "", false
	}
	for _, pub := range p.Public {
		if underPrefix(path, pub) {
			return "", false
		}
	}
	for _, prot := range p.Protected {
		if underPrefix(path, prot) {
			return paths.Login, true
		}
	}
	return "", false
}

// RequiresSession informa si la ruta exige sesión: protegida y fuera de Public.
func (p PathPolicy) RequiresSession(path string) bool {
	for _, pub := range p.Public {
		if underPrefix(path, pub) {
			return false
		}
	}
	for _, prot := range p.Protected {
		if underPrefix(path, prot) {
			return true
		}
	}
	return false
}

// AfterSignIn destino tras un inicio de sesión confirmado: el inicio, salvo que
// el usuario ya esté dentro del dashboard.
func (p PathPolicy) AfterSignIn(current string) (target string, ok bool) {
	paths := p.Paths.WithDefaults()
	if underPrefix(current, paths.Default) {
		return "", false
	}
	return paths.Default, true
}

// AfterSignOut destino tras un cierre de sesión.
func (p PathPolicy) AfterSignOut() string {
	return p.Paths.WithDefaults().Login
}

func underPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
