package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jhoicas/molino-api/pkg/logger"
)

// StoreFactory construye un Store nuevo con su propio cliente del proveedor.
type StoreFactory func() *Store

// Registry mantiene un Store por navegador, indexado por el id opaco de la cookie.
// Un Store sin actividad durante idleTTL se expulsa y se cierra.
type Registry struct {
	stores  *cache.Cache
	factory StoreFactory
	log     *logger.Logger
}

// NewRegistry construye el registro. idleTTL <= 0 usa 30 minutos.
func NewRegistry(idleTTL time.Duration, factory StoreFactory, log *logger.Logger) *Registry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	c := cache.New(idleTTL, time.Minute)
	r := &Registry{stores: c, factory: factory, log: log.Component("session_registry")}
	c.OnEvicted(func(sid string, v interface{}) {
		s, ok := v.(*Store)
		if !ok {
			return
		}
		s.Close()
		r.log.Debug().Msg("store de sesión expulsado")
	})
	return r
}

// Get devuelve el Store del navegador y renueva su expiración.
func (r *Registry) Get(sid string) (*Store, bool) {
	if sid == "" {
		return nil, false
	}
	v, ok := r.stores.Get(sid)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Store)
	if !ok || s.isClosed() {
		return nil, false
	}
	// Replace falla si la entrada expiró entretanto: nunca reinserta un Store cerrado.
	if err := r.stores.Replace(sid, s, cache.DefaultExpiration); err != nil || s.isClosed() {
		return nil, false
	}
	return s, true
}

// Rotate mueve el Store a un id nuevo y deja inválido el anterior.
// Se usa al autenticar para que un id conocido antes del login no herede la sesión.
func (r *Registry) Rotate(oldSid string) (string, bool) {
	s, ok := r.Get(oldSid)
	if !ok {
		return "", false
	}
	sid := uuid.NewString()
	r.stores.Set(sid, s, cache.DefaultExpiration)
	// La lápida evita que el borrado cierre el Store que acaba de moverse.
	if err := r.stores.Replace(oldSid, rotated{}, cache.DefaultExpiration); err == nil {
		r.stores.Delete(oldSid)
	}
	if s.isClosed() {
		r.stores.Delete(sid)
		return "", false
	}
	return sid, true
}

// rotated marca un id retirado por Rotate.
type rotated struct{}

// Open crea un Store para un navegador nuevo y resuelve su sesión inicial.
func (r *Registry) Open(ctx context.Context) (string, *Store) {
	sid := uuid.NewString()
	s := r.factory()
	s.Init(ctx)
	r.stores.Set(sid, s, cache.DefaultExpiration)
	return sid, s
}

// Drop expulsa y cierra el Store del navegador.
func (r *Registry) Drop(sid string) {
	r.stores.Delete(sid)
}

// Len número de navegadores con Store vivo.
func (r *Registry) Len() int {
	return r.stores.ItemCount()
}
