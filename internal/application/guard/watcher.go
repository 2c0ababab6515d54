package guard

import (
	"sync"

	"github.com/jhoicas/molino-api/internal/application/session"
	"github.com/jhoicas/molino-api/internal/domain/entity"
)

// Source lo mínimo que el guard lee del Session Store. Lo implementa *session.Store.
type Source interface {
	Resolved() bool
	Current() *entity.Session
	OnSessionChange(fn session.Listener) (unsubscribe func())
}

// Navigator ejecuta las redirecciones: el único efecto lateral del guard.
type Navigator interface {
	Redirect(target string)
}

// NavigatorFunc adapta una función a Navigator.
type NavigatorFunc func(target string)

func (f NavigatorFunc) Redirect(target string) { f(target) }

// Option configura un Watcher.
type Option func(*Watcher)

// WithObserver recibe cada decisión nueva (también las que no redirigen).
func WithObserver(fn func(Decision)) Option {
	return func(w *Watcher) { w.observer = fn }
}

// Watcher es un guard montado: reevalúa con cada cambio de sesión o de requisito
// y redirige solo cuando la decisión pasa a ser una redirección.
type Watcher struct {
	src      Source
	paths    Paths
	nav      Navigator
	observer func(Decision)

	mu     sync.Mutex
	req    Requirement
	last   Decision
	closed bool
	unsub  func()
}

// Watch monta el guard y hace la primera evaluación.
func Watch(src Source, req Requirement, paths Paths, nav Navigator, opts ...Option) *Watcher {
	w := &Watcher{src: src, req: req, paths: paths.WithDefaults(), nav: nav}
	for _, opt := range opts {
		opt(w)
	}
	w.unsub = src.OnSessionChange(func(session.Change) { w.reevaluate() })
	w.reevaluate()
	return w
}

// Decision última decisión calculada.
func (w *Watcher) Decision() Decision {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Update cambia el requisito y reevalúa.
func (w *Watcher) Update(req Requirement) {
	w.mu.Lock()
	w.req = req
	w.mu.Unlock()
	w.reevaluate()
}

// Close desmonta el guard. Los cambios posteriores se ignoran.
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	unsub := w.unsub
	w.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (w *Watcher) reevaluate() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	d := Evaluate(Snapshot{Resolved: w.src.Resolved(), Session: w.src.Current()}, w.req, w.paths)
	changed := d != w.last
	w.last = d
	w.mu.Unlock()

	if !changed {
		return
	}
	if w.observer != nil {
		w.observer(d)
	}
	if d.Redirects() && w.nav != nil {
		w.nav.Redirect(d.Target)
	}
}
