package player

import (
	"sync"
)

// Registry is a table of live engine instances enforcing the at-most-one-
// playing policy across independent players. It is injectable so tests can
// run isolated registries; DefaultRegistry serves the common case.
type Registry struct {
	mutex    sync.Mutex
	engines  map[string]*Engine
	activeID string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]*Engine)}
}

// DefaultRegistry is the process-wide registry engines join unless another
// one is injected
var DefaultRegistry = NewRegistry()

// Register adds an engine. Registering an id twice overwrites the previous
// entry.
func (r *Registry) Register(e *Engine) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.engines[e.ID()] = e
}

// Unregister removes an engine by id
func (r *Registry) Unregister(id string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.engines, id)
	if r.activeID == id {
		r.activeID = ""
	}
}

// Get returns a registered engine by id
func (r *Registry) Get(id string) (*Engine, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	e, ok := r.engines[id]
	return e, ok
}

// Count returns the number of registered engines
func (r *Registry) Count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.engines)
}

// IDs returns the ids of all registered engines
func (r *Registry) IDs() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	return ids
}

// SetActive marks an engine as the most recently playing one
func (r *Registry) SetActive(id string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.engines[id]; ok {
		r.activeID = id
	}
}

// Active returns the most recently playing engine
func (r *Registry) Active() (*Engine, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.activeID == "" {
		return nil, false
	}
	e, ok := r.engines[r.activeID]
	return e, ok
}

// PauseOthers pauses every registered engine except the given one. Called
// synchronously before an engine starts playing, so no two engines are ever
// briefly both playing.
func (r *Registry) PauseOthers(exceptID string) {
	for _, e := range r.snapshot() {
		if e.ID() != exceptID && e.IsPlaying() {
			e.Pause()
		}
	}
}

// PauseAll pauses every registered engine
func (r *Registry) PauseAll() {
	for _, e := range r.snapshot() {
		if e.IsPlaying() {
			e.Pause()
		}
	}
}

// DestroyAll destroys and removes every registered engine
func (r *Registry) DestroyAll() {
	for _, e := range r.snapshot() {
		e.Destroy()
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.engines = make(map[string]*Engine)
	r.activeID = ""
}

// snapshot copies the engine list so pause/destroy calls run without the
// registry lock held
func (r *Registry) snapshot() []*Engine {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	engines := make([]*Engine, 0, len(r.engines))
	for _, e := range r.engines {
		engines = append(engines, e)
	}
	return engines
}
