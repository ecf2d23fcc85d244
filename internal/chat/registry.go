package chat

import "sync"

// Registry caches live engines by session id. A miss is not an error;
// callers rebuild the engine from the stored artifact and Put it back.
type Registry interface {
	Get(sessionID string) (*Engine, bool)
	Put(sessionID string, engine *Engine)
	Remove(sessionID string)
}

type MemoryRegistry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{engines: make(map[string]*Engine)}
}

func (r *MemoryRegistry) Get(sessionID string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[sessionID]
	return e, ok
}

func (r *MemoryRegistry) Put(sessionID string, engine *Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[sessionID] = engine
}

func (r *MemoryRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, sessionID)
}
