package gate

import "sync"

// Registry maps conversation id → Gate, created lazily. Keeping the machine
// per conversation means a pending call in one conversation never blocks
// another.
type Registry struct {
	exec Executor

	mu    sync.RWMutex
	gates map[string]*Gate
}

// NewRegistry returns a registry whose gates share one executor.
func NewRegistry(exec Executor) *Registry {
	return &Registry{
		exec:  exec,
		gates: make(map[string]*Gate),
	}
}

// Ensure returns the gate bound to the conversation, creating it on demand.
func (r *Registry) Ensure(conversationID string) *Gate {
	r.mu.RLock()
	g, ok := r.gates[conversationID]
	r.mu.RUnlock()
	if ok {
		return g
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok = r.gates[conversationID]; ok {
		return g
	}
	g = New(r.exec)
	r.gates[conversationID] = g
	return g
}

// Remove drops the gate for a closed conversation.
func (r *Registry) Remove(conversationID string) {
	r.mu.Lock()
	delete(r.gates, conversationID)
	r.mu.Unlock()
}
