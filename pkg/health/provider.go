package health

import "sync"

type ProviderOptions struct {
	// Targets names the components that must report ready.
	Targets []string
}

type Provider interface {
	// Ready marks a target as ready.
	Ready(target string)
	// NotReady marks a target as not ready, for example during shutdown.
	NotReady(target string)
	// Healthy reports whether every target is ready.
	Healthy() bool
}

type healthStatusProvider struct {
	lock    sync.RWMutex
	targets map[string]bool
}

// NewHealthStatusProvider creates a new Provider.
func NewHealthStatusProvider(opts ProviderOptions) Provider {
	targets := make(map[string]bool, len(opts.Targets))
	for _, target := range opts.Targets {
		targets[target] = false
	}
	return &healthStatusProvider{
		targets: targets,
	}
}

func (h *healthStatusProvider) Ready(target string) {
	h.set(target, true)
}

func (h *healthStatusProvider) NotReady(target string) {
	h.set(target, false)
}

func (h *healthStatusProvider) set(target string, ready bool) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, ok := h.targets[target]; ok {
		h.targets[target] = ready
	}
}

func (h *healthStatusProvider) Healthy() bool {
	h.lock.RLock()
	defer h.lock.RUnlock()
	for _, ready := range h.targets {
		if !ready {
			return false
		}
	}
	return true
}
