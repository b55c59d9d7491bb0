package config

import "sync/atomic"

// Holder keeps the active configuration and supports atomic reload.
// Readers always see a complete config; Reload swaps the pointer only
// after the replacement passes validation.
type Holder struct {
	current atomic.Pointer[Config]
	path    string
}

// NewHolder wraps an already-loaded config. path is re-read on Reload.
func NewHolder(cfg *Config, path string) *Holder {
	h := &Holder{path: path}
	h.current.Store(cfg)
	return h
}

// Get returns the active config. Callers must treat it as read-only.
func (h *Holder) Get() *Config {
	return h.current.Load()
}

// Reload re-runs the full load pipeline against the holder's path.
// On any error the previous config stays active.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.path)
	if err != nil {
		return err
	}
	h.current.Store(cfg)
	return nil
}
