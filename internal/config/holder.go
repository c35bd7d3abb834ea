package config

import "sync/atomic"

// Holder provides atomic access to the current Config and supports hot
// reloading from the original YAML path. Readers always see a complete
// config; a failed reload keeps the previous one.
type Holder struct {
	cur  atomic.Pointer[Config]
	path string
}

// NewHolder wraps an already-loaded config for later reloads.
func NewHolder(cfg *Config, yamlPath string) *Holder {
	h := &Holder{path: yamlPath}
	h.cur.Store(cfg)
	return h
}

// Get returns the current config.
func (h *Holder) Get() *Config {
	return h.cur.Load()
}

// Reload re-runs the full load pipeline against the original path and swaps
// in the result. On any error the previous config stays active.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.path)
	if err != nil {
		return err
	}
	h.cur.Store(cfg)
	return nil
}
