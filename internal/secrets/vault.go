// Package secrets keeps credential material out of config structs and logs.
// A Vault owns the current set of secret values and can re-pull them from its
// loader at runtime, so rotated credentials take effect without a restart.
package secrets

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Loader produces the full secret set from wherever it lives. It is called
// once at construction and again on every Reload.
type Loader func() (map[string]string, error)

// Vault is a read-mostly snapshot of named secrets. Reads never block a
// reload; a reload publishes a complete replacement set in one step.
type Vault struct {
	values atomic.Pointer[map[string]string]
	loader Loader
}

// NewVault runs the loader and returns a vault over its result.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	v := &Vault{loader: loader}
	v.values.Store(&vals)
	return v, nil
}

// Get returns the secret named key, or "" when it is not loaded.
func (v *Vault) Get(key string) string {
	return v.snapshot()[key]
}

// Reload pulls a fresh set from the loader and publishes it. On loader
// failure the current set stays in place and the error is returned.
func (v *Vault) Reload() error {
	vals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.values.Store(&vals)
	return nil
}

// Keys lists the loaded secret names. Values are never exposed in bulk.
func (v *Vault) Keys() []string {
	snap := v.snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	return keys
}

// Redacted returns a masked form of the secret named key: the first two
// characters followed by "****". Secrets of four characters or fewer are
// fully masked; a missing key returns "".
func (v *Vault) Redacted(key string) string {
	return redact(v.snapshot()[key])
}

// RedactString replaces every loaded secret value occurring in s with its
// masked form. Values of four characters or fewer are skipped so ordinary
// text is not mangled.
func (v *Vault) RedactString(s string) string {
	for _, val := range v.snapshot() {
		if len(val) <= 4 {
			continue
		}
		s = strings.ReplaceAll(s, val, redact(val))
	}
	return s
}

func (v *Vault) snapshot() map[string]string {
	return *v.values.Load()
}

func redact(val string) string {
	if val == "" {
		return ""
	}
	if len(val) <= 4 {
		return "****"
	}
	return val[:2] + "****"
}
