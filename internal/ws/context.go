package ws

import "context"

type registryKey struct{}

// WithRegistry attaches reg to ctx so a handler invoked deep inside the
// worker can recover it without a package-level global, matching the
// "no process-wide mutable state" constraint on connection context.
func WithRegistry(ctx context.Context, reg *Registry) context.Context {
	if reg == nil {
		return ctx
	}
	return context.WithValue(ctx, registryKey{}, reg)
}

// RegistryFromContext recovers the registry attached by WithRegistry, if
// any.
func RegistryFromContext(ctx context.Context) (*Registry, bool) {
	reg, ok := ctx.Value(registryKey{}).(*Registry)
	return reg, ok
}
