package container

import (
	"fmt"
	"sync"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the provider definitions of one application concern.
//
// Register returns the definitions; they are added to the container in one
// bulk registration. Boot runs after every eager provider has been registered,
// so it is safe to resolve other services there.
//
//	type CacheServiceProvider struct{ container.BaseProvider }
//
//	func (p *CacheServiceProvider) Register() []container.Provider {
//	    return []container.Provider{
//	        container.FactoryProvider{Token: "cache", Factory: newCache},
//	        container.Alias("cache.store", "cache"),
//	    }
//	}
type ServiceProvider interface {
	// Register returns the definitions this provider contributes.
	Register() []Provider

	// Boot is called after all eager providers are registered.
	Boot(c *Container) error

	// Provides lists the tokens a deferred provider defines.
	Provides() []Token

	// IsDeferred returns true if Register should only run when one of the
	// Provides() tokens is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op Boot, Provides and
// IsDeferred.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []Token       { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers and boots service providers, including deferred
// ones.
type ProviderRegistry struct {
	mu         sync.Mutex
	app        *Container
	eager      []ServiceProvider
	deferred   map[ServiceProvider]*deferredLoad
	pending    map[Token]bool // placeholder tokens not yet defined for real
	registered map[ServiceProvider]bool
	booted     bool
}

type deferredLoad struct {
	once sync.Once
	err  error
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		deferred:   make(map[ServiceProvider]*deferredLoad),
		pending:    make(map[Token]bool),
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider. Eager providers are registered immediately, and
// booted too if the registry has already booted. Registering the same
// provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true
	booted := r.booted
	r.mu.Unlock()

	if provider.IsDeferred() {
		return r.registerDeferred(provider)
	}

	if _, err := r.app.RegisterAll(provider.Register()...); err != nil {
		return err
	}

	r.mu.Lock()
	r.eager = append(r.eager, provider)
	r.mu.Unlock()

	if booted {
		return provider.Boot(r.app)
	}
	return nil
}

// registerDeferred installs a placeholder factory for every token the
// provider claims. The first Get of any of them registers the provider for
// real and resolves the token again.
func (r *ProviderRegistry) registerDeferred(provider ServiceProvider) error {
	r.mu.Lock()
	r.deferred[provider] = &deferredLoad{}
	r.mu.Unlock()

	placeholders := make([]Provider, 0, len(provider.Provides()))
	for _, token := range provider.Provides() {
		token := token
		r.mu.Lock()
		r.pending[token] = true
		r.mu.Unlock()

		placeholders = append(placeholders, FactoryProvider{
			Token: token,
			Factory: func(c *Container) (any, error) {
				if err := r.load(provider); err != nil {
					return nil, err
				}
				r.mu.Lock()
				missing := r.pending[token]
				r.mu.Unlock()
				if missing {
					return nil, errProviderNotFound(token)
				}
				return c.Get(token)
			},
		})
	}
	_, err := r.app.RegisterAll(placeholders...)
	return err
}

// load registers a deferred provider's definitions once, booting it when the
// registry has already booted.
func (r *ProviderRegistry) load(provider ServiceProvider) error {
	r.mu.Lock()
	state := r.deferred[provider]
	r.mu.Unlock()

	state.once.Do(func() {
		definitions := provider.Register()
		if _, err := r.app.RegisterAll(definitions...); err != nil {
			state.err = err
			return
		}

		r.mu.Lock()
		for _, def := range definitions {
			delete(r.pending, def.ProvideToken())
		}
		booted := r.booted
		r.mu.Unlock()

		if booted {
			state.err = provider.Boot(r.app)
		}
	})
	return state.err
}

// Boot calls Boot on all eager providers. Later calls are no-ops.
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range providers {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	return nil
}

// Booted returns true if Boot has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the eager providers in registration order.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}
