// Package container provides a token-addressed dependency-injection container.
//
// # Overview
//
// Services are described by providers and addressed by tokens. A token is any
// comparable value; strings are the common case and NewSymbol creates tokens
// that can never collide. Every service is built lazily, at most once, and
// cached for the lifetime of the container.
//
// Go has no constructor injection by reflection, so composition goes through
// factories: a factory receives the container and resolves its own
// dependencies with Get.
//
// # Providers
//
//	// Pre-built value (nil is a valid value)
//	container.ValueProvider{Token: "engine.power", Value: 300}
//
//	// Type with a zero-argument constructor, built on first Get
//	container.ClassProvider{Token: "engine", Class: NewEngine}
//	container.Class[Engine]("engine") // resolves to *Engine
//
//	// Factory
//	container.FactoryProvider{Token: "car", Factory: func(c *container.Container) (any, error) {
//	    engine, err := container.Resolve[*Engine](c, "engine")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Car{Engine: engine}, nil
//	}}
//
//	// Alias: "motor" resolves to whatever "engine" resolves to
//	container.AliasProvider{Token: "motor", Target: "engine"}
//
// Registering a token again replaces its earlier provider.
//
// # Registration
//
//	c, err := container.New(providers)  // bulk
//	_, err = c.RegisterAll(more...)      // bulk, again
//	_, err = c.AddProvider(provider)     // one at a time
//
// Alias chains are flattened on registration, so a lookup never follows more
// than one alias hop. A chain that loops back on itself is rejected with
// ErrCyclicAlias and the offending path:
//
//	A cycle has been detected within the aliases definitions:
//	 A -> B -> A
//
// # Resolving
//
//	raw, err := c.Get("car")
//	car, err := container.Resolve[*Car](c, "car")
//	ok := c.Has("car") // never builds anything
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register() []container.Provider {
//	    return []container.Provider{container.Class[Mailer]("mailer")}
//	}
//
//	registry := container.NewProviderRegistry(c)
//	err := registry.Register(&AppServiceProvider{})
//	err = registry.Boot()
//
// A deferred provider (IsDeferred returns true) is only registered when one
// of its Provides() tokens is first resolved.
//
// # Errors
//
// Registration fails with ErrInvalidProvider, ErrInvalidClass,
// ErrInvalidConstructor or ErrCyclicAlias. Lookup fails with
// ErrServiceNotCreated, which wraps the cause; a missing provider also
// matches ErrProviderNotFound.
//
// Factories that resolve their own token, directly or through other
// factories, are not detected and recurse without bound.
package container
