package container

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrTypeMismatch is returned by Resolve when a service is not of the
// requested type.
var ErrTypeMismatch = errors.New("service type mismatch")

// ── Container ─────────────────────────────────────────────────────────────────

// Container resolves, lazily builds and caches services addressed by tokens.
//
// Every service is a singleton for the lifetime of the container: a factory
// runs at most once per resolved token and its result is memoized under both
// the requested token and the token it resolved to.
type Container struct {
	mu sync.RWMutex

	// token → built or provided value
	instances map[Token]any

	// token → factory (class providers are converted on registration)
	factories map[Token]Factory

	// alias → final target, always flattened
	aliases *aliasTable

	// token → kind of the provider last registered for it
	kinds map[Token]Kind

	initialized bool
	log         *zap.Logger
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for registration and resolution events.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.log = logger
		}
	}
}

// New creates a container holding providers.
//
//	c, err := container.New([]container.Provider{
//	    container.Value("engine.power", 300),
//	    container.Class[Engine]("engine"),
//	    container.Alias("motor", "engine"),
//	})
func New(providers []Provider, opts ...Option) (*Container, error) {
	c := &Container{
		instances: make(map[Token]any),
		factories: make(map[Token]Factory),
		aliases:   newAliasTable(),
		kinds:     make(map[Token]Kind),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if _, err := c.RegisterAll(providers...); err != nil {
		return nil, err
	}
	return c, nil
}

// ── Registration ──────────────────────────────────────────────────────────────

// RegisterAll registers providers in order. Alias edges are collected first
// and flattened once at the end.
//
// Registration stops at the first invalid provider; providers before it stay
// registered.
func (c *Container) RegisterAll(providers ...Provider) (*Container, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	newAliases := false
	for _, p := range providers {
		def, cerr := classify(p)
		if cerr != nil {
			err = cerr
			break
		}
		if def.kind == KindAlias {
			c.clearConcrete(def.token)
			c.aliases.put(def.token, def.target)
			newAliases = true
		} else if c.storeConcrete(def) {
			newAliases = true
		}
		c.kinds[def.token] = def.kind
		c.log.Debug("provider registered",
			zap.String("token", Stringify(def.token)),
			zap.String("kind", string(def.kind)))
	}

	if newAliases {
		if ferr := c.aliases.flatten(); ferr != nil && err == nil {
			err = ferr
		}
		c.log.Debug("aliases flattened", zap.Int("aliases", c.aliases.len()))
	}
	if err != nil {
		c.log.Warn("registration failed", zap.Error(err))
		return c, err
	}
	c.initialized = true
	return c, nil
}

// AddProvider registers a single provider. An alias is flattened against the
// existing aliases immediately.
func (c *Container) AddProvider(p Provider) (*Container, error) {
	def, err := classify(p)
	if err != nil {
		c.log.Warn("registration failed", zap.Error(err))
		return c, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if def.kind == KindAlias {
		if err := c.aliases.link(def.token, def.target); err != nil {
			c.log.Warn("registration failed", zap.Error(err))
			return c, err
		}
		c.clearConcrete(def.token)
	} else if c.storeConcrete(def) {
		// The remaining edges are acyclic.
		_ = c.aliases.flatten()
	}
	c.kinds[def.token] = def.kind
	c.log.Debug("provider registered",
		zap.String("token", Stringify(def.token)),
		zap.String("kind", string(def.kind)))
	return c, nil
}

// storeConcrete stores a value or factory definition, replacing whatever was
// registered for the token before. It reports whether the token was an alias
// key, in which case the alias table must be flattened again.
func (c *Container) storeConcrete(def definition) bool {
	if def.kind == KindValue {
		c.instances[def.token] = def.value
		delete(c.factories, def.token)
	} else {
		c.factories[def.token] = def.factory
		delete(c.instances, def.token)
	}
	return c.aliases.remove(def.token)
}

func (c *Container) clearConcrete(token Token) {
	delete(c.instances, token)
	delete(c.factories, token)
}

// Initialized reports whether a bulk registration has completed successfully.
func (c *Container) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Get returns the service for token, building it on first use.
//
// A failure to build, including a missing provider, is reported as
// ErrServiceNotCreated wrapping the cause:
//
//	_, err := c.Get("missing")
//	errors.Is(err, container.ErrServiceNotCreated) // true
//	errors.Is(err, container.ErrProviderNotFound)  // true
func (c *Container) Get(token Token) (any, error) {
	if !validToken(token) {
		return nil, errServiceNotCreated(token, errProviderNotFound(token))
	}

	c.mu.RLock()
	if instance, ok := c.instances[token]; ok {
		c.mu.RUnlock()
		return instance, nil
	}
	resolved := c.aliases.resolve(token)
	instance, cached := c.instances[resolved]
	factory, found := c.factories[resolved]
	c.mu.RUnlock()

	if cached {
		return c.memoize(token, resolved, instance), nil
	}
	if !found {
		err := errServiceNotCreated(resolved, errProviderNotFound(resolved))
		c.log.Warn("service not created", zap.String("token", Stringify(token)), zap.Error(err))
		return nil, err
	}

	instance, err := c.invoke(factory)
	if err != nil {
		err = errServiceNotCreated(resolved, err)
		c.log.Warn("service not created", zap.String("token", Stringify(token)), zap.Error(err))
		return nil, err
	}
	c.log.Debug("service created",
		zap.String("token", Stringify(token)),
		zap.String("resolved", Stringify(resolved)))
	return c.memoize(token, resolved, instance), nil
}

// invoke runs a factory without holding the lock, so it can call Get. A
// panic is turned into an error.
func (c *Container) invoke(factory Factory) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	return factory(c)
}

// memoize caches instance under both tokens. If another caller stored the
// resolved token first, that value wins so every caller sees one instance.
func (c *Container) memoize(token, resolved Token, instance any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.instances[resolved]; ok {
		instance = existing
	}
	c.instances[resolved] = instance
	c.instances[token] = instance
	return instance
}

// Has reports whether token can be resolved, without building anything.
func (c *Container) Has(token Token) bool {
	if !validToken(token) {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.has(token)
}

func (c *Container) has(token Token) bool {
	_, hasInstance := c.instances[token]
	_, hasFactory := c.factories[token]
	if hasInstance || hasFactory {
		return true
	}
	if resolved := c.aliases.resolve(token); resolved != token {
		return c.has(resolved)
	}
	return false
}

// ── Introspection ─────────────────────────────────────────────────────────────

// Entry describes one registered token.
type Entry struct {
	Token Token
	Kind  Kind
	// Target is the flattened alias target; nil unless Kind is KindAlias.
	Target Token
	// Cached is true once a value is held for the token.
	Cached bool
}

// Entries returns a snapshot of all registered tokens, sorted by name.
func (c *Container) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.kinds))
	for token, kind := range c.kinds {
		e := Entry{Token: token, Kind: kind}
		if kind == KindAlias {
			target, ok := c.aliases.lookup(token)
			if !ok {
				// dropped from a cycle
				continue
			}
			e.Target = target
		}
		_, e.Cached = c.instances[token]
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return Stringify(out[i].Token) < Stringify(out[j].Token)
	})
	return out
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve calls Get and type-asserts the result.
//
//	engine, err := container.Resolve[*Engine](c, "engine")
func Resolve[T any](c *Container, token Token) (T, error) {
	var zero T
	instance, err := c.Get(token)
	if err != nil {
		return zero, err
	}
	if instance == nil {
		return zero, nil
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("container: Resolve[%s]: [%s] resolved to %T: %w",
			reflect.TypeOf((*T)(nil)).Elem(), Stringify(token), instance, ErrTypeMismatch)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on error. Use it in bootstrap code
// where a missing service is a programming error.
func MustResolve[T any](c *Container, token Token) T {
	typed, err := Resolve[T](c, token)
	if err != nil {
		panic(err)
	}
	return typed
}
