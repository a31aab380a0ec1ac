package container_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-provide/framework/container"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type Engine struct {
	Power int
}

type TurboEngine struct {
	Engine
}

type Car struct {
	Engine *Engine
}

func NewEngine() *Engine { return &Engine{Power: 100} }

func NewTurboEngine() *TurboEngine { return &TurboEngine{Engine{Power: 300}} }

func NewEngineWithPower(power int) *Engine { return &Engine{Power: power} }

func NewBrokenEngine() (*Engine, error) { return nil, errors.New("no fuel") }

func newCarFactory(c *container.Container) (any, error) {
	engine, err := container.Resolve[*Engine](c, "Engine")
	if err != nil {
		return nil, err
	}
	return &Car{Engine: engine}, nil
}

func mustNew(t *testing.T, providers ...container.Provider) *container.Container {
	t.Helper()
	c, err := container.New(providers)
	require.NoError(t, err)
	return c
}

// ── Value / class / factory providers ─────────────────────────────────────────

func TestGet_ValueProvider(t *testing.T) {
	c := mustNew(t, container.Value("Engine", "fake"))

	got, err := c.Get("Engine")
	require.NoError(t, err)
	assert.Equal(t, "fake", got)
}

func TestGet_NilValueIsNotAbsent(t *testing.T) {
	c := mustNew(t, container.Value("nothing", nil))

	assert.True(t, c.Has("nothing"))
	got, err := c.Get("nothing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGet_ClassProviderFunc(t *testing.T) {
	c := mustNew(t, container.ClassProvider{Token: "Engine", Class: NewEngine})

	engine, err := container.Resolve[*Engine](c, "Engine")
	require.NoError(t, err)
	assert.Equal(t, 100, engine.Power)
}

func TestGet_ClassProviderGeneric(t *testing.T) {
	c := mustNew(t, container.Class[Engine]("Engine"))

	engine, err := container.Resolve[*Engine](c, "Engine")
	require.NoError(t, err)
	assert.Equal(t, 0, engine.Power)
}

func TestGet_ClassProviderTypedNil(t *testing.T) {
	c := mustNew(t, container.ClassProvider{Token: "Engine", Class: (*Engine)(nil)})

	got, err := c.Get("Engine")
	require.NoError(t, err)
	assert.IsType(t, &Engine{}, got)
}

func TestGet_ClassProviderVariadicConstructor(t *testing.T) {
	ctor := func(opts ...int) *Engine { return &Engine{Power: len(opts)} }
	c := mustNew(t, container.ClassProvider{Token: "Engine", Class: ctor})

	engine, err := container.Resolve[*Engine](c, "Engine")
	require.NoError(t, err)
	assert.Equal(t, 0, engine.Power)
}

func TestGet_FactoryReceivesContainer(t *testing.T) {
	c := mustNew(t,
		container.ClassProvider{Token: "Engine", Class: NewEngine},
		container.FactoryProvider{Token: "Car", Factory: newCarFactory},
	)

	car, err := container.Resolve[*Car](c, "Car")
	require.NoError(t, err)

	engine, err := container.Resolve[*Engine](c, "Engine")
	require.NoError(t, err)
	assert.Same(t, engine, car.Engine)
}

// ── Caching ───────────────────────────────────────────────────────────────────

func TestGet_ReturnsSameReference(t *testing.T) {
	calls := 0
	c := mustNew(t,
		container.Value("value", &Engine{}),
		container.ClassProvider{Token: "class", Class: NewEngine},
		container.FactoryProvider{Token: "factory", Factory: func(*container.Container) (any, error) {
			calls++
			return &Engine{}, nil
		}},
		container.Alias("alias", "factory"),
	)

	for _, token := range []string{"value", "class", "factory", "alias"} {
		t.Run(token, func(t *testing.T) {
			first, err := c.Get(token)
			require.NoError(t, err)
			second, err := c.Get(token)
			require.NoError(t, err)
			assert.Same(t, first, second)
		})
	}
	assert.Equal(t, 1, calls)
}

func TestGet_ConcurrentCallersShareOneInstance(t *testing.T) {
	c := mustNew(t, container.ClassProvider{Token: "Engine", Class: NewEngine})

	const n = 32
	results := make([]any, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.Get("Engine")
		}()
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i])
	}
}

// ── Last write wins ───────────────────────────────────────────────────────────

func TestRegister_LastClassWins(t *testing.T) {
	c := mustNew(t,
		container.ClassProvider{Token: "Engine", Class: NewEngine},
		container.ClassProvider{Token: "Engine", Class: NewTurboEngine},
	)

	got, err := c.Get("Engine")
	require.NoError(t, err)
	assert.IsType(t, &TurboEngine{}, got)
}

func TestRegister_LastWinsAcrossKinds(t *testing.T) {
	factory := container.FactoryProvider{Token: "svc", Factory: func(*container.Container) (any, error) {
		return "from-factory", nil
	}}

	tests := []struct {
		name      string
		providers []container.Provider
		want      any
	}{
		{"value then factory", []container.Provider{container.Value("svc", "from-value"), factory}, "from-factory"},
		{"factory then value", []container.Provider{factory, container.Value("svc", "from-value")}, "from-value"},
		{"alias then value", []container.Provider{
			container.Value("other", "from-alias"),
			container.Alias("svc", "other"),
			container.Value("svc", "from-value"),
		}, "from-value"},
		{"value then alias", []container.Provider{
			container.Value("other", "from-alias"),
			container.Value("svc", "from-value"),
			container.Alias("svc", "other"),
		}, "from-alias"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/bulk", func(t *testing.T) {
			c := mustNew(t, tt.providers...)
			got, err := c.Get("svc")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
		t.Run(tt.name+"/incremental", func(t *testing.T) {
			c := mustNew(t)
			for _, p := range tt.providers {
				_, err := c.AddProvider(p)
				require.NoError(t, err)
			}
			got, err := c.Get("svc")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegister_OverridingAliasKeyMovesDependents(t *testing.T) {
	c := mustNew(t,
		container.Value("B", "b"),
		container.Alias("A", "B"),
		container.Alias("X", "A"),
	)
	_, err := c.RegisterAll(container.Value("A", "a"))
	require.NoError(t, err)

	got, err := c.Get("X")
	require.NoError(t, err)
	assert.Equal(t, "a", got)
}

// ── Aliases ───────────────────────────────────────────────────────────────────

func TestAlias_ResolvesToSameInstance(t *testing.T) {
	c := mustNew(t,
		container.ClassProvider{Token: "B", Class: NewEngine},
		container.Alias("A", "B"),
	)

	assert.True(t, c.Has("A"))
	a, err := c.Get("A")
	require.NoError(t, err)
	b, err := c.Get("B")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestAlias_ChainIsFlattened(t *testing.T) {
	tests := []struct {
		name      string
		providers []container.Provider
	}{
		{"in order", []container.Provider{
			container.Alias("A", "B"),
			container.Alias("B", "C"),
			container.ClassProvider{Token: "C", Class: NewEngine},
		}},
		{"reversed", []container.Provider{
			container.ClassProvider{Token: "C", Class: NewEngine},
			container.Alias("B", "C"),
			container.Alias("A", "B"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustNew(t, tt.providers...)

			a, err := c.Get("A")
			require.NoError(t, err)
			cc, err := c.Get("C")
			require.NoError(t, err)
			assert.Same(t, cc, a)

			for _, e := range c.Entries() {
				if e.Kind == container.KindAlias {
					assert.Equal(t, "C", e.Target, "alias %v", e.Token)
				}
			}
		})
	}
}

func TestAlias_IncrementalChain(t *testing.T) {
	c := mustNew(t, container.Value("C", "c"))
	_, err := c.AddProvider(container.Alias("A", "B"))
	require.NoError(t, err)
	_, err = c.AddProvider(container.Alias("B", "C"))
	require.NoError(t, err)

	got, err := c.Get("A")
	require.NoError(t, err)
	assert.Equal(t, "c", got)
}

func TestAlias_RegisterAllExtendsExistingChain(t *testing.T) {
	c := mustNew(t,
		container.ClassProvider{Token: "B", Class: NewEngine},
		container.Alias("A", "B"),
	)
	_, err := c.RegisterAll(container.Alias("C", "A"))
	require.NoError(t, err)

	cc, err := c.Get("C")
	require.NoError(t, err)
	b, err := c.Get("B")
	require.NoError(t, err)
	assert.Same(t, b, cc)
}

func TestAlias_CycleInBulkRegistration(t *testing.T) {
	_, err := container.New([]container.Provider{
		container.Alias("A", "B"),
		container.Alias("B", "A"),
	})

	require.ErrorIs(t, err, container.ErrCyclicAlias)
	assert.Equal(t, "A cycle has been detected within the aliases definitions:\n A -> B -> A\n", err.Error())

	var cerr *container.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, []container.Token{"A", "B", "A"}, cerr.Cycle)
}

func TestAlias_LongCycleInBulkRegistration(t *testing.T) {
	_, err := container.New([]container.Provider{
		container.Alias("A", "B"),
		container.Alias("B", "C"),
		container.Alias("C", "A"),
	})

	require.ErrorIs(t, err, container.ErrCyclicAlias)
	assert.Equal(t, "A cycle has been detected within the aliases definitions:\n A -> B -> C -> A\n", err.Error())
}

func TestAlias_SelfCycle(t *testing.T) {
	c := mustNew(t)

	_, err := c.AddProvider(container.Alias("A", "A"))
	require.ErrorIs(t, err, container.ErrCyclicAlias)
	assert.Equal(t, "A cycle has been detected within the aliases definitions:\n A -> A\n", err.Error())
	assert.False(t, c.Has("A"))

	_, err = container.New([]container.Provider{container.Alias("A", "A")})
	require.ErrorIs(t, err, container.ErrCyclicAlias)
}

func TestAlias_CycleInIncrementalRegistration(t *testing.T) {
	c := mustNew(t, container.Value("A", "a"))
	_, err := c.AddProvider(container.Alias("B", "A"))
	require.NoError(t, err)

	_, err = c.AddProvider(container.Alias("A", "B"))
	require.ErrorIs(t, err, container.ErrCyclicAlias)
	assert.Equal(t, "A cycle has been detected within the aliases definitions:\n A -> B -> A\n", err.Error())

	// the rejected edge is not stored
	got, err := c.Get("B")
	require.NoError(t, err)
	assert.Equal(t, "a", got)
}

func TestAlias_CycleThroughReRegisteredKey(t *testing.T) {
	c := mustNew(t, container.Value("B", "b"))
	for _, p := range []container.Provider{container.Alias("A", "B"), container.Alias("X", "A")} {
		_, err := c.AddProvider(p)
		require.NoError(t, err)
	}

	_, err := c.AddProvider(container.Alias("A", "X"))
	require.ErrorIs(t, err, container.ErrCyclicAlias)

	got, err := c.Get("X")
	require.NoError(t, err)
	assert.Equal(t, "b", got)
}

// ── Has ───────────────────────────────────────────────────────────────────────

func TestHas_DoesNotInstantiate(t *testing.T) {
	var calls atomic.Int32
	c := mustNew(t,
		container.FactoryProvider{Token: "svc", Factory: func(*container.Container) (any, error) {
			calls.Add(1)
			return "svc", nil
		}},
		container.Alias("alias", "svc"),
		container.Alias("dangling", "nowhere"),
	)

	assert.True(t, c.Has("svc"))
	assert.True(t, c.Has("alias"))
	assert.False(t, c.Has("dangling"))
	assert.False(t, c.Has("missing"))
	assert.False(t, c.Has([]string{"not", "comparable"}))
	assert.Equal(t, int32(0), calls.Load())
}

// ── Tokens ────────────────────────────────────────────────────────────────────

func TestSymbolTokens_CompareByIdentity(t *testing.T) {
	first := container.NewSymbol("db")
	second := container.NewSymbol("db")
	c := mustNew(t,
		container.Value(first, "primary"),
		container.Value(second, "replica"),
	)

	got, err := c.Get(first)
	require.NoError(t, err)
	assert.Equal(t, "primary", got)
	got, err = c.Get(second)
	require.NoError(t, err)
	assert.Equal(t, "replica", got)
	assert.Equal(t, "Symbol(db)", container.Stringify(first))
}

// ── Errors ────────────────────────────────────────────────────────────────────

func TestGet_ProviderNotFound(t *testing.T) {
	c := mustNew(t)

	_, err := c.Get("missing")
	require.ErrorIs(t, err, container.ErrServiceNotCreated)
	require.ErrorIs(t, err, container.ErrProviderNotFound)
	assert.Equal(t, `Service for "missing" could not be created. Reason: `+
		`No provider for "missing" was found; are you certain you provided it during configuration?`, err.Error())
}

func TestGet_DanglingAliasReportsResolvedToken(t *testing.T) {
	c := mustNew(t, container.Alias("A", "B"))

	_, err := c.Get("A")
	require.ErrorIs(t, err, container.ErrProviderNotFound)
	assert.Contains(t, err.Error(), `No provider for "B" was found`)
}

func TestGet_MissingDependencyIsWrapped(t *testing.T) {
	c := mustNew(t, container.FactoryProvider{Token: "Car", Factory: newCarFactory})

	_, err := c.Get("Car")
	require.ErrorIs(t, err, container.ErrServiceNotCreated)
	require.ErrorIs(t, err, container.ErrProviderNotFound)
	assert.Equal(t, `Service for "Car" could not be created. Reason: `+
		`Service for "Engine" could not be created. Reason: `+
		`No provider for "Engine" was found; are you certain you provided it during configuration?`, err.Error())

	var cerr *container.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Car", cerr.Token)
}

func TestGet_FactoryFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		provider container.Provider
		want     string
	}{
		{"returned error", container.FactoryProvider{Token: "svc", Factory: func(*container.Container) (any, error) {
			return nil, boom
		}}, `Service for "svc" could not be created. Reason: boom`},
		{"panic", container.FactoryProvider{Token: "svc", Factory: func(*container.Container) (any, error) {
			panic("kaput")
		}}, `Service for "svc" could not be created. Reason: kaput`},
		{"constructor error", container.ClassProvider{Token: "svc", Class: NewBrokenEngine},
			`Service for "svc" could not be created. Reason: no fuel`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustNew(t, tt.provider)

			_, err := c.Get("svc")
			require.ErrorIs(t, err, container.ErrServiceNotCreated)
			assert.Equal(t, tt.want, err.Error())
			assert.False(t, errors.Is(err, container.ErrProviderNotFound))
		})
	}

	c := mustNew(t, container.FactoryProvider{Token: "svc", Factory: func(*container.Container) (any, error) {
		return nil, boom
	}})
	_, err := c.Get("svc")
	assert.ErrorIs(t, err, boom)
}

func TestRegister_InvalidConstructorArity(t *testing.T) {
	c, err := container.New([]container.Provider{
		container.ClassProvider{Token: "Engine", Class: NewEngineWithPower},
	})

	assert.Nil(t, c)
	require.ErrorIs(t, err, container.ErrInvalidConstructor)
	assert.Equal(t, `An invalid class, "NewEngineWithPower", was provided; `+
		`expected a default (no-argument) constructor.`, err.Error())
}

func TestRegister_InvalidClass(t *testing.T) {
	tests := []struct {
		name  string
		class any
		want  string
	}{
		{"string", "Engine", "Unable to instantiate class (Engine is not constructable)."},
		{"number", 42, "Unable to instantiate class (42 is not constructable)."},
		{"struct value", Engine{}, "Unable to instantiate class ({0} is not constructable)."},
		{"no result", func() {}, "is not constructable"},
		{"interface type", container.Class[error]("x").Class, "Unable to instantiate class (error is not constructable)."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustNew(t)
			_, err := c.AddProvider(container.ClassProvider{Token: "Engine", Class: tt.class})

			require.ErrorIs(t, err, container.ErrInvalidClass)
			assert.Contains(t, err.Error(), tt.want)
			assert.False(t, c.Has("Engine"))
		})
	}
}

func TestRegister_InvalidProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider container.Provider
		want     string
	}{
		{"nil", nil, "[null]."},
		{"nil factory", container.FactoryProvider{Token: "svc"}, `[{"factory":"null","token":"svc"}].`},
		{"nil class", container.ClassProvider{Token: "svc"}, `[{"class":"null","token":"svc"}].`},
		{"nil alias target", container.AliasProvider{Token: "svc"}, `[{"alias":"null","token":"svc"}].`},
		{"nil token", container.Value(nil, 1), `[{"token":"null","value":"1"}].`},
		{"uncomparable token", container.Value([]string{"a"}, 1), `[{"token":"[a]","value":"1"}].`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := container.New([]container.Provider{tt.provider})

			require.ErrorIs(t, err, container.ErrInvalidProvider)
			assert.Equal(t, "An invalid provider definition has been detected; "+
				"only instances of Provider are allowed, got: "+tt.want, err.Error())
		})
	}
}

func TestRegisterAll_StopsAtInvalidProvider(t *testing.T) {
	c := mustNew(t)

	_, err := c.RegisterAll(
		container.Value("before", 1),
		nil,
		container.Value("after", 2),
	)

	require.ErrorIs(t, err, container.ErrInvalidProvider)
	assert.True(t, c.Has("before"))
	assert.False(t, c.Has("after"))
}

func TestResolve_TypeMismatch(t *testing.T) {
	c := mustNew(t, container.Value("Engine", "fake"))

	_, err := container.Resolve[*Engine](c, "Engine")
	require.ErrorIs(t, err, container.ErrTypeMismatch)

	assert.Panics(t, func() { container.MustResolve[*Engine](c, "Engine") })
	assert.Equal(t, "fake", container.MustResolve[string](c, "Engine"))
}

// ── Introspection ─────────────────────────────────────────────────────────────

func TestEntries(t *testing.T) {
	c := mustNew(t,
		container.Value("value", 1),
		container.ClassProvider{Token: "class", Class: NewEngine},
		container.FactoryProvider{Token: "factory", Factory: newCarFactory},
		container.Alias("alias", "class"),
	)
	_, err := c.Get("alias")
	require.NoError(t, err)

	assert.True(t, c.Initialized())
	assert.Equal(t, []container.Entry{
		{Token: "alias", Kind: container.KindAlias, Target: "class", Cached: true},
		{Token: "class", Kind: container.KindClass, Cached: true},
		{Token: "factory", Kind: container.KindFactory},
		{Token: "value", Kind: container.KindValue, Cached: true},
	}, c.Entries())
}
