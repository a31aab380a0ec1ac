package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-provide/framework/app"
	"github.com/km-arc/go-provide/framework/config"
	"github.com/km-arc/go-provide/framework/container"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func newApp(t *testing.T, debug bool) *app.Application {
	t.Helper()
	enabled := "false"
	if debug {
		enabled = "true"
	}
	setEnv(t, map[string]string{
		"APP_NAME":      "kernel-test",
		"APP_ENV":       "testing",
		"LOG_LEVEL":     "error",
		"LOG_FORMAT":    "json",
		"DEBUG_ENABLED": enabled,
		"DEBUG_ADDR":    "127.0.0.1:0",
		"DEBUG_PREFIX":  "/debug/container",
	})
	a, err := app.New("testdata/missing.env")
	require.NoError(t, err)
	return a
}

type greeter struct{ name string }

type greeterProvider struct{ container.BaseProvider }

func (p *greeterProvider) Register() []container.Provider {
	return []container.Provider{
		container.FactoryProvider{Token: "greeter", Factory: func(c *container.Container) (any, error) {
			cfg, err := container.Resolve[*config.Config](c, "configuration")
			if err != nil {
				return nil, err
			}
			return &greeter{name: "hello from " + cfg.App.Name}, nil
		}},
	}
}

func TestNew_BindsFrameworkServices(t *testing.T) {
	a := newApp(t, false)

	assert.Equal(t, "kernel-test", a.Config().App.Name)
	assert.NotNil(t, a.Logger())
	assert.True(t, a.Has("config"))
	assert.True(t, a.Has("configuration"))
	assert.True(t, a.Has("logger"))
	assert.True(t, a.Has("router"))
}

func TestNew_BadLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	_, err := app.New("testdata/missing.env")
	assert.Error(t, err)
}

func TestEnvironmentHelpers(t *testing.T) {
	a := newApp(t, false)

	assert.Equal(t, "testing", a.Environment())
	assert.True(t, a.IsTesting())
	assert.False(t, a.IsLocal())
	assert.False(t, a.IsProduction())
	assert.False(t, a.IsDebug())
}

func TestRegister_UserProvider(t *testing.T) {
	a := newApp(t, false)
	require.NoError(t, a.Register(&greeterProvider{}))
	require.NoError(t, a.Boot())

	g, err := container.Resolve[*greeter](a.Container, "greeter")
	require.NoError(t, err)
	assert.Equal(t, "hello from kernel-test", g.name)
}

func TestRegister_InvalidProviderIsWrapped(t *testing.T) {
	a := newApp(t, false)

	err := a.Register(&loopProvider{})
	require.ErrorIs(t, err, container.ErrCyclicAlias)
	assert.Contains(t, err.Error(), "register *app_test.loopProvider: ")
}

type loopProvider struct{ container.BaseProvider }

func (p *loopProvider) Register() []container.Provider {
	return []container.Provider{container.Alias("a", "b"), container.Alias("b", "a")}
}

func TestRouter_ServesInspector(t *testing.T) {
	a := newApp(t, true)

	router, err := a.Router()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/container/tokens", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"token":"configuration"`)
}

func TestRun_StopsWhenContextEnds(t *testing.T) {
	for _, debug := range []bool{false, true} {
		a := newApp(t, debug)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- a.Run(ctx) }()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err, "debug=%v", debug)
		case <-time.After(5 * time.Second):
			t.Fatalf("Run did not return (debug=%v)", debug)
		}
		assert.True(t, a.Providers.Booted())
	}
}
