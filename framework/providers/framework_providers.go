package providers

import (
	"go.uber.org/zap"

	"github.com/km-arc/go-provide/framework/config"
	"github.com/km-arc/go-provide/framework/container"
	"github.com/km-arc/go-provide/framework/debug"
	"github.com/km-arc/go-provide/framework/logging"
	"github.com/km-arc/go-provide/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the application configuration.
//
// Bound tokens:
//   - "config"        → *config.Config
//   - "configuration" → alias of "config"
//
// When Config is nil the configuration is loaded from EnvFiles on first use.
type ConfigServiceProvider struct {
	container.BaseProvider
	Config   *config.Config
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register() []container.Provider {
	if p.Config != nil {
		return []container.Provider{
			container.Value("config", p.Config),
			container.Alias("configuration", "config"),
		}
	}
	envFiles := p.EnvFiles
	return []container.Provider{
		container.FactoryProvider{Token: "config", Factory: func(*container.Container) (any, error) {
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		}},
		container.Alias("configuration", "config"),
	}
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider binds the application logger.
//
// Bound tokens:
//   - "logger" → *zap.Logger
//   - "log"    → alias of "logger"
//
// When Logger is nil the logger is built from the "config" service on first
// use.
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LoggingServiceProvider) Register() []container.Provider {
	if p.Logger != nil {
		return []container.Provider{
			container.Value("logger", p.Logger),
			container.Alias("log", "logger"),
		}
	}
	return []container.Provider{
		container.FactoryProvider{Token: "logger", Factory: func(c *container.Container) (any, error) {
			cfg, err := container.Resolve[*config.Config](c, "config")
			if err != nil {
				return nil, err
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return nil, err
			}
			return logger, nil
		}},
		container.Alias("log", "logger"),
	}
}

// ── DebugServiceProvider ──────────────────────────────────────────────────────

// DebugServiceProvider binds the HTTP router with the container inspector
// mounted on it. It is deferred: nothing is registered until "router" or
// "inspector" is first resolved.
//
// Bound tokens:
//   - "inspector" → *debug.Inspector
//   - "router"    → *routing.Router
//
// Configuration read from "config": Debug.Prefix.
type DebugServiceProvider struct {
	container.BaseProvider
}

func (p *DebugServiceProvider) IsDeferred() bool { return true }

func (p *DebugServiceProvider) Provides() []container.Token {
	return []container.Token{"inspector", "router"}
}

func (p *DebugServiceProvider) Register() []container.Provider {
	return []container.Provider{
		container.FactoryProvider{Token: "inspector", Factory: func(c *container.Container) (any, error) {
			logger, err := container.Resolve[*zap.Logger](c, "logger")
			if err != nil {
				return nil, err
			}
			return debug.NewInspector(c, logger.Named("debug")), nil
		}},
		container.FactoryProvider{Token: "router", Factory: func(c *container.Container) (any, error) {
			cfg, err := container.Resolve[*config.Config](c, "config")
			if err != nil {
				return nil, err
			}
			logger, err := container.Resolve[*zap.Logger](c, "logger")
			if err != nil {
				return nil, err
			}
			inspector, err := container.Resolve[*debug.Inspector](c, "inspector")
			if err != nil {
				return nil, err
			}
			router := routing.New(logger.Named("http"))
			inspector.Mount(router, cfg.Debug.Prefix)
			return router, nil
		}},
	}
}
