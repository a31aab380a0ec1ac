package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/km-arc/go-provide/framework/app"
	"github.com/km-arc/go-provide/framework/config"
	"github.com/km-arc/go-provide/framework/container"
	"github.com/km-arc/go-provide/framework/logging"
)

// ── Demo services ─────────────────────────────────────────────────────────────

type Engine interface {
	Power() int
}

type TurboEngine struct {
	power int
}

func (e *TurboEngine) Power() int { return e.power }

// Wheel has a usable zero value, so it can be registered with container.Class.
type Wheel struct {
	Size int
}

type Car struct {
	Engine Engine
	Wheel  *Wheel
}

func NewCar() *Car { return &Car{} }

var garageToken = container.NewSymbol("garage")

// CarServiceProvider wires the demo object graph.
type CarServiceProvider struct {
	container.BaseProvider
}

func (p *CarServiceProvider) Register() []container.Provider {
	return []container.Provider{
		container.Value("engine.power", 300),
		container.FactoryProvider{Token: "engine.turbo", Factory: func(c *container.Container) (any, error) {
			power, err := container.Resolve[int](c, "engine.power")
			if err != nil {
				return nil, err
			}
			return &TurboEngine{power: power}, nil
		}},
		container.Alias("engine", "engine.turbo"),
		container.Alias("motor", "engine"),
		container.Class[Wheel]("wheel"),
		container.ClassProvider{Token: "car.shell", Class: NewCar},
		container.FactoryProvider{Token: "car", Factory: func(c *container.Container) (any, error) {
			car, err := container.Resolve[*Car](c, "car.shell")
			if err != nil {
				return nil, err
			}
			if car.Engine, err = container.Resolve[Engine](c, "motor"); err != nil {
				return nil, err
			}
			if car.Wheel, err = container.Resolve[*Wheel](c, "wheel"); err != nil {
				return nil, err
			}
			return car, nil
		}},
		container.Value(garageToken, []string{"car"}),
	}
}

func (p *CarServiceProvider) Boot(c *container.Container) error {
	car, err := container.Resolve[*Car](c, "car")
	if err != nil {
		return err
	}
	logger := container.MustResolve[*zap.Logger](c, "logger")
	logger.Info("car assembled", zap.Int("power", car.Engine.Power()))
	return nil
}

var (
	bold  = color.New(color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
)

func printEntries(entries []container.Entry) {
	fmt.Println(bold("registered services"))
	for _, e := range entries {
		state := gray("lazy")
		if e.Cached {
			state = green("cached")
		}
		line := fmt.Sprintf("  %-14s %-8s %s", container.Stringify(e.Token), e.Kind, state)
		if e.Kind == container.KindAlias {
			line += gray(" -> " + container.Stringify(e.Target))
		}
		fmt.Println(line)
	}
}

func main() {
	application, err := app.New() // loads .env when present
	if err != nil {
		logging.Must(config.LogConfig{Level: "error"}).Fatal("bootstrap failed", zap.Error(err))
	}

	if err := application.Register(&CarServiceProvider{}); err != nil {
		application.Logger().Fatal("register failed", zap.Error(err))
	}
	if err := application.Boot(); err != nil {
		application.Logger().Fatal("boot failed", zap.Error(err))
	}

	printEntries(application.Entries())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		application.Logger().Fatal("run failed", zap.Error(err))
	}
}
