// Package debug exposes a read-only HTTP view of a container's registry.
package debug

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/km-arc/go-provide/framework/container"
	gohttp "github.com/km-arc/go-provide/framework/http"
	"github.com/km-arc/go-provide/framework/routing"
)

// Inspector serves the registered tokens of a container as JSON.
//
//	GET {prefix}/tokens          every registered token
//	GET {prefix}/tokens/{token}  one token, matched by its printed form
//	GET {prefix}/metrics         registry gauges in Prometheus format
type Inspector struct {
	c       *container.Container
	log     *zap.Logger
	metrics *prometheus.Registry
}

// EntryView is the JSON form of a container.Entry.
type EntryView struct {
	Token  string `json:"token"`
	Kind   string `json:"kind"`
	Target string `json:"target,omitempty"`
	Cached bool   `json:"cached"`
}

// TokenView adds the result of Has to an EntryView.
type TokenView struct {
	EntryView
	Has bool `json:"has"`
}

// NewInspector creates an Inspector over c. A nil logger is replaced by a
// no-op one.
func NewInspector(c *container.Container, logger *zap.Logger) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(c))
	return &Inspector{c: c, log: logger, metrics: reg}
}

// Mount registers the inspector routes on r under prefix.
func (i *Inspector) Mount(r *routing.Router, prefix string) {
	r.Prefix(prefix, func(sub *routing.Router) {
		sub.Get("/tokens", i.listTokens)
		sub.Get("/tokens/{token}", i.showToken)
		sub.Get("/metrics", promhttp.HandlerFor(i.metrics, promhttp.HandlerOpts{}).ServeHTTP)
	})
	i.log.Info("container inspector mounted", zap.String("prefix", prefix))
}

func (i *Inspector) listTokens(w http.ResponseWriter, _ *http.Request) {
	entries := i.c.Entries()
	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, viewOf(e))
	}
	gohttp.NewResponse(w).Success(views)
}

func (i *Inspector) showToken(w http.ResponseWriter, req *http.Request) {
	res := gohttp.NewResponse(w)

	name := routing.Param(req, "token")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	for _, e := range i.c.Entries() {
		if container.Stringify(e.Token) != name {
			continue
		}
		res.Success(TokenView{EntryView: viewOf(e), Has: i.c.Has(e.Token)})
		return
	}
	res.NotFound(fmt.Sprintf("token \"%s\" is not registered", name))
}

func viewOf(e container.Entry) EntryView {
	v := EntryView{
		Token:  container.Stringify(e.Token),
		Kind:   string(e.Kind),
		Cached: e.Cached,
	}
	if e.Kind == container.KindAlias {
		v.Target = container.Stringify(e.Target)
	}
	return v
}
