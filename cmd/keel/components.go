package main

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xraph/keel"
	"github.com/xraph/keel/prepare"
)

const (
	greeterName    = "GreetingService"
	controllerName = "HelloController"
	listenerName   = "RequestListener"

	componentTypeController = "controller"
	componentTypeListener   = "listener"

	greetingKey     = prepare.EnvPrefix + "GREETING"
	defaultGreeting = "hello"
)

// GreetingService builds greetings. The salutation comes from APP_GREETING,
// read through the config preparer on each call.
type GreetingService struct {
	Logger keel.Logger
	Config *keel.Lazy[*prepare.Config]
}

func (g *GreetingService) Greet(name string) string {
	if name == "" {
		name = "world"
	}

	salutation := defaultGreeting
	if g.Config != nil {
		if cfg, err := g.Config.Get(); err == nil {
			salutation = cfg.Get(greetingKey, defaultGreeting)
		} else {
			g.Logger.Warn("config unavailable", zap.Error(err))
		}
	}

	g.Logger.Info("greeting", zap.String("name", name))

	return fmt.Sprintf("%s, %s", salutation, name)
}

// RequestListener observes handled requests.
type RequestListener interface {
	OnRequest(path string)
}

type auditListener struct {
	Logger keel.Logger
}

func (a *auditListener) OnRequest(path string) {
	a.Logger.Info("audit", zap.String("path", path))
}

type countingListener struct {
	count atomic.Int64
}

func (c *countingListener) OnRequest(string) {
	c.count.Add(1)
}

// HelloController answers GET /hello/{name}.
type HelloController struct {
	Greeter   *GreetingService
	Listeners []RequestListener
}

func (h *HelloController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, l := range h.Listeners {
		l.OnRequest(r.URL.Path)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, h.Greeter.Greet(chi.URLParam(r, "name")))
}

// demoComponents are listed out of dependency order; the engine sorts them.
func demoComponents(c *keel.Container) []keel.Descriptor {
	greeter := func() (any, error) {
		return &GreetingService{
			Config: keel.NewLazy[*prepare.Config](c, keel.ConfigPreparerKey.Name()),
		}, nil
	}

	return []keel.Descriptor{
		keel.Service(controllerName, keel.Construct[HelloController](),
			keel.Inject("Greeter", greeterName),
			keel.InjectStrategy("Listeners", listenerName),
			keel.WithComponentType(componentTypeController),
			keel.WithMetadata("route", "/hello/{name}"),
		),
		keel.Service(greeterName, greeter,
			keel.InjectKey("Logger", keel.LoggerKey),
		),
		keel.Service(listenerName, keel.Construct[auditListener](),
			keel.InjectKey("Logger", keel.LoggerKey),
			keel.WithComponentType(componentTypeListener),
		),
		keel.Service(listenerName, keel.Construct[countingListener](),
			keel.WithComponentType(componentTypeListener),
		),
	}
}
