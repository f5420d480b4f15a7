package keel

import (
	"context"
	"sync"
	"sync/atomic"

	godi "github.com/xraph/go-utils/di"
	"go.uber.org/zap"

	"github.com/xraph/keel/prepare"
)

// ComponentTypePrepare tags the infrastructure services run by CoreContainer.Setup.
// User components tagged with it are prepared too, after the core ones.
const ComponentTypePrepare = "prepare"

// Well-known names of the services registered during bootstrap.
var (
	ContainerKey = NewServiceKey[*Container]("Container")
	LoggerKey    = NewServiceKey[Logger]("Logger")
	EngineKey    = NewServiceKey[*Engine]("IocEngine")
	AdapterKey   = NewServiceKey[Adapter]("HttpAdapter")

	MiddlewarePreparerKey = NewServiceKey[*prepare.Middleware]("MiddlewarePreparer")
	ConfigPreparerKey     = NewServiceKey[*prepare.Config]("ConfigPreparer")
	WebSocketPreparerKey  = NewServiceKey[*prepare.WebSocket]("WebSocketPreparer")
	ValidatorPreparerKey  = NewServiceKey[*prepare.Validator]("ValidatorPreparer")
	StaticPreparerKey     = NewServiceKey[*prepare.Static]("StaticPreparer")
)

// CoreContainer owns a Container and brings up the core infrastructure
// services in a fixed order, tracking progress as a Phase.
//
// A bootstrap that fails leaves the phase where it stopped; the instance is
// unusable afterwards.
//
// Phase listeners run synchronously on the goroutine that changes the phase.
// They may query the core but must not call Bootstrap.
type CoreContainer struct {
	container   *Container
	phase       *phaseMachine
	logger      Logger
	initialized atomic.Bool

	// mu serializes Bootstrap and guards failure.
	mu      sync.Mutex
	failure error
}

// NewCore creates a core container. Options configure the owned Container.
func NewCore(opts ...Option) *CoreContainer {
	return &CoreContainer{
		container: New(opts...),
		phase:     newPhaseMachine(),
	}
}

// Bootstrap registers, in order: the owned container, the logger, the
// resolution engine, the HTTP adapter and the prepare services. The phase
// advances after each group, ending at PhaseUserComponentsScan.
func (c *CoreContainer) Bootstrap(adapter Adapter, logger Logger) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized.Load() {
		return ErrAlreadyInitialized
	}

	if c.failure != nil {
		return ErrBootstrapFailed(c.failure)
	}

	if isNil(adapter) {
		return ErrInvalidArgument("adapter")
	}

	if isNil(logger) {
		return ErrInvalidArgument("logger")
	}

	c.logger = logger

	steps := []struct {
		name string
		run  func() error
	}{
		{"container", func() error {
			return c.container.RegisterInstance(ContainerKey.Name(), c.container)
		}},
		{"logger", func() error {
			return c.container.RegisterInstance(LoggerKey.Name(), logger)
		}},
		{"ioc engine", func() error {
			return c.container.Register(EngineKey.Name(), Construct[Engine](),
				InjectKey("Container", ContainerKey),
				InjectKey("Logger", LoggerKey),
			)
		}},
		{"http adapter", func() error {
			return c.container.RegisterInstance(AdapterKey.Name(), adapter)
		}},
		{"prepare services", c.registerPrepareServices},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			c.failure = err
			logger.Error("core bootstrap failed",
				zap.String("step", step.name),
				zap.Stringer("phase", c.phase.Current()),
				zap.Error(err),
			)

			return err
		}

		next := c.phase.Advance()
		logger.Info("core bootstrap step complete",
			zap.String("step", step.name),
			zap.Stringer("phase", next),
		)
	}

	c.initialized.Store(true)
	logger.Info("core container initialized",
		zap.String("container", c.container.ID()),
		zap.Int("services", len(c.container.Services())),
	)

	return nil
}

// registerPrepareServices registers the infrastructure services. Each one
// depends only on services registered before it.
func (c *CoreContainer) registerPrepareServices() error {
	tag := WithComponentType(ComponentTypePrepare)

	return RegisterServices(c.container,
		Service(MiddlewarePreparerKey.Name(), Construct[prepare.Middleware](),
			InjectKey("Adapter", AdapterKey),
			InjectKey("Logger", LoggerKey),
			tag,
		),
		Service(ConfigPreparerKey.Name(), Construct[prepare.Config](),
			InjectKey("Logger", LoggerKey),
			tag,
		),
		Service(WebSocketPreparerKey.Name(), Construct[prepare.WebSocket](),
			InjectKey("Adapter", AdapterKey),
			InjectKey("Logger", LoggerKey),
			tag,
		),
		Service(ValidatorPreparerKey.Name(), Construct[prepare.Validator](),
			InjectKey("Logger", LoggerKey),
			tag,
		),
		Service(StaticPreparerKey.Name(), Construct[prepare.Static](),
			InjectKey("Adapter", AdapterKey),
			InjectKey("Logger", LoggerKey),
			InjectKey("Config", ConfigPreparerKey),
			tag,
		),
	)
}

// Resolve resolves name from the owned container. A name that was never
// registered fails with a SERVICE_NOT_REGISTERED error, distinct from the
// container's own missing-dependency errors.
func (c *CoreContainer) Resolve(ctx context.Context, name string) (any, error) {
	if !c.container.Has(name) {
		return nil, ErrServiceNotRegistered(name)
	}

	return c.container.ResolveContext(ctx, name)
}

// RegisterComponents installs user components through the resolution engine
// and moves the phase to PhaseUserComponentsInit unless it is already past it.
func (c *CoreContainer) RegisterComponents(ctx context.Context, descriptors ...Descriptor) error {
	if !c.IsInitialized() {
		return ErrNotInitialized
	}

	if c.Phase() < PhaseUserComponentsScan {
		c.phase.Set(PhaseUserComponentsScan)
	}

	engine, err := ResolveWithKey(c.container, EngineKey)
	if err != nil {
		return err
	}

	if err := engine.Install(ctx, descriptors...); err != nil {
		return err
	}

	if c.Phase() < PhaseUserComponentsInit {
		c.phase.Set(PhaseUserComponentsInit)
	}

	return nil
}

// Setup runs Prepare on every service tagged ComponentTypePrepare, in
// registration order, then sets PhaseApplicationSetup.
func (c *CoreContainer) Setup(ctx context.Context) error {
	if !c.IsInitialized() {
		return ErrNotInitialized
	}

	preparers, err := GetAll[Preparer](c.container, ComponentTypePrepare)
	if err != nil {
		return err
	}

	for _, p := range preparers {
		if err := p.Prepare(ctx); err != nil {
			return NewServiceError(godi.ServiceName(p), "prepare", err)
		}
	}

	c.phase.Set(PhaseApplicationSetup)
	c.logger.Info("application setup complete", zap.Int("prepared", len(preparers)))

	return nil
}

// Container returns the owned container.
func (c *CoreContainer) Container() *Container {
	return c.container
}

// Phase returns the current bootstrap phase.
func (c *CoreContainer) Phase() Phase {
	return c.phase.Current()
}

// SetPhase assigns the phase directly. No ordering is enforced; it is meant
// for orchestration code driving the later phases.
func (c *CoreContainer) SetPhase(phase Phase) {
	c.phase.Set(phase)
}

// OnPhaseChange registers a listener called after every phase change.
func (c *CoreContainer) OnPhaseChange(listener PhaseListener) {
	c.phase.OnChange(listener)
}

// IsInitialized reports whether Bootstrap completed.
func (c *CoreContainer) IsInitialized() bool {
	return c.initialized.Load()
}
