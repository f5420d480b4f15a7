package keel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

// Test components.
type (
	nodeD struct{ id int }
	nodeB struct{ D *nodeD }
	nodeC struct{ D *nodeD }
	nodeA struct {
		B *nodeB
		C *nodeC
	}

	cycleNode struct{ Next *cycleNode }

	listener interface{ Name() string }

	namedListener struct{ name string }

	dispatcher struct {
		Listeners []listener
	}

	single struct {
		Primary listener
	}

	disposable struct {
		name  string
		err   error
		order *[]string
	}
)

func (l *namedListener) Name() string { return l.name }

func (d *disposable) Dispose() error {
	*d.order = append(*d.order, d.name)

	return d.err
}

// stoppable implements both release hooks; Close must call only Stop.
type stoppable struct {
	disposable
	ctx context.Context
}

func (s *stoppable) Stop(ctx context.Context) error {
	s.ctx = ctx
	*s.order = append(*s.order, "stop:"+s.name)

	return s.err
}

func registerCycle(t *testing.T, c *Container, names ...string) {
	t.Helper()

	for i, name := range names {
		next := names[(i+1)%len(names)]
		require.NoError(t, c.Register(name, Construct[cycleNode](), Transient(), Inject("Next", next)))
	}
}

func TestContainer_CircularChains(t *testing.T) {
	tests := []struct {
		name  string
		chain []string
		want  string
	}{
		{"self", []string{"ServiceA"}, "ServiceA -> ServiceA"},
		{"pair", []string{"ServiceA", "ServiceB"}, "ServiceA -> ServiceB -> ServiceA"},
		{"triple", []string{"ServiceA", "ServiceB", "ServiceC"}, "ServiceA -> ServiceB -> ServiceC -> ServiceA"},
		{
			"five",
			[]string{"S1", "S2", "S3", "S4", "S5"},
			"S1 -> S2 -> S3 -> S4 -> S5 -> S1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			registerCycle(t, c, tt.chain...)

			_, err := c.Resolve(tt.chain[0])
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCircularDependencySentinel))
			assert.Contains(t, err.Error(), tt.want)

			cycle, ok := CycleOf(err)
			require.True(t, ok)
			assert.Equal(t, append(append([]string(nil), tt.chain...), tt.chain[0]), cycle)
			assert.True(t, c.detector.IsEmpty())
		})
	}
}

func TestContainer_SingletonSelfDependency(t *testing.T) {
	c := New()

	err := c.Register("ServiceA", Construct[cycleNode](), Inject("Next", "ServiceA"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircularDependencySentinel))
	assert.Contains(t, err.Error(), "ServiceA -> ServiceA")

	assert.False(t, c.Has("ServiceA"), "failed eager registration is withdrawn")
	assert.Empty(t, c.Services())
	assert.True(t, c.detector.IsEmpty())
}

func TestContainer_DiamondSharesSingleton(t *testing.T) {
	c := New()
	builds := 0

	require.NoError(t, c.Register("D", func() (any, error) {
		builds++

		return &nodeD{id: builds}, nil
	}))
	require.NoError(t, c.Register("B", Construct[nodeB](), Inject("D", "D")))
	require.NoError(t, c.Register("C", Construct[nodeC](), Inject("D", "D")))
	require.NoError(t, c.Register("A", Construct[nodeA](), Transient(), Inject("B", "B"), Inject("C", "C")))

	a, err := Resolve[*nodeA](c, "A")
	require.NoError(t, err)
	require.NotNil(t, a.B)
	require.NotNil(t, a.C)
	assert.Same(t, a.B.D, a.C.D)
	assert.Equal(t, 1, builds)
}

func TestContainer_TransientDiamondBuildsFreshSubtree(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("D", Construct[nodeD](), Transient()))
	require.NoError(t, c.Register("B", Construct[nodeB](), Transient(), Inject("D", "D")))
	require.NoError(t, c.Register("C", Construct[nodeC](), Transient(), Inject("D", "D")))
	require.NoError(t, c.Register("A", Construct[nodeA](), Transient(), Inject("B", "B"), Inject("C", "C")))

	a, err := Resolve[*nodeA](c, "A")
	require.NoError(t, err)
	assert.NotSame(t, a.B.D, a.C.D)
}

func TestContainer_FailureDoesNotAffectUnrelated(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("Y", Construct[nodeD]()))
	registerCycle(t, c, "X1", "X2")

	before, err := c.Resolve("Y")
	require.NoError(t, err)

	_, err = c.Resolve("X1")
	require.Error(t, err)
	assert.True(t, c.detector.IsEmpty())

	after, err := c.Resolve("Y")
	require.NoError(t, err)
	assert.Same(t, before, after)

	require.NoError(t, c.Register("Z", Construct[nodeB](), Inject("D", "Y")))
}

func TestContainer_MultiEntryPreservesOrder(t *testing.T) {
	c := New()
	first := &nodeD{id: 1}
	second := &nodeD{id: 2}

	require.NoError(t, c.Register("L", func() (any, error) { return first, nil }))

	single, err := c.Resolve("L")
	require.NoError(t, err)
	assert.Same(t, first, single)

	require.NoError(t, c.Register("L", func() (any, error) { return second, nil }))

	list, err := c.Resolve("L")
	require.NoError(t, err)
	assert.Equal(t, []any{first, second}, list)

	typed, err := ResolveAll[*nodeD](c, "L")
	require.NoError(t, err)
	assert.Equal(t, []*nodeD{first, second}, typed)

	assert.Equal(t, 2, c.Inspect("L").Entries)
}

func TestContainer_SingletonAndTransientIdentity(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("single", Construct[nodeD]()))
	require.NoError(t, c.Register("fresh", Construct[nodeD](), Transient()))

	s1, err := c.Resolve("single")
	require.NoError(t, err)
	s2, err := c.Resolve("single")
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	t1, err := c.Resolve("fresh")
	require.NoError(t, err)
	t2, err := c.Resolve("fresh")
	require.NoError(t, err)
	assert.NotSame(t, t1, t2)
}

func TestContainer_SingletonBuiltEagerly(t *testing.T) {
	c := New()
	calls := 0

	require.NoError(t, c.Register("eager", func() (any, error) {
		calls++

		return &nodeD{}, nil
	}))
	assert.Equal(t, 1, calls)
	assert.True(t, c.Inspect("eager").Instantiated)

	require.NoError(t, c.Register("lazy", func() (any, error) {
		calls++

		return &nodeD{}, nil
	}, Transient()))
	assert.Equal(t, 1, calls)
	assert.False(t, c.Inspect("lazy").Instantiated)
}

func TestContainer_SingletonNeedsRegisteredDependencies(t *testing.T) {
	c := New()

	err := c.Register("B", Construct[nodeB](), Inject("D", "D"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingDependencySentinel))
	assert.Contains(t, err.Error(), "dependency 'D' for field 'D' of 'B' cannot be null")
	assert.False(t, c.Has("B"))

	require.NoError(t, c.Register("D", Construct[nodeD]()))
	require.NoError(t, c.Register("B", Construct[nodeB](), Inject("D", "D")))
}

func TestContainer_Unregistered(t *testing.T) {
	c := New()

	_, err := c.Resolve("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServiceNotFoundSentinel))
	assert.Contains(t, err.Error(), "missing instance")
}

func TestContainer_NilInstances(t *testing.T) {
	c := New()
	none := func() (any, error) { return nil, nil }

	require.NoError(t, c.Register("nothing", none))

	v, err := c.Resolve("nothing")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Register("consumer", Construct[nodeB](), Transient(), Inject("D", "nothing")))

	_, err = c.Resolve("consumer")
	assert.True(t, errors.Is(err, ErrMissingDependencySentinel))

	require.NoError(t, c.Register("empty", none))
	require.NoError(t, c.Register("empty", none, Transient()))

	_, err = c.Resolve("empty")
	assert.True(t, errors.Is(err, ErrEmptyInstanceListSentinel))

	require.NoError(t, c.Register("partial", none))
	require.NoError(t, c.Register("partial", Construct[nodeD]()))

	list, err := c.Resolve("partial")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestContainer_StrategyInjection(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("Listener", func() (any, error) { return &namedListener{name: "audit"}, nil }))
	require.NoError(t, c.Register("Listener", func() (any, error) { return &namedListener{name: "count"}, nil }))
	require.NoError(t, c.Register("Primary", func() (any, error) { return &namedListener{name: "primary"}, nil }))

	require.NoError(t, c.Register("dispatcher", Construct[dispatcher](),
		InjectStrategy("Listeners", "Listener"),
	))

	d, err := Resolve[*dispatcher](c, "dispatcher")
	require.NoError(t, err)
	require.Len(t, d.Listeners, 2)
	assert.Equal(t, "audit", d.Listeners[0].Name())
	assert.Equal(t, "count", d.Listeners[1].Name())

	require.NoError(t, c.Register("one", Construct[dispatcher](), InjectStrategy("Listeners", "Primary")))

	one, err := Resolve[*dispatcher](c, "one")
	require.NoError(t, err)
	require.Len(t, one.Listeners, 1)
	assert.Equal(t, "primary", one.Listeners[0].Name())

	require.NoError(t, c.Register("interface", Construct[single](), InjectStrategy("Primary", "Primary")))

	s, err := Resolve[*single](c, "interface")
	require.NoError(t, err)
	assert.Equal(t, "primary", s.Primary.Name())
}

func TestContainer_EmptyStrategyInterfaceSkipped(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("dispatcher", Construct[dispatcher](), InjectStrategy("Listeners", "")))

	d, err := Resolve[*dispatcher](c, "dispatcher")
	require.NoError(t, err)
	assert.Empty(t, d.Listeners)
}

func TestContainer_InjectionErrors(t *testing.T) {
	c := New()
	require.NoError(t, c.Register("D", Construct[nodeD]()))
	require.NoError(t, c.Register("L", func() (any, error) { return &namedListener{}, nil }))

	err := c.Register("wrongType", Construct[nodeB](), Inject("D", "L"))
	assert.True(t, errors.Is(err, ErrTypeMismatchSentinel))

	err = c.Register("noField", Construct[nodeB](), Inject("Missing", "D"))
	assert.True(t, errors.Is(err, ErrServiceErrorSentinel))

	err = c.Register("unexported", Construct[disposable](), Inject("name", "D"))
	assert.True(t, errors.Is(err, ErrServiceErrorSentinel))

	err = c.Register("notStruct", func() (any, error) { return "text", nil }, Inject("D", "D"))
	assert.True(t, errors.Is(err, ErrServiceErrorSentinel))

	assert.Equal(t, []string{"D", "L"}, c.Services())
}

func TestContainer_FactoryError(t *testing.T) {
	c := New()
	cause := errors.New("connection refused")

	err := c.Register("db", func() (any, error) { return nil, cause })
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrServiceErrorSentinel))
	assert.False(t, c.Has("db"))
}

func TestContainer_RegisterValidation(t *testing.T) {
	c := New()

	assert.True(t, errors.Is(c.Register("", Construct[nodeD]()), ErrInvalidDescriptorSentinel))
	assert.True(t, errors.Is(c.Register("x", nil), ErrInvalidFactory))
	assert.True(t, errors.Is(c.Register("x", Construct[nodeD](), WithLifecycle("scoped")), ErrInvalidDescriptorSentinel))
	assert.True(t, errors.Is(
		c.Register("x", Construct[nodeB](), Inject("D", "a"), Inject("D", "b")),
		ErrInvalidDescriptorSentinel,
	))
	assert.Empty(t, c.Services())
}

func TestContainer_RegisterInstance(t *testing.T) {
	c := New()
	instance := &nodeD{id: 7}

	require.NoError(t, c.RegisterInstance("value", instance, WithComponentType("values")))

	v, err := c.Resolve("value")
	require.NoError(t, err)
	assert.Same(t, instance, v)

	info := c.Inspect("value")
	assert.True(t, info.Instantiated)
	assert.Equal(t, "singleton", info.Lifecycle)
	assert.Equal(t, "*keel.nodeD", info.Type)

	var typedNil *nodeD
	assert.Error(t, c.RegisterInstance("nil", nil))
	assert.Error(t, c.RegisterInstance("typedNil", typedNil))
	assert.Error(t, c.RegisterInstance("", instance))
}

func TestContainer_DescriptorCopiedOnRegister(t *testing.T) {
	c := New()
	require.NoError(t, c.Register("D", Construct[nodeD]()))

	d := Describe("B", Construct[nodeB](), Transient(), Inject("D", "D"), WithMetadata("team", "core"))
	require.NoError(t, c.RegisterDescriptor(d))

	d.Dependencies[0].Key = "changed"
	d.Metadata["team"] = "changed"

	info := c.Inspect("B")
	assert.Equal(t, []string{"D"}, info.Dependencies)
	assert.Equal(t, "core", info.Metadata["team"])

	_, err := c.Resolve("B")
	require.NoError(t, err)
}

func TestContainer_GetAll(t *testing.T) {
	c := New()

	empty, err := c.GetAll("controller")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, c.Register("users", Construct[nodeD](), WithComponentType("controller")))
	require.NoError(t, c.Register("repo", Construct[nodeD](), WithComponentType("repository")))
	require.NoError(t, c.Register("orders", Construct[nodeD](), Transient(), WithComponentType("controller")))
	require.NoError(t, c.Register("nothing", func() (any, error) { return nil, nil }, WithComponentType("controller")))

	all, err := c.GetAll("controller")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	users, err := c.Resolve("users")
	require.NoError(t, err)
	assert.Same(t, users, all[0])

	typed, err := GetAll[*nodeD](c, "controller")
	require.NoError(t, err)
	assert.Len(t, typed, 2)
}

func TestContainer_GetAllMultiEntry(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("Listener", func() (any, error) { return &namedListener{name: "a"}, nil }, WithComponentType("listener")))
	require.NoError(t, c.Register("Listener", func() (any, error) { return &namedListener{name: "b"}, nil }, WithComponentType("listener")))

	all, err := c.GetAll("listener")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Len(t, all[0], 2)

	typed, err := GetAll[listener](c, "listener")
	require.NoError(t, err)
	require.Len(t, typed, 2)
	assert.Equal(t, "a", typed[0].Name())
}

func TestContainer_DeclareAndWarm(t *testing.T) {
	c := New()
	var order []string

	track := func(name string, v any) Factory {
		return func() (any, error) {
			order = append(order, name)

			return v, nil
		}
	}

	require.NoError(t, c.Declare("A", track("A", &nodeA{}), Inject("B", "B"), Inject("C", "C")))
	require.NoError(t, c.Declare("B", track("B", &nodeB{}), Inject("D", "D")))
	require.NoError(t, c.Declare("C", track("C", &nodeC{}), Inject("D", "D")))
	require.NoError(t, c.Declare("D", track("D", &nodeD{})))

	assert.Empty(t, order)
	assert.Len(t, FindPending(c), 4)

	require.NoError(t, c.Warm(context.Background()))
	assert.Equal(t, []string{"D", "B", "C", "A"}, order)
	assert.Empty(t, FindPending(c))

	a, err := Resolve[*nodeA](c, "A")
	require.NoError(t, err)
	assert.Same(t, a.B.D, a.C.D)
	assert.Len(t, order, 4)
}

func TestContainer_WarmCycle(t *testing.T) {
	c := New()

	require.NoError(t, c.Declare("A", Construct[cycleNode](), Inject("Next", "B")))
	require.NoError(t, c.Declare("B", Construct[cycleNode](), Inject("Next", "A")))

	err := c.Warm(context.Background())
	require.Error(t, err)

	cycle, ok := CycleOf(err)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "A"}, cycle)
}

func TestContainer_WarmCollectsFailures(t *testing.T) {
	c := New()

	require.NoError(t, c.Declare("bad1", func() (any, error) { return nil, errors.New("one") }))
	require.NoError(t, c.Declare("good", Construct[nodeD]()))
	require.NoError(t, c.Declare("bad2", func() (any, error) { return nil, errors.New("two") }))

	err := c.Warm(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.True(t, c.Inspect("good").Instantiated)
}

func TestContainer_Close(t *testing.T) {
	c := New()
	var order []string

	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, c.Register(name, func() (any, error) {
			return &disposable{name: name, order: &order}, nil
		}))
	}

	require.NoError(t, c.Register("transient", func() (any, error) {
		return &disposable{name: "transient", order: &order}, nil
	}, Transient()))
	_, err := c.Resolve("transient")
	require.NoError(t, err)

	require.NoError(t, c.RegisterInstance("external", &disposable{name: "external", order: &order}))

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, []string{"third", "second", "first"}, order)

	_, err = c.Resolve("first")
	assert.ErrorIs(t, err, ErrContainerClosed)
	assert.ErrorIs(t, c.Register("late", Construct[nodeD]()), ErrContainerClosed)
	assert.ErrorIs(t, c.RegisterInstance("late", &nodeD{}), ErrContainerClosed)
	assert.ErrorIs(t, c.Warm(context.Background()), ErrContainerClosed)

	_, err = c.GetAll("")
	assert.ErrorIs(t, err, ErrContainerClosed)

	require.NoError(t, c.Close(context.Background()))
	assert.Len(t, order, 3)
}

func TestContainer_CloseStopsBeforeDispose(t *testing.T) {
	type ctxKey struct{}

	c := New()
	var order []string

	svc := &stoppable{disposable: disposable{name: "svc", order: &order}}
	require.NoError(t, c.Register("plain", func() (any, error) {
		return &disposable{name: "plain", order: &order}, nil
	}))
	require.NoError(t, c.Register("svc", func() (any, error) { return svc, nil }))

	ctx := context.WithValue(context.Background(), ctxKey{}, "close")
	require.NoError(t, c.Close(ctx))

	assert.Equal(t, []string{"stop:svc", "plain"}, order)
	assert.Equal(t, "close", svc.ctx.Value(ctxKey{}))
}

func TestContainer_CloseAggregatesErrors(t *testing.T) {
	c := New()
	var order []string

	require.NoError(t, c.Register("a", func() (any, error) {
		return &disposable{name: "a", err: errors.New("a failed"), order: &order}, nil
	}))
	require.NoError(t, c.Register("b", func() (any, error) {
		return &disposable{name: "b", err: errors.New("b failed"), order: &order}, nil
	}))

	err := c.Close(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestContainer_Inspect(t *testing.T) {
	c := New()

	assert.Equal(t, ServiceInfo{Name: "missing"}, c.Inspect("missing"))

	require.NoError(t, c.Register("D", Construct[nodeD]()))
	require.NoError(t, c.Register("B", Construct[nodeB](), Transient(),
		Inject("D", "D"),
		WithComponentType("service"),
		WithMetadata("owner", "team-a"),
	))

	info := c.Inspect("B")
	assert.Equal(t, "B", info.Name)
	assert.Equal(t, "transient", info.Lifecycle)
	assert.Equal(t, "service", info.ComponentType)
	assert.Equal(t, []string{"D"}, info.Dependencies)
	assert.Equal(t, "team-a", info.Metadata["owner"])
	assert.Equal(t, 1, info.Entries)
	assert.False(t, info.Instantiated)
	assert.Equal(t, "unknown", info.Type)
}

func TestContainer_ConcurrentResolve(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("D", Construct[nodeD]()))
	require.NoError(t, c.Register("B", Construct[nodeB](), Transient(), Inject("D", "D")))
	registerCycle(t, c, "X", "Y")

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()

			if _, err := c.Resolve("B"); err != nil {
				errs <- err
			}
		}()

		go func() {
			defer wg.Done()

			if _, err := c.Resolve("X"); !errors.Is(err, ErrCircularDependencySentinel) {
				errs <- errors.New("expected a circular dependency error")
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	assert.True(t, c.detector.IsEmpty())
}

func TestContainer_ID(t *testing.T) {
	assert.NotEmpty(t, New().ID())
	assert.NotEqual(t, New().ID(), New().ID())
}
