package keel

import "sync"

// Phase is a stage of the core bootstrap sequence. Phases are strictly ordered.
type Phase int

const (
	PhaseContainerInit Phase = iota
	PhaseLoggerInit
	PhaseIocEngineInit
	PhaseHTTPAdapterInit
	PhasePrepareServicesInit
	PhaseUserComponentsScan
	PhaseUserComponentsInit
	PhaseApplicationSetup
	PhaseServerReady
)

var phaseNames = [...]string{
	PhaseContainerInit:       "CONTAINER_INIT",
	PhaseLoggerInit:          "LOGGER_INIT",
	PhaseIocEngineInit:       "IOC_ENGINE_INIT",
	PhaseHTTPAdapterInit:     "HTTP_ADAPTER_INIT",
	PhasePrepareServicesInit: "PREPARE_SERVICES_INIT",
	PhaseUserComponentsScan:  "USER_COMPONENTS_SCAN",
	PhaseUserComponentsInit:  "USER_COMPONENTS_INIT",
	PhaseApplicationSetup:    "APPLICATION_SETUP",
	PhaseServerReady:         "SERVER_READY",
}

// Phases returns every phase in order.
func Phases() []Phase {
	phases := make([]Phase, len(phaseNames))
	for i := range phaseNames {
		phases[i] = Phase(i)
	}

	return phases
}

// String returns the phase name.
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "UNKNOWN"
	}

	return phaseNames[p]
}

// Next returns the following phase. The last phase is its own successor.
func (p Phase) Next() Phase {
	if p >= PhaseServerReady {
		return PhaseServerReady
	}

	return p + 1
}

// PhaseListener is notified after every phase change.
type PhaseListener func(from, to Phase)

// phaseMachine holds the current phase of a core container.
type phaseMachine struct {
	mu        sync.RWMutex
	current   Phase
	listeners []PhaseListener
}

func newPhaseMachine() *phaseMachine {
	return &phaseMachine{current: PhaseContainerInit}
}

// Current returns the current phase.
func (m *phaseMachine) Current() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current
}

// Set assigns the phase unconditionally.
func (m *phaseMachine) Set(to Phase) {
	m.mu.Lock()
	from := m.current
	m.current = to
	listeners := append([]PhaseListener(nil), m.listeners...)
	m.mu.Unlock()

	if from == to {
		return
	}

	for _, listener := range listeners {
		listener(from, to)
	}
}

// Advance moves to the next phase and returns it.
func (m *phaseMachine) Advance() Phase {
	next := m.Current().Next()
	m.Set(next)

	return next
}

// OnChange registers a listener.
func (m *phaseMachine) OnChange(listener PhaseListener) {
	if listener == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, listener)
}
