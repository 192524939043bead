package connector

import (
	"sync"

	"github.com/adetunji-o/relaypay/internal/telemetry"
)

// Connector is one external payment processor. Integrations returns only the
// flows the connector supports; the registry fills the gaps with an explicit
// not-implemented sentinel.
type Connector interface {
	Name() string
	Integration(flow Flow) (Integration, bool)
}

// Registry maps connector identifiers to their integrations. The set of
// connectors is open: registration happens at wiring time.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
	metrics    *telemetry.Metrics
}

func NewRegistry(metrics *telemetry.Metrics) *Registry {
	return &Registry{
		connectors: make(map[string]Connector),
		metrics:    metrics,
	}
}

func (r *Registry) Register(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[c.Name()] = c
}

// Connector looks up a registered connector by name.
func (r *Registry) Connector(name string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[name]
	return c, ok
}

// Resolve returns the integration serving (connector, flow). An unknown
// connector is an error; a known connector without the flow resolves to the
// not-implemented sentinel so the gap stays observable instead of panicking.
func (r *Registry) Resolve(name string, flow Flow) (Integration, error) {
	c, ok := r.Connector(name)
	if !ok {
		return nil, NewNotImplementedError("connector " + name)
	}

	integ, ok := c.Integration(flow)
	if !ok {
		r.metrics.UnimplementedFlows.WithLabelValues(name, string(flow)).Inc()
		return notImplemented{Base{Connector: name, Flow: flow}}, nil
	}

	return integ, nil
}

// SupportsAccessToken reports whether the named connector authenticates via
// the AccessTokenAuth flow.
func (r *Registry) SupportsAccessToken(name string) bool {
	c, ok := r.Connector(name)
	if !ok {
		return false
	}
	_, ok = c.(AccessTokenProvider)
	return ok
}

// notImplemented is the sentinel integration for unsupported (connector,
// flow) pairs. All defaults on Base already surface not-implemented errors.
type notImplemented struct {
	Base
}
