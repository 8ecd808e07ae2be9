package app

import (
	"time"

	"github.com/dkeye/Circles/internal/core"
	"github.com/dkeye/Circles/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	endReasonOwnerLeft = "owner_left"
	endReasonEmpty     = "empty"
	endReasonEvicted   = "evicted"
)

// Orchestrator is the membership coordinator. Every operation that touches a
// circle runs under that circle's lock, so store mutations, registry bindings
// and the events handed to the Router are ordered per circle.
type Orchestrator struct {
	Registry *Registry
	Circles  *CircleStore
	Router   *Router
	Metrics  *Metrics
	Now      func() time.Time
}

func NewOrchestrator(reg *Registry, circles *CircleStore, router *Router, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		Registry: reg,
		Circles:  circles,
		Router:   router,
		Metrics:  metrics,
		Now:      time.Now,
	}
}

// Connect registers a new connection's transport.
func (o *Orchestrator) Connect(sid core.SessionID, sig core.SignalConnection) {
	o.Registry.Attach(sid, sig)
	o.Metrics.connectionOpened()
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Msg("connected")
}

// OnDisconnect handles connection loss exactly like an explicit leave, then forgets the connection.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	o.Leave(sid)
	if _, ok := o.Registry.Signal(sid); ok {
		o.Metrics.connectionClosed()
	}
	o.Registry.Detach(sid)
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Msg("disconnected")
}

// EvictCircle ends code as if its owner had left. Returns false if it was not active.
func (o *Orchestrator) EvictCircle(code domain.CircleCode) bool {
	e, ok := o.Circles.acquire(code)
	if !ok {
		return false
	}
	defer e.mu.Unlock()
	o.endCircle(e, endReasonEvicted)
	return true
}

// EvictAll ends every active circle; used on shutdown so clients learn the circle is gone.
func (o *Orchestrator) EvictAll() int {
	n := 0
	for _, code := range o.Circles.Codes() {
		if o.EvictCircle(code) {
			n++
		}
	}
	return n
}

type Stats struct {
	StoreStats
	Connections int `json:"connections"`
}

func (o *Orchestrator) Stats() Stats {
	return Stats{StoreStats: o.Circles.Stats(), Connections: o.Registry.ConnectionCount()}
}

// endCircle broadcasts circleEnded to whoever is still bound, clears their
// bindings and deletes the circle. e.mu must be held.
func (o *Orchestrator) endCircle(e *circleEntry, reason string) {
	code := e.circle.Code
	notified := o.Router.BroadcastToCircle(code, core.NewCircleEnded(), "")
	unbound := o.Registry.UnbindCircle(code)
	o.Circles.remove(e)
	o.Metrics.circleEnded(reason)
	log.Info().Str("module", "app.orchestrator").Str("circle", string(code)).Str("reason", reason).
		Int("notified", notified).Int("unbound", len(unbound)).Msg("circle ended")
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}
