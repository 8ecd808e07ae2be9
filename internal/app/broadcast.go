package app

import (
	"errors"

	"github.com/dkeye/Circles/internal/core"
	"github.com/dkeye/Circles/internal/domain"
	"github.com/rs/zerolog/log"
)

// Router fans events out to the connections bound to a circle.
// Sends never block and never fail the caller; problems are logged and counted.
type Router struct {
	Registry *Registry
	Policy   Policy
	Metrics  *Metrics
}

func NewRouter(reg *Registry, policy Policy, metrics *Metrics) *Router {
	if policy == nil {
		policy = DropPolicy{}
	}
	return &Router{Registry: reg, Policy: policy, Metrics: metrics}
}

// BroadcastToCircle queues e for every connection bound to code except exclude
// (pass "" to include everyone) and returns how many connections accepted it.
func (rt *Router) BroadcastToCircle(code domain.CircleCode, e core.Event, exclude core.SessionID) int {
	frame, err := core.Encode(e)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("type", e.EventType()).Msg("encode event")
		return 0
	}
	sent := 0
	for _, p := range rt.Registry.MembersOf(code) {
		if p.SID == exclude {
			continue
		}
		if err := p.Signal.TrySend(frame); err != nil {
			rt.onSendFailure(code, p, e.EventType(), err)
			continue
		}
		sent++
	}
	rt.Metrics.delivered(e.EventType(), sent)
	log.Debug().Str("module", "app.router").Str("circle", string(code)).
		Str("type", e.EventType()).Int("sent_to", sent).Msg("broadcast result")
	return sent
}

// SendTo queues e for a single connection.
func (rt *Router) SendTo(sid core.SessionID, e core.Event) bool {
	sig, ok := rt.Registry.Signal(sid)
	if !ok {
		return false
	}
	frame, err := core.Encode(e)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("type", e.EventType()).Msg("encode event")
		return false
	}
	if err := sig.TrySend(frame); err != nil {
		rt.onSendFailure("", Peer{SID: sid, Signal: sig}, e.EventType(), err)
		return false
	}
	rt.Metrics.delivered(e.EventType(), 1)
	return true
}

func (rt *Router) onSendFailure(code domain.CircleCode, p Peer, eventType string, err error) {
	reason := "closed"
	if errors.Is(err, core.ErrBackpressure) {
		reason = "backpressure"
	}
	rt.Metrics.dropped(eventType, reason)
	log.Warn().Err(err).Str("module", "app.router").Str("circle", string(code)).
		Str("sid", string(p.SID)).Str("type", eventType).Msg("delivery failed")

	if reason == "backpressure" && rt.Policy.OnBackPressure(code, p.SID) == CloseConnection {
		log.Info().Str("module", "app.router").Str("sid", string(p.SID)).Msg("closing slow connection")
		p.Signal.Close()
	}
}
