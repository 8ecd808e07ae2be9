package app

import (
	"sync"

	"github.com/dkeye/Circles/internal/core"
	"github.com/dkeye/Circles/internal/domain"
	"github.com/rs/zerolog/log"
)

// Binding ties a connection to its member record inside a circle.
// The Circle Store owns the member; the binding is only a back-reference.
type Binding struct {
	Circle domain.CircleCode
	Member domain.MemberID
}

type sessionEntry struct {
	Signal  core.SignalConnection
	Binding *Binding
}

// Registry tracks live connections and the circle each one is bound to.
// Bind and Unbind are called by the Orchestrator while it holds the circle lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	circles  map[domain.CircleCode]map[core.SessionID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		circles:  make(map[domain.CircleCode]map[core.SessionID]struct{}),
	}
}

// Attach registers the transport endpoint of a new connection.
func (r *Registry) Attach(sid core.SessionID, sig core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Signal = sig
		return
	}
	r.sessions[sid] = &sessionEntry{Signal: sig}
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Msg("attached connection")
}

// Detach forgets the connection entirely. Callers leave the circle first.
func (r *Registry) Detach(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok && e.Binding != nil {
		r.dropIndex(sid, e.Binding.Circle)
	}
	delete(r.sessions, sid)
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Msg("detached connection")
}

// Bind associates sid with (code, member). An existing binding is replaced.
func (r *Registry) Bind(sid core.SessionID, code domain.CircleCode, member domain.MemberID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		e = &sessionEntry{}
		r.sessions[sid] = e
	}
	if e.Binding != nil {
		log.Warn().Str("module", "app.registry").Str("sid", string(sid)).
			Str("circle", string(e.Binding.Circle)).Msg("replacing existing binding")
		r.dropIndex(sid, e.Binding.Circle)
	}
	e.Binding = &Binding{Circle: code, Member: member}
	set, ok := r.circles[code]
	if !ok {
		set = make(map[core.SessionID]struct{})
		r.circles[code] = set
	}
	set[sid] = struct{}{}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).
		Str("circle", string(code)).Str("member", string(member)).Msg("bound session")
}

// Unbind clears the binding of sid and returns what it was.
func (r *Registry) Unbind(sid core.SessionID) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unbindLocked(sid)
}

// UnbindIf clears the binding of sid only if it still equals b.
func (r *Registry) UnbindIf(sid core.SessionID, b Binding) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.Binding == nil || *e.Binding != b {
		return false
	}
	r.unbindLocked(sid)
	return true
}

// UnbindCircle clears every binding to code and returns the affected connections.
func (r *Registry) UnbindCircle(code domain.CircleCode) []core.SessionID {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.circles[code]
	out := make([]core.SessionID, 0, len(set))
	for sid := range set {
		if e, ok := r.sessions[sid]; ok {
			e.Binding = nil
		}
		out = append(out, sid)
	}
	delete(r.circles, code)
	return out
}

func (r *Registry) unbindLocked(sid core.SessionID) (Binding, bool) {
	e, ok := r.sessions[sid]
	if !ok || e.Binding == nil {
		return Binding{}, false
	}
	b := *e.Binding
	e.Binding = nil
	r.dropIndex(sid, b.Circle)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).
		Str("circle", string(b.Circle)).Msg("unbind session")
	return b, true
}

func (r *Registry) dropIndex(sid core.SessionID, code domain.CircleCode) {
	set, ok := r.circles[code]
	if !ok {
		return
	}
	delete(set, sid)
	if len(set) == 0 {
		delete(r.circles, code)
	}
}

func (r *Registry) Lookup(sid core.SessionID) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Binding == nil {
		return Binding{}, false
	}
	return *e.Binding, true
}

// Peer is a connection currently bound to a circle.
type Peer struct {
	SID    core.SessionID
	Signal core.SignalConnection
}

// MembersOf lists the connections bound to code. Connections without a transport are skipped.
func (r *Registry) MembersOf(code domain.CircleCode) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.circles[code]
	out := make([]Peer, 0, len(set))
	for sid := range set {
		e, ok := r.sessions[sid]
		if !ok || e.Signal == nil {
			continue
		}
		out = append(out, Peer{SID: sid, Signal: e.Signal})
	}
	return out
}

func (r *Registry) Signal(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Signal == nil {
		return nil, false
	}
	return e.Signal, true
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
