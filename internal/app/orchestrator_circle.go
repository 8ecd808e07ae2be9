package app

import (
	"fmt"

	"github.com/dkeye/Circles/internal/core"
	"github.com/dkeye/Circles/internal/domain"
	"github.com/rs/zerolog/log"
)

// CreateCircle founds a circle owned by a new member and binds sid to it.
// A connection that is already in a circle leaves it first.
func (o *Orchestrator) CreateCircle(
	sid core.SessionID,
	name string,
	loc *domain.Location,
) (domain.CircleCode, domain.MemberID, domain.Snapshot, error) {
	member, err := domain.NewMember(name, loc, o.now())
	if err != nil {
		return "", "", domain.Snapshot{}, err
	}
	o.Leave(sid)

	e, err := o.Circles.create(member)
	if err != nil {
		return "", "", domain.Snapshot{}, fmt.Errorf("create circle: %w", err)
	}
	defer e.mu.Unlock()

	code := e.circle.Code
	o.Registry.Bind(sid, code, member.ID)
	snap := e.circle.Snapshot()
	o.Router.SendTo(sid, core.NewCircleCreated(code, member.ID, snap))
	o.Metrics.circleCreated()
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).
		Str("circle", string(code)).Str("member", string(member.ID)).Msg("created circle")
	return code, member.ID, snap, nil
}

// JoinCircle adds a new member to code and binds sid to it. The joiner gets
// joinedCircle, every other member gets memberJoined with the same snapshot.
// Joining the circle sid is already in returns the existing membership.
func (o *Orchestrator) JoinCircle(
	sid core.SessionID,
	code domain.CircleCode,
	name string,
	loc *domain.Location,
) (domain.MemberID, domain.Snapshot, error) {
	member, err := domain.NewMember(name, loc, o.now())
	if err != nil {
		return "", domain.Snapshot{}, err
	}
	if b, ok := o.Registry.Lookup(sid); ok && b.Circle != code {
		o.Leave(sid)
	}

	e, ok := o.Circles.acquire(code)
	if !ok {
		return "", domain.Snapshot{}, fmt.Errorf("join %s: %w", code, domain.ErrCircleNotFound)
	}
	defer e.mu.Unlock()

	if b, ok := o.Registry.Lookup(sid); ok && b.Circle == code {
		if _, isMember := e.circle.Member(b.Member); isMember {
			snap := e.circle.Snapshot()
			o.Router.SendTo(sid, core.NewJoinedCircle(code, b.Member, snap))
			return b.Member, snap, nil
		}
	}

	e.circle.AddMember(member)
	o.Registry.Bind(sid, code, member.ID)
	snap := e.circle.Snapshot()
	o.Router.SendTo(sid, core.NewJoinedCircle(code, member.ID, snap))
	o.Router.BroadcastToCircle(code, core.NewMemberJoined(snap.Members[member.ID], snap), sid)
	o.Metrics.memberJoined()
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).
		Str("circle", string(code)).Str("member", string(member.ID)).
		Int("members", len(snap.Members)).Msg("joined circle")
	return member.ID, snap, nil
}

// UpdateLocation records the sender's position and echoes locationUpdated to
// every member including the sender. It reports false, without error, when the
// sender has no live binding: the client may not know yet that its circle ended.
func (o *Orchestrator) UpdateLocation(sid core.SessionID, loc domain.Location) bool {
	if !loc.Valid() {
		return false
	}
	b, ok := o.Registry.Lookup(sid)
	if !ok {
		o.Metrics.staleUpdate()
		return false
	}
	e, ok := o.Circles.acquire(b.Circle)
	if !ok {
		o.Metrics.staleUpdate()
		return false
	}
	defer e.mu.Unlock()

	if cur, ok := o.Registry.Lookup(sid); !ok || cur != b {
		o.Metrics.staleUpdate()
		return false
	}
	if !e.circle.UpdateLocation(b.Member, loc, o.now()) {
		o.Metrics.staleUpdate()
		return false
	}
	snap := e.circle.Snapshot()
	o.Router.BroadcastToCircle(b.Circle, core.NewLocationUpdated(b.Member, loc, snap), "")
	return true
}

// Leave removes sid's member from its circle. It is a no-op without a binding.
// The circle ends when the owner leaves or nobody is left; otherwise the
// remaining members get memberLeft.
func (o *Orchestrator) Leave(sid core.SessionID) {
	b, ok := o.Registry.Lookup(sid)
	if !ok {
		return
	}
	e, ok := o.Circles.acquire(b.Circle)
	if !ok {
		o.Registry.UnbindIf(sid, b)
		return
	}
	defer e.mu.Unlock()

	if !o.Registry.UnbindIf(sid, b) {
		return
	}
	e.circle.RemoveMember(b.Member)
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).
		Str("circle", string(b.Circle)).Str("member", string(b.Member)).Msg("left circle")

	switch {
	case b.Member == e.circle.Owner:
		o.endCircle(e, endReasonOwnerLeft)
	case e.circle.MemberCount() == 0:
		o.endCircle(e, endReasonEmpty)
	default:
		snap := e.circle.Snapshot()
		o.Router.BroadcastToCircle(b.Circle, core.NewMemberLeft(b.Member, snap), sid)
	}
}
