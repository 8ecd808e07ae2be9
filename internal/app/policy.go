package app

import (
	"github.com/dkeye/Circles/internal/core"
	"github.com/dkeye/Circles/internal/domain"
)

type BackpressureAction int

const (
	DropEvent BackpressureAction = iota
	CloseConnection
)

// Policy decides what happens to a member whose send queue is full.
type Policy interface {
	OnBackPressure(code domain.CircleCode, sid core.SessionID) BackpressureAction
}

// DropPolicy loses the event for the slow member and keeps it connected.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.CircleCode, core.SessionID) BackpressureAction {
	return DropEvent
}

// ClosePolicy disconnects slow members; their read loop then runs the normal leave path.
type ClosePolicy struct{}

func (ClosePolicy) OnBackPressure(domain.CircleCode, core.SessionID) BackpressureAction {
	return CloseConnection
}

// PolicyByName maps the slow_consumer_policy config value. Unknown names fall back to drop.
func PolicyByName(name string) Policy {
	if name == "close" {
		return ClosePolicy{}
	}
	return DropPolicy{}
}
