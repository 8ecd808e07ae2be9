package core

import (
	"encoding/json"

	"github.com/dkeye/Circles/internal/domain"
)

const (
	TypeCreateCircle    = "createCircle"
	TypeJoinCircle      = "joinCircle"
	TypeUpdateLocation  = "updateLocation"
	TypeLeaveCircle     = "leaveCircle"
	TypePing            = "ping"
	TypeWhoAmI          = "whoami"
	TypeCircleCreated   = "circleCreated"
	TypeJoinedCircle    = "joinedCircle"
	TypeMemberJoined    = "memberJoined"
	TypeLocationUpdated = "locationUpdated"
	TypeMemberLeft      = "memberLeft"
	TypeCircleEnded     = "circleEnded"
	TypeError           = "error"
	TypePong            = "pong"
)

// Event is a server push. Every event carries its wire type next to its payload fields.
type Event interface {
	EventType() string
}

type CircleCreated struct {
	Type       string            `json:"type"`
	CircleCode domain.CircleCode `json:"circleCode"`
	UserID     domain.MemberID   `json:"userId"`
	Circle     domain.Snapshot   `json:"circle"`
}

type JoinedCircle struct {
	Type       string            `json:"type"`
	CircleCode domain.CircleCode `json:"circleCode"`
	UserID     domain.MemberID   `json:"userId"`
	Circle     domain.Snapshot   `json:"circle"`
}

type MemberJoined struct {
	Type      string          `json:"type"`
	NewMember domain.Member   `json:"newMember"`
	Circle    domain.Snapshot `json:"circle"`
}

type LocationUpdated struct {
	Type     string          `json:"type"`
	UserID   domain.MemberID `json:"userId"`
	Location domain.Location `json:"location"`
	Circle   domain.Snapshot `json:"circle"`
}

type MemberLeft struct {
	Type   string          `json:"type"`
	UserID domain.MemberID `json:"userId"`
	Circle domain.Snapshot `json:"circle"`
}

type CircleEnded struct {
	Type string `json:"type"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Pong struct {
	Type string `json:"type"`
}

type WhoAmI struct {
	Type       string            `json:"type"`
	UserID     domain.MemberID   `json:"userId,omitempty"`
	CircleCode domain.CircleCode `json:"circleCode,omitempty"`
}

func NewCircleCreated(code domain.CircleCode, id domain.MemberID, snap domain.Snapshot) CircleCreated {
	return CircleCreated{Type: TypeCircleCreated, CircleCode: code, UserID: id, Circle: snap}
}

func NewJoinedCircle(code domain.CircleCode, id domain.MemberID, snap domain.Snapshot) JoinedCircle {
	return JoinedCircle{Type: TypeJoinedCircle, CircleCode: code, UserID: id, Circle: snap}
}

func NewMemberJoined(m domain.Member, snap domain.Snapshot) MemberJoined {
	return MemberJoined{Type: TypeMemberJoined, NewMember: m, Circle: snap}
}

func NewLocationUpdated(id domain.MemberID, loc domain.Location, snap domain.Snapshot) LocationUpdated {
	return LocationUpdated{Type: TypeLocationUpdated, UserID: id, Location: loc, Circle: snap}
}

func NewMemberLeft(id domain.MemberID, snap domain.Snapshot) MemberLeft {
	return MemberLeft{Type: TypeMemberLeft, UserID: id, Circle: snap}
}

func NewCircleEnded() CircleEnded { return CircleEnded{Type: TypeCircleEnded} }

func NewErrorEvent(msg string) ErrorEvent { return ErrorEvent{Type: TypeError, Message: msg} }

func (CircleCreated) EventType() string   { return TypeCircleCreated }
func (JoinedCircle) EventType() string    { return TypeJoinedCircle }
func (MemberJoined) EventType() string    { return TypeMemberJoined }
func (LocationUpdated) EventType() string { return TypeLocationUpdated }
func (MemberLeft) EventType() string      { return TypeMemberLeft }
func (CircleEnded) EventType() string     { return TypeCircleEnded }
func (ErrorEvent) EventType() string      { return TypeError }
func (Pong) EventType() string            { return TypePong }
func (WhoAmI) EventType() string          { return TypeWhoAmI }

func Encode(e Event) (Frame, error) {
	return json.Marshal(e)
}
