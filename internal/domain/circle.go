package domain

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength   = 6
)

type CircleCode string

// ParseCircleCode trims and uppercases raw before checking length and alphabet.
func ParseCircleCode(raw string) (CircleCode, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != CodeLength {
		return "", ErrInvalidCode
	}
	for _, r := range code {
		if !strings.ContainsRune(CodeAlphabet, r) {
			return "", ErrInvalidCode
		}
	}
	return CircleCode(code), nil
}

// Circle is not safe for concurrent use; callers serialize access per circle.
type Circle struct {
	Code    CircleCode
	Owner   MemberID
	members map[MemberID]*Member
}

// NewCircle creates a circle whose founder is its owner and only member.
func NewCircle(code CircleCode, founder *Member) *Circle {
	return &Circle{
		Code:    code,
		Owner:   founder.ID,
		members: map[MemberID]*Member{founder.ID: founder},
	}
}

func (c *Circle) AddMember(m *Member) {
	c.members[m.ID] = m
}

// RemoveMember reports whether id was present.
func (c *Circle) RemoveMember(id MemberID) bool {
	if _, ok := c.members[id]; !ok {
		return false
	}
	delete(c.members, id)
	return true
}

func (c *Circle) Member(id MemberID) (Member, bool) {
	m, ok := c.members[id]
	if !ok {
		return Member{}, false
	}
	return m.clone(), true
}

func (c *Circle) MemberCount() int { return len(c.members) }

func (c *Circle) HasOwner() bool {
	_, ok := c.members[c.Owner]
	return ok
}

// UpdateLocation stamps the member's position. Returns false if id is not a member.
func (c *Circle) UpdateLocation(id MemberID, loc Location, at time.Time) bool {
	m, ok := c.members[id]
	if !ok {
		return false
	}
	m.Location = &loc
	m.LastUpdated = at
	return true
}

// Snapshot is the full wire view of a circle, detached from the live state.
type Snapshot struct {
	Owner   MemberID            `json:"owner"`
	Members map[MemberID]Member `json:"members"`
}

func (c *Circle) Snapshot() Snapshot {
	return Snapshot{
		Owner: c.Owner,
		Members: lo.MapValues(c.members, func(m *Member, _ MemberID) Member {
			return m.clone()
		}),
	}
}
