// Package domain contains the circle entities and their invariants, no transport
package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxNameLen = 36

type MemberID string

// Location is a WGS84 point as reported by the client.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

type Member struct {
	ID          MemberID  `json:"id"`
	Name        string    `json:"name"`
	Location    *Location `json:"location"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// NewMember allocates a fresh member id. loc may be nil when the client has no fix yet.
func NewMember(name string, loc *Location, now time.Time) (*Member, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if loc != nil && !loc.Valid() {
		return nil, ErrInvalidLocation
	}
	return &Member{
		ID:          MemberID(uuid.NewString()),
		Name:        name,
		Location:    copyLocation(loc),
		LastUpdated: now,
	}, nil
}

func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return "", ErrNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}

// clone returns a copy that shares nothing with m.
func (m *Member) clone() Member {
	out := *m
	out.Location = copyLocation(m.Location)
	return out
}

func copyLocation(l *Location) *Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}
