package signal

import (
	"errors"

	"github.com/dkeye/Circles/internal/core"
	"github.com/dkeye/Circles/internal/domain"
	"github.com/rs/zerolog/log"
)

// Success replies (circleCreated, joinedCircle) are queued by the Orchestrator
// under the circle lock; only failures are answered here.

func (ctl *SignalWSController) handleCreate(sid core.SessionID, conn core.SignalConnection, data []byte) {
	var p createPayload
	if err := decode(data, &p); err != nil {
		log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad create payload")
		ctl.sendError(conn, err)
		return
	}
	if !ctl.Limiter.Allow(sid) {
		ctl.sendError(conn, domain.ErrRateLimited)
		return
	}
	code, member, _, err := ctl.Orch.CreateCircle(sid, p.Name, p.Location.toDomain())
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("create circle")
		ctl.sendError(conn, err)
		return
	}
	log.Debug().Str("module", "signal").Str("sid", string(sid)).
		Str("circle", string(code)).Str("member", string(member)).Msg("create")
}

func (ctl *SignalWSController) handleJoin(sid core.SessionID, conn core.SignalConnection, data []byte) {
	var p joinPayload
	if err := decode(data, &p); err != nil {
		log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad join payload")
		ctl.sendError(conn, err)
		return
	}
	if !ctl.Limiter.Allow(sid) {
		ctl.sendError(conn, domain.ErrRateLimited)
		return
	}
	code, err := domain.ParseCircleCode(p.CircleCode)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	member, _, err := ctl.Orch.JoinCircle(sid, code, p.UserData.Name, p.UserData.Location.toDomain())
	if err != nil {
		log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("circle", string(code)).Msg("join failed")
		ctl.sendError(conn, err)
		return
	}
	log.Debug().Str("module", "signal").Str("sid", string(sid)).
		Str("circle", string(code)).Str("member", string(member)).Msg("join")
}

func (ctl *SignalWSController) handleUpdateLocation(sid core.SessionID, conn core.SignalConnection, data []byte) {
	var p updateLocationPayload
	if err := decode(data, &p); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad location payload")
		ctl.sendError(conn, err)
		return
	}
	if !ctl.Orch.UpdateLocation(sid, domain.Location{Lat: *p.Lat, Lng: *p.Lng}) {
		log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("stale location update ignored")
	}
}

// handleLeave leaves the current circle; the connection stays open.
func (ctl *SignalWSController) handleLeave(sid core.SessionID) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctl.Orch.Leave(sid)
}

func (ctl *SignalWSController) sendError(conn core.SignalConnection, err error) {
	ctl.sendJSON(conn, core.NewErrorEvent(errorMessage(err)))
}

// errorMessage is the text shown to the user for err.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrCircleNotFound):
		return "Circle not found"
	case errors.Is(err, domain.ErrRateLimited):
		return "Too many requests, please wait a moment"
	case errors.Is(err, domain.ErrCodeSpaceExhausted):
		return "Could not create a circle, please try again"
	case errors.Is(err, domain.ErrNameEmpty):
		return "Please enter your name"
	case errors.Is(err, domain.ErrNameTooLong):
		return "Name is too long"
	case errors.Is(err, domain.ErrInvalidCode):
		return "Please enter a valid 6-character code"
	case errors.Is(err, domain.ErrInvalidLocation):
		return "Invalid location"
	case errors.Is(err, domain.ErrInvalidInput):
		return "Invalid request"
	}
	return "Internal error"
}
