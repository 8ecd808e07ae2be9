package signal

import "github.com/dkeye/Circles/internal/core"

func (ctl *SignalWSController) handlePing(conn core.SignalConnection) {
	ctl.sendJSON(conn, core.Pong{Type: core.TypePong})
}
