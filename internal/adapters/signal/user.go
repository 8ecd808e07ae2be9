package signal

import "github.com/dkeye/Circles/internal/core"

// handleWhoAmI lets a client that lost its local state ask which circle it is in.
func (ctl *SignalWSController) handleWhoAmI(sid core.SessionID, conn core.SignalConnection) {
	resp := core.WhoAmI{Type: core.TypeWhoAmI}
	if b, ok := ctl.Orch.Registry.Lookup(sid); ok {
		resp.UserID = b.Member
		resp.CircleCode = b.Circle
	}
	ctl.sendJSON(conn, resp)
}
