package signal

import (
	"encoding/json"

	"github.com/dkeye/tandem/internal/core"
	"github.com/dkeye/tandem/internal/domain"
)

// handleSetup registers the connection under a user id, given either as a
// bare string or as {"userId": ...}.
func (ctl *SignalWSController) handleSetup(c *wsSignalConn, env core.Envelope) {
	var p domain.Setup
	if err := json.Unmarshal(env.Data, &p.UserID); err != nil && !ctl.decode(env, &p) {
		return
	}
	_ = ctl.Orch.Register(c, p)
}

// handleGetReceiver answers with the connection id of a user, or null when offline.
func (ctl *SignalWSController) handleGetReceiver(c *wsSignalConn, env core.Envelope) {
	var p domain.GetReceiver
	if err := json.Unmarshal(env.Data, &p.UserID); err != nil && !ctl.decode(env, &p) {
		ctl.reply(c, env, json.RawMessage("null"))
		return
	}
	id, ok := ctl.Orch.ReceiverConn(p)
	if !ok {
		ctl.reply(c, env, json.RawMessage("null"))
		return
	}
	ctl.reply(c, env, id)
}
