package signal

import (
	"github.com/dkeye/tandem/internal/core"
)

// handlePaired relays timer, language, duration and sets updates to targetId.
func (ctl *SignalWSController) handlePaired(_ *wsSignalConn, env core.Envelope) {
	_ = ctl.Orch.PairedUpdate(env.Type, env.Data)
}

// handleTopic broadcasts the picked topic to every connection.
func (ctl *SignalWSController) handleTopic(_ *wsSignalConn, env core.Envelope) {
	_, _ = ctl.Orch.BroadcastTopic(env.Data)
}
