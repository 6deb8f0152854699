package signal

import "github.com/dkeye/tandem/internal/domain"

func (ctl *SignalWSController) handlePing(conn *wsSignalConn) {
	ctl.sendJSON(conn, domain.EventPong, nil)
}
