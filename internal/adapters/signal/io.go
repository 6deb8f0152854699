package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/tandem/internal/core"
	"github.com/dkeye/tandem/internal/domain"
	"github.com/dkeye/tandem/internal/observability"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *wsSignalConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ping error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, c *wsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(c.id)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(c)
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(c.id)
		}
		cancel()
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(c.id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
					log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait))
			ctl.handleSignal(c, data)
		}
	}
}

var pairedEvents = lo.SliceToMap(domain.PairedEvents, func(e string) (string, struct{}) {
	return e, struct{}{}
})

func (ctl *SignalWSController) handleSignal(c *wsSignalConn, data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		ctl.Orch.Metrics.Drop(observability.ReasonMalformed)
		log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("bad json")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(c.id) {
		ctl.Orch.Metrics.Drop(observability.ReasonRateLimited)
		log.Warn().Str("module", "signal").Str("conn", string(c.id)).Str("type", env.Type).Msg("rate limited")
		return
	}

	if _, ok := pairedEvents[env.Type]; ok {
		ctl.handlePaired(c, env)
		return
	}

	switch env.Type {
	case domain.EventSetup:
		ctl.handleSetup(c, env)
	case domain.EventGetReceiver:
		ctl.handleGetReceiver(c, env)
	case domain.EventOffer:
		ctl.handleOffer(c, env)
	case domain.EventAnswer:
		ctl.handleAnswer(c, env)
	case domain.EventICECandidate:
		ctl.handleCandidate(c, env)
	case domain.EventGetICE:
		ctl.handleGetICE(c, env)
	case domain.EventTopicPicked:
		ctl.handleTopic(c, env)
	case domain.EventPing:
		ctl.handlePing(c)
	default:
		ctl.Orch.Metrics.Drop(observability.ReasonMalformed)
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

// decode unmarshals env.Data into v; a failure is logged as a malformed event.
func (ctl *SignalWSController) decode(env core.Envelope, v any) bool {
	if len(env.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		ctl.Orch.Metrics.Drop(observability.ReasonMalformed)
		log.Error().Err(err).Str("module", "signal").Str("type", env.Type).Msg("bad payload")
		return false
	}
	return true
}

func (ctl *SignalWSController) sendJSON(c *wsSignalConn, event string, v any) {
	f, err := core.NewFrame(event, v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(f)
}
