package signal

import (
	"encoding/json"

	"github.com/dkeye/tandem/internal/core"
	"github.com/dkeye/tandem/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleOffer(c *wsSignalConn, env core.Envelope) {
	var p domain.Offer
	if !ctl.decode(env, &p) {
		return
	}
	_ = ctl.Orch.Offer(c, p)
}

func (ctl *SignalWSController) handleAnswer(c *wsSignalConn, env core.Envelope) {
	var p domain.Answer
	if !ctl.decode(env, &p) {
		return
	}
	_ = ctl.Orch.Answer(c, p)
}

func (ctl *SignalWSController) handleCandidate(c *wsSignalConn, env core.Envelope) {
	var p domain.ICECandidate
	if !ctl.decode(env, &p) {
		return
	}
	_ = ctl.Orch.Candidate(c, p)
}

// handleGetICE replies with the accumulated candidates. The request may carry
// {"offerId","who"} or the positional form ["offerId","who"].
func (ctl *SignalWSController) handleGetICE(c *wsSignalConn, env core.Envelope) {
	var p domain.GetICE
	var positional []string
	if err := json.Unmarshal(env.Data, &positional); err == nil {
		if len(positional) > 0 {
			p.OfferID = positional[0]
		}
		if len(positional) > 1 {
			p.Who = positional[1]
		}
	} else if !ctl.decode(env, &p) {
		ctl.reply(c, env, []json.RawMessage{})
		return
	}

	list, _ := ctl.Orch.Candidates(p)
	ctl.reply(c, env, list)
}

func (ctl *SignalWSController) reply(c *wsSignalConn, env core.Envelope, v any) {
	if env.Ack == "" {
		log.Debug().Str("module", "signal").Str("type", env.Type).Msg("request without ack id, reply skipped")
		return
	}
	ctl.Orch.Reply(c, env.Ack, v)
}
