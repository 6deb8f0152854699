package orch

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/tandem/internal/app"
	"github.com/dkeye/tandem/internal/core"
	"github.com/dkeye/tandem/internal/domain"
	"github.com/dkeye/tandem/internal/observability"
	"github.com/rs/zerolog/log"
)

// Offer opens a negotiation and forwards it to the receiver when connected.
// The session is stored even if the receiver is offline.
func (o *Orchestrator) Offer(conn core.Conn, p domain.Offer) error {
	o.Metrics.Event(domain.EventOffer)
	if err := validate.Struct(p); err != nil {
		o.malformed(domain.EventOffer, err)
		return err
	}

	callerID, err := domain.ParseUserID(p.CallerID)
	if err != nil {
		o.malformed(domain.EventOffer, err)
		return err
	}
	receiverID, err := domain.ParseUserID(p.ReceiverID)
	if err != nil {
		o.malformed(domain.EventOffer, err)
		return err
	}

	view := o.Sessions.Create(app.NewSession{
		OfferID:    domain.OfferID(p.OfferID),
		CallerID:   callerID,
		ReceiverID: receiverID,
		Offer:      p.Offer,
		CallURL:    p.CallURL,
		ConnID:     conn.ID(),
	})
	o.RefreshGauges()

	receiver, ok := o.Registry.Lookup(view.ReceiverID)
	if !ok {
		o.Metrics.Drop(observability.ReasonTargetOffline)
		log.Warn().Str("module", "orch").Str("offer", p.OfferID).Str("receiver", p.ReceiverID).Msg("offer: receiver not connected")
		return nil
	}
	o.send(receiver, domain.EventOfferAwaiting, view)
	return nil
}

// Answer records the answer and forwards it to the caller. A caller missing
// from the registry still gets its answer recorded.
func (o *Orchestrator) Answer(_ core.Conn, p domain.Answer) error {
	o.Metrics.Event(domain.EventAnswer)
	if err := validate.Struct(p); err != nil {
		o.malformed(domain.EventAnswer, err)
		return err
	}

	caller, callerOnline := o.lookup(p.CallerID)
	if !callerOnline {
		log.Warn().Str("module", "orch").Str("caller", p.CallerID).Msg("answer: caller not connected")
	}

	view, err := o.Sessions.RecordAnswer(domain.OfferID(p.OfferID), p.Answer)
	switch {
	case errors.Is(err, app.ErrSessionNotFound):
		o.Metrics.Drop(observability.ReasonUnknownSession)
		log.Warn().Str("module", "orch").Str("offer", p.OfferID).Msg("answer: no matching offer")
		return nil
	case errors.Is(err, app.ErrAnswerAlreadySet):
		o.Metrics.Drop(observability.ReasonAnswerDuplicate)
		log.Warn().Str("module", "orch").Str("offer", p.OfferID).Msg("answer: session already answered")
		return nil
	}

	if !callerOnline {
		o.Metrics.Drop(observability.ReasonTargetOffline)
		return nil
	}
	o.send(caller, domain.EventAnswerToClient, view)
	return nil
}

// Candidate appends an ICE candidate and forwards it to the other side.
// An unknown offer is a silent no-op.
func (o *Orchestrator) Candidate(_ core.Conn, p domain.ICECandidate) error {
	o.Metrics.Event(domain.EventICECandidate)
	if err := validate.Struct(p); err != nil {
		o.malformed(domain.EventICECandidate, err)
		return err
	}
	role, err := domain.ParseRole(p.Side())
	if err != nil {
		o.malformed(domain.EventICECandidate, err)
		return err
	}

	view, ok := o.Sessions.AppendCandidate(domain.OfferID(p.OfferID), role, p.Value())
	if !ok {
		o.Metrics.Drop(observability.ReasonUnknownSession)
		log.Debug().Str("module", "orch").Str("offer", p.OfferID).Msg("candidate: no session")
		return nil
	}

	target := view.ReceiverID
	if role == domain.RoleCallee {
		target = view.CallerID
	}
	peer, ok := o.Registry.Lookup(target)
	if !ok {
		o.Metrics.Drop(observability.ReasonTargetOffline)
		log.Debug().Str("module", "orch").Str("offer", p.OfferID).Str("target", string(target)).Msg("candidate: peer not connected")
		return nil
	}
	o.send(peer, domain.EventICEToClient, p.Value())
	return nil
}

// Candidates returns the accumulated candidates of one side. The list is
// empty, never nil, for unknown sessions and invalid requests.
func (o *Orchestrator) Candidates(p domain.GetICE) ([]json.RawMessage, error) {
	o.Metrics.Event(domain.EventGetICE)
	if err := validate.Struct(p); err != nil {
		o.malformed(domain.EventGetICE, err)
		return []json.RawMessage{}, err
	}
	role, err := domain.ParseRole(p.Who)
	if err != nil {
		o.malformed(domain.EventGetICE, err)
		return []json.RawMessage{}, fmt.Errorf("get candidates: %w", err)
	}
	return o.Sessions.Candidates(domain.OfferID(p.OfferID), role), nil
}
