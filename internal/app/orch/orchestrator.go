package orch

import (
	"github.com/dkeye/tandem/internal/app"
	"github.com/dkeye/tandem/internal/core"
	"github.com/dkeye/tandem/internal/domain"
	"github.com/dkeye/tandem/internal/observability"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// Orchestrator routes inbound signaling events to their peers and keeps the
// registry consistent across connection open and close.
type Orchestrator struct {
	Registry *app.Registry
	Sessions *app.SessionStore
	Conns    *app.Connections
	Policy   app.Policy
	Metrics  *observability.Metrics
}

func New(
	reg *app.Registry,
	sessions *app.SessionStore,
	conns *app.Connections,
	policy app.Policy,
	metrics *observability.Metrics,
) *Orchestrator {
	if policy == nil {
		policy = app.DropPolicy{}
	}
	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}
	return &Orchestrator{
		Registry: reg,
		Sessions: sessions,
		Conns:    conns,
		Policy:   policy,
		Metrics:  metrics,
	}
}

// OnConnect makes conn reachable by broadcasts only; it becomes addressable
// once a setup event registers a user on it.
func (o *Orchestrator) OnConnect(conn core.Conn) {
	o.Conns.Add(conn)
	o.RefreshGauges()
	log.Info().Str("module", "orch").Str("conn", string(conn.ID())).Msg("connection opened")
}

// OnDisconnect removes whatever registry entries still point at conn.
// Negotiation sessions are kept so a user who reconnects can resume.
func (o *Orchestrator) OnDisconnect(conn core.Conn) {
	o.Conns.Remove(conn.ID())
	users := o.Registry.Unregister(conn.ID())
	o.RefreshGauges()
	log.Info().Str("module", "orch").Str("conn", string(conn.ID())).Int("users", len(users)).Msg("connection closed")
}

// Deliver sends event to uid if it is currently connected. Chat persistence
// uses it for newMessage after a record is saved.
func (o *Orchestrator) Deliver(uid domain.UserID, event string, payload any) bool {
	conn, ok := o.Registry.Lookup(uid)
	if !ok {
		o.Metrics.Drop(observability.ReasonTargetOffline)
		log.Debug().Str("module", "orch").Str("user", string(uid)).Str("event", event).Msg("deliver: user offline")
		return false
	}
	return o.send(conn, event, payload)
}

// Broadcast sends event to every open connection and returns how many accepted it.
func (o *Orchestrator) Broadcast(event string, payload any) int {
	frame, err := core.NewFrame(event, payload)
	if err != nil {
		o.Metrics.Drop(observability.ReasonEncode)
		log.Error().Err(err).Str("module", "orch").Str("event", event).Msg("broadcast encode")
		return 0
	}
	sent := 0
	for _, conn := range o.Conns.Snapshot() {
		if o.sendFrame(conn, event, frame) {
			sent++
		}
	}
	log.Debug().Str("module", "orch").Str("event", event).Int("sent_to", sent).Msg("broadcast result")
	return sent
}

// Reply answers an ack-style request on the requesting connection.
func (o *Orchestrator) Reply(conn core.Conn, ack string, payload any) bool {
	frame, err := core.NewAckFrame(ack, payload)
	if err != nil {
		o.Metrics.Drop(observability.ReasonEncode)
		log.Error().Err(err).Str("module", "orch").Str("ack", ack).Msg("reply encode")
		return false
	}
	return o.sendFrame(conn, domain.EventAck, frame)
}

// lookup resolves a user id from a payload the same way Register keys it.
func (o *Orchestrator) lookup(raw string) (core.Conn, bool) {
	uid, err := domain.ParseUserID(raw)
	if err != nil {
		return nil, false
	}
	return o.Registry.Lookup(uid)
}

func (o *Orchestrator) send(conn core.Conn, event string, payload any) bool {
	frame, err := core.NewFrame(event, payload)
	if err != nil {
		o.Metrics.Drop(observability.ReasonEncode)
		log.Error().Err(err).Str("module", "orch").Str("event", event).Msg("send encode")
		return false
	}
	return o.sendFrame(conn, event, frame)
}

func (o *Orchestrator) sendFrame(conn core.Conn, event string, frame core.Frame) bool {
	if err := conn.TrySend(frame); err != nil {
		o.Metrics.Drop(observability.ReasonBackpressure)
		log.Warn().Err(err).Str("module", "orch").Str("conn", string(conn.ID())).Str("event", event).Msg("send failed")
		if o.Policy.OnBackPressure(conn) == app.KickMember {
			log.Warn().Str("module", "orch").Str("conn", string(conn.ID())).Msg("kicking slow consumer")
			conn.Close()
		}
		return false
	}
	o.Metrics.Delivered(event)
	return true
}

func (o *Orchestrator) RefreshGauges() {
	o.Metrics.RegisteredUsers.Set(float64(o.Registry.Len()))
	o.Metrics.OpenConnections.Set(float64(o.Conns.Len()))
	o.Metrics.Sessions.Set(float64(o.Sessions.Len()))
}

// malformed logs and counts an event dropped for a missing or invalid field.
func (o *Orchestrator) malformed(event string, err error) {
	o.Metrics.Drop(observability.ReasonMalformed)
	log.Error().Err(err).Str("module", "orch").Str("event", event).Msg("malformed event dropped")
}
