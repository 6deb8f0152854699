package orch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/tandem/internal/core"
	"github.com/dkeye/tandem/internal/domain"
	"github.com/dkeye/tandem/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var (
	ErrUnknownPairedEvent = errors.New("unknown paired event")
	ErrEmptyTopic         = errors.New("empty topic")
)

// Register binds the user in p to conn, replacing any earlier binding.
func (o *Orchestrator) Register(conn core.Conn, p domain.Setup) error {
	o.Metrics.Event(domain.EventSetup)
	if err := validate.Struct(p); err != nil {
		o.malformed(domain.EventSetup, err)
		return err
	}
	uid, err := domain.ParseUserID(p.UserID)
	if err != nil {
		o.malformed(domain.EventSetup, err)
		return err
	}
	o.Registry.Register(uid, conn)
	o.RefreshGauges()
	return nil
}

// ReceiverConn reports the connection a user is reachable on.
func (o *Orchestrator) ReceiverConn(p domain.GetReceiver) (domain.ConnID, bool) {
	o.Metrics.Event(domain.EventGetReceiver)
	if err := validate.Struct(p); err != nil {
		o.malformed(domain.EventGetReceiver, err)
		return "", false
	}
	conn, ok := o.lookup(p.UserID)
	if !ok {
		return "", false
	}
	return conn.ID(), true
}

// PairedUpdate relays synchronized call state to targetId under the same
// event name. Only targetId is checked; the payload is forwarded untouched.
// Fire and forget: an offline target drops the update.
func (o *Orchestrator) PairedUpdate(event string, raw json.RawMessage) error {
	o.Metrics.Event(event)
	if !lo.Contains(domain.PairedEvents, event) {
		err := fmt.Errorf("%w: %s", ErrUnknownPairedEvent, event)
		o.malformed(event, err)
		return err
	}
	var target domain.Target
	if err := json.Unmarshal(raw, &target); err != nil {
		o.malformed(event, err)
		return fmt.Errorf("decode %s: %w", event, err)
	}
	if err := validate.Struct(target); err != nil {
		o.malformed(event, err)
		return err
	}

	peer, ok := o.lookup(target.TargetID)
	if !ok {
		o.Metrics.Drop(observability.ReasonTargetOffline)
		log.Debug().Str("module", "orch").Str("event", event).Str("target", target.TargetID).Msg("paired update: target offline")
		return nil
	}
	o.send(peer, event, raw)
	return nil
}

// BroadcastTopic sends the picked topic to every open connection, sender included.
func (o *Orchestrator) BroadcastTopic(raw json.RawMessage) (int, error) {
	o.Metrics.Event(domain.EventTopicPicked)
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		o.malformed(domain.EventTopicPicked, ErrEmptyTopic)
		return 0, ErrEmptyTopic
	}
	return o.Broadcast(domain.EventTopicPicked, json.RawMessage(trimmed)), nil
}
