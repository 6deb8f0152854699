package app

import (
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/tandem/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionNotFound  = errors.New("negotiation session not found")
	ErrAnswerAlreadySet = errors.New("answer already recorded")
)

// NewSession carries the fields of a valid offer.
type NewSession struct {
	OfferID    domain.OfferID
	CallerID   domain.UserID
	ReceiverID domain.UserID
	Offer      json.RawMessage
	CallURL    string
	ConnID     domain.ConnID
}

type negotiation struct {
	mu sync.Mutex

	offerID    domain.OfferID
	callerID   domain.UserID
	receiverID domain.UserID
	offer      json.RawMessage
	answer     json.RawMessage
	callURL    string
	connID     domain.ConnID

	callerCandidates   []json.RawMessage
	receiverCandidates []json.RawMessage
}

// view must be called with n.mu held.
func (n *negotiation) view() domain.SessionView {
	return domain.SessionView{
		OfferID:            n.offerID,
		CallerID:           n.callerID,
		ReceiverID:         n.receiverID,
		Offer:              n.offer,
		Answer:             n.answer,
		CallURL:            n.callURL,
		OffererConnID:      n.connID,
		CallerCandidates:   cloneCandidates(n.callerCandidates),
		ReceiverCandidates: cloneCandidates(n.receiverCandidates),
	}
}

func (n *negotiation) candidates(role domain.Role) *[]json.RawMessage {
	if role == domain.RoleCaller {
		return &n.callerCandidates
	}
	return &n.receiverCandidates
}

func cloneCandidates(in []json.RawMessage) []json.RawMessage {
	if in == nil {
		return []json.RawMessage{}
	}
	return slices.Clone(in)
}

// SessionStore holds negotiation sessions keyed by offer id. A session idle
// for longer than the TTL is evicted; every mutation resets its clock.
// Sessions of different offers are mutated in parallel; mu only orders a
// replace against a TTL refresh of the same key.
type SessionStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[domain.OfferID, *negotiation]
}

// NewSessionStore builds a store. capacity 0 means unbounded; ttl 0 disables
// idle eviction. onEvict may be nil.
func NewSessionStore(capacity int, ttl time.Duration, onEvict func(domain.OfferID)) *SessionStore {
	evict := func(id domain.OfferID, _ *negotiation) {
		log.Info().Str("module", "app.sessions").Str("offer", string(id)).Msg("session evicted")
		if onEvict != nil {
			onEvict(id)
		}
	}
	return &SessionStore{cache: expirable.NewLRU[domain.OfferID, *negotiation](capacity, evict, ttl)}
}

// Create stores a new session, overwriting any prior one with the same id.
func (s *SessionStore) Create(ns NewSession) domain.SessionView {
	n := &negotiation{
		offerID:    ns.OfferID,
		callerID:   ns.CallerID,
		receiverID: ns.ReceiverID,
		offer:      ns.Offer,
		callURL:    ns.CallURL,
		connID:     ns.ConnID,
	}
	s.mu.Lock()
	_, existed := s.cache.Peek(ns.OfferID)
	s.cache.Add(ns.OfferID, n)
	s.mu.Unlock()

	ev := log.Info().Str("module", "app.sessions").Str("offer", string(ns.OfferID)).
		Str("caller", string(ns.CallerID)).Str("receiver", string(ns.ReceiverID))
	if existed {
		ev.Msg("session overwritten")
	} else {
		ev.Msg("session created")
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.view()
}

// RecordAnswer sets the answer once.
func (s *SessionStore) RecordAnswer(id domain.OfferID, answer json.RawMessage) (domain.SessionView, error) {
	n, ok := s.cache.Get(id)
	if !ok {
		return domain.SessionView{}, ErrSessionNotFound
	}
	n.mu.Lock()
	if n.answer != nil {
		v := n.view()
		n.mu.Unlock()
		return v, ErrAnswerAlreadySet
	}
	n.answer = answer
	v := n.view()
	n.mu.Unlock()

	s.touch(id, n)
	return v, nil
}

// AppendCandidate appends to the role's list and reports whether the session exists.
func (s *SessionStore) AppendCandidate(id domain.OfferID, role domain.Role, candidate json.RawMessage) (domain.SessionView, bool) {
	n, ok := s.cache.Get(id)
	if !ok {
		return domain.SessionView{}, false
	}
	n.mu.Lock()
	list := n.candidates(role)
	*list = append(*list, candidate)
	v := n.view()
	n.mu.Unlock()

	s.touch(id, n)
	return v, true
}

// Candidates returns the role's accumulated list, empty when the session is unknown.
func (s *SessionStore) Candidates(id domain.OfferID, role domain.Role) []json.RawMessage {
	n, ok := s.cache.Get(id)
	if !ok {
		return []json.RawMessage{}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return cloneCandidates(*n.candidates(role))
}

func (s *SessionStore) Get(id domain.OfferID) (domain.SessionView, bool) {
	n, ok := s.cache.Get(id)
	if !ok {
		return domain.SessionView{}, false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.view(), true
}

func (s *SessionStore) Len() int {
	return s.cache.Len()
}

// touch restarts the idle clock unless the session was replaced meanwhile.
func (s *SessionStore) touch(id domain.OfferID, n *negotiation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.cache.Peek(id); ok && cur == n {
		s.cache.Add(id, n)
	}
}
