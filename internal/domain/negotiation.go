package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidRole = errors.New("invalid role")

// OfferID is the caller-chosen key of one call negotiation.
type OfferID string

// Role tells which side of a negotiation produced an ICE candidate.
type Role string

const (
	RoleCaller Role = "caller"
	RoleCallee Role = "callee"
)

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleCaller, RoleCallee:
		return Role(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

// Other returns the opposite side of the negotiation.
func (r Role) Other() Role {
	if r == RoleCaller {
		return RoleCallee
	}
	return RoleCaller
}

// SessionView is a read-only copy of a negotiation session as sent to clients.
type SessionView struct {
	OfferID            OfferID           `json:"offerId"`
	CallerID           UserID            `json:"callerId"`
	ReceiverID         UserID            `json:"receiverId"`
	Offer              json.RawMessage   `json:"offer"`
	Answer             json.RawMessage   `json:"answer"`
	CallURL            string            `json:"videoCallUrl"`
	OffererConnID      ConnID            `json:"offererSocketId"`
	CallerCandidates   []json.RawMessage `json:"offerIceCandidates"`
	ReceiverCandidates []json.RawMessage `json:"answererIceCandidates"`
}
