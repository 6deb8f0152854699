package domain

import "encoding/json"

// Inbound event names.
const (
	EventSetup              = "setup"
	EventOffer              = "newOffer"
	EventAnswer             = "newAnswer"
	EventICECandidate       = "iceServer"
	EventGetICE             = "getIce"
	EventGetReceiver        = "getReceiverSocketId"
	EventTimerControlUpdate = "timerControlUpdate"
	EventLanguageUpdate     = "languageUpdate"
	EventDurationUpdate     = "durationUpdate"
	EventSetsUpdate         = "setsUpdate"
	EventTopicPicked        = "topicPicked"
	EventPing               = "ping"
)

// Outbound event names.
const (
	EventOfferAwaiting  = "newOfferAwaiting"
	EventAnswerToClient = "answerToClient"
	EventICEToClient    = "iceToClient"
	EventNewMessage     = "newMessage"
	EventAck            = "ack"
	EventPong           = "pong"
)

// PairedEvents are relayed verbatim to the paired user named by targetId.
var PairedEvents = []string{
	EventTimerControlUpdate,
	EventLanguageUpdate,
	EventDurationUpdate,
	EventSetsUpdate,
}

type Setup struct {
	UserID string `json:"userId" validate:"required,max=128"`
}

type Offer struct {
	Offer      json.RawMessage `json:"offer" validate:"required"`
	OfferID    string          `json:"offerId" validate:"required"`
	ReceiverID string          `json:"receiverId" validate:"required"`
	CallerID   string          `json:"callerId" validate:"required"`
	CallURL    string          `json:"videoCallUrl"`
}

type Answer struct {
	Answer   json.RawMessage `json:"answer" validate:"required"`
	OfferID  string          `json:"offerId" validate:"required"`
	CallerID string          `json:"callerId" validate:"required"`
}

// ICECandidate accepts both the short (iceC/who) and long (candidate/role) field names.
// Side is checked with ParseRole since either name may carry it.
type ICECandidate struct {
	IceC      json.RawMessage `json:"iceC" validate:"required_without=Candidate"`
	Candidate json.RawMessage `json:"candidate" validate:"required_without=IceC"`
	OfferID   string          `json:"offerId" validate:"required"`
	Who       string          `json:"who" validate:"omitempty,oneof=caller callee"`
	Role      string          `json:"role" validate:"omitempty,oneof=caller callee"`
}

func (c ICECandidate) Value() json.RawMessage {
	if len(c.IceC) > 0 {
		return c.IceC
	}
	return c.Candidate
}

func (c ICECandidate) Side() string {
	if c.Who != "" {
		return c.Who
	}
	return c.Role
}

type GetICE struct {
	OfferID string `json:"offerId" validate:"required"`
	Who     string `json:"who" validate:"required,oneof=caller callee"`
}

type GetReceiver struct {
	UserID string `json:"userId" validate:"required"`
}

// Target is the routing part of every paired-state update. The rest of the
// payload (timer, language, duration, sets) is opaque to the relay.
type Target struct {
	TargetID string `json:"targetId" validate:"required"`
}

// Notification is a directed delivery requested by an out-of-process collaborator.
type Notification struct {
	Event   string          `json:"event" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}
