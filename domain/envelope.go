package domain

import (
	"allchat/errors"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type MessageType string

const (
	LookingForMatch MessageType = "looking-for-match"
	CancelMatch     MessageType = "cancel-match"
	Offer           MessageType = "offer"
	Answer          MessageType = "answer"
	IceCandidate    MessageType = "ice-candidate"
	Chat            MessageType = "chat"
	EndChat         MessageType = "end-chat"

	MatchFound     MessageType = "match-found"
	MatchCancelled MessageType = "match-cancelled"
	UserLeftMatch  MessageType = "user-left-match"
	ChatEnded      MessageType = "chat-ended"
)

// IsSignal reports whether the type belongs to peer-connection negotiation.
func (t MessageType) IsSignal() bool {
	switch t {
	case Offer, Answer, IceCandidate:
		return true
	}
	return false
}

// IsInbound reports whether a client is allowed to send this type.
func (t MessageType) IsInbound() bool {
	switch t {
	case LookingForMatch, CancelMatch, Offer, Answer, IceCandidate, Chat, EndChat:
		return true
	}
	return false
}

// Envelope is the flat JSON object exchanged with clients.
// Fields the engine does not understand (sdp, candidate, message...) stay in Raw
// and are forwarded untouched.
type Envelope struct {
	Type      MessageType `json:"type" validate:"required,max=64"`
	To        UserID      `json:"to,omitempty" validate:"max=128"`
	From      UserID      `json:"from,omitempty" validate:"max=128"`
	UserID    UserID      `json:"userId,omitempty" validate:"max=128"`
	Users     []UserID    `json:"users,omitempty"`
	SessionID GroupID     `json:"sessionId,omitempty"`
	GroupSize *int        `json:"groupSize,omitempty"`
	Raw       []byte      `json:"-"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(signalRules, Envelope{})
	return v
}

// signalRules requires both endpoints on negotiation messages.
func signalRules(sl validator.StructLevel) {
	e := sl.Current().Interface().(Envelope)
	if !e.Type.IsSignal() {
		return
	}
	if e.To == "" {
		sl.ReportError(e.To, "To", "to", "required_for_signal", string(e.Type))
	}
	if e.From == "" {
		sl.ReportError(e.From, "From", "from", "required_for_signal", string(e.Type))
	}
}

// inbound holds the only fields the engine reads from a client frame.
// Anything else, whatever its JSON type, is payload for the peer.
type inbound struct {
	Type      MessageType     `json:"type"`
	To        json.RawMessage `json:"to"`
	From      json.RawMessage `json:"from"`
	GroupSize json.RawMessage `json:"groupSize"`
}

// ParseEnvelope decodes a client frame. The original bytes are kept in Raw.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", errors.ErrMalformedEnvelope, err)
	}
	e := Envelope{
		Type:      in.Type,
		To:        UserID(stringOrEmpty(in.To)),
		From:      UserID(stringOrEmpty(in.From)),
		GroupSize: intOrNil(in.GroupSize),
	}
	if err := validate.Struct(e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", errors.ErrMalformedEnvelope, err)
	}
	e.Raw = raw
	return e, nil
}

func stringOrEmpty(field json.RawMessage) string {
	var s string
	if json.Unmarshal(field, &s) != nil {
		return ""
	}
	return s
}

func intOrNil(field json.RawMessage) *int {
	var n *int
	if json.Unmarshal(field, &n) != nil {
		return nil
	}
	return n
}

// ValidateUserID checks an identifier handed over by the upstream identity layer.
func ValidateUserID(userID string) error {
	if err := validate.Var(userID, "required,max=128,printascii"); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidIdentity, err)
	}
	return nil
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func NewMatchFound(g Group) Envelope {
	return Envelope{Type: MatchFound, Users: g.Members, SessionID: g.ID}
}

func NewMatchCancelled(userID UserID) Envelope {
	return Envelope{Type: MatchCancelled, UserID: userID}
}

func NewUserLeftMatch(leaver UserID) Envelope {
	return Envelope{Type: UserLeftMatch, UserID: leaver}
}

// NewChatEnded carries the user whose departure ended the chat.
func NewChatEnded(initiator UserID) Envelope {
	return Envelope{Type: ChatEnded, UserID: initiator}
}
