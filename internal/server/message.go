package server

import (
	"encoding/json"
	"time"
)

// Message is the wire envelope in both directions.
type Message struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// NewMessage wraps a payload in the wire envelope.
func NewMessage(event string, payload any) (*Message, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &Message{
		Event:     event,
		Payload:   raw,
		Timestamp: time.Now(),
	}, nil
}

// Client → server payloads

type AuthPayload struct {
	Token     string `json:"token,omitempty"`
	IsBot     bool   `json:"isBot,omitempty"`
	BotName   string `json:"botName,omitempty"`
	BotAvatar string `json:"botAvatar,omitempty"`
	Name      string `json:"name,omitempty"`
}

type MatchmakingJoinPayload struct {
	Blinds     string `json:"blinds"`
	IsFastFold bool   `json:"isFastFold,omitempty"`
	BuyIn      int    `json:"buyIn,omitempty"`
}

type GameActionPayload struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

type SpectatePayload struct {
	TableID string `json:"tableId"`
}

type PrivateCreatePayload struct {
	Blinds string `json:"blinds"`
	BuyIn  int    `json:"buyIn,omitempty"`
}

type PrivateJoinPayload struct {
	InviteCode string `json:"inviteCode"`
	BuyIn      int    `json:"buyIn,omitempty"`
}

// Server → client payloads

type EstablishedPayload struct {
	PlayerID string `json:"playerId"`
}

type QueuedPayload struct {
	Position int `json:"position"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type MaintenancePayload struct {
	Active bool `json:"active"`
}

type AnnouncementPayload struct {
	Message string `json:"message"`
}

type PrivateCreatedPayload struct {
	TableID    string `json:"tableId"`
	InviteCode string `json:"inviteCode"`
}
