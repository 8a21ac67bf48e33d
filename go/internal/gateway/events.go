package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/huddle/go/internal/models"
)

// EventType identifies what a server event carries
type EventType string

const (
	EventTypeView      EventType = "view"
	EventTypeSyncState EventType = "sync_state"
	EventTypeResult    EventType = "result"
	EventTypeError     EventType = "error"
)

// ServerEvent is the envelope for everything written to a websocket
type ServerEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewServerEvent marshals payload into a fresh event
func NewServerEvent(eventType EventType, requestID string, payload interface{}) (*ServerEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &ServerEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// ParsePayload decodes the event data into v
func (e *ServerEvent) ParsePayload(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// IntentType identifies a client request
type IntentType string

const (
	IntentJoin         IntentType = "join"
	IntentResume       IntentType = "resume"
	IntentLeave        IntentType = "leave"
	IntentSendMessage  IntentType = "send_message"
	IntentAnswerTrivia IntentType = "answer_trivia"
	IntentPlaceBet     IntentType = "place_bet"
	IntentResolveBet   IntentType = "resolve_bet"
	IntentBetStats     IntentType = "bet_stats"
	IntentPublishRecap IntentType = "publish_recap"
)

// ClientMessage is a request read from a websocket. ID is echoed back as the request_id of the
// result or error it produces.
type ClientMessage struct {
	ID   string          `json:"id"`
	Type IntentType      `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ParsePayload decodes the message data into v
func (m *ClientMessage) ParsePayload(v interface{}) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", errBadRequest, m.Type, err)
	}
	return nil
}

// Intent payloads

type JoinPayload struct {
	Name string      `json:"name"`
	Side models.Side `json:"side"`
}

// ResumePayload carries the participant the client kept in its own storage.
type ResumePayload struct {
	Participant models.Participant `json:"participant"`
}

type SendMessagePayload struct {
	Text string `json:"text"`
}

type AnswerTriviaPayload struct {
	QuestionID string `json:"question_id"`
	Option     int    `json:"option"`
}

type PlaceBetPayload struct {
	BetID     string `json:"bet_id"`
	Selection string `json:"selection"`
}

type ResolveBetPayload struct {
	BetID   string `json:"bet_id"`
	Outcome string `json:"outcome"`
}

type BetStatsPayload struct {
	BetID string `json:"bet_id"`
}

// ErrorPayload is sent back when an intent is rejected
type ErrorPayload struct {
	Intent  IntentType `json:"intent"`
	Code    string     `json:"code"`
	Message string     `json:"message"`
}
