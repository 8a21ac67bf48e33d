package events

import (
	"time"
)

// Event payload types shared between the document store change feed and the gateway

// DocumentChangedPayload is published after every document write
type DocumentChangedPayload struct {
	ChangeID   string    `json:"change_id"`
	Collection string    `json:"collection"`
	DocID      string    `json:"doc_id"`
	Merge      bool      `json:"merge"`
	ChangedAt  time.Time `json:"changed_at"`
}

// SyncStateChangedPayload is emitted when a session moves through its sync state machine
type SyncStateChangedPayload struct {
	ParticipantID string    `json:"participant_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	ChangedAt     time.Time `json:"changed_at"`
}

// BetResolvedPayload summarizes a host resolution
type BetResolvedPayload struct {
	BetID   string `json:"bet_id"`
	Outcome string `json:"outcome"`
	Winners int    `json:"winners"`
	Losers  int    `json:"losers"`
}
