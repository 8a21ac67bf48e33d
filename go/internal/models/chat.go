package models

// SenderKind discriminates who authored a chat message.
type SenderKind string

const (
	SenderHuman    SenderKind = "human"
	SenderFactBot  SenderKind = "factBot"
	SenderCoachBot SenderKind = "coachBot"
)

// Bot identities used as sender ids for automated messages.
const (
	FactBotID     = "bot-facts"
	FactBotName   = "Stat Bot"
	CoachBotID    = "bot-coach"
	CoachBotName  = "Coach"
	MaxChatWindow = 60
)

// ChatMessage is an immutable entry in the party chat.
type ChatMessage struct {
	ID         string     `json:"id"`
	Kind       SenderKind `json:"kind"`
	SenderID   string     `json:"senderId"`
	SenderName string     `json:"senderName"`
	SenderSide Side       `json:"senderSide,omitempty"`
	Text       string     `json:"text"`
	Timestamp  int64      `json:"timestamp"` // unix millis
}

// IsBot reports whether the message was authored by an automated identity.
func (m ChatMessage) IsBot() bool {
	return m.Kind == SenderFactBot || m.Kind == SenderCoachBot
}
