// Package chat implements the party chat: an append-only message log, ordered by timestamp and
// read as a window of the most recent messages.
package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/huddle/go/internal/assistant"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	// Collection holds one document per message.
	Collection = "chat"
	// CommandToken in a message asks the coach bot to reply.
	CommandToken = "@coach"
)

// Query selects the message window every client renders.
func Query() docstore.Query {
	return docstore.Collection(Collection).OrderedBy("timestamp").Last(models.MaxChatWindow)
}

// HasCommand reports whether text addresses the coach bot.
func HasCommand(text string) bool {
	return strings.Contains(strings.ToLower(text), CommandToken)
}

// Channel appends messages for one session.
type Channel struct {
	stores docstore.Provider
	clock  clockwork.Clock
	coach  assistant.Collaborator
}

func NewChannel(stores docstore.Provider, clock clockwork.Clock, coach assistant.Collaborator) *Channel {
	return &Channel{stores: stores, clock: clock, coach: coach}
}

// Send appends a message from sender. Blank text is ignored and returns nil.
// On the shared store the stored timestamp is assigned by the store; the returned message carries
// the device time.
// When the text carries the command token the coach reply is appended after it; a coach failure
// is logged and does not fail the send.
func (c *Channel) Send(ctx context.Context, sender models.Participant, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	msg := models.ChatMessage{
		ID:         uuid.NewString(),
		Kind:       models.SenderHuman,
		SenderID:   sender.ID,
		SenderName: sender.DisplayName,
		SenderSide: sender.Side,
		Text:       text,
		Timestamp:  c.clock.Now().UnixMilli(),
	}
	if err := c.append(ctx, msg); err != nil {
		return nil, err
	}

	if HasCommand(text) {
		c.askCoach(ctx, text)
	}
	return &msg, nil
}

func (c *Channel) askCoach(ctx context.Context, prompt string) {
	if c.coach == nil {
		return
	}
	reply, err := c.coach.Coach(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("coach reply skipped")
		return
	}
	if _, err := c.PostBot(ctx, models.SenderCoachBot, reply); err != nil {
		log.Error().Err(err).Msg("failed to post coach reply")
	}
}

// PostBot appends a message authored by one of the bot identities.
func (c *Channel) PostBot(ctx context.Context, kind models.SenderKind, text string) (*models.ChatMessage, error) {
	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		Text:      strings.TrimSpace(text),
		Timestamp: c.clock.Now().UnixMilli(),
	}
	switch kind {
	case models.SenderFactBot:
		msg.SenderID, msg.SenderName = models.FactBotID, models.FactBotName
	case models.SenderCoachBot:
		msg.SenderID, msg.SenderName = models.CoachBotID, models.CoachBotName
	default:
		return nil, fmt.Errorf("sender kind %q is not a bot", kind)
	}
	if msg.Text == "" {
		return nil, nil
	}
	if err := c.append(ctx, msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Channel) append(ctx context.Context, msg models.ChatMessage) error {
	patch, err := docstore.PatchOf(msg)
	if err != nil {
		return err
	}
	if docstore.IsShared(c.stores) {
		patch["timestamp"] = docstore.ServerTimestamp
	}
	if _, err := c.stores.Store().Write(ctx, Collection, msg.ID, patch, false); err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	log.Debug().
		Str("message_id", msg.ID).
		Str("kind", string(msg.Kind)).
		Msg("chat message appended")
	return nil
}

// Window decodes a snapshot into messages ordered by timestamp then id, keeping the newest
// MaxChatWindow.
func Window(docs []docstore.Document) []models.ChatMessage {
	msgs := make([]models.ChatMessage, 0, len(docs))
	for _, d := range docs {
		var m models.ChatMessage
		if err := d.Decode(&m); err != nil {
			log.Warn().Err(err).Str("doc_id", d.ID).Msg("skipping malformed chat message")
			continue
		}
		if m.ID == "" {
			m.ID = d.ID
		}
		msgs = append(msgs, m)
	}
	Sort(msgs)
	if len(msgs) > models.MaxChatWindow {
		msgs = msgs[len(msgs)-models.MaxChatWindow:]
	}
	return msgs
}

// Sort orders messages by timestamp, breaking ties by id.
func Sort(msgs []models.ChatMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Timestamp != msgs[j].Timestamp {
			return msgs[i].Timestamp < msgs[j].Timestamp
		}
		return msgs[i].ID < msgs[j].ID
	})
}
