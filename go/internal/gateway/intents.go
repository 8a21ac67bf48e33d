package gateway

import (
	"context"
	"fmt"

	"github.com/mcdev12/huddle/go/internal/identity"
)

// dispatch forwards one client intent to the connection's session
func (c *Connection) dispatch(ctx context.Context, msg *ClientMessage) (interface{}, error) {
	s := c.Session

	switch msg.Type {
	case IntentJoin:
		var p JoinPayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, err
		}
		return s.Join(ctx, p.Name, p.Side)

	case IntentResume:
		var p ResumePayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, err
		}
		if p.Participant.ID == "" {
			return nil, identity.ErrNoIdentity
		}
		if !p.Participant.Side.Valid() {
			return nil, fmt.Errorf("%q: %w", p.Participant.Side, identity.ErrInvalidSide)
		}
		if err := c.ids.Save(p.Participant); err != nil {
			return nil, err
		}
		return s.Resume(ctx)

	case IntentLeave:
		s.Leave()
		return nil, nil

	case IntentSendMessage:
		var p SendMessagePayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, err
		}
		return s.SendMessage(ctx, p.Text)

	case IntentAnswerTrivia:
		var p AnswerTriviaPayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, err
		}
		return s.AnswerTrivia(ctx, p.QuestionID, p.Option)

	case IntentPlaceBet:
		var p PlaceBetPayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, err
		}
		return s.PlaceBet(ctx, p.BetID, p.Selection)

	case IntentResolveBet:
		var p ResolveBetPayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, err
		}
		return s.ResolveBet(ctx, p.BetID, p.Outcome)

	case IntentBetStats:
		var p BetStatsPayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, err
		}
		return s.BetStats(ctx, p.BetID)

	case IntentPublishRecap:
		return s.PublishRecap(ctx)

	default:
		return nil, fmt.Errorf("%w: unknown intent %q", errBadRequest, msg.Type)
	}
}
