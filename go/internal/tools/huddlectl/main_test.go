package main

import (
	"context"
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/mcdev12/huddle/go/internal/events"
	"github.com/mcdev12/huddle/go/internal/gateway"
	"github.com/mcdev12/huddle/go/internal/models"
)

type fakeHost struct {
	resolved *gateway.ResolveBetRequest
	author   string
}

func (f *fakeHost) ResolveBet(ctx context.Context, req *connect.Request[gateway.ResolveBetRequest]) (*connect.Response[gateway.ResolveBetResponse], error) {
	f.resolved = req.Msg
	return connect.NewResponse(&gateway.ResolveBetResponse{Result: events.BetResolvedPayload{BetID: req.Msg.BetID, Outcome: req.Msg.Outcome, Winners: 2}}), nil
}

func (f *fakeHost) GetBetStats(ctx context.Context, req *connect.Request[gateway.GetBetStatsRequest]) (*connect.Response[gateway.GetBetStatsResponse], error) {
	if req.Msg.BetID != "coin-toss" {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("unknown prop bet"))
	}
	return connect.NewResponse(&gateway.GetBetStatsResponse{Stats: models.BetStats{BetID: "coin-toss", TotalCount: 3}}), nil
}

func (f *fakeHost) PublishRecap(ctx context.Context, req *connect.Request[gateway.PublishRecapRequest]) (*connect.Response[gateway.PublishRecapResponse], error) {
	f.author = req.Msg.AuthorID
	return connect.NewResponse(&gateway.PublishRecapResponse{Recap: &models.Recap{Text: "close game", AuthorID: req.Msg.AuthorID}}), nil
}

func TestRunResolveJoinsOutcome(t *testing.T) {
	host := &fakeHost{}
	out, err := run(context.Background(), host, []string{"resolve", "halftime-guest", "Marching", "Band"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if host.resolved.Outcome != "Marching Band" {
		t.Fatalf("outcome = %q", host.resolved.Outcome)
	}
	if resp := out.(*gateway.ResolveBetResponse); resp.Result.Winners != 2 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestRunStatsAndRecap(t *testing.T) {
	host := &fakeHost{}
	if _, err := run(context.Background(), host, []string{"stats", "nope"}); connect.CodeOf(err) != connect.CodeNotFound {
		t.Fatalf("stats err = %v", err)
	}
	out, err := run(context.Background(), host, []string{"stats", "coin-toss"})
	if err != nil || out.(*gateway.GetBetStatsResponse).Stats.TotalCount != 3 {
		t.Fatalf("stats = %+v, %v", out, err)
	}
	if _, err := run(context.Background(), host, []string{"recap", "ana"}); err != nil || host.author != "ana" {
		t.Fatalf("recap author = %q, err = %v", host.author, err)
	}
}

func TestRunRejectsBadArgs(t *testing.T) {
	for _, args := range [][]string{nil, {"resolve", "coin-toss"}, {"stats"}, {"dance"}} {
		if _, err := run(context.Background(), &fakeHost{}, args); err == nil {
			t.Fatalf("run(%v) should fail", args)
		}
	}
}
