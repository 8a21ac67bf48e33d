package gateway

import (
	"errors"
	"fmt"
	"testing"

	"connectrpc.com/connect"
	"github.com/mcdev12/huddle/go/internal/betting"
	"github.com/mcdev12/huddle/go/internal/session"
	"github.com/mcdev12/huddle/go/internal/trivia"
)

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code string
		rpc  connect.Code
	}{
		{fmt.Errorf("q-main-1: %w", trivia.ErrAlreadyAnswered), "already_answered", connect.CodeFailedPrecondition},
		{fmt.Errorf("coin-toss: %w", betting.ErrAlreadyResolved), "already_resolved", connect.CodeFailedPrecondition},
		{fmt.Errorf("nope: %w", betting.ErrUnknownBet), "unknown_bet", connect.CodeNotFound},
		{betting.ErrAlreadyBet, "already_bet", connect.CodeAlreadyExists},
		{session.ErrNotJoined, "not_joined", connect.CodeFailedPrecondition},
		{errors.New("disk on fire"), "internal", connect.CodeInternal},
	}

	for _, tt := range tests {
		if got := errorCode(tt.err); got != tt.code {
			t.Fatalf("errorCode(%v) = %q, want %q", tt.err, got, tt.code)
		}
		if got := toConnectError(tt.err).Code(); got != tt.rpc {
			t.Fatalf("toConnectError(%v) = %v, want %v", tt.err, got, tt.rpc)
		}
	}
}
