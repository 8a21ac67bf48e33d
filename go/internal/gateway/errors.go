package gateway

import (
	"errors"

	"connectrpc.com/connect"
	"github.com/mcdev12/huddle/go/internal/assistant"
	"github.com/mcdev12/huddle/go/internal/betting"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/identity"
	"github.com/mcdev12/huddle/go/internal/session"
	"github.com/mcdev12/huddle/go/internal/trivia"
)

var errBadRequest = errors.New("bad request")

// errorCodes maps rejected intents to the code shown to clients and the RPC status.
var errorCodes = []struct {
	err  error
	code string
	rpc  connect.Code
}{
	{trivia.ErrAlreadyAnswered, "already_answered", connect.CodeFailedPrecondition},
	{trivia.ErrUnknownQuestion, "unknown_question", connect.CodeNotFound},
	{trivia.ErrInvalidOption, "invalid_option", connect.CodeInvalidArgument},
	{betting.ErrUnknownBet, "unknown_bet", connect.CodeNotFound},
	{betting.ErrInvalidSelection, "invalid_selection", connect.CodeInvalidArgument},
	{betting.ErrAlreadyBet, "already_bet", connect.CodeAlreadyExists},
	{betting.ErrBetResolved, "bet_resolved", connect.CodeFailedPrecondition},
	{betting.ErrAlreadyResolved, "already_resolved", connect.CodeFailedPrecondition},
	{session.ErrNotJoined, "not_joined", connect.CodeFailedPrecondition},
	{session.ErrAlreadyJoined, "already_joined", connect.CodeAlreadyExists},
	{identity.ErrInvalidName, "invalid_name", connect.CodeInvalidArgument},
	{identity.ErrInvalidSide, "invalid_side", connect.CodeInvalidArgument},
	{identity.ErrNoIdentity, "no_identity", connect.CodeNotFound},
	{docstore.ErrUnavailable, "unavailable", connect.CodeUnavailable},
	{assistant.ErrNoProvider, "no_provider", connect.CodeUnavailable},
	{errBadRequest, "bad_request", connect.CodeInvalidArgument},
}

// errorCode returns the client-facing code for err, "internal" when it is not a known rejection.
func errorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return "internal"
}

// toConnectError wraps err with the status matching its sentinel.
func toConnectError(err error) *connect.Error {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return connect.NewError(e.rpc, err)
		}
	}
	return connect.NewError(connect.CodeInternal, err)
}
