package relay

import (
	"errors"

	"github.com/peerhelp/peerhelp/pkg/api"
)

var (
	ErrNotFound       = errors.New("Session not found")
	ErrConflict       = errors.New("Session already has a sender")
	ErrSenderNotReady = errors.New("Sender is not ready")
	ErrAlreadyJoined  = errors.New("Connection has already joined a session")
	ErrNoTarget       = errors.New("Target not found")
	ErrNotMember      = errors.New("Not a member of the session")
	ErrCodeSpace      = errors.New("couldn't generate a unique session code")
)

// errorCode maps relay errors to the wire error codes.
func errorCode(err error) api.Code {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoTarget), errors.Is(err, ErrNotMember):
		return api.CodeNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyJoined):
		return api.CodeConflict
	case errors.Is(err, ErrSenderNotReady):
		return api.CodeSenderNotReady
	case errors.Is(err, api.ErrMalformed):
		return api.CodeMalformed
	case errors.Is(err, ErrCodeSpace):
		return api.CodeUnavailable
	}
	return api.CodeTransport
}

func errorResponse(err error) api.ErrorResponse {
	return api.ErrorResponse{Message: err.Error(), Code: errorCode(err)}
}
