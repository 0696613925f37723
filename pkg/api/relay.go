package api

import "github.com/goccy/go-json"

type (
	SessionRequest struct {
		SessionId string `json:"sessionId"`
	}
	JoinAsViewerRequest struct {
		SessionId  string `json:"sessionId"`
		ViewerName string `json:"viewerName,omitempty"`
	}
	ViewerJoinedResponse struct {
		ViewerId   string `json:"viewerId"`
		ViewerName string `json:"viewerName"`
		Timestamp  int64  `json:"timestamp"`
	}
	ViewerLeftResponse struct {
		ViewerId   string `json:"viewerId"`
		ViewerName string `json:"viewerName"`
	}
	// Routed is the part of every relayed packet the relay cares about.
	Routed struct {
		SessionId string `json:"sessionId"`
		Target    string `json:"target,omitempty"`
		From      string `json:"from,omitempty"`
	}
	OfferRequest struct {
		Routed
		Offer json.RawMessage `json:"offer"`
	}
	AnswerRequest struct {
		Routed
		Answer json.RawMessage `json:"answer"`
	}
	IceCandidateRequest struct {
		Routed
		Candidate json.RawMessage `json:"candidate"`
	}
	ControlEventRequest struct {
		Routed
		Event json.RawMessage `json:"event"`
	}
	CaptureModeRequest struct {
		Routed
		Mode string `json:"mode"`
	}
	ErrorResponse struct {
		Message string `json:"message"`
		Code    Code   `json:"code,omitempty"`
	}
)

// Code is a machine-readable error kind.
type Code string

const (
	CodeNotFound       Code = "NotFound"
	CodeConflict       Code = "Conflict"
	CodeSenderNotReady Code = "SenderNotReady"
	CodeUnavailable    Code = "Unavailable"
	CodeTimeout        Code = "Timeout"
	CodeTransport      Code = "TransportError"
	CodeMalformed      Code = "Malformed"
)

// Capture modes.
const (
	ModeScreen = "screen"
	ModeWindow = "window"
)

// HTTP API.
type (
	CreateSessionResponse struct {
		SessionId string `json:"sessionId"`
		// ExpiresIn is the session lifetime in seconds.
		ExpiresIn int64 `json:"expiresIn"`
	}
	SessionInfoResponse struct {
		Id          string `json:"id"`
		Status      string `json:"status"`
		Created     int64  `json:"created"`
		ViewerCount int    `json:"viewerCount"`
	}
	HealthResponse struct {
		Status            string `json:"status"`
		Timestamp         int64  `json:"timestamp"`
		ActiveSessions    int    `json:"activeSessions"`
		ActiveConnections int    `json:"activeConnections"`
	}
	HttpErrorResponse struct {
		Error string `json:"error"`
	}
)

// StampFrom sets the from field of a relayed payload,
// all other fields are kept as is.
func StampFrom(payload json.RawMessage, from string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, ErrMalformed
		}
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}
	id, err := json.Marshal(from)
	if err != nil {
		return nil, err
	}
	fields["from"] = id
	return json.Marshal(fields)
}
