// Package api defines the general API between the relay, the hosts and the viewers.
//
// Each message is a JSON-encoded "packet" of the following structure:
//
//	id - (optional) a packet id, a reply to a packet with an id carries the same id;
//	 t - (required) one of the predefined packet types (event names);
//	 p - (optional) packet payload with arbitrary data.
//
// The packets differentiate by their types with which it is possible to unwrap
// the payload into distinct request/response data structures.
// The relay doesn't look into the negotiation payloads (offers, answers, candidates,
// control events), it only checks the session and the target and stamps the sender id.
//
// Example:
//
//	{"id":"cnpa7ck1ci8hclbu1pqg","t":"join-as-viewer","p":{"sessionId":"K7PX2M9Q","viewerName":"Bob"}}
package api

import (
	"errors"

	"github.com/goccy/go-json"
)

type PT string

// Packet types (the wire contract).
const (
	JoinAsSender       PT = "join-as-sender"
	JoinedAsSender     PT = "joined-as-sender"
	JoinAsViewer       PT = "join-as-viewer"
	JoinedAsViewer     PT = "joined-as-viewer"
	ViewerJoined       PT = "viewer-joined"
	ViewerLeft         PT = "viewer-left"
	Offer              PT = "offer"
	Answer             PT = "answer"
	IceCandidate       PT = "ice-candidate"
	ControlEvent       PT = "control-event"
	SwitchCaptureMode  PT = "switch-capture-mode"
	CaptureModeChanged PT = "capture-mode-changed"
	SessionExpired     PT = "session-expired"
	SenderDisconnected PT = "sender-disconnected"
	Error              PT = "error"
)

func (p PT) String() string { return string(p) }

// IsRelayed tells whether the packet is forwarded as is between the session members.
func (p PT) IsRelayed() bool {
	switch p {
	case Offer, Answer, IceCandidate, ControlEvent, SwitchCaptureMode, CaptureModeChanged:
		return true
	}
	return false
}

type In struct {
	Id      string          `json:"id,omitempty"`
	T       PT              `json:"t"`
	Payload json.RawMessage `json:"p,omitempty"` // should be json.RawMessage for 2-pass unmarshal
}

type Out struct {
	Id      string `json:"id,omitempty"`
	T       PT     `json:"t"`
	Payload any    `json:"p,omitempty"`
}

var ErrMalformed = errors.New("malformed")

// Unwrap decodes the payload of a packet, nil when it's broken.
func Unwrap[T any](data []byte) *T {
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil
	}
	return out
}

// UnwrapChecked is the same as Unwrap but returns ErrMalformed instead of nil.
func UnwrapChecked[T any](data []byte) (*T, error) {
	if out := Unwrap[T](data); out != nil {
		return out, nil
	}
	return nil, ErrMalformed
}
