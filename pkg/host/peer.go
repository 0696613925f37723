package host

import (
	"github.com/peerhelp/peerhelp/pkg/logger"
	"github.com/peerhelp/peerhelp/pkg/webrtc"
	pionRTC "github.com/pion/webrtc/v3"
)

// Peer is the media connection to a single viewer.
type Peer interface {
	Offer(track pionRTC.TrackLocal, onICECandidate func(*pionRTC.ICECandidateInit)) (*pionRTC.SessionDescription, error)
	SetAnswer(answer pionRTC.SessionDescription) error
	AddCandidate(candidate pionRTC.ICECandidateInit) error
	ReplaceTrack(track pionRTC.TrackLocal) error
	Disconnect()
}

type PeerHandlers struct {
	// OnMessage receives the control events sent over the data channel.
	OnMessage    func(data []byte)
	OnDisconnect func()
}

type PeerFactory func(viewerId string, h PeerHandlers) Peer

// NewPeerFactory makes WebRTC peers.
func NewPeerFactory(api *webrtc.ApiFactory, log *logger.Logger) PeerFactory {
	return func(viewerId string, h PeerHandlers) Peer {
		p := webrtc.New(api, log.Extend(log.With().Str("viewer", viewerId)))
		p.OnMessage = h.OnMessage
		p.OnDisconnect = h.OnDisconnect
		return p
	}
}

// InputSink takes the control events without blocking.
type InputSink interface {
	Push(event []byte) bool
}
