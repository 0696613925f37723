package webrtc

import (
	"errors"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/peerhelp/peerhelp/pkg/logger"
	"github.com/pion/webrtc/v3"
)

// ControlChannel is the label of the data channel with viewer input.
const ControlChannel = "control"

var ErrNoConnection = errors.New("no peer connection")

// Peer is a media sending connection to a single viewer.
// The sharing side is always the offerer.
type Peer struct {
	Id string

	api *ApiFactory
	log *logger.Logger

	// OnMessage receives the data of the control channel.
	OnMessage func(data []byte)
	// OnDisconnect is called once when the connection has failed or closed.
	OnDisconnect func()

	mu     sync.Mutex
	conn   *webrtc.PeerConnection
	sender *webrtc.RTPSender
	d      *webrtc.DataChannel
	once   sync.Once
}

func New(api *ApiFactory, log *logger.Logger) *Peer {
	id := uuid.Must(uuid.NewV4()).String()
	return &Peer{Id: id, api: api, log: log.Extend(log.With().Str("peer", id[:8]))}
}

// Offer makes a new connection with the track and the control channel
// and returns its local offer.
func (p *Peer) Offer(track webrtc.TrackLocal, onICECandidate func(*webrtc.ICECandidateInit)) (*webrtc.SessionDescription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		return nil, errors.New("peer already has a connection")
	}
	conn, err := p.api.NewPeer()
	if err != nil {
		return nil, err
	}
	p.conn = conn
	conn.OnICECandidate(p.handleICECandidate(onICECandidate))

	sender, err := conn.AddTrack(track)
	if err != nil {
		return nil, p.fail(err)
	}
	// Read incoming RTCP packets
	go func() {
		rtcpBuf := make([]byte, 1500)
		for {
			if _, _, rtcpErr := sender.Read(rtcpBuf); rtcpErr != nil {
				return
			}
		}
	}()
	p.sender = sender
	p.log.Debug().Msgf("Added [%s] track", track.Kind())

	if err = p.addDataChannel(ControlChannel); err != nil {
		return nil, p.fail(err)
	}
	conn.OnICEConnectionStateChange(p.handleICEState)

	offer, err := conn.CreateOffer(nil)
	if err != nil {
		return nil, p.fail(err)
	}
	if err = conn.SetLocalDescription(offer); err != nil {
		return nil, p.fail(err)
	}
	p.log.Debug().Msg("Created Offer")
	return conn.LocalDescription(), nil
}

func (p *Peer) fail(err error) error {
	_ = p.conn.Close()
	p.conn = nil
	return err
}

// SetAnswer applies the remote answer of the viewer.
func (p *Peer) SetAnswer(answer webrtc.SessionDescription) error {
	conn := p.connection()
	if conn == nil {
		return ErrNoConnection
	}
	if err := conn.SetRemoteDescription(answer); err != nil {
		p.log.Error().Err(err).Msg("Set remote description from peer failed")
		return err
	}
	p.log.Debug().Msg("Set Remote Description")
	return nil
}

func (p *Peer) AddCandidate(candidate webrtc.ICECandidateInit) error {
	conn := p.connection()
	if conn == nil {
		return ErrNoConnection
	}
	if err := conn.AddICECandidate(candidate); err != nil {
		return err
	}
	p.log.Debug().Str("candidate", candidate.Candidate).Msg("Ice")
	return nil
}

// ReplaceTrack swaps the outgoing media with no renegotiation.
func (p *Peer) ReplaceTrack(track webrtc.TrackLocal) error {
	p.mu.Lock()
	sender := p.sender
	p.mu.Unlock()
	if sender == nil {
		return ErrNoConnection
	}
	return sender.ReplaceTrack(track)
}

// SendData writes into the control channel if it's open.
func (p *Peer) SendData(data []byte) error {
	p.mu.Lock()
	d := p.d
	p.mu.Unlock()
	if d == nil || d.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNoConnection
	}
	return d.Send(data)
}

func (p *Peer) ConnectionState() webrtc.PeerConnectionState {
	if conn := p.connection(); conn != nil {
		return conn.ConnectionState()
	}
	return webrtc.PeerConnectionStateClosed
}

func (p *Peer) connection() *webrtc.PeerConnection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn
}

func (p *Peer) handleICECandidate(callback func(*webrtc.ICECandidateInit)) func(*webrtc.ICECandidate) {
	return func(ice *webrtc.ICECandidate) {
		// ICE gathering finish condition
		if ice == nil {
			p.log.Debug().Msg("ICE gathering was complete probably")
			return
		}
		candidate := ice.ToJSON()
		p.log.Debug().Str("candidate", candidate.Candidate).Msg("ICE")
		if callback != nil {
			callback(&candidate)
		}
	}
}

func (p *Peer) handleICEState(state webrtc.ICEConnectionState) {
	p.log.Debug().Str(".state", state.String()).Msg("ICE")
	switch state {
	case webrtc.ICEConnectionStateConnected:
		p.log.Info().Msg("Connected")
	case webrtc.ICEConnectionStateFailed:
		if conn := p.connection(); conn != nil {
			p.log.Error().Msgf("WebRTC connection fail! connection: %v, ice: %v, gathering: %v, signalling: %v",
				conn.ConnectionState(), conn.ICEConnectionState(), conn.ICEGatheringState(),
				conn.SignalingState())
		}
		p.Disconnect()
	case webrtc.ICEConnectionStateClosed:
		p.Disconnect()
	}
}

// Disconnect closes the connection, safe to call many times.
func (p *Peer) Disconnect() {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn != nil && conn.ConnectionState() != webrtc.PeerConnectionStateClosed {
		_ = conn.Close()
	}
	p.once.Do(func() {
		p.log.Debug().Msg("WebRTC stop")
		if p.OnDisconnect != nil {
			go p.OnDisconnect()
		}
	})
}

// addDataChannel creates a new WebRTC data channel for the viewer input.
// Default params -- ordered: true, negotiated: false.
func (p *Peer) addDataChannel(label string) error {
	ch, err := p.conn.CreateDataChannel(label, nil)
	if err != nil {
		return err
	}
	ch.OnOpen(func() {
		p.log.Debug().Str("label", ch.Label()).Msg("Data channel opened")
	})
	ch.OnError(func(err error) { p.log.Error().Err(err).Msgf("Data channel [%v]", label) })
	ch.OnMessage(func(m webrtc.DataChannelMessage) {
		if len(m.Data) == 0 {
			return
		}
		if p.OnMessage != nil {
			p.OnMessage(m.Data)
		}
	})
	ch.OnClose(func() { p.log.Debug().Msgf("Data channel [%v] has been closed", label) })
	p.d = ch
	return nil
}
