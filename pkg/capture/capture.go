// Package capture provides the screen and window video sources of the host.
package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/peerhelp/peerhelp/pkg/logger"
	"github.com/pion/webrtc/v3"
)

type Mode string

const (
	// Screen is the whole primary display.
	Screen Mode = "screen"
	// Window is only the host application window (privacy mode).
	Window Mode = "window"
)

func (m Mode) IsValid() bool { return m == Screen || m == Window }

// ParseMode returns the mode by its name, the unknown names give Screen.
func ParseMode(name string) Mode {
	if m := Mode(name); m.IsValid() {
		return m
	}
	return Screen
}

type Source struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	Type Mode   `json:"type"`
}

// Bounds limit the size and the rate of the captured video.
type Bounds struct {
	MaxWidth  int
	MaxHeight int
	FrameRate int
}

var (
	ErrUnavailable = errors.New("capture source unavailable")
	ErrNoSource    = errors.New("no capture source")
)

// Stream is a live capture with its outgoing video track.
type Stream interface {
	Source() Source
	Track() webrtc.TrackLocal
	Stop()
}

// Capturer is a platform capture capability.
type Capturer interface {
	Sources(ctx context.Context) ([]Source, error)
	Capture(ctx context.Context, src Source, bounds Bounds) (Stream, error)
}

// Selector picks the capture sources for the modes.
type Selector struct {
	c      Capturer
	bounds Bounds
	// window is the name or the id of the window source
	window string
	log    *logger.Logger
}

func NewSelector(c Capturer, bounds Bounds, window string, log *logger.Logger) *Selector {
	return &Selector{c: c, bounds: bounds, window: window, log: log}
}

// Acquire starts the capture for the mode.
// When there is no window to capture, it falls back to the whole screen.
// Returns the stream and the mode in effect.
func (s *Selector) Acquire(ctx context.Context, mode Mode) (Stream, Mode, error) {
	sources, err := s.c.Sources(ctx)
	if err != nil {
		return nil, mode, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if mode == Window {
		if src, ok := s.find(sources, Window); ok {
			stream, err := s.c.Capture(ctx, src, s.bounds)
			if err == nil {
				return stream, Window, nil
			}
			s.log.Warn().Err(err).Msgf("Window [%v] capture has failed", src.Name)
		} else {
			s.log.Warn().Msgf("No window [%v] to capture", s.window)
		}
		s.log.Info().Msg("Falling back to the screen capture")
	}
	src, ok := s.find(sources, Screen)
	if !ok {
		return nil, mode, ErrNoSource
	}
	stream, err := s.c.Capture(ctx, src, s.bounds)
	if err != nil {
		return nil, mode, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return stream, Screen, nil
}

func (s *Selector) find(sources []Source, t Mode) (Source, bool) {
	for _, src := range sources {
		if src.Type != t {
			continue
		}
		if t == Window && s.window != "" && src.Id != s.window && src.Name != s.window {
			continue
		}
		return src, true
	}
	return Source{}, false
}
