//go:build !linux

package input

import (
	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/logger"
)

// noUinput stands for the uinput strategy on the systems without it.
type noUinput struct{}

func newUinput(config.Input, *logger.Logger) Strategy { return noUinput{} }

func (noUinput) Name() string             { return "uinput" }
func (noUinput) Init() error              { return ErrUnavailable }
func (noUinput) MoveTo(Point, Size) error { return ErrUnsupported }
func (noUinput) ButtonDown(Button) error  { return ErrUnsupported }
func (noUinput) ButtonUp(Button) error    { return ErrUnsupported }
func (noUinput) Scroll(int, int) error    { return ErrUnsupported }
func (noUinput) KeyDown(string) error     { return ErrUnsupported }
func (noUinput) KeyUp(string) error       { return ErrUnsupported }
func (noUinput) Close() error             { return nil }
