package input

import (
	"errors"
	"fmt"

	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/logger"
)

// Strategy is a way to inject the input into the host.
// Scroll takes the wheel steps in the web direction,
// where positive dy means down and positive dx means right.
type Strategy interface {
	Name() string
	Init() error
	MoveTo(p Point, screen Size) error
	ButtonDown(b Button) error
	ButtonUp(b Button) error
	Scroll(dx, dy int) error
	KeyDown(key string) error
	KeyUp(key string) error
	Close() error
}

// DoubleClicker is a strategy with a native double click.
type DoubleClicker interface {
	DoubleClick(b Button) error
}

var (
	ErrUnavailable = errors.New("input injection is unavailable")
	ErrUnsupported = errors.New("not supported")
)

type factory func(conf config.Input, log *logger.Logger) Strategy

var strategies = map[string]factory{
	"uinput":  newUinput,
	"xdotool": newXdotool,
	"helper":  newHelper,
}

// newStrategies makes the ranked strategy list from the names.
func newStrategies(conf config.Input, log *logger.Logger) ([]Strategy, error) {
	var list []Strategy
	for _, name := range conf.Strategies {
		f, ok := strategies[name]
		if !ok {
			return nil, fmt.Errorf("unknown input strategy [%v]", name)
		}
		list = append(list, f(conf, log))
	}
	return list, nil
}

func keyError(key string) error { return fmt.Errorf("unknown key [%v]: %w", key, ErrUnsupported) }
