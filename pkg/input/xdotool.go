package input

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/logger"
)

// xdotool drives X11 with one persistent xdotool process
// that reads its commands from stdin.
type xdotool struct {
	conf config.Input
	proc lineSender
	log  *logger.Logger
}

func newXdotool(conf config.Input, log *logger.Logger) Strategy {
	return &xdotool{conf: conf, log: log}
}

func (x *xdotool) Name() string { return "xdotool" }

func (x *xdotool) Init() error {
	if os.Getenv("DISPLAY") == "" {
		return fmt.Errorf("no X display: %w", ErrUnavailable)
	}
	path, err := exec.LookPath(x.conf.Xdotool)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	proc, err := startProcess(path, []string{"-"}, x.conf.QueueSize, x.log)
	if err != nil {
		return err
	}
	x.proc = proc
	return nil
}

func (x *xdotool) send(format string, args ...any) error {
	return x.proc.Send([]byte(fmt.Sprintf(format, args...)))
}

func (x *xdotool) MoveTo(p Point, _ Size) error { return x.send("mousemove %d %d", p.X, p.Y) }

func (x *xdotool) ButtonDown(b Button) error { return x.send("mousedown %d", xButton(b)) }

func (x *xdotool) ButtonUp(b Button) error { return x.send("mouseup %d", xButton(b)) }

func (x *xdotool) DoubleClick(b Button) error {
	return x.send("click --repeat 2 --delay 50 %d", xButton(b))
}

// Scroll uses the X wheel buttons: 4 up, 5 down, 6 left, 7 right.
func (x *xdotool) Scroll(dx, dy int) error {
	if dy != 0 {
		button, n := 5, dy
		if dy < 0 {
			button, n = 4, -dy
		}
		if err := x.send("click --repeat %d %d", n, button); err != nil {
			return err
		}
	}
	if dx != 0 {
		button, n := 7, dx
		if dx < 0 {
			button, n = 6, -dx
		}
		return x.send("click --repeat %d %d", n, button)
	}
	return nil
}

func (x *xdotool) KeyDown(key string) error { return x.key("keydown", key) }

func (x *xdotool) KeyUp(key string) error { return x.key("keyup", key) }

func (x *xdotool) key(cmd string, key string) error {
	sym, ok := xdotoolKey(key)
	if !ok {
		return keyError(key)
	}
	return x.send("%s %s", cmd, sym)
}

func (x *xdotool) Close() error {
	if x.proc == nil {
		return nil
	}
	return x.proc.Close()
}

func xButton(b Button) int {
	switch b {
	case Middle:
		return 2
	case Right:
		return 3
	}
	return 1
}
