package input

import (
	"fmt"
	"os/exec"

	"github.com/goccy/go-json"
	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/logger"
)

// helper sends the input as JSON lines to an external helper process.
type helper struct {
	conf config.Input
	proc lineSender
	log  *logger.Logger
}

type helperCommand struct {
	Type   string `json:"type"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Button Button `json:"button,omitempty"`
	Key    string `json:"key,omitempty"`
	Dx     int    `json:"dx,omitempty"`
	Dy     int    `json:"dy,omitempty"`
}

func newHelper(conf config.Input, log *logger.Logger) Strategy {
	return &helper{conf: conf, log: log}
}

func (h *helper) Name() string { return "helper" }

func (h *helper) Init() error {
	if h.conf.Helper.Command == "" {
		return fmt.Errorf("no helper command: %w", ErrUnavailable)
	}
	path, err := exec.LookPath(h.conf.Helper.Command)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	proc, err := startProcess(path, h.conf.Helper.Args, h.conf.QueueSize, h.log)
	if err != nil {
		return err
	}
	h.proc = proc
	return nil
}

func (h *helper) send(c helperCommand) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return h.proc.Send(data)
}

func (h *helper) MoveTo(p Point, s Size) error {
	return h.send(helperCommand{Type: "move", X: p.X, Y: p.Y, Width: s.W, Height: s.H})
}

func (h *helper) ButtonDown(b Button) error { return h.send(helperCommand{Type: "down", Button: b}) }

func (h *helper) ButtonUp(b Button) error { return h.send(helperCommand{Type: "up", Button: b}) }

func (h *helper) DoubleClick(b Button) error {
	return h.send(helperCommand{Type: "dblclick", Button: b})
}

// Scroll passes the steps in the web direction.
func (h *helper) Scroll(dx, dy int) error { return h.send(helperCommand{Type: "scroll", Dx: dx, Dy: dy}) }

func (h *helper) KeyDown(key string) error { return h.key("keydown", key) }

func (h *helper) KeyUp(key string) error { return h.key("keyup", key) }

func (h *helper) key(t string, key string) error {
	name, ok := helperKeys.lookup(key, keyName)
	if !ok {
		return keyError(key)
	}
	return h.send(helperCommand{Type: t, Key: name})
}

func (h *helper) Close() error {
	if h.proc == nil {
		return nil
	}
	return h.proc.Close()
}
