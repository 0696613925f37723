package input

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/logger"
)

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) Send(line []byte) error {
	r.mu.Lock()
	r.lines = append(r.lines, string(line))
	r.mu.Unlock()
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.lines
	r.lines = nil
	return out
}

func TestXdotoolCommands(t *testing.T) {
	rec := &recorder{}
	x := &xdotool{proc: rec, log: logger.Nop()}
	hd := Size{W: 1920, H: 1080}

	tests := []struct {
		name string
		do   func() error
		want []string
	}{
		{name: "move", do: func() error { return x.MoveTo(Point{960, 540}, hd) }, want: []string{"mousemove 960 540"}},
		{name: "down", do: func() error { return x.ButtonDown(Right) }, want: []string{"mousedown 3"}},
		{name: "up", do: func() error { return x.ButtonUp(Middle) }, want: []string{"mouseup 2"}},
		{name: "dblclick", do: func() error { return x.DoubleClick(Left) }, want: []string{"click --repeat 2 --delay 50 1"}},
		{name: "scroll down", do: func() error { return x.Scroll(0, 3) }, want: []string{"click --repeat 3 5"}},
		{name: "scroll up", do: func() error { return x.Scroll(0, -1) }, want: []string{"click --repeat 1 4"}},
		{name: "scroll sideways", do: func() error { return x.Scroll(-2, 1) }, want: []string{"click --repeat 1 5", "click --repeat 2 6"}},
		{name: "key", do: func() error { return x.KeyDown("ArrowUp") }, want: []string{"keydown Up"}},
		{name: "char", do: func() error { return x.KeyUp("B") }, want: []string{"keyup b"}},
	}
	for _, test := range tests {
		if err := test.do(); err != nil {
			t.Errorf("%v: %v", test.name, err)
			continue
		}
		if got := rec.take(); !reflect.DeepEqual(got, test.want) {
			t.Errorf("%v: got %q, want %q", test.name, got, test.want)
		}
	}

	for _, key := range []string{"", "a\nexec touch /tmp/x", "a b"} {
		if err := x.KeyDown(key); !errors.Is(err, ErrUnsupported) {
			t.Errorf("%q: %v", key, err)
		}
	}
	if got := rec.take(); len(got) > 0 {
		t.Errorf("bad keys have been sent: %q", got)
	}

	ev, err := ParseEvent([]byte(`{"type":"keydown","key":"a\nexec touch /tmp/x"}`))
	if err != nil {
		t.Fatalf("couldn't parse: %v", err)
	}
	if err = x.KeyDown(ev.Key); !errors.Is(err, ErrUnsupported) {
		t.Errorf("multiline key: %v", err)
	}
}

func TestHelperCommands(t *testing.T) {
	rec := &recorder{}
	h := &helper{proc: rec, log: logger.Nop()}

	tests := []struct {
		name string
		do   func() error
		want helperCommand
	}{
		{name: "move", do: func() error { return h.MoveTo(Point{10, 20}, Size{100, 200}) },
			want: helperCommand{Type: "move", X: 10, Y: 20, Width: 100, Height: 200}},
		{name: "down", do: func() error { return h.ButtonDown(Left) }, want: helperCommand{Type: "down", Button: Left}},
		{name: "dblclick", do: func() error { return h.DoubleClick(Right) }, want: helperCommand{Type: "dblclick", Button: Right}},
		{name: "scroll", do: func() error { return h.Scroll(1, -2) }, want: helperCommand{Type: "scroll", Dx: 1, Dy: -2}},
		{name: "key", do: func() error { return h.KeyDown(" ") }, want: helperCommand{Type: "keydown", Key: "space"}},
	}
	for _, test := range tests {
		if err := test.do(); err != nil {
			t.Errorf("%v: %v", test.name, err)
			continue
		}
		lines := rec.take()
		if len(lines) != 1 {
			t.Fatalf("%v: %v lines", test.name, len(lines))
		}
		var got helperCommand
		if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
			t.Fatalf("%v: bad line %v", test.name, lines[0])
		}
		if got != test.want {
			t.Errorf("%v: got %+v, want %+v", test.name, got, test.want)
		}
	}
}

func TestUnavailableStrategies(t *testing.T) {
	conf := config.Input{Xdotool: "/nonexistent/xdotool"}
	t.Setenv("DISPLAY", ":0")
	for _, s := range []Strategy{newHelper(conf, logger.Nop()), newXdotool(conf, logger.Nop())} {
		if err := s.Init(); !errors.Is(err, ErrUnavailable) {
			t.Errorf("%v: expected %v, got %v", s.Name(), ErrUnavailable, err)
		}
		if err := s.Close(); err != nil {
			t.Errorf("%v: close %v", s.Name(), err)
		}
	}
}

func TestNewStrategies(t *testing.T) {
	list, err := newStrategies(config.Input{Strategies: []string{"xdotool", "helper"}}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name() != "xdotool" || list[1].Name() != "helper" {
		t.Errorf("wrong order")
	}
	if _, err = newStrategies(config.Input{Strategies: []string{"magic"}}, logger.Nop()); err == nil {
		t.Errorf("unknown strategy is accepted")
	}
}
