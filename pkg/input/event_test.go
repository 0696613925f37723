package input

import (
	"errors"
	"testing"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		in     string
		typ    Type
		button Button
		point  bool
		err    error
	}{
		{in: `{"type":"mousemove","x":0.5,"y":0.25}`, typ: MouseMove, button: Left, point: true},
		{in: `{"type":"mousedown","x":0,"y":0,"button":2}`, typ: MouseDown, button: Right, point: true},
		{in: `{"type":"click","button":"middle"}`, typ: Click, button: Middle},
		{in: `{"type":"click","button":1}`, typ: Click, button: Middle},
		{in: `{"type":"keydown","key":"ArrowUp"}`, typ: KeyDown, button: Left},
		{in: `{"type":"click","button":7}`, err: ErrBadEvent},
		{in: `{"type":"click","button":"side"}`, err: ErrBadEvent},
		{in: `{"x":1}`, err: ErrBadEvent},
		{in: `nope`, err: ErrBadEvent},
	}
	for _, test := range tests {
		e, err := ParseEvent([]byte(test.in))
		if test.err != nil {
			if !errors.Is(err, test.err) {
				t.Errorf("%v: expected %v, got %v", test.in, test.err, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v: %v", test.in, err)
			continue
		}
		if e.Type != test.typ || e.Button != test.button || e.hasPoint() != test.point {
			t.Errorf("%v: wrong event %+v", test.in, e)
		}
	}
}

func TestToPixels(t *testing.T) {
	hd := Size{W: 1920, H: 1080}
	tests := []struct {
		x, y float64
		size Size
		want Point
	}{
		{x: 0.5, y: 0.5, size: hd, want: Point{960, 540}},
		{x: 0, y: 0, size: hd, want: Point{0, 0}},
		{x: 1, y: 1, size: hd, want: Point{1919, 1079}},
		{x: -0.2, y: 1.5, size: hd, want: Point{0, 1079}},
		{x: 0.25, y: 0.75, size: Size{W: 1280, H: 720}, want: Point{320, 540}},
		{x: 0.5, y: 0.5, size: Size{}, want: Point{0, 0}},
	}
	for _, test := range tests {
		if p := toPixels(test.x, test.y, test.size); p != test.want {
			t.Errorf("(%v, %v) on %v = %v, want %v", test.x, test.y, test.size, p, test.want)
		}
	}
}

func TestWheelSteps(t *testing.T) {
	tests := []struct {
		delta float64
		steps int
	}{
		{0, 0},
		{100, 1},
		{-100, -1},
		{1, 1},
		{-3, -1},
		{250, 3},
		{-300, -3},
	}
	for _, test := range tests {
		if n := wheelSteps(test.delta); n != test.steps {
			t.Errorf("%v gives %v steps, want %v", test.delta, n, test.steps)
		}
	}
}
