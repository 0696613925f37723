// Package input turns the viewer control events into the host input.
package input

import (
	"errors"
	"math"
	"strings"

	"github.com/goccy/go-json"
)

type Type string

const (
	MouseMove   Type = "mousemove"
	MouseDown   Type = "mousedown"
	MouseUp     Type = "mouseup"
	Click       Type = "click"
	DoubleClick Type = "dblclick"
	Scroll      Type = "scroll"
	KeyDown     Type = "keydown"
	KeyUp       Type = "keyup"
	KeyPress    Type = "keypress"
)

type Button string

const (
	Left   Button = "left"
	Right  Button = "right"
	Middle Button = "middle"
)

// UnmarshalJSON accepts both the names and the DOM MouseEvent.button numbers.
func (b *Button) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		switch n {
		case 0:
			*b = Left
		case 1:
			*b = Middle
		case 2:
			*b = Right
		default:
			return ErrBadEvent
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrBadEvent
	}
	switch Button(strings.ToLower(s)) {
	case Left, "":
		*b = Left
	case Right:
		*b = Right
	case Middle:
		*b = Middle
	default:
		return ErrBadEvent
	}
	return nil
}

// Event is a single viewer input action.
// The pointer coordinates are normalized to [0, 1] of the shared screen.
type Event struct {
	Type   Type     `json:"type"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Button Button   `json:"button,omitempty"`
	Key    string   `json:"key,omitempty"`
	DeltaX float64  `json:"deltaX,omitempty"`
	DeltaY float64  `json:"deltaY,omitempty"`
}

var ErrBadEvent = errors.New("bad input event")

func ParseEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return e, ErrBadEvent
	}
	if e.Type == "" {
		return e, ErrBadEvent
	}
	if e.Button == "" {
		e.Button = Left
	}
	return e, nil
}

func (e Event) hasPoint() bool { return e.X != nil && e.Y != nil }

// Point is an absolute screen position in pixels.
type Point struct{ X, Y int }

type Size struct{ W, H int }

// toPixels maps the normalized position onto the screen.
func toPixels(x, y float64, s Size) Point {
	return Point{X: scale(x, s.W), Y: scale(y, s.H)}
}

func scale(v float64, n int) int {
	if n <= 0 {
		return 0
	}
	p := int(math.Round(v * float64(n)))
	if p < 0 {
		return 0
	}
	if p > n-1 {
		return n - 1
	}
	return p
}
