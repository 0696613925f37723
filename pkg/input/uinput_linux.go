//go:build linux

package input

import (
	"errors"
	"fmt"

	"github.com/bendahl/uinput"
	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/logger"
)

const (
	uinputPath = "/dev/uinput"
	// absMax is the axis range of the virtual pointer
	absMax = 32767
)

// uinputInput injects the events through virtual kernel devices,
// it works under both X11 and Wayland.
type uinputInput struct {
	kb    uinput.Keyboard
	mouse uinput.Mouse
	pad   uinput.TouchPad
	log   *logger.Logger
}

func newUinput(_ config.Input, log *logger.Logger) Strategy { return &uinputInput{log: log} }

func (u *uinputInput) Name() string { return "uinput" }

func (u *uinputInput) Init() (err error) {
	defer func() {
		if err != nil {
			_ = u.Close()
			err = fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}()
	if u.kb, err = uinput.CreateKeyboard(uinputPath, []byte("peerhelp-keyboard")); err != nil {
		return
	}
	if u.mouse, err = uinput.CreateMouse(uinputPath, []byte("peerhelp-mouse")); err != nil {
		return
	}
	u.pad, err = uinput.CreateTouchPad(uinputPath, []byte("peerhelp-pointer"), 0, absMax, 0, absMax)
	return
}

func (u *uinputInput) MoveTo(p Point, s Size) error {
	return u.pad.MoveTo(toAbs(p.X, s.W), toAbs(p.Y, s.H))
}

func toAbs(v, n int) int32 {
	if n <= 1 {
		return 0
	}
	return int32(v * absMax / (n - 1))
}

func (u *uinputInput) ButtonDown(b Button) error {
	switch b {
	case Right:
		return u.mouse.RightPress()
	case Middle:
		return u.mouse.MiddlePress()
	}
	return u.mouse.LeftPress()
}

func (u *uinputInput) ButtonUp(b Button) error {
	switch b {
	case Right:
		return u.mouse.RightRelease()
	case Middle:
		return u.mouse.MiddleRelease()
	}
	return u.mouse.LeftRelease()
}

// Scroll flips the vertical direction, a positive REL_WHEEL is up.
func (u *uinputInput) Scroll(dx, dy int) error {
	if dy != 0 {
		if err := u.mouse.Wheel(false, int32(-dy)); err != nil {
			return err
		}
	}
	if dx != 0 {
		return u.mouse.Wheel(true, int32(dx))
	}
	return nil
}

func (u *uinputInput) KeyDown(key string) error {
	code, ok := uinputKey(key)
	if !ok {
		return keyError(key)
	}
	return u.kb.KeyDown(code)
}

func (u *uinputInput) KeyUp(key string) error {
	code, ok := uinputKey(key)
	if !ok {
		return keyError(key)
	}
	return u.kb.KeyUp(code)
}

func (u *uinputInput) Close() error {
	var errs []error
	if u.pad != nil {
		errs = append(errs, u.pad.Close())
	}
	if u.mouse != nil {
		errs = append(errs, u.mouse.Close())
	}
	if u.kb != nil {
		errs = append(errs, u.kb.Close())
	}
	u.kb, u.mouse, u.pad = nil, nil, nil
	return errors.Join(errs...)
}

func uinputKey(name string) (int, bool) {
	return uinputKeys.lookup(name, func(s string) (int, bool) {
		code, ok := uinputChars[s]
		return code, ok
	})
}

var uinputKeys = keyTable[int]{
	KeyEnter:      uinput.KeyEnter,
	KeyTab:        uinput.KeyTab,
	KeySpace:      uinput.KeySpace,
	KeyBackspace:  uinput.KeyBackspace,
	KeyEscape:     uinput.KeyEsc,
	KeyDelete:     uinput.KeyDelete,
	KeyInsert:     uinput.KeyInsert,
	KeyHome:       uinput.KeyHome,
	KeyEnd:        uinput.KeyEnd,
	KeyPageUp:     uinput.KeyPageup,
	KeyPageDown:   uinput.KeyPagedown,
	KeyArrowUp:    uinput.KeyUp,
	KeyArrowDown:  uinput.KeyDown,
	KeyArrowLeft:  uinput.KeyLeft,
	KeyArrowRight: uinput.KeyRight,
	KeyShift:      uinput.KeyLeftshift,
	KeyControl:    uinput.KeyLeftctrl,
	KeyAlt:        uinput.KeyLeftalt,
	KeyMeta:       uinput.KeyLeftmeta,
	KeyCapsLock:   uinput.KeyCapslock,
	KeyF1:         uinput.KeyF1,
	KeyF2:         uinput.KeyF2,
	KeyF3:         uinput.KeyF3,
	KeyF4:         uinput.KeyF4,
	KeyF5:         uinput.KeyF5,
	KeyF6:         uinput.KeyF6,
	KeyF7:         uinput.KeyF7,
	KeyF8:         uinput.KeyF8,
	KeyF9:         uinput.KeyF9,
	KeyF10:        uinput.KeyF10,
	KeyF11:        uinput.KeyF11,
	KeyF12:        uinput.KeyF12,
}

// uinputChars are the key codes of the lower-cased characters on a US layout.
var uinputChars = map[string]int{
	"a": uinput.KeyA, "b": uinput.KeyB, "c": uinput.KeyC, "d": uinput.KeyD, "e": uinput.KeyE,
	"f": uinput.KeyF, "g": uinput.KeyG, "h": uinput.KeyH, "i": uinput.KeyI, "j": uinput.KeyJ,
	"k": uinput.KeyK, "l": uinput.KeyL, "m": uinput.KeyM, "n": uinput.KeyN, "o": uinput.KeyO,
	"p": uinput.KeyP, "q": uinput.KeyQ, "r": uinput.KeyR, "s": uinput.KeyS, "t": uinput.KeyT,
	"u": uinput.KeyU, "v": uinput.KeyV, "w": uinput.KeyW, "x": uinput.KeyX, "y": uinput.KeyY,
	"z": uinput.KeyZ,
	"1": uinput.Key1, "2": uinput.Key2, "3": uinput.Key3, "4": uinput.Key4, "5": uinput.Key5,
	"6": uinput.Key6, "7": uinput.Key7, "8": uinput.Key8, "9": uinput.Key9, "0": uinput.Key0,
	"-": uinput.KeyMinus, "=": uinput.KeyEqual, "[": uinput.KeyLeftbrace, "]": uinput.KeyRightbrace,
	";": uinput.KeySemicolon, "'": uinput.KeyApostrophe, "`": uinput.KeyGrave, "\\": uinput.KeyBackslash,
	",": uinput.KeyComma, ".": uinput.KeyDot, "/": uinput.KeySlash,
}
