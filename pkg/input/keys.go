package input

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Key is a canonical identifier of a non-character key.
type Key int

const (
	KeyUnknown Key = iota
	KeyEnter
	KeyTab
	KeySpace
	KeyBackspace
	KeyEscape
	KeyDelete
	KeyInsert
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyShift
	KeyControl
	KeyAlt
	KeyMeta
	KeyCapsLock
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	keyCount
)

// webKeys maps the KeyboardEvent.key values.
var webKeys = map[string]Key{
	"Enter":      KeyEnter,
	"Tab":        KeyTab,
	" ":          KeySpace,
	"Spacebar":   KeySpace,
	"Backspace":  KeyBackspace,
	"Escape":     KeyEscape,
	"Esc":        KeyEscape,
	"Delete":     KeyDelete,
	"Del":        KeyDelete,
	"Insert":     KeyInsert,
	"Home":       KeyHome,
	"End":        KeyEnd,
	"PageUp":     KeyPageUp,
	"PageDown":   KeyPageDown,
	"ArrowUp":    KeyArrowUp,
	"ArrowDown":  KeyArrowDown,
	"ArrowLeft":  KeyArrowLeft,
	"ArrowRight": KeyArrowRight,
	"Up":         KeyArrowUp,
	"Down":       KeyArrowDown,
	"Left":       KeyArrowLeft,
	"Right":      KeyArrowRight,
	"Shift":      KeyShift,
	"Control":    KeyControl,
	"Alt":        KeyAlt,
	"Meta":       KeyMeta,
	"OS":         KeyMeta,
	"CapsLock":   KeyCapsLock,
	"F1":         KeyF1,
	"F2":         KeyF2,
	"F3":         KeyF3,
	"F4":         KeyF4,
	"F5":         KeyF5,
	"F6":         KeyF6,
	"F7":         KeyF7,
	"F8":         KeyF8,
	"F9":         KeyF9,
	"F10":        KeyF10,
	"F11":        KeyF11,
	"F12":        KeyF12,
}

func ParseKey(name string) Key { return webKeys[name] }

// keyTable is a per-strategy key vocabulary,
// every canonical key except KeyUnknown must have a value.
type keyTable[T comparable] [keyCount]T

// lookup returns the value of a known key, otherwise the fallback
// with the lower-cased name.
func (t *keyTable[T]) lookup(name string, fallback func(string) (T, bool)) (T, bool) {
	if k := ParseKey(name); k != KeyUnknown {
		return t[k], true
	}
	return fallback(strings.ToLower(name))
}

// X keysym names.
var xdotoolKeys = keyTable[string]{
	KeyEnter:      "Return",
	KeyTab:        "Tab",
	KeySpace:      "space",
	KeyBackspace:  "BackSpace",
	KeyEscape:     "Escape",
	KeyDelete:     "Delete",
	KeyInsert:     "Insert",
	KeyHome:       "Home",
	KeyEnd:        "End",
	KeyPageUp:     "Prior",
	KeyPageDown:   "Next",
	KeyArrowUp:    "Up",
	KeyArrowDown:  "Down",
	KeyArrowLeft:  "Left",
	KeyArrowRight: "Right",
	KeyShift:      "shift",
	KeyControl:    "ctrl",
	KeyAlt:        "alt",
	KeyMeta:       "super",
	KeyCapsLock:   "Caps_Lock",
	KeyF1:         "F1",
	KeyF2:         "F2",
	KeyF3:         "F3",
	KeyF4:         "F4",
	KeyF5:         "F5",
	KeyF6:         "F6",
	KeyF7:         "F7",
	KeyF8:         "F8",
	KeyF9:         "F9",
	KeyF10:        "F10",
	KeyF11:        "F11",
	KeyF12:        "F12",
}

// Key names of the helper process protocol.
var helperKeys = keyTable[string]{
	KeyEnter:      "enter",
	KeyTab:        "tab",
	KeySpace:      "space",
	KeyBackspace:  "backspace",
	KeyEscape:     "escape",
	KeyDelete:     "delete",
	KeyInsert:     "insert",
	KeyHome:       "home",
	KeyEnd:        "end",
	KeyPageUp:     "pageup",
	KeyPageDown:   "pagedown",
	KeyArrowUp:    "up",
	KeyArrowDown:  "down",
	KeyArrowLeft:  "left",
	KeyArrowRight: "right",
	KeyShift:      "shift",
	KeyControl:    "control",
	KeyAlt:        "alt",
	KeyMeta:       "command",
	KeyCapsLock:   "capslock",
	KeyF1:         "f1",
	KeyF2:         "f2",
	KeyF3:         "f3",
	KeyF4:         "f4",
	KeyF5:         "f5",
	KeyF6:         "f6",
	KeyF7:         "f7",
	KeyF8:         "f8",
	KeyF9:         "f9",
	KeyF10:        "f10",
	KeyF11:        "f11",
	KeyF12:        "f12",
}

// keyName is the fallback for the name-based vocabularies.
func keyName(name string) (string, bool) { return name, name != "" }

var keysymName = regexp.MustCompile(`^[a-z0-9_]+$`)

// xdotoolKey returns the keysym of a web key,
// single characters outside the table are typed by their own names.
// Anything else would break the one-command-per-line framing of xdotool.
func xdotoolKey(name string) (string, bool) {
	return xdotoolKeys.lookup(name, func(s string) (string, bool) {
		if sym, ok := xdotoolSymbols[s]; ok {
			return sym, true
		}
		r, size := utf8.DecodeRuneInString(s)
		single := size == len(s) && r != utf8.RuneError && unicode.IsPrint(r) && !unicode.IsSpace(r)
		if !single && !keysymName.MatchString(s) {
			return "", false
		}
		return s, true
	})
}

// xdotoolSymbols are the punctuation characters that
// xdotool can't take as is.
var xdotoolSymbols = map[string]string{
	"-":  "minus",
	"+":  "plus",
	"=":  "equal",
	",":  "comma",
	".":  "period",
	"/":  "slash",
	"\\": "backslash",
	";":  "semicolon",
	"'":  "apostrophe",
	"`":  "grave",
	"[":  "bracketleft",
	"]":  "bracketright",
}
