package input

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Display tells the size of the primary screen.
type Display interface {
	Size() Size
}

// drmDisplay reads the current mode of the first connected output
// from the kernel DRM sysfs on every call.
type drmDisplay struct {
	path     string
	fallback Size
}

func NewDrmDisplay(path string, fallback Size) Display {
	return &drmDisplay{path: path, fallback: fallback}
}

func (d *drmDisplay) Size() Size {
	if s, ok := d.read(); ok {
		return s
	}
	return d.fallback
}

func (d *drmDisplay) read() (Size, bool) {
	outputs, err := filepath.Glob(filepath.Join(d.path, "card*-*"))
	if err != nil {
		return Size{}, false
	}
	sort.Strings(outputs)
	for _, out := range outputs {
		status, err := os.ReadFile(filepath.Join(out, "status"))
		if err != nil || strings.TrimSpace(string(status)) != "connected" {
			continue
		}
		if s, ok := firstMode(filepath.Join(out, "modes")); ok {
			return s, true
		}
	}
	return Size{}, false
}

// firstMode parses the preferred mode line like 1920x1080.
func firstMode(path string) (Size, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Size{}, false
	}
	defer func() { _ = f.Close() }()
	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return Size{}, false
	}
	var s Size
	if _, err = fmt.Sscanf(strings.TrimSpace(sc.Text()), "%dx%d", &s.W, &s.H); err != nil || s.W <= 0 || s.H <= 0 {
		return Size{}, false
	}
	return s, true
}
