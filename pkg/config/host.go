package config

import (
	"os"
	"time"

	flag "github.com/spf13/pflag"
)

type HostConfig struct {
	Host    Host
	Webrtc  Webrtc
	Version Version
}

type Host struct {
	Debug bool
	// Headless disables the terminal UI.
	Headless bool
	// LogFile receives the logs while the terminal UI is on.
	LogFile    string `default:"peerhelp-host.log"`
	LockFile   string
	Monitoring Monitoring
	Relay      struct {
		Address        string        `default:"http://localhost:8080"`
		RequestTimeout time.Duration `default:"10s"`
		ConnectTimeout time.Duration `default:"60s"`
	}
	Capture Capture
	Input   Input
	// AllowRemoteModeSwitch lets viewers change the capture mode.
	AllowRemoteModeSwitch bool
}

type Capture struct {
	// Mode is either screen or window (privacy mode).
	Mode      string        `default:"screen"`
	Timeout   time.Duration `default:"15s"`
	MaxWidth  int           `default:"1920"`
	MaxHeight int           `default:"1080"`
	FrameRate int           `default:"30"`
	Bitrate   string        `default:"2M"`
	Display   string        `default:":0.0"`
	Ffmpeg    string        `default:"ffmpeg"`
	// Window is the window shown in the privacy mode.
	Window struct {
		Id   string
		Name string `default:"peerhelp"`
	}
}

type Input struct {
	// Strategies is the ranked list of injection methods.
	Strategies []string `default:"[uinput,xdotool,helper]"`
	RateLimit  int      `default:"100"`
	QueueSize  int      `default:"256"`
	Xdotool    string   `default:"xdotool"`
	Helper     struct {
		Command string
		Args    []string
	}
	// Screen is used when the display size can't be detected.
	Screen struct {
		Width  int `default:"1920"`
		Height int `default:"1080"`
	}
	DrmPath string `default:"/sys/class/drm"`
}

func NewHostConfig() (conf HostConfig, path string) {
	path, err := LoadConfig(&conf, os.Getenv(EnvConfigPath))
	if err != nil {
		panic(err)
	}
	return
}

func (c *HostConfig) ParseFlags() {
	flag.BoolVar(&c.Host.Debug, "debug", c.Host.Debug, "Verbose logs")
	flag.BoolVar(&c.Host.Headless, "headless", c.Host.Headless, "Run without the terminal UI")
	flag.StringVar(&c.Host.Relay.Address, "relay", c.Host.Relay.Address, "Relay address (http[s]://host:port)")
	flag.StringVar(&c.Host.Capture.Mode, "mode", c.Host.Capture.Mode, "Capture mode (screen, window)")
	flag.StringVar(&c.Host.Capture.Window.Id, "window", c.Host.Capture.Window.Id, "Window id for the privacy mode")
	flag.StringSliceVar(&c.Host.Input.Strategies, "input", c.Host.Input.Strategies, "Input injection strategies by rank")
	flag.IntVar(&c.Host.Monitoring.Port, "monitoring.port", c.Host.Monitoring.Port, "Monitoring server port")
	flag.Parse()
}
