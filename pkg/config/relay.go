package config

import (
	"os"
	"time"

	flag "github.com/spf13/pflag"
)

type RelayConfig struct {
	Relay   Relay
	Version Version
}

type Relay struct {
	Debug      bool
	Monitoring Monitoring
	Server     Server
	// Origins is a list of allowed origin patterns,
	// where * matches any sequence of characters.
	Origins []string `default:"[*]"`
	Session struct {
		Ttl          time.Duration `default:"4h"`
		Sweep        time.Duration `default:"60s"`
		CodeAttempts int           `default:"10"`
	}
	// Watch enables config file reloads of the origins list.
	Watch bool
}

// NewRelayConfig loads the config with the defaults and env overrides.
// Returns the path of the config file if it was found.
func NewRelayConfig() (conf RelayConfig, path string) {
	path, err := LoadConfig(&conf, os.Getenv(EnvConfigPath))
	if err != nil {
		panic(err)
	}
	conf.Relay.applyEnv()
	return
}

// Reload reads the config file again.
func (c *RelayConfig) Reload(path string) error {
	var conf RelayConfig
	if _, err := LoadConfig(&conf, dirOf(path)); err != nil {
		return err
	}
	conf.Relay.applyEnv()
	*c = conf
	return nil
}

func (r *Relay) applyEnv() {
	if origins, ok := envList(envAllowedOrigins); ok {
		r.Origins = origins
	}
	if port, ok := envInt(envPort); ok {
		r.Server.WithPort(port)
	}
	if ttl, ok := envHours(envSessionTtl); ok {
		r.Session.Ttl = ttl
	}
}

func (c *RelayConfig) ParseFlags() {
	c.Relay.Server.WithFlags()
	flag.BoolVar(&c.Relay.Debug, "debug", c.Relay.Debug, "Verbose logs")
	flag.IntVar(&c.Relay.Monitoring.Port, "monitoring.port", c.Relay.Monitoring.Port, "Monitoring server port")
	flag.StringSliceVar(&c.Relay.Origins, "origins", c.Relay.Origins, "Allowed origin patterns")
	flag.DurationVar(&c.Relay.Session.Ttl, "session.ttl", c.Relay.Session.Ttl, "Session lifetime")
	flag.Parse()
}
