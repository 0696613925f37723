package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/logger"
	"github.com/peerhelp/peerhelp/pkg/monitoring"
	"github.com/peerhelp/peerhelp/pkg/network/httpx"
	"github.com/peerhelp/peerhelp/pkg/service"
)

// Relay is the signaling service: it creates sessions and
// forwards the negotiation messages between their members.
type Relay struct {
	conf     config.RelayConfig
	confPath string
	store    *Store
	hub      *Hub
	origins  *OriginPolicy
	services service.Group
	log      *logger.Logger
}

func New(conf config.RelayConfig, confPath string, log *logger.Logger) *Relay {
	store := NewStore(conf.Relay.Session.Ttl, conf.Relay.Session.CodeAttempts, log)
	origins := NewOriginPolicy(conf.Relay.Origins)
	return &Relay{
		conf:     conf,
		confPath: confPath,
		store:    store,
		hub:      NewHub(store, origins, log),
		origins:  origins,
		log:      log,
	}
}

// Handler returns all the HTTP endpoints of the relay.
func (r *Relay) Handler() http.Handler { return r.routes() }

func (r *Relay) Start() error {
	conf := r.conf.Relay
	srv, err := httpx.NewServer(
		conf.Server.GetAddr(),
		func(*httpx.Server) httpx.Handler { return r.routes() },
		httpx.WithServerConfig(conf.Server),
		httpx.WithLogger(r.log),
	)
	if err != nil {
		return err
	}
	r.services.Add(srv)
	r.services.Add(newSweeper(r.store, conf.Session.Sweep, r.log))
	if conf.Monitoring.IsEnabled() {
		mon, err := monitoring.New(conf.Monitoring, r.log)
		if err != nil {
			return err
		}
		r.services.Add(mon)
	}
	if conf.Watch && r.confPath != "" {
		r.services.Add(config.NewWatcher(r.confPath, r.reload, r.log))
	}
	r.log.Info().Msgf("Allowed origins: %v", r.origins.Patterns())
	r.services.Start()
	return nil
}

// reload applies the new allowed origins from the config file.
func (r *Relay) reload() {
	if err := r.conf.Reload(r.confPath); err != nil {
		r.log.Error().Err(err).Msg("couldn't reload the config")
		return
	}
	r.origins.Set(r.conf.Relay.Origins)
	r.log.Info().Msgf("Allowed origins have been updated: %v", r.origins.Patterns())
}

func (r *Relay) Shutdown(ctx context.Context) error {
	err := r.services.Shutdown(ctx)
	r.hub.Close()
	r.store.Close()
	return err
}

// sweeper periodically expires the sessions that outlived their timers.
type sweeper struct {
	store  *Store
	period time.Duration
	done   chan struct{}
	log    *logger.Logger
}

func newSweeper(store *Store, period time.Duration, log *logger.Logger) *sweeper {
	if period <= 0 {
		period = time.Minute
	}
	return &sweeper{store: store, period: period, done: make(chan struct{}), log: log}
}

func (s *sweeper) Run() {
	go func() {
		t := time.NewTicker(s.period)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if n := s.store.Sweep(); n > 0 {
					s.log.Warn().Msgf("Swept %v stale sessions", n)
				}
			case <-s.done:
				return
			}
		}
	}()
}

func (s *sweeper) Shutdown(context.Context) error { close(s.done); return nil }

func (s *sweeper) String() string { return "session sweeper" }
