package host

import (
	"context"
	"errors"

	"github.com/peerhelp/peerhelp/pkg/capture"
	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/input"
	"github.com/peerhelp/peerhelp/pkg/logger"
	"github.com/peerhelp/peerhelp/pkg/monitoring"
	"github.com/peerhelp/peerhelp/pkg/os"
	"github.com/peerhelp/peerhelp/pkg/service"
	"github.com/peerhelp/peerhelp/pkg/webrtc"
)

// App is the host process: the session manager with the platform
// capture and the input injection.
type App struct {
	conf     config.HostConfig
	lock     *os.Flock
	input    *input.Injector
	manager  *Manager
	services service.Group
	log      *logger.Logger
}

func NewApp(conf config.HostConfig, log *logger.Logger) (*App, error) {
	lock, err := os.NewFileLock(conf.Host.LockFile)
	if err != nil {
		return nil, err
	}
	if err = lock.TryLock(); err != nil {
		if errors.Is(err, os.ErrLocked) {
			log.Error().Msgf("Another host is running, lock: %v", lock.Path())
		}
		return nil, err
	}

	app := &App{conf: conf, lock: lock, log: log}
	if err = app.init(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return app, nil
}

func (a *App) init() error {
	inj, err := input.New(a.conf.Host.Input, a.log)
	if err != nil {
		return err
	}
	if err = inj.Initialize(); err != nil {
		a.log.Warn().Err(err).Msg("Remote control is disabled")
	}
	a.input = inj

	api, err := webrtc.NewApiFactory(a.conf.Webrtc, a.log, nil)
	if err != nil {
		return err
	}
	a.manager = NewManager(
		a.conf.Host,
		capture.NewFFmpeg(a.conf.Host.Capture, a.log),
		NewPeerFactory(api, a.log),
		inj,
		a.log,
	)

	a.services.Add(inj)
	if a.conf.Host.Monitoring.IsEnabled() {
		mon, err := monitoring.New(a.conf.Host.Monitoring, a.log)
		if err != nil {
			return err
		}
		a.services.Add(mon)
	}
	return nil
}

func (a *App) Manager() *Manager { return a.manager }

// InputStrategy returns the name of the injection method in use.
func (a *App) InputStrategy() string { return a.input.Strategy() }

// Start runs the services and opens a new session.
func (a *App) Start(ctx context.Context) (string, error) {
	a.services.Start()
	return a.manager.StartSession(ctx, a.conf.Host.Relay.Address)
}

func (a *App) Shutdown(ctx context.Context) error {
	a.manager.Close()
	err := a.services.Shutdown(ctx)
	if e := a.lock.Unlock(); e != nil {
		err = errors.Join(err, e)
	}
	return err
}
