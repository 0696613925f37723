package main

import (
	"context"
	goflag "flag"
	"io"
	stdos "os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/host"
	"github.com/peerhelp/peerhelp/pkg/logger"
	"github.com/peerhelp/peerhelp/pkg/os"
	flag "github.com/spf13/pflag"
)

var Version = "?"

func main() {
	conf, path := config.NewHostConfig()
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	conf.ParseFlags()

	var out io.Writer = stdos.Stdout
	if !conf.Host.Headless && conf.Host.LogFile != "" {
		f, err := stdos.OpenFile(conf.Host.LogFile, stdos.O_CREATE|stdos.O_WRONLY|stdos.O_APPEND, 0o644)
		if err != nil {
			panic(err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	log := logger.NewConsoleTo(out, conf.Host.Debug, "h", out != stdos.Stdout)

	log.Info().Msgf("version %s", Version)
	if path != "" {
		log.Info().Msgf("config: %v", path)
	}
	log.Debug().Msgf("config: %+v", conf)

	app, err := host.NewApp(conf, log)
	if err != nil {
		log.Fatal().Err(err).Msg("host init")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("service shutdown errors")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := os.ExpectTermination()
	go func() {
		<-stop
		cancel()
	}()

	code, err := app.Start(ctx)
	if err != nil {
		log.Error().Err(err).Msg("couldn't start a session")
		return
	}

	if conf.Host.Headless {
		log.Info().Msgf("Session code: %v", code)
		m := app.Manager()
		for {
			select {
			case n := <-m.Notifications():
				log.Info().Msgf("%v", describe(n))
				if n.Kind == host.SessionStopped {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}

	p := tea.NewProgram(newModel(app.Manager(), app.InputStrategy()), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err = p.Run(); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("ui")
	}
}
