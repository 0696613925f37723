package main

import (
	"context"
	goflag "flag"
	"time"

	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/logger"
	"github.com/peerhelp/peerhelp/pkg/os"
	"github.com/peerhelp/peerhelp/pkg/relay"
	flag "github.com/spf13/pflag"
)

var Version = "?"

func main() {
	conf, path := config.NewRelayConfig()
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	conf.ParseFlags()

	log := logger.NewConsole(conf.Relay.Debug, "r", false)

	log.Info().Msgf("version %s", Version)
	if path != "" {
		log.Info().Msgf("config: %v", path)
	}
	log.Debug().Msgf("config: %+v", conf)
	r := relay.New(conf, path, log)
	if err := r.Start(); err != nil {
		log.Fatal().Err(err).Msg("relay start")
	}

	<-os.ExpectTermination()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("service shutdown errors")
	}
}
