package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/peerhelp/peerhelp/pkg/logger"
	"golang.org/x/crypto/acme/autocert"
)

type Server struct {
	http.Server

	autoCert *autocert.Manager
	opts     Options

	listener   *Listener
	challenges *http.Server
	log        *logger.Logger
}

type (
	Mux struct {
		*http.ServeMux
		prefix string
	}
	Handler        = http.Handler
	HandlerFunc    = http.HandlerFunc
	ResponseWriter = http.ResponseWriter
	Request        = http.Request
)

// NewServeMux allocates and returns a new ServeMux.
// The prefix param is added to the path part of the patterns.
func NewServeMux(prefix string) *Mux {
	return &Mux{ServeMux: http.NewServeMux(), prefix: prefix}
}

func (m *Mux) Handle(pattern string, handler Handler) *Mux {
	m.ServeMux.Handle(m.withPrefix(pattern), handler)
	return m
}

func (m *Mux) HandleFunc(pattern string, handler func(ResponseWriter, *Request)) *Mux {
	m.ServeMux.HandleFunc(m.withPrefix(pattern), handler)
	return m
}

// withPrefix puts the prefix after the optional method part of a pattern,
// so "GET /health" becomes "GET /prefix/health".
func (m *Mux) withPrefix(pattern string) string {
	if m.prefix == "" {
		return pattern
	}
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == ' ' {
			return pattern[:i+1] + m.prefix + pattern[i+1:]
		}
	}
	return m.prefix + pattern
}

func NewServer(address string, handler func(*Server) Handler, options ...Option) (*Server, error) {
	opts := &Options{
		CertCache:    "certs",
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  500 * time.Second,
		WriteTimeout: 500 * time.Second,
	}
	opts.override(options...)

	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}

	server := &Server{
		Server: http.Server{
			Addr:         address,
			IdleTimeout:  opts.IdleTimeout,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
		opts: *opts,
		log:  opts.Logger,
	}
	server.Handler = handler(server)

	if opts.Https && opts.IsAutoHttpsCert() {
		server.autoCert = newCertManager(opts.HttpsDomain, opts.CertCache)
		server.TLSConfig = server.autoCert.TLSConfig()
		if opts.AcmeAddress != "" {
			server.challenges = &http.Server{
				Addr:              opts.AcmeAddress,
				Handler:           server.autoCert.HTTPHandler(nil),
				ReadHeaderTimeout: 10 * time.Second,
			}
		}
	}

	addr := server.Addr
	if server.Addr == "" {
		addr = ":http"
		if opts.Https {
			addr = ":https"
		}
		opts.Logger.Warn().Msgf("Empty server address has been changed to %v", addr)
	}
	listener, err := NewListener(addr, server.opts.PortRoll)
	if err != nil {
		return nil, err
	}
	server.listener = listener

	addr = buildAddress(server.Addr, *listener)
	opts.Logger.Info().Msgf("httpx %v (%v)", addr, server.Addr)
	server.Addr = addr

	return server, nil
}

func (s *Server) Run() { go s.run() }

func (s *Server) run() {
	protocol := s.GetProtocol()
	s.log.Debug().Msgf("Starting %s server on %s", protocol, s.Addr)

	if s.challenges != nil {
		go s.serveChallenges()
	}

	var err error
	if s.opts.Https {
		err = s.ServeTLS(*s.listener, s.opts.HttpsCert, s.opts.HttpsKey)
	} else {
		err = s.Serve(*s.listener)
	}
	if errors.Is(err, http.ErrServerClosed) {
		s.log.Debug().Msgf("%s server was closed", protocol)
		return
	}
	s.log.Error().Err(err).Msgf("%s server has failed", protocol)
}

// serveChallenges answers the ACME HTTP-01 challenges on the plain address,
// other requests are redirected to HTTPS.
func (s *Server) serveChallenges() {
	s.log.Info().Str("addr", s.challenges.Addr).Msg("Start ACME challenge server")
	err := s.challenges.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error().Err(err).Msg("ACME challenge server has failed")
	}
}

func (s *Server) Stop() error {
	if s.challenges != nil {
		_ = s.challenges.Close()
	}
	return s.Server.Close()
}

func (s *Server) GetPort() int { return s.listener.GetPort() }

func (s *Server) GetProtocol() string {
	protocol := "http"
	if s.opts.Https {
		protocol = "https"
	}
	return protocol
}

func (s *Server) String() string { return fmt.Sprintf("%s://%s", s.GetProtocol(), s.Addr) }
