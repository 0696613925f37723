package httpx

import (
	"testing"

	"github.com/peerhelp/peerhelp/pkg/logger"
)

func TestMuxPrefix(t *testing.T) {
	tests := []struct {
		prefix  string
		pattern string
		want    string
	}{
		{prefix: "", pattern: "/health", want: "/health"},
		{prefix: "/relay", pattern: "/metrics", want: "/relay/metrics"},
		{prefix: "/relay", pattern: "GET /health", want: "GET /relay/health"},
		{prefix: "/x", pattern: "POST /api/session/create", want: "POST /x/api/session/create"},
	}
	for _, test := range tests {
		m := NewServeMux(test.prefix)
		if got := m.withPrefix(test.pattern); got != test.want {
			t.Errorf("%q + %q = %q, want %q", test.prefix, test.pattern, got, test.want)
		}
	}
}

func TestAcmeChallenges(t *testing.T) {
	tests := []struct {
		name string
		opts func(*Options)
		want bool
	}{
		{name: "http", opts: func(o *Options) {}, want: false},
		{name: "auto cert", opts: func(o *Options) { o.Https = true }, want: true},
		{name: "own cert", opts: func(o *Options) { o.Https, o.HttpsCert, o.HttpsKey = true, "c.pem", "k.pem" }, want: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, err := NewServer("127.0.0.1:0",
				func(*Server) Handler { return NewServeMux("") },
				WithLogger(logger.Nop()),
				func(o *Options) { o.AcmeAddress, o.CertCache = "127.0.0.1:0", t.TempDir() },
				test.opts,
			)
			if err != nil {
				t.Fatal(err)
			}
			defer func() { _ = s.listener.Close() }()
			if got := s.challenges != nil; got != test.want {
				t.Errorf("challenge server: %v, want %v", got, test.want)
			}
		})
	}
}
