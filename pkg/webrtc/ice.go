package webrtc

import (
	"strings"

	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/pion/webrtc/v3"
)

// NewIceServers converts the configured ICE servers,
// where a server may list many comma-separated URLs.
func NewIceServers(servers []config.IceServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		var urls []string
		for _, u := range strings.Split(s.Urls, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) == 0 {
			continue
		}
		server := webrtc.ICEServer{URLs: urls, Username: s.Username}
		if s.Credential != "" {
			server.Credential = s.Credential
			server.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, server)
	}
	return out
}
