package httpx

import "golang.org/x/crypto/acme/autocert"

// newCertManager gets Let's Encrypt certificates for the domain
// and keeps them in the dir between restarts.
func newCertManager(domain string, dir string) *autocert.Manager {
	m := &autocert.Manager{Prompt: autocert.AcceptTOS, Cache: autocert.DirCache(dir)}
	if domain != "" {
		m.HostPolicy = autocert.HostWhitelist(domain)
	}
	return m
}
