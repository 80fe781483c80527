package proxy

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Settings describes an optional upstream proxy shared by both acquisition strategies.
type Settings struct {
	Enabled  bool
	Hostname string
	Port     int
	Username string
	Password string
}

// HasProxy returns true if proxy is enabled and configured.
func (p Settings) HasProxy() bool {
	return p.Enabled && p.Hostname != "" && p.Port > 0
}

// HasCredentials returns true if the upstream proxy needs authentication.
// Chromium cannot authenticate from its command line, so such proxies go
// through a local ForwardingProxy.
func (p Settings) HasCredentials() bool {
	return p.HasProxy() && p.Username != "" && p.Password != ""
}

// HostPort returns the proxy URL without credentials (e.g., "http://geo.iproyal.com:12321").
func (p Settings) HostPort() string {
	if !p.HasProxy() {
		return ""
	}
	return "http://" + net.JoinHostPort(p.Hostname, strconv.Itoa(p.Port))
}

// FullURL returns the proxy URL with escaped credentials, for HTTP clients.
func (p Settings) FullURL() string {
	if !p.HasProxy() {
		return ""
	}
	if !p.HasCredentials() {
		return p.HostPort()
	}
	u := url.URL{
		Scheme: "http",
		User:   url.UserPassword(p.Username, p.Password),
		Host:   net.JoinHostPort(p.Hostname, strconv.Itoa(p.Port)),
	}
	return u.String()
}

// String is safe to log: it never contains the password.
func (p Settings) String() string {
	if !p.HasProxy() {
		return "direct"
	}
	if p.HasCredentials() {
		return fmt.Sprintf("%s (user %s)", p.HostPort(), p.Username)
	}
	return p.HostPort()
}
