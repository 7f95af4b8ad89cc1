package httpserver

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

var loopbackHosts = map[string]bool{"localhost": true, "127.0.0.1": true, "::1": true}

// originPolicy decides which browser pages may open a socket: the run and
// poll pages served from APP_URL, and overlays loaded as OBS browser
// sources. Clients that send no Origin (scripts, timers on a stream PC)
// are not browsers and are let through.
type originPolicy struct {
	appOrigin     string
	allowLoopback bool
}

func (p originPolicy) allows(origin string) bool {
	switch {
	case origin == "":
		return true
	case strings.HasPrefix(origin, "obs://"):
		return true
	case p.appOrigin != "" && strings.EqualFold(origin, p.appOrigin):
		return true
	}

	if !p.allowLoopback {
		return false
	}
	u, err := url.Parse(origin)
	return err == nil && loopbackHosts[u.Hostname()]
}

// NewCheckOrigin builds the handshake origin check for appURL. Development
// mode also admits pages served from a loopback address.
func NewCheckOrigin(appURL string, isDevelopment bool) func(r *http.Request) bool {
	policy := originPolicy{appOrigin: originOf(appURL), allowLoopback: isDevelopment}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if policy.allows(origin) {
			return true
		}
		slog.WarnContext(r.Context(), "WebSocket origin rejected", "origin", origin, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
		return false
	}
}

// originOf reduces a URL to scheme://host[:port], or "" if it has no host.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
