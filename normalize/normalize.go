// Package normalize brings relay addresses into one canonical form so that the
// same relay written two ways is only ever dialled once.
package normalize

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"nostrbird.lol/chk"
	"nostrbird.lol/errorf"
	"nostrbird.lol/log"
)

const (
	WS    = "ws://"
	WSS   = "wss://"
	HTTP  = "http://"
	HTTPS = "https://"
)

func hasScheme(u string) bool {
	return strings.HasPrefix(u, HTTP) || strings.HasPrefix(u, HTTPS) ||
		strings.HasPrefix(u, WS) || strings.HasPrefix(u, WSS)
}

// URL normalizes a relay address.
//
// - Adds wss:// to addresses without a port, or with port 443, that have no
// scheme
//
// - Adds ws:// to addresses with any other port
//
// - Converts http/s to ws/s
//
// - Lower cases the scheme and host and drops trailing path slashes
func URL(v string) (u string, err error) {
	u = strings.TrimSpace(v)
	if len(u) == 0 {
		err = errorf.D("empty relay address")
		return
	}
	if !hasScheme(strings.ToLower(u)) {
		host, rest, _ := strings.Cut(u, "/")
		if h, port, found := strings.Cut(host, ":"); found {
			var p uint64
			if p, err = strconv.ParseUint(port, 10, 16); err != nil {
				log.D.F("invalid port in relay address '%s'", v)
				err = errorf.D("invalid port %q in relay address", port)
				return
			}
			if p == 443 {
				u = WSS + h
			} else {
				u = WS + host
			}
			if len(rest) > 0 {
				u += "/" + rest
			}
		} else {
			u = WSS + u
		}
	}
	var p *url.URL
	if p, err = url.Parse(u); chk.D(err) {
		return
	}
	p.Scheme = strings.ToLower(p.Scheme)
	switch p.Scheme {
	case "https":
		p.Scheme = "wss"
	case "http":
		p.Scheme = "ws"
	case "ws", "wss":
	default:
		err = errorf.D("unsupported scheme %q in relay address", p.Scheme)
		return
	}
	if p.Host == "" {
		err = errorf.D("relay address '%s' has no host", v)
		return
	}
	p.Host = strings.ToLower(p.Host)
	p.Path = strings.TrimRight(p.Path, "/")
	p.RawPath = ""
	p.Fragment = ""
	u = p.String()
	return
}

// HTTPURL is the http/s form of a relay address, for fetching relay
// information documents.
func HTTPURL(v string) (u string, err error) {
	if u, err = URL(v); err != nil {
		return
	}
	switch {
	case strings.HasPrefix(u, WSS):
		u = HTTPS + u[len(WSS):]
	case strings.HasPrefix(u, WS):
		u = HTTP + u[len(WS):]
	}
	return
}

// Msg constructs a message with a machine-readable prefix, as relays use in
// OK and CLOSED envelopes.
func Msg(prefix Reason, format string, params ...any) []byte {
	if len(prefix) < 1 {
		prefix = Error
	}
	return []byte(fmt.Sprintf(prefix.S()+": "+format, params...))
}

type Reason []byte

var (
	AuthRequired = Reason("auth-required")
	PoW          = Reason("pow")
	Duplicate    = Reason("duplicate")
	Blocked      = Reason("blocked")
	RateLimited  = Reason("rate-limited")
	Invalid      = Reason("invalid")
	Error        = Reason("error")
	Unsupported  = Reason("unsupported")
	Restricted   = Reason("restricted")
)

func (r Reason) S() string                   { return string(r) }
func (r Reason) B() []byte                   { return []byte(r) }
func (r Reason) IsPrefix(reason []byte) bool { return bytes.HasPrefix(reason, r.B()) }
func (r Reason) F(format string, params ...any) []byte {
	return Msg(r, format, params...)
}
