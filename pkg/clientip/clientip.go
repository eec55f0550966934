// Package clientip resolves the address of the client behind proxies.
// Forwarding headers are honoured only when the connecting peer is a
// trusted proxy; any other peer is taken at its socket address.
package clientip

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ErrInvalidProxy is returned for a trusted proxy entry that is neither an IP
// nor a CIDR prefix.
var ErrInvalidProxy = errors.New("clientip: invalid trusted proxy")

// Config lists the proxies allowed to report the client address.
type Config struct {
	// TrustedProxies holds IPs or CIDR prefixes, e.g. "10.0.0.0/8,127.0.0.1".
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// Resolver extracts client addresses. The zero value trusts no proxy.
type Resolver struct {
	trusted []netip.Prefix
}

// New creates a resolver trusting the given prefixes.
func New(trusted ...netip.Prefix) *Resolver {
	return &Resolver{trusted: trusted}
}

// NewFromConfig parses cfg.TrustedProxies into a resolver.
func NewFromConfig(cfg Config) (*Resolver, error) {
	prefixes, err := ParsePrefixes(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	return New(prefixes...), nil
}

// ParsePrefixes accepts bare IPs (as single-address prefixes) and CIDRs.
// Blank entries are skipped.
func ParsePrefixes(values []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, v)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, v)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

var untrusting = &Resolver{}

// GetIP returns the socket address of the peer; no forwarding header is
// trusted. Use a Resolver configured with proxies to look behind them.
func GetIP(r *http.Request) string {
	return untrusting.GetIP(r)
}

// GetIP returns the normalized client address, or "" when nothing holds a
// valid IP. Behind a trusted peer, CF-Connecting-IP wins, then the nearest
// untrusted X-Forwarded-For hop, then X-Real-IP.
func (res *Resolver) GetIP(r *http.Request) string {
	peer, ok := remoteAddr(r.RemoteAddr)
	if !ok {
		return ""
	}
	if !res.isTrusted(peer) {
		return peer.String()
	}

	if ip, ok := parse(r.Header.Get("CF-Connecting-IP")); ok {
		return ip.String()
	}
	if ip, ok := res.forwardedFor(r.Header.Values("X-Forwarded-For")); ok {
		return ip.String()
	}
	if ip, ok := parse(r.Header.Get("X-Real-IP")); ok {
		return ip.String()
	}
	return peer.String()
}

// Middleware rewrites r.RemoteAddr to the resolved client address so that
// everything downstream sees the same value.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := res.GetIP(r); ip != "" {
			r.RemoteAddr = ip
		}
		next.ServeHTTP(w, r)
	})
}

// forwardedFor walks the chain from the nearest hop outwards and returns the
// first address not belonging to a trusted proxy. Hops left of an invalid
// entry are ignored since nothing trusted vouched for them.
func (res *Resolver) forwardedFor(headers []string) (netip.Addr, bool) {
	var hops []string
	for _, h := range headers {
		hops = append(hops, strings.Split(h, ",")...)
	}

	var last netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		ip, ok := parse(hops[i])
		if !ok {
			break
		}
		last = ip
		if !res.isTrusted(ip) {
			return ip, true
		}
	}
	return last, last.IsValid()
}

func (res *Resolver) isTrusted(ip netip.Addr) bool {
	for _, p := range res.trusted {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

func remoteAddr(s string) (netip.Addr, bool) {
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	return parse(s)
}

func parse(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap().WithZone(""), true
}
