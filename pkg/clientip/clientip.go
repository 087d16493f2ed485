package clientip

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Resolver determines the client address of a request. Forwarding headers
// are honored only when the direct peer is a trusted proxy, so a client
// cannot put an arbitrary address into the audit trail.
type Resolver struct {
	trusted []netip.Prefix
}

// NewResolver parses trusted proxy CIDRs or single addresses.
func NewResolver(trustedProxies ...string) (*Resolver, error) {
	r := &Resolver{}
	for _, raw := range trustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, raw)
			}
			r.trusted = append(r.trusted, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, raw)
		}
		r.trusted = append(r.trusted, prefix.Masked())
	}
	return r, nil
}

// NewFromConfig builds a Resolver from Config.
func NewFromConfig(cfg Config) (*Resolver, error) {
	return NewResolver(strings.Split(cfg.TrustedProxies, ",")...)
}

// IP returns the client address, or "" when none can be parsed.
func (res *Resolver) IP(r *http.Request) string {
	peer := peerAddr(r.RemoteAddr)
	if !peer.IsValid() {
		return ""
	}
	if !res.isTrusted(peer) {
		return peer.String()
	}

	if ip := parseIP(r.Header.Get("CF-Connecting-IP")); ip.IsValid() {
		return ip.String()
	}

	// Walk X-Forwarded-For right to left, skipping our own proxies.
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := parseIP(hops[i])
			if !ip.IsValid() {
				break
			}
			if !res.isTrusted(ip) {
				return ip.String()
			}
		}
	}

	if ip := parseIP(r.Header.Get("X-Real-IP")); ip.IsValid() {
		return ip.String()
	}

	return peer.String()
}

func (res *Resolver) isTrusted(ip netip.Addr) bool {
	for _, p := range res.trusted {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

func peerAddr(remoteAddr string) netip.Addr {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return parseIP(remoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) netip.Addr {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}
	}
	return addr.Unmap()
}
