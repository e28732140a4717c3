// internal/iputil/iputil.go

package iputil

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Resolver determines the originating client IP of a request, honoring
// forwarding headers only when the immediate peer is a trusted proxy.
type Resolver struct {
	trusted []*net.IPNet
	header  string
}

// NewResolver builds a resolver from the configured trusted proxy list
// (single IPs or CIDR ranges) and an optional custom client IP header
// (e.g. CF-Connecting-IP, X-Real-IP).
func NewResolver(trustedProxies []string, clientIPHeader string) (*Resolver, error) {
	networks, err := parseNetworks(trustedProxies)
	if err != nil {
		return nil, err
	}
	return &Resolver{trusted: networks, header: clientIPHeader}, nil
}

// ClientIP extracts the client IP address from the request. It first tries
// the configured header, then X-Forwarded-For, and finally falls back to
// RemoteAddr. Headers are only honored when the peer is a trusted proxy.
func (r *Resolver) ClientIP(req *http.Request) string {
	peer := remoteIP(req)
	peerTrusted := peer != nil && r.isTrusted(peer)

	if r.header != "" && peerTrusted {
		if ip := strings.TrimSpace(req.Header.Get(r.header)); ip != "" && net.ParseIP(ip) != nil {
			return ip
		}
	}

	if peerTrusted {
		if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
			// The first entry is the original client; later hops append.
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

func (r *Resolver) isTrusted(ip net.IP) bool {
	for _, network := range r.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// parseNetworks accepts single IP addresses or CIDR notation. Single
// addresses become host networks (/32 for IPv4, /128 for IPv6).
func parseNetworks(entries []string) ([]*net.IPNet, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	networks := make([]*net.IPNet, 0, len(entries))
	for _, entry := range entries {
		if ip := net.ParseIP(entry); ip != nil {
			mask := net.CIDRMask(128, 128)
			if ip.To4() != nil {
				mask = net.CIDRMask(32, 32)
			}
			networks = append(networks, &net.IPNet{IP: ip, Mask: mask})
			continue
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid IP/CIDR format: %s (%w)", entry, err)
		}
		networks = append(networks, network)
	}
	return networks, nil
}

func remoteIP(req *http.Request) net.IP {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	return net.ParseIP(host)
}
