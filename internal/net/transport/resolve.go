package transport

import (
	"context"
	"net/netip"
	"strconv"
	"strings"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

// Resolver looks up host names. *net.Resolver satisfies it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// SplitServerAddress splits "host[:port]" into its parts, substituting
// defaultPort when no port is given.
func SplitServerAddress(spec string, defaultPort uint16) (string, uint16, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", 0, domain.ErrResolution.WithDetails("empty server address")
	}

	host, port := spec, defaultPort
	if i := strings.LastIndexByte(spec, ':'); i >= 0 {
		host = spec[:i]
		p, err := strconv.ParseUint(spec[i+1:], 10, 16)
		if err != nil || p == 0 {
			return "", 0, domain.ErrResolution.WithDetails("invalid port in %q", spec)
		}
		port = uint16(p)
	}
	if host == "" {
		return "", 0, domain.ErrResolution.WithDetails("missing host in %q", spec)
	}
	return host, port, nil
}

func (t *Transport) resolve(ctx context.Context, spec string) (netip.AddrPort, error) {
	host, port, err := SplitServerAddress(spec, t.cfg.DefaultPort)
	if err != nil {
		return netip.AddrPort{}, err
	}

	if ip, err := netip.ParseAddr(host); err == nil {
		ip = ip.Unmap()
		if !ip.Is4() {
			return netip.AddrPort{}, domain.ErrResolution.WithDetails("%s is not an IPv4 address", host)
		}
		return netip.AddrPortFrom(ip, port), nil
	}

	ips, err := t.cfg.Resolver.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return netip.AddrPort{}, domain.ErrResolution.WithDetails("lookup %s", host).WithCause(err)
	}
	for _, ip := range ips {
		if ip = ip.Unmap(); ip.Is4() {
			return netip.AddrPortFrom(ip, port), nil
		}
	}
	return netip.AddrPort{}, domain.ErrResolution.WithDetails("no IPv4 address for %s", host)
}

// normalize unmaps IPv4-in-IPv6 addresses and rejects anything the IPv4
// socket cannot reach.
func normalize(addr netip.AddrPort) (netip.AddrPort, error) {
	ip := addr.Addr().Unmap()
	if !ip.Is4() || addr.Port() == 0 {
		return netip.AddrPort{}, domain.ErrChannel.WithDetails("%s is not an IPv4 peer address", addr)
	}
	return netip.AddrPortFrom(ip, addr.Port()), nil
}
