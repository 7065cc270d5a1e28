package telemetry

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"
)

// HostResolver resolves a hostname to addresses. *net.Resolver implements it.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// NewDNSResolver returns a resolver that sends every query to server
// (host:port) instead of the system resolver.
func NewDNSResolver(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, server)
		},
	}
}

// PublicIPFinder discovers the host's public address by asking a DNS
// server that answers a well-known name with the client's own IP, the way
// OpenDNS answers myip.opendns.com.
type PublicIPFinder struct {
	resolver HostResolver
	host     string
	logger   zerolog.Logger
}

// NewPublicIPFinder creates a finder that looks up host through resolver.
func NewPublicIPFinder(resolver HostResolver, host string, logger zerolog.Logger) *PublicIPFinder {
	return &PublicIPFinder{
		resolver: resolver,
		host:     host,
		logger:   logger.With().Str("component", "public-ip").Logger(),
	}
}

// PublicIP returns the first IPv4 answer, or the first IPv6 answer when the
// server returns no IPv4 address.
func (f *PublicIPFinder) PublicIP(ctx context.Context) (string, error) {
	addrs, err := f.resolver.LookupHost(ctx, f.host)
	if err != nil {
		return "", &UnavailableError{Source: SourcePublicIP, Err: fmt.Errorf("looking up %s: %w", f.host, err)}
	}

	var fallback net.IP
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			f.logger.Debug().Str("ip", ip.String()).Msg("found public IP")
			return ip.String(), nil
		}
		if fallback == nil {
			fallback = ip
		}
	}
	if fallback != nil {
		f.logger.Debug().Str("ip", fallback.String()).Msg("found public IP")
		return fallback.String(), nil
	}
	return "", unavailable(SourcePublicIP, "no address in answer for %s", f.host)
}
