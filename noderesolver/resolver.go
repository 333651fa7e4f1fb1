// Package noderesolver picks the Arch node RPC endpoint for a network.
package noderesolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/miekg/dns"
)

// DefaultRPCURL is the built-in regtest leader endpoint.
const DefaultRPCURL = "http://localhost:9002/"

// systemResolver is where SRV discovery queries are sent.
const systemResolver = "127.0.0.53:53"

// Resolver picks the RPC endpoint for the demo. The priority order is an
// explicit override, then the configured endpoint, then DNS SRV discovery
// (non-regtest networks with a seed domain only), then the built-in default.
type Resolver struct {
	Network       string
	ConfiguredURL string
	SeedDomain    string
	Log           *slog.Logger

	resolverAddr string
}

// Resolve returns the RPC endpoint to use. It never fails: a failed
// discovery falls through to the built-in default.
func (r *Resolver) Resolve(ctx context.Context, override string) string {
	if override != "" {
		return override
	}
	if r.ConfiguredURL != "" {
		return r.ConfiguredURL
	}

	if r.Network != "" && r.Network != "regtest" && r.SeedDomain != "" {
		url, err := r.discover(ctx)
		if err == nil {
			return url
		}

		log := r.Log
		if log == nil {
			log = slog.Default()
		}
		log.Warn("RPC endpoint discovery failed, using default",
			slog.String("seed_domain", r.SeedDomain),
			"err", err)
	}

	return DefaultRPCURL
}

// discover queries _rpc._tcp.<seed domain> SRV records and builds an
// endpoint URL from the best-priority answer.
func (r *Resolver) discover(ctx context.Context) (string, error) {
	name := dns.Fqdn(fmt.Sprintf("_rpc._tcp.%s", r.SeedDomain))

	m := new(dns.Msg)
	m.Id = dns.Id()
	m.RecursionDesired = true
	m.Question = []dns.Question{{Name: name, Qtype: dns.TypeSRV, Qclass: dns.ClassINET}}

	addr := r.resolverAddr
	if addr == "" {
		addr = systemResolver
	}

	c := new(dns.Client)
	in, _, err := c.ExchangeContext(ctx, m, addr)
	if err != nil {
		return "", fmt.Errorf("failed to query SRV records: %w", err)
	}

	var best *dns.SRV
	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			if best == nil || srv.Priority < best.Priority {
				best = srv
			}
		}
	}
	if best == nil {
		return "", fmt.Errorf("no SRV records for %s", name)
	}

	target := strings.TrimSuffix(best.Target, ".")
	return fmt.Sprintf("http://%s:%d/", target, best.Port), nil
}
