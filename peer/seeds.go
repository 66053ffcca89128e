package peer

import (
	"fmt"

	"github.com/miekg/dns"
)

// ResolveSeeds resolves seed domains to instance addresses using DNS SRV
// records. Domains that fail to resolve are skipped; an error is only
// returned when no domain could be queried at all.
func ResolveSeeds(domains []string, resolver string) ([]string, error) {
	if len(domains) == 0 {
		return nil, nil
	}

	seeds := make([]string, 0, len(domains))
	var lastErr error
	queried := 0

	for _, domain := range domains {
		targets, err := resolveDomainSRV(domain, resolver)
		if err != nil {
			lastErr = err
			continue
		}
		queried++
		seeds = append(seeds, targets...)
	}

	if queried == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to resolve any seed domain: %w", lastErr)
	}
	return seeds, nil
}

// resolveDomainSRV queries SRV records for a seed domain and returns the
// target host:port pairs.
func resolveDomainSRV(domain, resolver string) ([]string, error) {
	m := new(dns.Msg)
	m.Id = dns.Id()
	m.RecursionDesired = true
	m.Question = []dns.Question{{
		Name:   dns.Fqdn(domain),
		Qtype:  dns.TypeSRV,
		Qclass: dns.ClassINET,
	}}

	c := new(dns.Client)
	in, _, err := c.Exchange(m, resolver)
	if err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(in.Answer))
	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			targets = append(targets, fmt.Sprintf("%s:%d", srv.Target, srv.Port))
		}
	}

	return targets, nil
}
