/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package peerdisc

import (
	"strings"
	"time"

	"github.com/miekg/dns"
)

// LookupSeeds resolves a TXT record at domain for a best-effort peer
// bootstrap list when mDNS multicast isn't reachable (a different
// subnet, a cloud VPC without multicast). Each TXT string is expected
// to be a bare "host:port" endpoint hint; malformed entries are
// skipped rather than failing the whole lookup.
func LookupSeeds(domain, resolver string, timeout time.Duration) ([]PeerHint, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeTXT)
	msg.RecursionDesired = true

	client := &dns.Client{Timeout: timeout}
	resp, _, err := client.Exchange(msg, resolver)
	if err != nil {
		return nil, err
	}

	var hints []PeerHint
	for _, answer := range resp.Answer {
		txt, ok := answer.(*dns.TXT)
		if !ok {
			continue
		}
		for _, entry := range txt.Txt {
			endpoint := strings.TrimSpace(entry)
			if endpoint == "" || !strings.Contains(endpoint, ":") {
				continue
			}
			hints = append(hints, PeerHint{Endpoint: endpoint, Source: "dns-seed"})
		}
	}
	return hints, nil
}
