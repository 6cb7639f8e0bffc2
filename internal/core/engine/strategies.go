package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/dnsquery"
	"github.com/namelens/reachlens/internal/core/httpprobe"
	"github.com/namelens/reachlens/internal/core/syntax"
	"github.com/namelens/reachlens/internal/core/whois"
)

var (
	domainRecordTypes = []string{"NS", "A", "AAAA", "CNAME"}
	hostRecordTypes   = []string{"A", "AAAA", "CNAME"}
)

func (r *Resolver) tryReputation(ctx context.Context, st *core.Status) {
	if r.deps.Reputation == nil {
		return
	}
	verdict, ok := r.deps.Reputation.Check(ctx, st.IDNASubject)
	if ok && verdict == core.StatusMalicious {
		st.SetStatus(core.StatusActive, core.SourceReputation)
		return
	}
	r.inconclusive(st, StrategyReputation)
}

func (r *Resolver) tryHTTP(ctx context.Context, st *core.Status, res syntax.Result) {
	if r.deps.Probe == nil || res.Kind.IsRange() {
		return
	}

	resp, ok := r.deps.Probe.Probe(ctx, res.ProbeURL(st.IDNASubject), httpprobe.Request{
		AllowRedirects: r.opts.HTTPAllowRedirects,
		PinDNS:         r.opts.PinDNS,
	})
	if !ok {
		r.inconclusive(st, StrategyHTTP)
		return
	}

	st.SetHTTPCode(resp.StatusCode)
	if r.opts.HTTPCodes.Active(resp.StatusCode) {
		st.SetStatus(core.StatusActive, core.SourceHTTP)
		return
	}
	r.inconclusive(st, StrategyHTTP)
}

func (r *Resolver) tryDNS(ctx context.Context, st *core.Status, res syntax.Result) {
	if r.deps.DNS == nil || res.Kind.IsRange() {
		return
	}

	name, types := dnsPlan(res)
	if name == "" {
		return
	}

	record := &core.DNSLookupRecord{Records: map[string][]string{}}
	st.DNSLookup = record

	for _, recordType := range types {
		result, err := r.deps.DNS.Query(ctx, name, recordType)
		if err != nil {
			r.deps.Logger.Debug("DNS query rejected", zap.String("name", name), zap.Error(err))
			continue
		}
		record.RecordType = recordType
		record.Protocol = string(result.Protocol)
		record.Servers = mergeServers(record.Servers, result.Tried)
		if result.Found() {
			record.Records[recordType] = result.Records
			st.SetStatus(core.StatusActive, core.SourceDNS)
			return
		}
	}
	r.inconclusive(st, StrategyDNS)
}

// dnsPlan picks the query name and record types for a subject.
func dnsPlan(res syntax.Result) (string, []string) {
	switch res.Kind {
	case core.KindDomain:
		return res.Host, domainRecordTypes
	case core.KindSubdomain:
		return res.Host, hostRecordTypes
	case core.KindIPv4, core.KindIPv6:
		return reverse(res.Host), []string{"PTR"}
	case core.KindURL:
		if res.Registrable == "" {
			return reverse(res.Host), []string{"PTR"}
		}
		return res.Host, hostRecordTypes
	}
	return "", nil
}

func reverse(ip string) string {
	name, err := dnsquery.ReverseName(ip)
	if err != nil {
		return ""
	}
	return name
}

func (r *Resolver) tryWhois(ctx context.Context, st *core.Status, res syntax.Result) {
	if r.deps.Whois == nil || res.Kind != core.KindDomain {
		return
	}
	domain := res.Host

	record := r.cachedWhois(ctx, domain)
	if record == nil {
		record = r.lookupWhois(ctx, domain)
		if record != nil && r.deps.Cache != nil && r.opts.WhoisCacheTTL > 0 {
			if err := r.deps.Cache.SetWhoisRecord(ctx, domain, record, r.opts.WhoisCacheTTL); err != nil {
				r.deps.Logger.Warn("WHOIS cache write failed", zap.String("domain", domain), zap.Error(err))
			}
		}
	}
	if record == nil {
		r.inconclusive(st, StrategyWhois)
		return
	}

	st.WhoisLookup = record
	if record.ExpirationDate != "" {
		st.SetStatus(core.StatusActive, core.SourceWhois)
		return
	}
	r.inconclusive(st, StrategyWhois)
}

func (r *Resolver) cachedWhois(ctx context.Context, domain string) *core.WhoisLookupRecord {
	if r.deps.Cache == nil {
		return nil
	}
	record, err := r.deps.Cache.GetWhoisRecord(ctx, domain)
	if err != nil {
		r.deps.Logger.Warn("WHOIS cache read failed", zap.String("domain", domain), zap.Error(err))
		return nil
	}
	if record != nil {
		record.FromCache = true
	}
	return record
}

func (r *Resolver) lookupWhois(ctx context.Context, domain string) *core.WhoisLookupRecord {
	server, ok := r.deps.Whois.ServerFor(domain)
	if !ok && r.opts.WhoisReferral {
		if referred, err := r.deps.Whois.Referral(ctx, whois.Extension(domain)); err == nil {
			server, ok = referred, true
		}
	}
	if !ok {
		if r.opts.WhoisRDAPFallback && r.deps.RDAP != nil {
			return r.deps.RDAP.Lookup(ctx, domain)
		}
		return nil
	}

	if r.deps.Limiter != nil {
		allowed, wait, err := r.deps.Limiter.Acquire(ctx, server)
		if err != nil {
			r.deps.Logger.Warn("WHOIS rate limit check failed", zap.String("server", server), zap.Error(err))
		} else if !allowed {
			r.deps.Logger.Debug("WHOIS server rate limited", zap.String("server", server), zap.Duration("wait", wait))
			return nil
		}
	}

	resp := r.deps.Whois.Lookup(ctx, domain, server)
	r.deps.Metrics.RecordWhoisQuery(server, resp != nil)
	if resp == nil {
		// A canceled lookup says nothing about the server.
		if r.deps.Limiter != nil && ctx.Err() == nil {
			if err := r.deps.Limiter.RecordRefusal(ctx, server, 0); err != nil {
				r.deps.Logger.Warn("WHOIS backoff record failed", zap.String("server", server), zap.Error(err))
			}
		}
		return nil
	}
	return &core.WhoisLookupRecord{
		Server:         resp.Server,
		Record:         resp.Body,
		ExpirationDate: r.deps.Extractor.Extract(resp.Body),
		Registrar:      whois.Registrar(resp.Body),
		QueryTimeout:   r.deps.Whois.Timeout(),
		Source:         "whois",
	}
}

func (r *Resolver) inconclusive(st *core.Status, strategy Strategy) {
	r.deps.Logger.Debug("Lookup strategy inconclusive",
		zap.String("subject", st.Subject),
		zap.String("strategy", string(strategy)))
}

func mergeServers(existing, tried []string) []string {
	for _, server := range tried {
		found := false
		for _, have := range existing {
			if have == server {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, server)
		}
	}
	return existing
}
