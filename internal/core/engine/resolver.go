package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/dnsquery"
	"github.com/namelens/reachlens/internal/core/httpprobe"
	"github.com/namelens/reachlens/internal/core/rules"
	"github.com/namelens/reachlens/internal/core/syntax"
	"github.com/namelens/reachlens/internal/core/whois"
)

// DNSQuerier issues DNS queries.
type DNSQuerier interface {
	Query(ctx context.Context, name, recordType string) (dnsquery.Result, error)
}

// WhoisLooker performs raw WHOIS lookups.
type WhoisLooker interface {
	Lookup(ctx context.Context, subject, server string) *whois.Response
	ServerFor(domain string) (string, bool)
	Referral(ctx context.Context, extension string) (string, error)
	Timeout() time.Duration
}

// RDAPLooker returns registration data over RDAP.
type RDAPLooker interface {
	Lookup(ctx context.Context, domain string) *core.WhoisLookupRecord
}

// ReputationChecker classifies a subject as sane or malicious.
type ReputationChecker interface {
	Check(ctx context.Context, subject string) (core.StatusValue, bool)
}

// RulesApplier applies extra rules to a concluded status.
type RulesApplier interface {
	Apply(ctx context.Context, st *core.Status) (rules.State, error)
}

// WhoisCache stores WHOIS records between runs.
type WhoisCache interface {
	GetWhoisRecord(ctx context.Context, subject string) (*core.WhoisLookupRecord, error)
	SetWhoisRecord(ctx context.Context, subject string, record *core.WhoisLookupRecord, ttl time.Duration) error
}

// Recorder receives resolution measurements.
type Recorder interface {
	RecordStrategy(strategy string, concluded bool, duration time.Duration)
	RecordResolution(checker core.CheckerType, status core.StatusValue, source core.Source, duration time.Duration)
	RecordRuleFired(before, after core.StatusValue)
	RecordWhoisQuery(server string, success bool)
}

// Deps are the collaborators of a Resolver. Any of them may be nil, which
// disables the strategies that need it.
type Deps struct {
	DNS        DNSQuerier
	Probe      httpprobe.Prober
	Whois      WhoisLooker
	Extractor  *whois.Extractor
	RDAP       RDAPLooker
	Reputation ReputationChecker
	Rules      RulesApplier
	Cache      WhoisCache
	Limiter    *RateLimiter
	Metrics    Recorder
	Clock      func() time.Time
	Logger     core.Logger
}

// Resolver turns a subject into a Status. It keeps no per-call state and is
// safe to share between workers.
type Resolver struct {
	opts Options
	deps Deps
}

// NewResolver builds a Resolver.
func NewResolver(opts Options, deps Deps) (*Resolver, error) {
	seen := map[Strategy]bool{}
	for _, strategy := range opts.Priority {
		if _, err := ParseStrategy(string(strategy)); err != nil {
			return nil, err
		}
		if seen[strategy] {
			return nil, fmt.Errorf("lookup strategy %q listed twice", strategy)
		}
		seen[strategy] = true
	}
	if deps.Logger == nil {
		deps.Logger = core.NopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	if deps.Extractor == nil {
		deps.Extractor = whois.NewExtractor(deps.Logger)
	}
	return &Resolver{opts: opts.clone(), deps: deps}, nil
}

// Options returns a copy of the resolver configuration.
func (r *Resolver) Options() Options {
	return r.opts.clone()
}

// Resolve determines the availability of subject. Network failures never
// surface as errors; an error means the call itself was malformed.
func (r *Resolver) Resolve(ctx context.Context, subject string) (*core.Status, error) {
	started := time.Now()
	st, res, err := r.begin(subject, core.CheckerAvailability)
	if err != nil {
		return nil, err
	}
	defer r.finish(st, started)

	if !res.Valid() {
		st.SetStatus(core.StatusInvalid, core.SourceSyntax)
		return st, nil
	}

	for _, strategy := range r.opts.Priority {
		if st.Concluded() {
			break
		}
		strategyStarted := time.Now()
		r.run(ctx, strategy, st, res)
		r.deps.Metrics.RecordStrategy(string(strategy), st.Concluded(), time.Since(strategyStarted))
	}

	if !st.Concluded() {
		st.SetStatus(core.StatusInactive, core.SourceStdLookup)
	}

	if r.opts.ExtraRules && r.deps.Rules != nil {
		state, err := r.deps.Rules.Apply(ctx, st)
		if err != nil {
			return nil, err
		}
		if state == rules.StateResolved {
			r.deps.Metrics.RecordRuleFired(st.StatusBeforeExtraRules, st.StatusAfterExtraRules)
		}
	}

	return st, nil
}

// ResolveSyntax reports whether subject is syntactically valid.
func (r *Resolver) ResolveSyntax(subject string) (*core.Status, error) {
	started := time.Now()
	st, res, err := r.begin(subject, core.CheckerSyntax)
	if err != nil {
		return nil, err
	}
	defer r.finish(st, started)
	if res.Valid() {
		st.SetStatus(core.StatusValid, core.SourceSyntax)
	} else {
		st.SetStatus(core.StatusInvalid, core.SourceSyntax)
	}
	return st, nil
}

// ResolveReputation asks the reputation service about subject. Subjects
// without a verdict are reported as sane.
func (r *Resolver) ResolveReputation(ctx context.Context, subject string) (*core.Status, error) {
	started := time.Now()
	st, res, err := r.begin(subject, core.CheckerReputation)
	if err != nil {
		return nil, err
	}
	defer r.finish(st, started)
	if !res.Valid() {
		st.SetStatus(core.StatusInvalid, core.SourceSyntax)
		return st, nil
	}

	st.SetStatus(core.StatusSane, core.SourceReputation)
	if r.deps.Reputation == nil {
		return st, nil
	}
	if verdict, ok := r.deps.Reputation.Check(ctx, st.IDNASubject); ok {
		st.SetStatus(verdict, core.SourceReputation)
	}
	return st, nil
}

func (r *Resolver) begin(subject string, checker core.CheckerType) (*core.Status, syntax.Result, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, syntax.Result{}, core.NewContractError("engine.Resolve", core.ErrEmptySubject)
	}

	st := core.NewStatus(subject, syntax.ToIDNA(subject), checker, r.now())
	st.CheckID = uuid.NewString()

	res := syntax.Classify(st.IDNASubject)
	st.Kind = res.Kind
	st.SyntaxFlags = res.Flags
	return st, res, nil
}

func (r *Resolver) finish(st *core.Status, started time.Time) {
	if !st.Concluded() {
		return
	}
	r.deps.Metrics.RecordResolution(st.CheckerType, st.Status, st.Source, time.Since(started))
}

func (r *Resolver) run(ctx context.Context, strategy Strategy, st *core.Status, res syntax.Result) {
	switch strategy {
	case StrategyReputation:
		r.tryReputation(ctx, st)
	case StrategyHTTP:
		r.tryHTTP(ctx, st, res)
	case StrategyDNS:
		r.tryDNS(ctx, st, res)
	case StrategyWhois:
		r.tryWhois(ctx, st, res)
	}
}

func (r *Resolver) now() time.Time {
	if r.deps.Clock != nil {
		return r.deps.Clock()
	}
	return time.Now().UTC()
}

type nopRecorder struct{}

func (nopRecorder) RecordStrategy(string, bool, time.Duration) {}

func (nopRecorder) RecordResolution(core.CheckerType, core.StatusValue, core.Source, time.Duration) {}

func (nopRecorder) RecordRuleFired(core.StatusValue, core.StatusValue) {}

func (nopRecorder) RecordWhoisQuery(string, bool) {}
