// Package rules applies provider-specific overrides to a computed status.
//
// Rules are evaluated in registration order against the subject's network
// location. The first rule whose action fires decides the outcome and no
// later rule runs, even one registered for a different pattern.
package rules

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/dnsquery"
	"github.com/namelens/reachlens/internal/core/httpprobe"
	"github.com/namelens/reachlens/internal/core/syntax"
)

// State is a step of one rules evaluation.
type State int

const (
	StateIdle State = iota
	StateBeforeCaptured
	StateEvaluating
	StateResolved
	StateUnchanged
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateBeforeCaptured:
		return "BEFORE_CAPTURED"
	case StateEvaluating:
		return "EVALUATING"
	case StateResolved:
		return "RESOLVED"
	case StateUnchanged:
		return "UNCHANGED"
	}
	return "UNKNOWN"
}

// DNSQuerier is the DNS surface rules may consult.
type DNSQuerier interface {
	Query(ctx context.Context, name, recordType string) (dnsquery.Result, error)
}

// Env carries the collaborators actions use for corroboration.
type Env struct {
	Probe  httpprobe.Prober
	DNS    DNSQuerier
	PinDNS bool
}

// Target is what a rule is evaluated against.
type Target struct {
	Status *core.Status
	Syntax syntax.Result
}

// URL returns the address follow-up probes request.
func (t Target) URL() string {
	return t.Syntax.ProbeURL(t.Status.IDNASubject)
}

// Matcher selects the subjects a rule applies to.
type Matcher interface {
	Match(t Target) bool
}

// Action decides whether a rule fires and what status it sets.
type Action interface {
	Apply(ctx context.Context, env *Env, t Target) (core.StatusValue, bool)
}

// Rule pairs a matcher with an action.
type Rule struct {
	Name    string
	Matcher Matcher
	Action  Action
}

// Host matches the subject's netloc against a regular expression.
type Host struct {
	Pattern *regexp.Regexp
}

// HostPattern compiles a Host matcher.
func HostPattern(pattern string) Host {
	return Host{Pattern: regexp.MustCompile(pattern)}
}

func (h Host) Match(t Target) bool {
	return h.Pattern != nil && h.Pattern.MatchString(t.Syntax.Netloc)
}

// Kinds matches subjects by syntactic class.
type Kinds []core.SubjectKind

func (k Kinds) Match(t Target) bool {
	for _, kind := range k {
		if t.Syntax.Kind == kind {
			return true
		}
	}
	return false
}

// Engine runs an ordered rule registry. It is immutable after construction
// and safe for concurrent use.
type Engine struct {
	rules  []Rule
	env    Env
	logger core.Logger
}

// New builds an Engine over rules in the given order.
func New(rules []Rule, env Env, logger core.Logger) *Engine {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Engine{rules: append([]Rule(nil), rules...), env: env, logger: logger}
}

// Rules returns the registry in evaluation order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Apply evaluates the registry against st and returns the final state. The
// status must already carry a result.
func (e *Engine) Apply(ctx context.Context, st *core.Status) (State, error) {
	if st == nil {
		return StateIdle, core.NewContractError("rules.Apply", core.ErrNilStatus)
	}
	if !st.Concluded() {
		return StateIdle, &core.ContractError{Op: "rules.Apply", Reason: "status has no result to override"}
	}

	st.StatusBeforeExtraRules = st.Status
	st.StatusSourceBeforeExtraRules = st.Source

	target := Target{Status: st, Syntax: syntax.Classify(st.IDNASubject)}

	for _, rule := range e.rules {
		if rule.Matcher == nil || rule.Action == nil || !rule.Matcher.Match(target) {
			continue
		}
		value, fired := rule.Action.Apply(ctx, &e.env, target)
		if !fired {
			continue
		}

		st.StatusAfterExtraRules = value
		st.StatusSourceAfterExtraRules = core.SourceSpecial
		st.SetStatus(value, core.SourceSpecial)

		e.logger.Info("Extra rule fired",
			zap.String("rule", rule.Name),
			zap.String("subject", st.Subject),
			zap.String("before", string(st.StatusBeforeExtraRules)),
			zap.String("after", string(value)))
		return StateResolved, nil
	}

	st.StatusBeforeExtraRules = ""
	st.StatusSourceBeforeExtraRules = ""
	st.StatusAfterExtraRules = ""
	st.StatusSourceAfterExtraRules = ""
	return StateUnchanged, nil
}
