// Package gate is the command safety gate: it classifies every Bash action
// the agent attempts as allow or deny before the action reaches the
// operating system. The gate fails open — an internal evaluation error
// resolves to allow, because the supervisor's correctness must not depend on
// the completeness of the pattern set. The pattern set is defense-in-depth
// on top of the agent's own permission configuration.
package gate

import "fmt"

// Decision sources, kept distinct in the audit trail. A policy miss and a
// gate bug both resolve to allow, but conflating them would make the policy
// impossible to tighten later.
const (
	SourcePolicy  = "policy"
	SourceDefault = "default"
	SourceError   = "error"
)

// Decision is the outcome of classifying one attempted action.
type Decision struct {
	Allow  bool
	Tag    string
	Reason string
	Source string
}

// Gate evaluates attempted actions against an ordered deny table.
type Gate struct {
	rules []Rule
}

// New creates a Gate with the given rule table. The table is static for the
// lifetime of the gate.
func New(rules []Rule) *Gate {
	return &Gate{rules: rules}
}

// Default creates a Gate with the default deny table.
func Default() *Gate {
	return New(DefaultRules())
}

// Evaluate classifies one attempted action. The composed command text is
// split into pipeline candidates and each candidate is checked against the
// deny table in order; the first matching rule denies the whole action.
// No match on any candidate is allow.
//
// Any panic during evaluation is recovered and resolved as allow with
// Source set to SourceError.
func (g *Gate) Evaluate(command string) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = Decision{
				Allow:  true,
				Reason: fmt.Sprintf("gate internal error: %v", r),
				Source: SourceError,
			}
		}
	}()

	for _, candidate := range SplitCommand(command) {
		for _, rule := range g.rules {
			if rule.matches(candidate) {
				return Decision{
					Allow:  false,
					Tag:    rule.Tag,
					Reason: rule.Reason,
					Source: SourcePolicy,
				}
			}
		}
	}

	return Decision{Allow: true, Source: SourceDefault}
}
