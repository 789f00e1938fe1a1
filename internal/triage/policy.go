// Package triage implements the clinical triage and modality safety gating engine.
//
// The engine is a pure function of a domain.ScreeningInput: it performs no I/O, keeps no state
// between calls and never returns an error. Every stage is exported so it can be tested and
// composed on its own; Engine.Analyze runs them in a fixed order and assembles the result.
package triage

import (
	"fmt"
)

// GatingPolicy selects how the decisions of matched gating rules are combined for a modality.
type GatingPolicy string

const (
	// GatingPolicyMonotonicMax takes the most restrictive decision over all matched rules.
	GatingPolicyMonotonicMax GatingPolicy = "monotonic_max"
	// GatingPolicySequentialOverwrite reproduces the legacy screening tool, where some rules assign
	// the decision outright. The electrotherapy cardiovascular rule can therefore downgrade a
	// blocked modality to allowed_with_precautions when it runs after a blocking rule.
	GatingPolicySequentialOverwrite GatingPolicy = "sequential_overwrite"
)

// DefaultGatingPolicy is used when no policy is configured.
const DefaultGatingPolicy = GatingPolicyMonotonicMax

// IsValid reports whether p is a known policy.
func (p GatingPolicy) IsValid() bool {
	switch p {
	case GatingPolicyMonotonicMax, GatingPolicySequentialOverwrite:
		return true
	default:
		return false
	}
}

// String returns the configuration name of the policy.
func (p GatingPolicy) String() string {
	return string(p)
}

// ParseGatingPolicy converts a configuration value to a policy. The empty string selects the default.
func ParseGatingPolicy(s string) (GatingPolicy, error) {
	if s == "" {
		return DefaultGatingPolicy, nil
	}
	p := GatingPolicy(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown gating policy %q (want %s or %s)", s, GatingPolicyMonotonicMax, GatingPolicySequentialOverwrite)
	}
	return p, nil
}
