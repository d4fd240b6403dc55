// Package authz decides who may see whose location. The rule is expressed as
// an OPA rego policy so the visibility contract stays declarative and can be
// evolved without touching handler code.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

const locationPolicy = `
package friendmap.authz

default allow = false

allow {
	input.friends[_] == input.friend
	input.sharing
}
`

// LookupInput describes one location-lookup attempt.
type LookupInput struct {
	// Requester is the user asking for a location.
	Requester string `json:"requester"`
	// Friend is the user whose location is requested.
	Friend string `json:"friend"`
	// Friends is the requester's friend list.
	Friends []string `json:"friends"`
	// Sharing reports whether the target has location sharing enabled.
	Sharing bool `json:"sharing"`
}

// LocationPolicy evaluates the location-visibility rule.
type LocationPolicy struct {
	query rego.PreparedEvalQuery
}

// NewLocationPolicy compiles and prepares the policy for repeated evaluation.
func NewLocationPolicy(ctx context.Context) (*LocationPolicy, error) {
	query, err := rego.New(
		rego.Query("data.friendmap.authz.allow"),
		rego.Module("location.rego", locationPolicy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare location policy: %w", err)
	}
	return &LocationPolicy{query: query}, nil
}

// Allow reports whether the requester may see the friend's location.
func (p *LocationPolicy) Allow(ctx context.Context, input LookupInput) (bool, error) {
	rs, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("evaluate location policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}

	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, errors.New("location policy returned non-boolean result")
	}
	return allowed, nil
}
