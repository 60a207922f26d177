package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const dialQuery = "data.docuvoice.dial"

// DefaultReason is used when a policy denies a call without naming a reason.
const DefaultReason = "Calls to this number are not permitted"

// defaultRegoPolicy allows every number.
const defaultRegoPolicy = `package docuvoice.dial

default allow := true

default reason := ""
`

// OPAEvaluator evaluates the dial policy using OPA Rego. The policy is compiled once.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy (Rego source in package docuvoice.dial). An empty
// policy uses the built-in allow-all policy.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = defaultRegoPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"dial.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile dial policy: %w", err)
	}
	pq, err := rego.New(
		rego.Query(dialQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare dial policy: %w", err)
	}
	return &OPAEvaluator{query: pq}, nil
}

// LoadOPAEvaluator reads the policy at path, or uses the built-in policy when path is empty.
func LoadOPAEvaluator(ctx context.Context, path string) (*OPAEvaluator, error) {
	if path == "" {
		return NewOPAEvaluator(ctx, "")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dial policy: %w", err)
	}
	return NewOPAEvaluator(ctx, string(b))
}

// HealthCheck evaluates the compiled policy against a fixed input. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.EvaluateDial(ctx, DialInput{Phone: "+15550000000", Region: "1", Weekday: "Monday"})
	return err
}

// EvaluateDial runs the policy. An undefined allow rule denies.
func (e *OPAEvaluator) EvaluateDial(ctx context.Context, input DialInput) (DialDecision, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"phone":   input.Phone,
		"region":  input.Region,
		"hour":    input.Hour,
		"weekday": input.Weekday,
	}))
	if err != nil {
		return DialDecision{}, fmt.Errorf("eval dial policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return DialDecision{}, errors.New("dial policy query returned no result")
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return DialDecision{}, fmt.Errorf("dial policy returned %T, want object", rs[0].Expressions[0].Value)
	}
	allowed, _ := doc["allow"].(bool)
	out := DialDecision{Allowed: allowed}
	if !allowed {
		out.Reason, _ = doc["reason"].(string)
		if out.Reason == "" {
			out.Reason = DefaultReason
		}
	}
	return out, nil
}
