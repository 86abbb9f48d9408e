package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-finance/clauseguard/internal/clause"
)

// exprEnv compiles and evaluates rule expressions.
type exprEnv struct {
	env *cel.Env
}

func newExprEnv(detector *clause.Detector) (*exprEnv, error) {
	// Create CEL environment with contract variables
	env, err := cel.NewEnv(
		cel.Variable("text", cel.StringType),
		cel.Variable("industry", cel.StringType),
		cel.Variable("company_size", cel.StringType),
		cel.Variable("entity_type", cel.StringType),
		cel.Variable("vat_registered", cel.BoolType),
		cel.Variable("contract_type", cel.StringType),
		cel.Variable("contract_value", cel.DoubleType),
		cel.Variable("currency", cel.StringType),
		cel.Function("has_clause",
			cel.Overload("has_clause_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					text, ok := lhs.(types.String)
					if !ok {
						return types.MaybeNoSuchOverloadErr(lhs)
					}
					id, ok := rhs.(types.String)
					if !ok {
						return types.MaybeNoSuchOverloadErr(rhs)
					}
					return types.Bool(detector.Has(string(text), string(id)))
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &exprEnv{env: env}, nil
}

// compile checks that expr is well-formed and yields a bool.
func (e *exprEnv) compile(ruleID, expr string) (cel.Program, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: rule %s: %v", ErrInvalidExpression, ruleID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("%w: rule %s: expression must return bool, got %s",
			ErrInvalidExpression, ruleID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: rule %s: %v", ErrInvalidExpression, ruleID, err)
	}
	return program, nil
}

// activation builds the CEL variables for one evaluation.
func activation(in Input) map[string]any {
	value := 0.0
	if in.Value != nil {
		value = in.Value.Amount
	}
	return map[string]any{
		"text":           in.Text,
		"industry":       string(in.Company.Industry),
		"company_size":   string(in.Company.Size),
		"entity_type":    string(in.Company.EntityType),
		"vat_registered": in.Company.VATRegistered,
		"contract_type":  string(in.ContractType),
		"contract_value": value,
		"currency":       in.Value.CurrencyCode(),
	}
}

// evalBool runs a compiled program and returns its boolean result.
func evalBool(program cel.Program, in Input) (bool, error) {
	out, _, err := program.Eval(activation(in))
	if err != nil {
		return false, fmt.Errorf("evaluation error: %w", err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("expression returned %s, not bool", out.Type().TypeName())
	}
	return bool(b), nil
}
