// Package assertion evaluates declarative response checks.
//
// Evaluation never returns an error. Missing values, non-numeric operands and
// unknown operators all produce a failed Result with a Reason.
package assertion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/blackcoderx/opencollection/pkg/collection"
)

// Operator is a canonical assertion operator.
type Operator string

const (
	Equals             Operator = "equals"
	NotEquals          Operator = "notEquals"
	Contains           Operator = "contains"
	NotContains        Operator = "notContains"
	GreaterThan        Operator = "greaterThan"
	LessThan           Operator = "lessThan"
	GreaterThanOrEqual Operator = "greaterThanOrEqual"
	LessThanOrEqual    Operator = "lessThanOrEqual"
	IsNull             Operator = "isNull"
	IsNotNull          Operator = "isNotNull"
)

// Reasons reported on failed results.
const (
	ReasonNotFound            = "expression not found"
	ReasonUnsupportedOperator = "unsupported operator"
	ReasonNotNumeric          = "operand is not numeric"
)

var operators = map[string]Operator{
	"equals":             Equals,
	"eq":                 Equals,
	"notequals":          NotEquals,
	"neq":                NotEquals,
	"contains":           Contains,
	"notcontains":        NotContains,
	"greaterthan":        GreaterThan,
	"gt":                 GreaterThan,
	"lessthan":           LessThan,
	"lt":                 LessThan,
	"greaterthanorequal": GreaterThanOrEqual,
	"gte":                GreaterThanOrEqual,
	"lessthanorequal":    LessThanOrEqual,
	"lte":                LessThanOrEqual,
	"isnull":             IsNull,
	"isnotnull":          IsNotNull,
}

// ParseOperator maps an operator name or alias to its canonical form.
func ParseOperator(s string) (Operator, bool) {
	op, ok := operators[strings.ToLower(strings.TrimSpace(s))]
	return op, ok
}

// Result is the outcome of one assertion.
type Result struct {
	Assertion collection.Assertion
	Pass      bool
	Actual    any
	Reason    string
}

// EvaluateAll evaluates every enabled assertion in order. Disabled assertions
// are left out of the result set.
func EvaluateAll(assertions []collection.Assertion, resp *Response) []Result {
	root := resp.tree()
	results := make([]Result, 0, len(assertions))
	for _, a := range assertions {
		if a.Disabled {
			continue
		}
		results = append(results, evaluate(a, root))
	}
	return results
}

// Evaluate checks a single assertion against resp. The Disabled flag is not
// consulted; use EvaluateAll to skip disabled assertions.
func Evaluate(a collection.Assertion, resp *Response) Result {
	return evaluate(a, resp.tree())
}

func evaluate(a collection.Assertion, root map[string]any) Result {
	res := Result{Assertion: a}

	op, ok := ParseOperator(a.Operator)
	if !ok {
		res.Reason = fmt.Sprintf("%s %q", ReasonUnsupportedOperator, a.Operator)
		return res
	}

	actual, found := lookup(root, a.Expression)
	res.Actual = actual

	switch op {
	case IsNull:
		res.Pass = !found || actual == nil
		if !res.Pass {
			res.Reason = fmt.Sprintf("expected null, got %s", display(actual))
		}
		return res
	case IsNotNull:
		if !found {
			res.Reason = ReasonNotFound
			return res
		}
		res.Pass = actual != nil
		if !res.Pass {
			res.Reason = "expected a non-null value"
		}
		return res
	}

	if !found {
		res.Reason = ReasonNotFound
		return res
	}

	switch op {
	case Equals:
		res.Pass = looseEqual(actual, a.Value)
	case NotEquals:
		res.Pass = !looseEqual(actual, a.Value)
	case Contains:
		res.Pass = contains(actual, a.Value)
	case NotContains:
		res.Pass = !contains(actual, a.Value)
	case GreaterThan, LessThan, GreaterThanOrEqual, LessThanOrEqual:
		x, okX := number(actual)
		y, okY := number(a.Value)
		if !okX || !okY {
			res.Reason = ReasonNotNumeric
			return res
		}
		res.Pass = compare(op, x, y)
	}
	if !res.Pass {
		res.Reason = fmt.Sprintf("expected %s %s %q, got %s", a.Expression, op, a.Value, display(actual))
	}
	return res
}

func compare(op Operator, x, y float64) bool {
	switch op {
	case GreaterThan:
		return x > y
	case LessThan:
		return x < y
	case GreaterThanOrEqual:
		return x >= y
	case LessThanOrEqual:
		return x <= y
	}
	return false
}

// looseEqual compares numerically when both sides are numbers and as strings
// otherwise.
func looseEqual(actual any, expected string) bool {
	x, okX := number(actual)
	y, okY := number(expected)
	if okX && okY {
		return x == y
	}
	return display(actual) == expected
}

func contains(actual any, expected string) bool {
	switch v := actual.(type) {
	case []any:
		for _, elem := range v {
			if looseEqual(elem, expected) {
				return true
			}
		}
		return false
	case map[string]any:
		_, ok := v[expected]
		return ok
	case nil:
		return false
	}
	return strings.Contains(display(actual), expected)
}

// number converts v to a float64. Booleans and null are never numeric.
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case nil, bool, map[string]any, []any:
		return 0, false
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return 0, false
		}
		v = t
	}
	f, err := cast.ToFloat64E(v)
	return f, err == nil
}

// display renders a value the way it is compared as a string.
func display(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
