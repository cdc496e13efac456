package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// exprOptions are the functions available to every applicability and check
// expression.
var exprOptions = []expr.Option{
	expr.Function("versionCompare", func(params ...any) (any, error) {
		a, ok1 := params[0].(string)
		b, ok2 := params[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("versionCompare: want (string, string), got (%T, %T)", params[0], params[1])
		}
		return CompareVersions(a, b), nil
	}, new(func(string, string) int)),
}

// EvalBool evaluates a boolean expression against env.
// An empty expression is true.
func EvalBool(expression string, env map[string]any) (bool, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return true, nil
	}
	opts := append([]expr.Option{expr.Env(env), expr.AsBool()}, exprOptions...)
	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", expression, err)
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("eval condition %q: %w", expression, err)
	}
	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return bool (got %T: %v)", expression, output, output)
	}
	return result, nil
}

// CompileBool checks that expression compiles as a boolean over env. The
// values in env only give the variables their types.
func CompileBool(expression string, env map[string]any) error {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil
	}
	opts := append([]expr.Option{expr.Env(env), expr.AsBool()}, exprOptions...)
	if _, err := expr.Compile(expression, opts...); err != nil {
		return fmt.Errorf("compile condition %q: %w", expression, err)
	}
	return nil
}

// CompareVersions compares dotted versions segment by segment, numerically
// where both segments are numbers. Missing segments count as 0.
// It returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	as := strings.Split(strings.TrimSpace(a), ".")
	bs := strings.Split(strings.TrimSpace(b), ".")
	for i := 0; i < max(len(as), len(bs)); i++ {
		x, y := "0", "0"
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		xn, errX := strconv.Atoi(x)
		yn, errY := strconv.Atoi(y)
		switch {
		case errX == nil && errY == nil:
			if xn != yn {
				if xn < yn {
					return -1
				}
				return 1
			}
		default:
			if c := strings.Compare(x, y); c != 0 {
				return c
			}
		}
	}
	return 0
}
