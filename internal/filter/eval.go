package filter

import (
	"cmp"
	"fmt"
	"strings"

	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Resolver returns the value of a field for the record under test.
// Strings are returned as string and numbers as int64.
type Resolver func(name string) (any, bool)

// Evaluate evaluates a parsed expression against a resolver. A nil expression is true.
func Evaluate(e *expr.Expr, resolve Resolver) (bool, error) {
	if e == nil {
		return true, nil
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return evalCall(kind.CallExpr, resolve)
	default:
		return false, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func evalCall(call *expr.Expr_Call, resolve Resolver) (bool, error) {
	switch call.Function {
	case "_&&_", "AND", "FUZZY":
		return evalAnd(call.Args, resolve)
	case "_||_", "OR":
		return evalOr(call.Args, resolve)
	case "!_", "NOT":
		return evalNot(call.Args, resolve)
	case ":":
		return evalHas(call.Args, resolve)
	case "_==_", "=":
		return evalCompare(call.Args, resolve, "=")
	case "_!=_", "!=":
		return evalCompare(call.Args, resolve, "!=")
	case "_<_", "<":
		return evalCompare(call.Args, resolve, "<")
	case "_<=_", "<=":
		return evalCompare(call.Args, resolve, "<=")
	case "_>_", ">":
		return evalCompare(call.Args, resolve, ">")
	case "_>=_", ">=":
		return evalCompare(call.Args, resolve, ">=")
	default:
		return false, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func evalAnd(args []*expr.Expr, resolve Resolver) (bool, error) {
	for _, arg := range args {
		ok, err := Evaluate(arg, resolve)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func evalOr(args []*expr.Expr, resolve Resolver) (bool, error) {
	for _, arg := range args {
		ok, err := Evaluate(arg, resolve)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func evalNot(args []*expr.Expr, resolve Resolver) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("NOT requires 1 argument")
	}
	ok, err := Evaluate(args[0], resolve)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// evalHas treats "field:value" as a case-insensitive substring match on string fields
// and as equality on numbers.
func evalHas(args []*expr.Expr, resolve Resolver) (bool, error) {
	left, right, err := operands(args, resolve)
	if err != nil {
		return false, err
	}
	if l, ok := left.(string); ok {
		r, ok := right.(string)
		if !ok {
			return false, fmt.Errorf("type mismatch: string vs %T", right)
		}
		return strings.Contains(strings.ToLower(l), strings.ToLower(r)), nil
	}
	c, err := compareValues(left, right)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

func evalCompare(args []*expr.Expr, resolve Resolver, op string) (bool, error) {
	left, right, err := operands(args, resolve)
	if err != nil {
		return false, err
	}

	c, err := compareValues(left, right)
	if err != nil {
		return false, err
	}

	switch op {
	case "=":
		return c == 0, nil
	case "!=":
		return c != 0, nil
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	default:
		return false, fmt.Errorf("unsupported operator: %s", op)
	}
}

func operands(args []*expr.Expr, resolve Resolver) (any, any, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := extractFieldName(args[0])
	if err != nil {
		return nil, nil, err
	}
	left, ok := resolve(field)
	if !ok {
		return nil, nil, fmt.Errorf("unknown field: %s", field)
	}

	right, err := extractValue(args[1])
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.Name, nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}
	constant, ok := e.ExprKind.(*expr.Expr_ConstExpr)
	if !ok {
		return nil, fmt.Errorf("expected constant, got %T", e.ExprKind)
	}

	switch kind := constant.ConstExpr.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return int64(kind.Uint64Value), nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

func compareValues(left, right any) (int, error) {
	switch l := left.(type) {
	case string:
		r, ok := right.(string)
		if !ok {
			return 0, fmt.Errorf("type mismatch: string vs %T", right)
		}
		return cmp.Compare(l, r), nil
	case int64:
		r, ok := right.(int64)
		if !ok {
			return 0, fmt.Errorf("type mismatch: int vs %T", right)
		}
		return cmp.Compare(l, r), nil
	default:
		return 0, fmt.Errorf("unsupported value type: %T", left)
	}
}
