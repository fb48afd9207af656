// ABOUTME: Sandboxed evaluator for form submission logic.
// ABOUTME: Expressions see only the submitted values and a fixed set of pure functions.

package logic

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MaxLength bounds the expression source.
	MaxLength = 4096
	// MaxDepth bounds nesting of parentheses, conditionals and unary operators.
	MaxDepth = 32
)

// EvaluationError reports an expression that failed to parse or evaluate.
type EvaluationError struct {
	Msg string
}

func (e *EvaluationError) Error() string {
	return "logic: " + e.Msg
}

func errorf(format string, args ...any) error {
	return &EvaluationError{Msg: fmt.Sprintf(format, args...)}
}

// raised is produced by error(msg); it stops evaluation and becomes an error outcome.
type raised struct {
	msg string
}

func (r *raised) Error() string { return r.msg }

// Outcome is the mapped result of running a form's logic against its values.
type Outcome struct {
	Success string
	Error   string
}

// Eval parses and evaluates expr against values.
func Eval(expr string, values map[string]any) (any, error) {
	if len(expr) > MaxLength {
		return nil, errorf("expression longer than %d bytes", MaxLength)
	}
	tokens, err := tokenize(strings.TrimSpace(expr))
	if err != nil {
		return nil, err
	}
	root, err := parse(tokens)
	if err != nil {
		return nil, err
	}
	return root.eval(values)
}

// Run evaluates expr and maps the value to an outcome: error(msg) or a
// string containing "Error:" is an error, any other truthy value is the
// success text, and a falsy value yields an empty outcome.
func Run(expr string, values map[string]any) Outcome {
	v, err := Eval(expr, values)
	if err != nil {
		var r *raised
		if errors.As(err, &r) {
			return Outcome{Error: "Error: " + r.msg}
		}
		var ee *EvaluationError
		if errors.As(err, &ee) {
			return Outcome{Error: "Error: " + ee.Msg}
		}
		return Outcome{Error: "Error: " + err.Error()}
	}
	if !truthy(v) {
		return Outcome{}
	}
	text := toString(v)
	if strings.Contains(text, "Error:") {
		return Outcome{Error: text}
	}
	return Outcome{Success: text}
}

type node interface {
	eval(values map[string]any) (any, error)
}

type literalNode struct {
	value any
}

func (n literalNode) eval(map[string]any) (any, error) { return n.value, nil }

type identNode struct {
	path string
}

func (n identNode) eval(values map[string]any) (any, error) {
	parts := strings.Split(n.path, ".")
	if parts[0] == "values" {
		parts = parts[1:]
	}
	var current any = values
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, nil
		}
		current = m[part]
	}
	return current, nil
}

type unaryNode struct {
	op    string
	inner node
}

func (n unaryNode) eval(values map[string]any) (any, error) {
	v, err := n.inner.eval(values)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "!":
		return !truthy(v), nil
	case "-":
		f, ok := toNumber(v)
		if !ok {
			return nil, errorf("cannot negate %s", describe(v))
		}
		return -f, nil
	default:
		f, ok := toNumber(v)
		if !ok {
			return nil, errorf("cannot convert %s to number", describe(v))
		}
		return f, nil
	}
}

type logicalNode struct {
	op          string
	left, right node
}

func (n logicalNode) eval(values map[string]any) (any, error) {
	l, err := n.left.eval(values)
	if err != nil {
		return nil, err
	}
	if n.op == "&&" && !truthy(l) || n.op == "||" && truthy(l) {
		return l, nil
	}
	return n.right.eval(values)
}

type ternaryNode struct {
	cond, then, otherwise node
}

func (n ternaryNode) eval(values map[string]any) (any, error) {
	c, err := n.cond.eval(values)
	if err != nil {
		return nil, err
	}
	if truthy(c) {
		return n.then.eval(values)
	}
	return n.otherwise.eval(values)
}

type binaryNode struct {
	op          string
	left, right node
}

func (n binaryNode) eval(values map[string]any) (any, error) {
	l, err := n.left.eval(values)
	if err != nil {
		return nil, err
	}
	r, err := n.right.eval(values)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return equal(l, r), nil
	case "!=":
		return !equal(l, r), nil
	case "<", "<=", ">", ">=":
		return compare(n.op, l, r)
	case "+":
		_, ls := l.(string)
		_, rs := r.(string)
		if ls || rs {
			return toString(l) + toString(r), nil
		}
	}

	a, ok := toNumber(l)
	if !ok {
		return nil, errorf("operator %s: %s is not a number", n.op, describe(l))
	}
	b, ok := toNumber(r)
	if !ok {
		return nil, errorf("operator %s: %s is not a number", n.op, describe(r))
	}
	switch n.op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, errorf("division by zero")
		}
		return a / b, nil
	default:
		if b == 0 {
			return nil, errorf("modulo by zero")
		}
		return math.Mod(a, b), nil
	}
}

type callNode struct {
	name string
	fn   function
	args []node
}

func (n callNode) eval(values map[string]any) (any, error) {
	args := make([]any, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(values)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return n.fn.call(args)
}

type function struct {
	arity int
	call  func(args []any) (any, error)
}

var functions = map[string]function{
	"error": {arity: 1, call: func(args []any) (any, error) {
		return nil, &raised{msg: toString(args[0])}
	}},
	"len": {arity: 1, call: func(args []any) (any, error) {
		switch v := args[0].(type) {
		case nil:
			return float64(0), nil
		case string:
			return float64(utf8.RuneCountInString(v)), nil
		case []any:
			return float64(len(v)), nil
		case map[string]any:
			return float64(len(v)), nil
		default:
			return float64(utf8.RuneCountInString(toString(v))), nil
		}
	}},
	"lower": {arity: 1, call: func(args []any) (any, error) {
		return strings.ToLower(toString(args[0])), nil
	}},
	"upper": {arity: 1, call: func(args []any) (any, error) {
		return strings.ToUpper(toString(args[0])), nil
	}},
	"trim": {arity: 1, call: func(args []any) (any, error) {
		return strings.TrimSpace(toString(args[0])), nil
	}},
	"contains": {arity: 2, call: func(args []any) (any, error) {
		if list, ok := args[0].([]any); ok {
			for _, item := range list {
				if equal(item, args[1]) {
					return true, nil
				}
			}
			return false, nil
		}
		return strings.Contains(toString(args[0]), toString(args[1])), nil
	}},
	"number": {arity: 1, call: func(args []any) (any, error) {
		f, ok := toNumber(args[0])
		if !ok {
			return nil, errorf("cannot convert %s to number", describe(args[0]))
		}
		return f, nil
	}},
	"empty": {arity: 1, call: func(args []any) (any, error) {
		switch v := args[0].(type) {
		case nil:
			return true, nil
		case string:
			return strings.TrimSpace(v) == "", nil
		case []any:
			return len(v) == 0, nil
		case map[string]any:
			return len(v) == 0, nil
		default:
			return false, nil
		}
	}},
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return toString(v)
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := a.(bool); ok {
		y, ok := b.(bool)
		return ok && x == y
	}
	_, as := a.(string)
	_, bs := b.(string)
	if as && bs {
		return a.(string) == b.(string)
	}
	x, okA := toNumber(a)
	y, okB := toNumber(b)
	if okA && okB {
		return x == y
	}
	return toString(a) == toString(b)
}

func compare(op string, l, r any) (bool, error) {
	ls, lok := l.(string)
	rs, rok := r.(string)
	var c int
	if lok && rok {
		c = strings.Compare(ls, rs)
	} else {
		a, okA := toNumber(l)
		b, okB := toNumber(r)
		if !okA || !okB {
			return false, errorf("cannot compare %s %s %s", describe(l), op, describe(r))
		}
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}
