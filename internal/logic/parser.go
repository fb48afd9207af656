// ABOUTME: Recursive-descent parser for the form logic expression language.
// ABOUTME: Builds an expression tree with bounded nesting depth.

package logic

import "strconv"

type parser struct {
	tokens []token
	pos    int
	depth  int
}

func parse(tokens []token) (node, error) {
	if len(tokens) == 0 {
		return literalNode{value: nil}, nil
	}
	p := &parser{tokens: tokens}
	n, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, errorf("unexpected %q at %d", p.tokens[p.pos].raw, p.tokens[p.pos].pos)
	}
	return n, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) matchOp(ops ...string) (string, bool) {
	t, ok := p.peek()
	if !ok || t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.raw == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) match(kind tokenKind) bool {
	t, ok := p.peek()
	if !ok || t.kind != kind {
		return false
	}
	p.pos++
	return true
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > MaxDepth {
		return errorf("expression nested deeper than %d", MaxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) ternary() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	cond, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.match(tokQuestion) {
		return cond, nil
	}
	then, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if !p.match(tokColon) {
		return nil, errorf("expected ':' in conditional expression")
	}
	otherwise, err := p.ternary()
	if err != nil {
		return nil, err
	}
	return ternaryNode{cond: cond, then: then, otherwise: otherwise}, nil
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.matchOp("||"); !ok {
			return left, nil
		}
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = logicalNode{op: "||", left: left, right: right}
	}
}

func (p *parser) and() (node, error) {
	left, err := p.equality()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.matchOp("&&"); !ok {
			return left, nil
		}
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		left = logicalNode{op: "&&", left: left, right: right}
	}
}

func (p *parser) equality() (node, error) {
	return p.binary(p.comparison, "==", "!=")
}

func (p *parser) comparison() (node, error) {
	return p.binary(p.additive, "<", "<=", ">", ">=")
}

func (p *parser) additive() (node, error) {
	return p.binary(p.multiplicative, "+", "-")
}

func (p *parser) multiplicative() (node, error) {
	return p.binary(p.unary, "*", "/", "%")
}

func (p *parser) binary(next func() (node, error), ops ...string) (node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOp(ops...)
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) unary() (node, error) {
	if op, ok := p.matchOp("!", "-", "+"); ok {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, inner: inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, errorf("unexpected end of expression")
	}
	p.pos++

	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(t.raw, 64)
		if err != nil {
			return nil, errorf("invalid number %q", t.raw)
		}
		return literalNode{value: v}, nil
	case tokString:
		return literalNode{value: t.raw}, nil
	case tokBool:
		return literalNode{value: t.raw == "true"}, nil
	case tokNull:
		return literalNode{value: nil}, nil
	case tokLParen:
		inner, err := p.ternary()
		if err != nil {
			return nil, err
		}
		if !p.match(tokRParen) {
			return nil, errorf("missing ')' for '(' at %d", t.pos)
		}
		return inner, nil
	case tokIdent:
		if p.match(tokLParen) {
			return p.call(t)
		}
		return identNode{path: t.raw}, nil
	default:
		return nil, errorf("unexpected %q at %d", t.raw, t.pos)
	}
}

func (p *parser) call(name token) (node, error) {
	fn, ok := functions[name.raw]
	if !ok {
		return nil, errorf("unknown function %q", name.raw)
	}
	var args []node
	if !p.match(tokRParen) {
		for {
			arg, err := p.ternary()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.match(tokComma) {
				continue
			}
			if p.match(tokRParen) {
				break
			}
			return nil, errorf("expected ',' or ')' in call to %s", name.raw)
		}
	}
	if fn.arity >= 0 && len(args) != fn.arity {
		return nil, errorf("%s expects %d argument(s), got %d", name.raw, fn.arity, len(args))
	}
	return callNode{name: name.raw, fn: fn, args: args}, nil
}
