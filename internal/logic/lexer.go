// ABOUTME: Tokenizer for the form logic expression language.
// ABOUTME: Produces literals, identifiers, operators and punctuation from an expression string.

package logic

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokBool
	tokNull
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokQuestion
	tokColon
)

type token struct {
	kind tokenKind
	raw  string
	pos  int
}

// two-character operators are matched before their one-character prefixes.
var operators = []string{"==", "!=", "<=", ">=", "&&", "||", "<", ">", "!", "+", "-", "*", "/", "%"}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
			continue
		case ch == '(':
			tokens = append(tokens, token{kind: tokLParen, raw: "(", pos: i})
			i++
			continue
		case ch == ')':
			tokens = append(tokens, token{kind: tokRParen, raw: ")", pos: i})
			i++
			continue
		case ch == ',':
			tokens = append(tokens, token{kind: tokComma, raw: ",", pos: i})
			i++
			continue
		case ch == '?':
			tokens = append(tokens, token{kind: tokQuestion, raw: "?", pos: i})
			i++
			continue
		case ch == ':':
			tokens = append(tokens, token{kind: tokColon, raw: ":", pos: i})
			i++
			continue
		case ch == '"' || ch == '\'':
			value, next, err := readString(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, raw: value, pos: i})
			i = next
			continue
		case ch >= '0' && ch <= '9' || ch == '.' && i+1 < len(input) && isDigit(input[i+1]):
			start := i
			for i < len(input) && (isDigit(input[i]) || input[i] == '.') {
				i++
			}
			raw := input[start:i]
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				return nil, errorf("invalid number %q at %d", raw, start)
			}
			tokens = append(tokens, token{kind: tokNumber, raw: raw, pos: start})
			continue
		case isIdentStart(ch):
			start := i
			for i < len(input) && (isIdentStart(input[i]) || isDigit(input[i]) || input[i] == '.') {
				i++
			}
			raw := input[start:i]
			switch raw {
			case "true", "false":
				tokens = append(tokens, token{kind: tokBool, raw: raw, pos: start})
			case "null":
				tokens = append(tokens, token{kind: tokNull, raw: raw, pos: start})
			default:
				if strings.HasSuffix(raw, ".") || strings.Contains(raw, "..") {
					return nil, errorf("invalid identifier %q at %d", raw, start)
				}
				tokens = append(tokens, token{kind: tokIdent, raw: raw, pos: start})
			}
			continue
		}

		matched := false
		for _, op := range operators {
			if strings.HasPrefix(input[i:], op) {
				tokens = append(tokens, token{kind: tokOp, raw: op, pos: i})
				i += len(op)
				matched = true
				break
			}
		}
		if !matched {
			if ch == '=' || ch == '&' || ch == '|' {
				return nil, errorf("unexpected %q at %d; use %q", string(ch), i, strings.Repeat(string(ch), 2))
			}
			return nil, errorf("unexpected character %q at %d", string(ch), i)
		}
	}
	return tokens, nil
}

func readString(input string, start int) (string, int, error) {
	quote := input[start]
	i := start + 1
	escaped := false
	var sb strings.Builder
	for i < len(input) {
		c := input[i]
		i++
		if escaped {
			switch c {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(c)
			}
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == quote {
			return sb.String(), i, nil
		}
		sb.WriteByte(c)
	}
	return "", 0, errorf("unterminated string literal at %d", start)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
