package plugins

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Eval evaluates a plain arithmetic expression for the /calc command.
// Supported: + - * / // % ^ (power), unary sign, parentheses, decimal
// numbers. Anything else is rejected; error text is user-facing Persian.
func Eval(expression string) (float64, error) {
	if len(expression) > 80 {
		return 0, errors.New("عبارت خیلی طولانی است.")
	}
	p := &exprParser{input: strings.TrimSpace(expression)}
	v, err := p.parseSum()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, errInvalidExpr
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("نتیجه نامعتبر است.")
	}
	return v, nil
}

var errInvalidExpr = errors.New("عبارت غیرمجاز است.")

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos < len(p.input) {
		return p.input[p.pos]
	}
	return 0
}

func (p *exprParser) parseSum() (float64, error) {
	v, err := p.parseProduct()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			r, err := p.parseProduct()
			if err != nil {
				return 0, err
			}
			v += r
		case '-':
			p.pos++
			r, err := p.parseProduct()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parseProduct() (float64, error) {
	v, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch {
		case strings.HasPrefix(p.input[p.pos:], "//"):
			p.pos += 2
			r, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, errors.New("تقسیم بر صفر.")
			}
			v = math.Floor(v / r)
		case p.peek() == '*':
			p.pos++
			r, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			v *= r
		case p.peek() == '/':
			p.pos++
			r, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, errors.New("تقسیم بر صفر.")
			}
			v /= r
		case p.peek() == '%':
			p.pos++
			r, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, errors.New("تقسیم بر صفر.")
			}
			v = math.Mod(v, r)
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parsePower() (float64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	// Right-associative, like every calculator.
	if p.peek() == '^' || strings.HasPrefix(p.input[p.pos:], "**") {
		if p.peek() == '^' {
			p.pos++
		} else {
			p.pos += 2
		}
		r, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(v, r), nil
	}
	return v, nil
}

func (p *exprParser) parseUnary() (float64, error) {
	p.skipSpace()
	switch p.peek() {
	case '+':
		p.pos++
		return p.parseUnary()
	case '-':
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	}
	return p.parseAtom()
}

func (p *exprParser) parseAtom() (float64, error) {
	p.skipSpace()
	if p.peek() == '(' {
		p.pos++
		v, err := p.parseSum()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, errInvalidExpr
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	for p.pos < len(p.input) && (unicode.IsDigit(rune(p.input[p.pos])) || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 0, errInvalidExpr
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, errInvalidExpr
	}
	return v, nil
}
