package assertion

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"math"
	"strconv"
	"strings"

	m "assay.dev/pkg/assay/internal/model"
)

const (
	equalMethod   = "Equal"
	compareMethod = "Compare"
)

// Parse reads a check produced by Render back into an assertion attached to
// the statement at position at. Variable names are resolved through tc.
func Parse(text string, at int, tc VariableResolver) (Assertion, error) {
	expr, err := parser.ParseExpr(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, text, err)
	}

	p := &checkParser{text: text, at: at, tc: tc}

	return p.parse(unparen(expr))
}

type checkParser struct {
	text string
	at   int
	tc   VariableResolver
}

func (p *checkParser) parse(expr ast.Expr) (Assertion, error) {
	switch e := expr.(type) {
	case *ast.BinaryExpr:
		return p.parseBinary(e)
	case *ast.CallExpr:
		if isPackageCall(e, "math", "IsNaN") && len(e.Args) == 1 {
			return p.parseValue(unfloat(e.Args[0]), m.Float(math.NaN()))
		}

		return p.parseEqual(e, true)
	case *ast.UnaryExpr:
		if e.Op != token.NOT {
			return nil, p.syntax("unexpected operator %s", e.Op)
		}

		call, ok := unparen(e.X).(*ast.CallExpr)
		if !ok {
			return nil, p.syntax("negation of non-call")
		}

		return p.parseEqual(call, false)
	}

	return nil, p.syntax("unexpected expression %T", expr)
}

func (p *checkParser) parseBinary(e *ast.BinaryExpr) (Assertion, error) {
	lhs, rhs := unparen(e.X), unparen(e.Y)

	switch e.Op {
	case token.LAND:
		return p.parseSignedZero(lhs, rhs)
	case token.EQL, token.NEQ:
	default:
		return nil, p.syntax("unexpected operator %s", e.Op)
	}

	if ident, ok := rhs.(*ast.Ident); ok {
		switch ident.Name {
		case "nil":
			v, err := p.variable(lhs)
			if err != nil {
				return nil, err
			}

			return Null{At: p.at, Var: v, IsNull: e.Op == token.EQL}, nil
		case "true", "false":
		default:
			return p.parseOperands(lhs, rhs, e.Op == token.EQL)
		}
	}

	if e.Op != token.EQL {
		return nil, p.syntax("unexpected operator %s", e.Op)
	}

	expected, err := parseLiteral(rhs)
	if err != nil {
		return nil, p.syntax("%v", err)
	}

	if call, ok := lhs.(*ast.CallExpr); ok && isPackageCall(call, "cmp", compareMethod) {
		return p.parseCmpCompare(call, expected)
	}

	return p.parseValue(lhs, expected)
}

// parseValue builds the assertion checking that lhs holds expected.
func (p *checkParser) parseValue(lhs ast.Expr, expected m.Value) (Assertion, error) {
	switch x := unparen(lhs).(type) {
	case *ast.Ident:
		v, err := p.variable(x)
		if err != nil {
			return nil, err
		}

		return Primitive{At: p.at, Var: v, Expected: expected}, nil

	case *ast.SelectorExpr:
		v, err := p.variable(x.X)
		if err != nil {
			return nil, err
		}

		return Field{At: p.at, Var: v, Name: x.Sel.Name, Expected: expected}, nil

	case *ast.CallExpr:
		sel, ok := x.Fun.(*ast.SelectorExpr)
		if !ok {
			return nil, p.syntax("call without receiver")
		}

		v, err := p.variable(sel.X)
		if err != nil {
			return nil, err
		}

		switch len(x.Args) {
		case 0:
			return Inspector{At: p.at, Var: v, Method: sel.Sel.Name, Expected: expected}, nil
		case 1:
			if sel.Sel.Name != compareMethod || expected.Kind != m.KindInt {
				return nil, p.syntax("unexpected call %s", sel.Sel.Name)
			}

			other, err := p.variable(x.Args[0])
			if err != nil {
				return nil, err
			}

			return Compare{At: p.at, Var: v, Other: other, Expected: int(expected.I)}, nil
		}
	}

	return nil, p.syntax("unexpected left-hand side %T", lhs)
}

// parseSignedZero reads "math.Signbit(float64(x)) && x == 0" and its negated
// form for positive zero.
func (p *checkParser) parseSignedZero(lhs, rhs ast.Expr) (Assertion, error) {
	negative := true
	if not, ok := lhs.(*ast.UnaryExpr); ok && not.Op == token.NOT {
		negative, lhs = false, unparen(not.X)
	}

	signbit, ok := lhs.(*ast.CallExpr)
	if !ok || !isPackageCall(signbit, "math", "Signbit") || len(signbit.Args) != 1 {
		return nil, p.syntax("expected a math.Signbit call")
	}

	zero, ok := rhs.(*ast.BinaryExpr)
	if !ok || zero.Op != token.EQL {
		return nil, p.syntax("expected a comparison with zero")
	}

	if lit, ok := unparen(zero.Y).(*ast.BasicLit); !ok || lit.Kind != token.INT || lit.Value != "0" {
		return nil, p.syntax("expected a comparison with zero")
	}

	target := unparen(zero.X)
	if types.ExprString(unfloat(signbit.Args[0])) != types.ExprString(target) {
		return nil, p.syntax("sign and value checks name different expressions")
	}

	expected := m.Float(0)
	if negative {
		expected = m.Float(math.Copysign(0, -1))
	}

	return p.parseValue(target, expected)
}

func (p *checkParser) parseOperands(lhs, rhs ast.Expr, expected bool) (Assertion, error) {
	v, err := p.variable(lhs)
	if err != nil {
		return nil, err
	}

	other, err := p.variable(rhs)
	if err != nil {
		return nil, err
	}

	return Equals{At: p.at, Var: v, Other: other, Expected: expected}, nil
}

func (p *checkParser) parseCmpCompare(call *ast.CallExpr, expected m.Value) (Assertion, error) {
	if len(call.Args) != 2 || expected.Kind != m.KindInt {
		return nil, p.syntax("unexpected cmp.%s call", compareMethod)
	}

	v, err := p.variable(call.Args[0])
	if err != nil {
		return nil, err
	}

	other, err := p.variable(call.Args[1])
	if err != nil {
		return nil, err
	}

	return Compare{At: p.at, Var: v, Other: other, Expected: int(expected.I)}, nil
}

func (p *checkParser) parseEqual(call *ast.CallExpr, expected bool) (Assertion, error) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != equalMethod || len(call.Args) != 1 {
		return nil, p.syntax("expected an %s call", equalMethod)
	}

	v, err := p.variable(sel.X)
	if err != nil {
		return nil, err
	}

	other, err := p.variable(call.Args[0])
	if err != nil {
		return nil, err
	}

	return Equals{At: p.at, Var: v, Other: other, Expected: expected}, nil
}

func (p *checkParser) variable(expr ast.Expr) (m.VarRef, error) {
	ident, ok := unparen(expr).(*ast.Ident)
	if !ok || !strings.HasPrefix(ident.Name, "v") {
		return m.VarRef{}, p.syntax("expected a variable, got %T", expr)
	}

	position, err := strconv.Atoi(strings.TrimPrefix(ident.Name, "v"))
	if err != nil {
		return m.VarRef{}, p.syntax("bad variable name %q", ident.Name)
	}

	v, ok := p.tc.Variable(position)
	if !ok {
		return m.VarRef{}, fmt.Errorf("%w: %s", ErrUnresolvedVariable, ident.Name)
	}

	return v, nil
}

func (p *checkParser) syntax(format string, args ...any) error {
	return fmt.Errorf("%w: %q: %s", ErrSyntax, p.text, fmt.Sprintf(format, args...))
}

func isPackageCall(call *ast.CallExpr, pkg, name string) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != name {
		return false
	}

	ident, ok := sel.X.(*ast.Ident)

	return ok && ident.Name == pkg
}

// unfloat strips a float64 conversion.
func unfloat(expr ast.Expr) ast.Expr {
	expr = unparen(expr)

	call, ok := expr.(*ast.CallExpr)
	if !ok || len(call.Args) != 1 {
		return expr
	}

	if ident, ok := call.Fun.(*ast.Ident); ok && ident.Name == "float64" {
		return unparen(call.Args[0])
	}

	return expr
}

func unparen(expr ast.Expr) ast.Expr {
	for {
		paren, ok := expr.(*ast.ParenExpr)
		if !ok {
			return expr
		}

		expr = paren.X
	}
}

// parseLiteral is the inverse of model.Value.Literal.
func parseLiteral(expr ast.Expr) (m.Value, error) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		return parseBasicLit(e, false)

	case *ast.Ident:
		switch e.Name {
		case "true":
			return m.Bool(true), nil
		case "false":
			return m.Bool(false), nil
		}

	case *ast.UnaryExpr:
		if lit, ok := unparen(e.X).(*ast.BasicLit); ok && e.Op == token.SUB {
			return parseBasicLit(lit, true)
		}

	case *ast.CallExpr:
		return parseCallLiteral(e)
	}

	return m.Value{}, fmt.Errorf("unsupported literal %T", expr)
}

func parseBasicLit(lit *ast.BasicLit, negative bool) (m.Value, error) {
	sign := ""
	if negative {
		sign = "-"
	}

	switch lit.Kind {
	case token.INT:
		i, err := strconv.ParseInt(sign+lit.Value, 0, 64)
		if err != nil {
			return m.Value{}, err
		}

		return m.Int(i), nil

	case token.FLOAT:
		f, err := strconv.ParseFloat(sign+lit.Value, 64)
		if err != nil {
			return m.Value{}, err
		}

		return m.Float(f), nil

	case token.STRING:
		if negative {
			break
		}

		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return m.Value{}, err
		}

		return m.String(s), nil
	}

	return m.Value{}, fmt.Errorf("unsupported literal %s", lit.Value)
}

func parseCallLiteral(call *ast.CallExpr) (m.Value, error) {
	if ident, ok := call.Fun.(*ast.Ident); ok && ident.Name == "uint64" && len(call.Args) == 1 {
		lit, ok := call.Args[0].(*ast.BasicLit)
		if !ok || lit.Kind != token.INT {
			return m.Value{}, fmt.Errorf("uint64 conversion of non-integer")
		}

		u, err := strconv.ParseUint(lit.Value, 0, 64)
		if err != nil {
			return m.Value{}, err
		}

		return m.Uint(u), nil
	}

	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return m.Value{}, fmt.Errorf("unsupported call literal")
	}

	if pkg, ok := sel.X.(*ast.Ident); !ok || pkg.Name != "math" {
		return m.Value{}, fmt.Errorf("unsupported call literal")
	}

	switch sel.Sel.Name {
	case "NaN":
		return m.Float(math.NaN()), nil
	case "Inf":
		if len(call.Args) == 1 {
			if sign, err := parseLiteral(unparen(call.Args[0])); err == nil && sign.Kind == m.KindInt {
				return m.Float(math.Inf(int(sign.I))), nil
			}
		}
	case "Copysign":
		return m.Float(math.Copysign(0, -1)), nil
	}

	return m.Value{}, fmt.Errorf("unsupported math literal %s", sel.Sel.Name)
}
