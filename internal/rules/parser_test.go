package rules

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRuleShapes(t *testing.T) {
	cases := []struct {
		line string
		want any
	}{
		{"1C REQUIRED", &RequiredRule{Column: 1}},
		{"1C IS ALPHANUM", &DatatypeRule{Column: 1, Kind: KindAlphanum}},
		{"3C > 1000", &ComparisonRule{Column: 3, Op: OpGT, RHS: Literal{Kind: LitInt, Int: 1000}}},
		{"60C BETWEEN 10 AND 20", &RangeRule{Column: 60, Min: 10, Max: 20}},
		{`1C STARTS_WITH "Item"`, &PatternRule{Column: 1, Op: OpStartsWith, Text: "Item"}},
		{"4C = 3C", &ComparisonRule{Column: 4, Op: OpEQ, RHS: Literal{Kind: LitColRef, Col: 3}}},
	}
	for _, c := range cases {
		rule, err := ParseRule(c.line)
		require.NoError(t, err, c.line)
		require.Equal(t, c.want, rule, c.line)
	}
}

func TestParseAmbiguousEquals(t *testing.T) {
	r1, err := ParseRule("4C = 3C")
	require.NoError(t, err)
	if _, ok := r1.(*ComparisonRule); !ok {
		t.Fatalf("expected comparison, got %T", r1)
	}

	r2, err := ParseRule("4C = 3C + 1")
	require.NoError(t, err)
	ar, ok := r2.(*ArithmeticRule)
	if !ok {
		t.Fatalf("expected arithmetic, got %T", r2)
	}
	require.Equal(t, ColRef(4), ar.Target)

	r3, err := ParseRule("4C = 3C + 0")
	require.NoError(t, err)
	if _, ok := r3.(*ArithmeticRule); !ok {
		t.Fatalf("expected arithmetic (parens/op force it), got %T", r3)
	}

	r4, err := ParseRule("4C = 500")
	require.NoError(t, err)
	if _, ok := r4.(*ComparisonRule); !ok {
		t.Fatalf("expected comparison, got %T", r4)
	}

	r5, err := ParseRule("4C = (3C)")
	require.NoError(t, err)
	if _, ok := r5.(*ArithmeticRule); !ok {
		t.Fatalf("expected parens to force arithmetic, got %T", r5)
	}
}

func TestExpressionPrecedence(t *testing.T) {
	rule, err := ParseRule("1C = 2C + 3C * 4C")
	require.NoError(t, err)
	ar := rule.(*ArithmeticRule)
	require.Equal(t, byte('+'), ar.Expr.Op)
	require.Equal(t, ExprColRef, ar.Expr.Left.Kind)
	require.Equal(t, ExprBinary, ar.Expr.Right.Kind)
	require.Equal(t, byte('*'), ar.Expr.Right.Op)
}

func TestParseRulesetCommentsAndBlankLines(t *testing.T) {
	src := "# header\n\n1C REQUIRED\n"
	rs, err := ParseRuleset("r1", src)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 1)
}

func TestParseRulesetRejectsUnitOnError(t *testing.T) {
	src := "1C REQUIRED\n2C BOGUS\n3C > 0\n"
	_, err := ParseRuleset("r1", src)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 2, perr.Line)
}

func TestParseRulesetLenientKeepsGoodRules(t *testing.T) {
	src := "1C REQUIRED\n2C BOGUS\n3C > 0\n"
	rs, errs := ParseRulesetLenient("r1", src)
	require.Len(t, errs, 1)
	require.Len(t, rs.Rules, 2)
}

func TestParseSyntaxErrorNamesToken(t *testing.T) {
	_, err := ParseRule("1C FROBNICATE")
	require.Error(t, err)
	require.Contains(t, err.Error(), "FROBNICATE")
}

func TestParseRejectsNonPositiveColumn(t *testing.T) {
	_, err := ParseRule("0C REQUIRED")
	require.Error(t, err)
}
