package rules

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func rowFromCells(raw ...string) Row {
	row := Row{}
	for i, v := range raw {
		row[i+1] = ClassifyCell(v)
	}
	return row
}

func mustParseRuleset(t *testing.T, lines ...string) *Ruleset {
	t.Helper()
	rs, err := ParseRuleset("t", joinLines(lines))
	require.NoError(t, err)
	return rs
}

func joinLines(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}

// Scenario 1: required + comparison.
func TestScenario_RequiredAndComparison(t *testing.T) {
	rs := mustParseRuleset(t, "1C REQUIRED", "3C > 1000")
	row := rowFromCells("TXN1", "VendorX", "500")
	verdicts := EvaluateRuleset(rs, row)
	require.Len(t, verdicts, 2)
	require.True(t, verdicts[0].Passed)
	require.False(t, verdicts[1].Passed)
}

// Scenario 2: comparison + pattern, both pass.
func TestScenario_ComparisonAndPatternPass(t *testing.T) {
	rs := mustParseRuleset(t, "2C > 0", `1C STARTS_WITH "Item"`)
	row := rowFromCells("Item-Box", "50")
	verdicts := EvaluateRuleset(rs, row)
	require.True(t, verdicts[0].Passed)
	require.True(t, verdicts[1].Passed)
}

// Scenarios 3 & 4: arithmetic equality, exact and within tolerance.
func TestScenario_Arithmetic(t *testing.T) {
	rs := mustParseRuleset(t, "4C = 1C + 2C")

	row := rowFromCells("10", "20", "ignored", "30")
	v := EvaluateRuleset(rs, row)
	require.True(t, v[0].Passed)

	row2 := rowFromCells("10", "20", "ignored", "29.9995")
	v2 := EvaluateRuleset(rs, row2)
	require.True(t, v2[0].Passed)
}

// Scenario 5: MATCHES is prefix-anchored.
func TestScenario_MatchesPrefixAnchored(t *testing.T) {
	rs := mustParseRuleset(t, `3C MATCHES "(USD|EUR|GBP)"`)

	rowPass := rowFromCells("x", "y", "USD")
	require.True(t, EvaluateRuleset(rs, rowPass)[0].Passed)

	rowFail := rowFromCells("x", "y", "BITCOIN")
	require.False(t, EvaluateRuleset(rs, rowFail)[0].Passed)
}

// Scenario 6: range, pass / fail / missing.
func TestScenario_Range(t *testing.T) {
	rs := mustParseRuleset(t, "60C BETWEEN 10 AND 20")

	cells := make([]string, 60)
	for i := range cells {
		cells[i] = "x"
	}
	cells[59] = "15"
	require.True(t, EvaluateRuleset(rs, rowFromCells(cells...))[0].Passed)

	cells[59] = "21"
	require.False(t, EvaluateRuleset(rs, rowFromCells(cells...))[0].Passed)

	short := rowFromCells(cells[:30]...)
	require.False(t, EvaluateRuleset(rs, short)[0].Passed)
}

// Scenario 7: comment and blank-line handling.
func TestScenario_CommentsAndBlankLines(t *testing.T) {
	rs, err := ParseRuleset("t", "# header\n\n1C REQUIRED\n")
	require.NoError(t, err)
	require.Len(t, rs.Rules, 1)
}

// Scenario 8: case-insensitive keywords produce equal parsed rules.
func TestScenario_CaseInsensitiveKeywordsEqualRules(t *testing.T) {
	r1, err := ParseRule("1C is alphanum")
	require.NoError(t, err)
	r2, err := ParseRule("1C IS ALPHANUM")
	require.NoError(t, err)
	require.Equal(t, r1, r2)
}

// Scenario 9: ambiguous '='.
func TestScenario_AmbiguousEquals(t *testing.T) {
	r1, err := ParseRule("4C = 3C")
	require.NoError(t, err)
	_, isComparison := r1.(*ComparisonRule)
	require.True(t, isComparison)

	r2, err := ParseRule("4C = 3C + 0")
	require.NoError(t, err)
	_, isArithmetic := r2.(*ArithmeticRule)
	require.True(t, isArithmetic)
}

func TestRequiredRule(t *testing.T) {
	rule := &RequiredRule{Column: 1}
	require.True(t, EvaluateRule(rule, rowFromCells("hello")).Passed)
	require.False(t, EvaluateRule(rule, rowFromCells("")).Passed)
	require.False(t, EvaluateRule(rule, Row{}).Passed)
}

func TestDatatypeRule(t *testing.T) {
	require.True(t, EvaluateRule(&DatatypeRule{Column: 1, Kind: KindAlphanum}, rowFromCells("abc123")).Passed)
	require.False(t, EvaluateRule(&DatatypeRule{Column: 1, Kind: KindAlphanum}, rowFromCells("abc-123")).Passed)
	require.True(t, EvaluateRule(&DatatypeRule{Column: 1, Kind: KindInteger}, rowFromCells("-42")).Passed)
	require.False(t, EvaluateRule(&DatatypeRule{Column: 1, Kind: KindInteger}, rowFromCells("4.2")).Passed)
	require.True(t, EvaluateRule(&DatatypeRule{Column: 1, Kind: KindFloating}, rowFromCells("4.2")).Passed)
	require.True(t, EvaluateRule(&DatatypeRule{Column: 1, Kind: KindString}, rowFromCells("anything")).Passed)
	require.False(t, EvaluateRule(&DatatypeRule{Column: 1, Kind: KindString}, Row{}).Passed)
}

func TestComparisonTextFallback(t *testing.T) {
	rule := &ComparisonRule{Column: 1, Op: OpEQ, RHS: Literal{Kind: LitText, Text: "VendorX"}}
	require.True(t, EvaluateRule(rule, rowFromCells("VendorX")).Passed)

	neRule := &ComparisonRule{Column: 1, Op: OpNE, RHS: Literal{Kind: LitText, Text: "VendorX"}}
	require.True(t, EvaluateRule(neRule, rowFromCells("VendorY")).Passed)

	gtRule := &ComparisonRule{Column: 1, Op: OpGT, RHS: Literal{Kind: LitText, Text: "VendorX"}}
	require.False(t, EvaluateRule(gtRule, rowFromCells("VendorY")).Passed)
}

func TestComparisonMissingLeftFails(t *testing.T) {
	rule := &ComparisonRule{Column: 5, Op: OpEQ, RHS: Literal{Kind: LitInt, Int: 1}}
	v := EvaluateRule(rule, Row{})
	require.False(t, v.Passed)
	require.Contains(t, v.Message, "5C")
}

func TestDivisionByZeroIsZero(t *testing.T) {
	rule := &ArithmeticRule{Target: 1, Expr: binaryExpr('/', numberExpr(10, true), numberExpr(0, true))}
	row := rowFromCells("0")
	require.True(t, EvaluateRule(rule, row).Passed)
}

func TestPatternContainsAndNotContains(t *testing.T) {
	row := rowFromCells("hello world")
	require.True(t, EvaluateRule(&PatternRule{Column: 1, Op: OpContains, Text: "world"}, row).Passed)
	require.False(t, EvaluateRule(&PatternRule{Column: 1, Op: OpNotContains, Text: "world"}, row).Passed)
	require.True(t, EvaluateRule(&PatternRule{Column: 1, Op: OpEndsWith, Text: "world"}, row).Passed)
}

func TestRowDriverProducesOneVerdictPerRule(t *testing.T) {
	rs := mustParseRuleset(t, "1C REQUIRED", "2C > 0", "3C IS NUMERIC")
	row := rowFromCells("a", "1", "2")
	verdicts := EvaluateRuleset(rs, row)
	require.Len(t, verdicts, len(rs.Rules))
	for i, v := range verdicts {
		require.Equal(t, i, v.RuleIndex)
	}
}

func TestDeterministicRepeatedEvaluation(t *testing.T) {
	rule := &RangeRule{Column: 1, Min: 0, Max: 10}
	row := rowFromCells("5")
	v1 := EvaluateRule(rule, row)
	v2 := EvaluateRule(rule, row)
	require.Equal(t, v1, v2)
}
