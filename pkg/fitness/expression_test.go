package fitness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/morpho"
)

func evalCtx() Context {
	return Context{
		Project: "bridge",
		Schema: map[string]morpho.ParamKind{
			"span":   morpho.Input,
			"stress": morpho.Output,
		},
	}
}

func TestLeafComparison(t *testing.T) {
	pred, err := Leaf{Param: "stress", Op: LessThan, Value: 120}.Eval(evalCtx())
	require.NoError(t, err)
	assert.Equal(t, "(json_extract(output_parameters, ?) < ?)", pred.Clause)
	assert.Equal(t, []any{`$."stress"`, 120.0}, pred.Args)
}

func TestLeafInputColumn(t *testing.T) {
	pred, err := Leaf{Param: "span", Op: GreaterOrEqual, Value: 4}.Eval(evalCtx())
	require.NoError(t, err)
	assert.Equal(t, "(json_extract(parameters, ?) >= ?)", pred.Clause)
}

func TestLeafUnknownParamDefaultsToOutput(t *testing.T) {
	pred, err := Leaf{Param: "deflection", Op: EqualTo, Value: 0}.Eval(evalCtx())
	require.NoError(t, err)
	assert.Contains(t, pred.Clause, "output_parameters")
}

func TestLeafTopN(t *testing.T) {
	pred, err := Leaf{Param: "stress", Op: TopN, Value: 5}.Eval(evalCtx())
	require.NoError(t, err)
	assert.Equal(t,
		"(id IN (SELECT id FROM solution WHERE project_name = ? ORDER BY json_extract(output_parameters, ?) DESC LIMIT ?))",
		pred.Clause)
	assert.Equal(t, []any{"bridge", `$."stress"`, int64(5)}, pred.Args)
}

func TestLeafBottomNOrdersAscending(t *testing.T) {
	pred, err := Leaf{Param: "stress", Op: BottomN, Value: 3}.Eval(evalCtx())
	require.NoError(t, err)
	assert.Contains(t, pred.Clause, "ASC")
}

func TestLeafRankCutoffMustBePositive(t *testing.T) {
	_, err := Leaf{Param: "stress", Op: TopN, Value: 0}.Eval(evalCtx())
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestLeafDottedNameStaysOneKey(t *testing.T) {
	// "load.case" is a single parameter; the path must quote the segment so
	// json_extract does not treat it as a nested lookup.
	pred, err := Leaf{Param: "load.case", Op: GreaterThan, Value: 1}.Eval(evalCtx())
	require.NoError(t, err)
	assert.Equal(t, []any{`$."load.case"`, 1.0}, pred.Args)
}

func TestLeafRejectsBadName(t *testing.T) {
	_, err := Leaf{Param: "x' OR 1=1 --", Op: EqualTo, Value: 1}.Eval(evalCtx())
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestJoin(t *testing.T) {
	expr := Join{
		Left:  Leaf{Param: "stress", Op: LessThan, Value: 120},
		Right: Leaf{Param: "span", Op: GreaterThan, Value: 4},
		Op:    And,
	}
	pred, err := expr.Eval(evalCtx())
	require.NoError(t, err)
	assert.Equal(t,
		"((json_extract(output_parameters, ?) < ?) AND (json_extract(parameters, ?) > ?))",
		pred.Clause)
	assert.Equal(t, []any{`$."stress"`, 120.0, `$."span"`, 4.0}, pred.Args)
}

func TestJoinDegradesOnEmptySide(t *testing.T) {
	leaf := Leaf{Param: "stress", Op: LessThan, Value: 120}
	want, err := leaf.Eval(evalCtx())
	require.NoError(t, err)

	for _, expr := range []Expression{
		Join{Left: Empty{}, Right: leaf, Op: And},
		Join{Left: leaf, Right: Empty{}, Op: Or},
	} {
		got, err := expr.Eval(evalCtx())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestJoinRejectsUnknownOperator(t *testing.T) {
	_, err := Join{Left: Empty{}, Right: Empty{}, Op: "XOR"}.Eval(evalCtx())
	assert.Error(t, err)
}

func TestEmpty(t *testing.T) {
	pred, err := Empty{}.Eval(evalCtx())
	require.NoError(t, err)
	assert.True(t, pred.IsEmpty())
}

func TestFoldAnd(t *testing.T) {
	expr := FoldAnd(
		Leaf{Param: "a", Op: GreaterThan, Value: 1},
		Leaf{Param: "b", Op: GreaterThan, Value: 2},
		Leaf{Param: "c", Op: GreaterThan, Value: 3},
	)
	pred, err := expr.Eval(evalCtx())
	require.NoError(t, err)
	assert.Len(t, pred.Args, 6)
	assert.Equal(t, 2, strings.Count(pred.Clause, " AND "))
}

func TestFoldEmptyList(t *testing.T) {
	pred, err := FoldOr().Eval(evalCtx())
	require.NoError(t, err)
	assert.True(t, pred.IsEmpty())
}

func TestParseOperator(t *testing.T) {
	op, err := ParseOperator("top_n")
	require.NoError(t, err)
	assert.Equal(t, TopN, op)

	_, err = ParseOperator("like")
	assert.Error(t, err)
}
