// Package fitness turns filter trees supplied by the host into parameterized
// store predicates. Evaluation is pure: it renders clause text with bound
// arguments and never touches the store itself.
package fitness

import (
	"fmt"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/morpho"
)

// Operator is a comparison applied by a single filter leaf.
type Operator string

const (
	GreaterThan    Operator = ">"
	LessThan       Operator = "<"
	EqualTo        Operator = "="
	NotEqualTo     Operator = "<>"
	GreaterOrEqual Operator = ">="
	LessOrEqual    Operator = "<="

	// TopN and BottomN rank solutions by the parameter's value within the
	// project and keep the N best or worst.
	TopN    Operator = "top_n"
	BottomN Operator = "bottom_n"
)

// comparisonClauses is the allow-list of operators that render inline. Clause
// text only ever comes from this table, never from user input.
var comparisonClauses = map[Operator]string{
	GreaterThan:    ">",
	LessThan:       "<",
	EqualTo:        "=",
	NotEqualTo:     "<>",
	GreaterOrEqual: ">=",
	LessOrEqual:    "<=",
}

// ParseOperator maps the host's operator spelling to an Operator.
func ParseOperator(s string) (Operator, error) {
	switch Operator(s) {
	case GreaterThan, LessThan, EqualTo, NotEqualTo, GreaterOrEqual, LessOrEqual, TopN, BottomN:
		return Operator(s), nil
	}
	return "", errors.WithFields(
		errors.New(errors.InvalidInput, "unknown filter operator"),
		errors.Fields{"operator": s},
	)
}

// JoinOperator combines two sub-expressions.
type JoinOperator string

const (
	And JoinOperator = "AND"
	Or  JoinOperator = "OR"
)

// Predicate is the opaque result of evaluating an expression: a SQL fragment
// with positional placeholders and the arguments that bind them. An empty
// clause means "match everything".
type Predicate struct {
	Clause string
	Args   []any
}

// IsEmpty reports whether the predicate imposes no constraint.
func (p Predicate) IsEmpty() bool {
	return p.Clause == ""
}

// Context carries what evaluation needs: the project the predicate is scoped
// to (rank subqueries must not leak across projects) and the name→category
// lookup for resolving which column a parameter lives in.
type Context struct {
	Project string
	Schema  map[string]morpho.ParamKind
}

// Expression is a node of the filter tree.
type Expression interface {
	Eval(ctx Context) (Predicate, error)
}

// Empty matches every solution. Used when the host supplies no filter.
type Empty struct{}

func (Empty) Eval(Context) (Predicate, error) {
	return Predicate{}, nil
}

// Leaf constrains one named parameter against a literal value. For TopN and
// BottomN the value is the rank cutoff N.
type Leaf struct {
	Param string
	Op    Operator
	Value float64
}

// column resolves which JSON document the parameter lives in. Names absent
// from the schema are assumed to be outputs; filters are overwhelmingly
// written against measured outputs, and a wrong guess produces an empty match
// rather than a wrong one.
func (l Leaf) column(ctx Context) string {
	if kind, ok := ctx.Schema[l.Param]; ok && kind == morpho.Input {
		return "parameters"
	}
	return "output_parameters"
}

func (l Leaf) Eval(ctx Context) (Predicate, error) {
	if err := morpho.ValidateName(l.Param); err != nil {
		return Predicate{}, err
	}
	column := l.column(ctx)
	path := morpho.JSONPath(l.Param)

	if op, ok := comparisonClauses[l.Op]; ok {
		return Predicate{
			Clause: fmt.Sprintf("(json_extract(%s, ?) %s ?)", column, op),
			Args:   []any{path, l.Value},
		}, nil
	}

	switch l.Op {
	case TopN, BottomN:
		n := int64(l.Value)
		if n <= 0 {
			return Predicate{}, errors.WithFields(
				errors.New(errors.InvalidInput, "rank cutoff must be positive"),
				errors.Fields{"parameter": l.Param, "n": l.Value},
			)
		}
		direction := "DESC"
		if l.Op == BottomN {
			direction = "ASC"
		}
		clause := fmt.Sprintf(
			"(id IN (SELECT id FROM solution WHERE project_name = ? ORDER BY json_extract(%s, ?) %s LIMIT ?))",
			column, direction,
		)
		return Predicate{
			Clause: clause,
			Args:   []any{ctx.Project, path, n},
		}, nil
	}

	return Predicate{}, errors.WithFields(
		errors.New(errors.InvalidInput, "unknown filter operator"),
		errors.Fields{"operator": string(l.Op)},
	)
}

// Join combines two sub-expressions with AND or OR. Both sides are rendered
// in parentheses so the joining operator never interacts with SQL precedence.
type Join struct {
	Left  Expression
	Right Expression
	Op    JoinOperator
}

func (j Join) Eval(ctx Context) (Predicate, error) {
	if j.Op != And && j.Op != Or {
		return Predicate{}, errors.WithFields(
			errors.New(errors.InvalidInput, "unknown join operator"),
			errors.Fields{"operator": string(j.Op)},
		)
	}
	left, err := j.Left.Eval(ctx)
	if err != nil {
		return Predicate{}, err
	}
	right, err := j.Right.Eval(ctx)
	if err != nil {
		return Predicate{}, err
	}

	// An empty side imposes nothing; the join degrades to the other side.
	if left.IsEmpty() {
		return right, nil
	}
	if right.IsEmpty() {
		return left, nil
	}

	args := make([]any, 0, len(left.Args)+len(right.Args))
	args = append(args, left.Args...)
	args = append(args, right.Args...)
	return Predicate{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, j.Op, right.Clause),
		Args:   args,
	}, nil
}

// fold joins a flat list left to right with a single operator, the way the
// host's conjunction/disjunction aggregators hand leaves over.
func fold(exprs []Expression, op JoinOperator) Expression {
	if len(exprs) == 0 {
		return Empty{}
	}
	tree := exprs[0]
	for _, next := range exprs[1:] {
		tree = Join{Left: tree, Right: next, Op: op}
	}
	return tree
}

// FoldAnd joins a flat list of expressions with AND.
func FoldAnd(exprs ...Expression) Expression {
	return fold(exprs, And)
}

// FoldOr joins a flat list of expressions with OR.
func FoldOr(exprs ...Expression) Expression {
	return fold(exprs, Or)
}
