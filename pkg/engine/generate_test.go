package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/fitness"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/morpho"
)

// fakeSource is an in-memory SolutionSource with a programmable seen set.
type fakeSource struct {
	solutions []morpho.Solution
	kinds     map[string]morpho.ParamKind
	seen      func(inputs map[string]float64) bool
	lastPred  fitness.Predicate
}

func (f *fakeSource) GetSolutions(_ context.Context, pred fitness.Predicate) ([]morpho.Solution, error) {
	f.lastPred = pred
	return f.solutions, nil
}

func (f *fakeSource) SolutionExists(_ context.Context, inputs map[string]float64) (bool, error) {
	if f.seen == nil {
		return false, nil
	}
	return f.seen(inputs), nil
}

func (f *fakeSource) ParamKinds(context.Context) (map[string]morpho.ParamKind, error) {
	if f.kinds == nil {
		return map[string]morpho.ParamKind{}, nil
	}
	return f.kinds, nil
}

func testRequest() Request {
	return Request{
		Identity: morpho.Identity{Directory: "/tmp/campaign", Project: "bridge"},
		Intervals: []morpho.Interval{
			morpho.NewInterval("span", 0, 10, 1),
			morpho.NewInterval("depth", 0.1, 0.9, 0),
		},
		Seed: 42,
	}
}

func TestGenerateRequiresIdentity(t *testing.T) {
	s := NewSession(&fakeSource{})
	req := testRequest()
	req.Identity.Project = ""
	_, err := s.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.MissingParameter, errors.CodeOf(err))
}

func TestGenerateRequiresIntervals(t *testing.T) {
	s := NewSession(&fakeSource{})
	req := testRequest()
	req.Intervals = nil
	_, err := s.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.MissingParameter, errors.CodeOf(err))
}

func TestGenerateStaysInBounds(t *testing.T) {
	s := NewSession(&fakeSource{})
	req := testRequest()

	for i := 0; i < 10000; i++ {
		candidate, err := s.Generate(context.Background(), req)
		require.NoError(t, err)

		span := candidate.Values["span"]
		assert.GreaterOrEqual(t, span, 0.0)
		assert.LessOrEqual(t, span, 10.0)
		// On the step grid.
		assert.Equal(t, span, float64(int64(span)))

		depth := candidate.Values["depth"]
		assert.GreaterOrEqual(t, depth, 0.1)
		assert.LessOrEqual(t, depth, 0.9)
	}
}

func TestGenerateDeterministicPerSeed(t *testing.T) {
	first := NewSession(&fakeSource{})
	second := NewSession(&fakeSource{})
	req := testRequest()

	for i := 0; i < 20; i++ {
		a, err := first.Generate(context.Background(), req)
		require.NoError(t, err)
		b, err := second.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, a.Values, b.Values)
	}
}

func TestGenerateSeedContinuesStream(t *testing.T) {
	s := NewSession(&fakeSource{})
	req := testRequest()

	a, err := s.Generate(context.Background(), req)
	require.NoError(t, err)
	b, err := s.Generate(context.Background(), req)
	require.NoError(t, err)
	// The same seed advances its stream rather than replaying it.
	assert.NotEqual(t, a.Values, b.Values)

	s.Reset(req.Seed)
	c, err := s.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a.Values, c.Values)
}

func TestGenerateConstantInterval(t *testing.T) {
	s := NewSession(&fakeSource{})
	req := testRequest()
	req.Intervals = append(req.Intervals, morpho.NewInterval("thickness", 5, 5, 1))

	candidate, err := s.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 5.0, candidate.Values["thickness"])
}

func TestGenerateSpaceExhausted(t *testing.T) {
	source := &fakeSource{seen: func(map[string]float64) bool { return true }}
	s := NewSession(source)

	_, err := s.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, errors.SpaceExhausted, errors.CodeOf(err))
}

func TestGenerateSystematicBreedsFromParents(t *testing.T) {
	parents := []morpho.Solution{
		{Inputs: map[string]float64{"span": 2, "depth": 0.2}},
		{Inputs: map[string]float64{"span": 8, "depth": 0.8}},
	}
	source := &fakeSource{
		solutions: parents,
		kinds:     map[string]morpho.ParamKind{"span": morpho.Input, "depth": morpho.Input},
	}
	s := NewSession(source)

	req := testRequest()
	req.Systematic = true
	// No mutation, no spread: children must land between parent values.
	req.Params = &morpho.AlgorithmParams{MutationProbability: 0, SpreadFactor: 0}

	for i := 0; i < 1000; i++ {
		candidate, err := s.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, candidate.Values["span"], 2.0)
		assert.LessOrEqual(t, candidate.Values["span"], 8.0)
		assert.GreaterOrEqual(t, candidate.Values["depth"], 0.2)
		assert.LessOrEqual(t, candidate.Values["depth"], 0.8)
	}
}

func TestGenerateNilParamsUseDefaults(t *testing.T) {
	// One parent at span=5: without mutation a child can only land within one
	// step of it. The default mutation probability of 0.5 must produce fresh
	// draws elsewhere in the interval.
	source := &fakeSource{
		solutions: []morpho.Solution{
			{Inputs: map[string]float64{"span": 5, "depth": 0.5}},
		},
	}
	s := NewSession(source)

	req := testRequest()
	req.Systematic = true
	req.Params = nil

	sawMutation := false
	for i := 0; i < 500 && !sawMutation; i++ {
		candidate, err := s.Generate(context.Background(), req)
		require.NoError(t, err)
		span := candidate.Values["span"]
		if span < 4 || span > 6 {
			sawMutation = true
		}
	}
	assert.True(t, sawMutation)
}

func TestGenerateSingleParentNudges(t *testing.T) {
	source := &fakeSource{
		solutions: []morpho.Solution{
			{Inputs: map[string]float64{"span": 5, "depth": 0.5}},
		},
	}
	s := NewSession(source)

	req := testRequest()
	req.Systematic = true
	req.Params = &morpho.AlgorithmParams{MutationProbability: 0, SpreadFactor: 0}

	sawNudge := false
	for i := 0; i < 500; i++ {
		candidate, err := s.Generate(context.Background(), req)
		require.NoError(t, err)

		// Stepped parameter stays within one step of the lone parent.
		span := candidate.Values["span"]
		assert.Contains(t, []float64{4, 5, 6}, span)
		if span != 5 {
			sawNudge = true
		}
		// Continuous parameter never moves.
		assert.Equal(t, 0.5, candidate.Values["depth"])
	}
	assert.True(t, sawNudge)
}

func TestGenerateSystematicAppliesFilter(t *testing.T) {
	source := &fakeSource{
		kinds: map[string]morpho.ParamKind{"stress": morpho.Output},
	}
	s := NewSession(source)

	req := testRequest()
	req.Systematic = true
	req.Filter = fitness.Leaf{Param: "stress", Op: fitness.LessThan, Value: 100}

	_, err := s.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, source.lastPred.IsEmpty())
	assert.Contains(t, source.lastPred.Clause, "json_extract")
}

func TestGenerateNonSystematicIgnoresParents(t *testing.T) {
	source := &fakeSource{
		solutions: []morpho.Solution{{Inputs: map[string]float64{"span": 5}}},
	}
	s := NewSession(source)

	req := testRequest()
	req.Systematic = false

	_, err := s.Generate(context.Background(), req)
	require.NoError(t, err)
	// The pool was never fetched.
	assert.True(t, source.lastPred.IsEmpty())
}

func TestCandidateFormatting(t *testing.T) {
	c := newCandidate(map[string]float64{"span": 7, "depth": 0.25})
	assert.Equal(t, []string{"depth", "span"}, c.Names)
	assert.Equal(t, []string{"depth,0.25", "span,7"}, c.Formatted)
}
