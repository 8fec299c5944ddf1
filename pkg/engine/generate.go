package engine

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/fitness"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/logging"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/morpho"
)

// maxNoveltyAttempts bounds the search for an unseen candidate. A discrete
// space whose combinations are all stored will hit this and surface as
// SpaceExhausted instead of spinning forever.
const maxNoveltyAttempts = 100

// Request carries everything one generation call needs. Nothing in it is
// remembered by the session except the seed's random stream.
type Request struct {
	Identity  morpho.Identity
	Intervals []morpho.Interval
	// Params tunes the algorithm; nil means morpho.DefaultAlgorithmParams().
	Params *morpho.AlgorithmParams
	Filter fitness.Expression
	// Systematic enables breeding from stored solutions. When false every
	// parameter is sampled fresh, ignoring parents and the filter.
	Systematic bool
	Seed       int64
}

// Candidate is one generated input vector. Values carries the vector itself;
// Names and Formatted present it in stable lexical order for hosts that
// consume positional gene lists.
type Candidate struct {
	Values    map[string]float64
	Names     []string
	Formatted []string // "name,value" per parameter
}

// Generate produces the next candidate for the request. Breeding draws two
// parents from the filtered solution pool; each parameter then either mutates
// (fresh uniform sample) or derives from the parents' values. The candidate
// is checked against the store for novelty and regenerated until unseen or
// the attempt bound is hit.
func (s *Session) Generate(ctx context.Context, req Request) (Candidate, error) {
	if err := errors.CheckContext(ctx, "generate"); err != nil {
		return Candidate{}, err
	}
	if err := req.Identity.Validate(); err != nil {
		return Candidate{}, err
	}
	if len(req.Intervals) == 0 {
		return Candidate{}, errors.New(errors.MissingParameter, "no intervals supplied")
	}
	if req.Params == nil {
		defaults := morpho.DefaultAlgorithmParams()
		req.Params = &defaults
	}

	intervals := make([]morpho.Interval, len(req.Intervals))
	copy(intervals, req.Intervals)
	for i := range intervals {
		if err := morpho.ValidateName(intervals[i].Name); err != nil {
			return Candidate{}, err
		}
		intervals[i].Sanitize()
	}

	var parents []morpho.Solution
	if req.Systematic {
		pool, err := s.parentPool(ctx, req, intervals)
		if err != nil {
			return Candidate{}, err
		}
		parents = pool
	}

	rng := s.stream(req.Seed)
	logCtx := logging.WithProject(logging.WithDirectory(ctx, req.Identity.Directory), req.Identity.Project)

	for attempt := 0; attempt < maxNoveltyAttempts; attempt++ {
		values := s.breed(rng, intervals, parents, req)

		seen, err := s.source.SolutionExists(ctx, values)
		if err != nil {
			return Candidate{}, err
		}
		if !seen {
			if attempt > 0 {
				s.logger.Debug(logCtx, "found novel candidate after %d retries", attempt)
			}
			return newCandidate(values), nil
		}
	}

	return Candidate{}, errors.WithFields(
		errors.New(errors.SpaceExhausted, "could not find an unseen candidate"),
		errors.Fields{"project": req.Identity.Project, "attempts": maxNoveltyAttempts},
	)
}

// parentPool fetches the solutions eligible as breeding parents, applying the
// request's fitness filter when one is given.
func (s *Session) parentPool(ctx context.Context, req Request, intervals []morpho.Interval) ([]morpho.Solution, error) {
	kinds, err := s.source.ParamKinds(ctx)
	if err != nil {
		return nil, err
	}
	// The request's intervals are inputs by definition, even before any
	// solution has been stored.
	for _, iv := range intervals {
		kinds[iv.Name] = morpho.Input
	}

	pred := fitness.Predicate{}
	if req.Filter != nil {
		pred, err = req.Filter.Eval(fitness.Context{
			Project: req.Identity.Project,
			Schema:  kinds,
		})
		if err != nil {
			return nil, err
		}
	}
	return s.source.GetSolutions(ctx, pred)
}

// breed builds one candidate vector. The two parents are drawn once per
// candidate, uniformly with replacement.
func (s *Session) breed(rng *rand.Rand, intervals []morpho.Interval, parents []morpho.Solution, req Request) map[string]float64 {
	var first, second *morpho.Solution
	sameParent := false
	if len(parents) > 0 {
		i := rng.Intn(len(parents))
		j := rng.Intn(len(parents))
		first, second = &parents[i], &parents[j]
		sameParent = i == j
	}

	values := make(map[string]float64, len(intervals))
	for _, iv := range intervals {
		values[iv.Name] = s.breedParam(rng, iv, first, second, sameParent, len(parents), req)
	}
	return values
}

func (s *Session) breedParam(rng *rand.Rand, iv morpho.Interval, first, second *morpho.Solution, sameParent bool, poolSize int, req Request) float64 {
	if iv.IsConstant {
		return iv.Start
	}

	// Fresh sampling when breeding is off, no parents exist, or the
	// mutation coin lands.
	if !req.Systematic || first == nil || rng.Float64() < req.Params.MutationProbability {
		return sample(rng, iv)
	}

	v1, ok1 := first.Inputs[iv.Name]
	v2, ok2 := second.Inputs[iv.Name]
	if !ok1 && !ok2 {
		return sample(rng, iv)
	}
	if !ok1 {
		v1 = v2
	}
	if !ok2 {
		v2 = v1
	}

	// A pool of one offers no segment to blend along; nudge the lone
	// parent one step sideways on a coin flip so its neighborhood still
	// gets explored.
	if poolSize == 1 {
		return nudge(rng, iv, v1)
	}

	// The same parent drawn twice contributes its value unchanged.
	if sameParent {
		return iv.Clamp(v1)
	}

	// Blend along the segment between the parents, allowing overshoot
	// proportional to the spread factor on both sides.
	mu := (1+2*req.Params.SpreadFactor)*rng.Float64() - req.Params.SpreadFactor
	child := v1 + mu*(v2-v1)
	return iv.Clamp(iv.Quantize(child))
}

// sample draws uniformly from the interval and snaps to its step grid.
func sample(rng *rand.Rand, iv morpho.Interval) float64 {
	v := iv.Start + rng.Float64()*iv.Width()
	return iv.Clamp(iv.Quantize(v))
}

// nudge moves a value one step up or down half of the time, with the sign
// decided by a second flip. Continuous parameters stay where they are.
func nudge(rng *rand.Rand, iv morpho.Interval, v float64) float64 {
	if iv.Step == 0 || rng.Float64() < 0.5 {
		return iv.Clamp(v)
	}
	delta := iv.Step
	if rng.Float64() < 0.5 {
		delta = -delta
	}
	return iv.Clamp(iv.Quantize(v + delta))
}

func newCandidate(values map[string]float64) Candidate {
	names := morpho.SortedKeys(values)
	formatted := make([]string, 0, len(names))
	for _, name := range names {
		formatted = append(formatted, fmt.Sprintf("%s,%s", name, strconv.FormatFloat(values[name], 'f', -1, 64)))
	}
	return Candidate{Values: values, Names: names, Formatted: formatted}
}
