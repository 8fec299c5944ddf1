// Package engine produces candidate input vectors for the next evaluation of
// a design definition. Candidates are either sampled fresh from the declared
// intervals or bred from previously stored solutions that pass the caller's
// fitness filter.
package engine

import (
	"context"
	"math/rand"
	"sync"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/fitness"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/logging"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/morpho"
)

// SolutionSource is the slice of the store the engine depends on.
type SolutionSource interface {
	GetSolutions(ctx context.Context, pred fitness.Predicate) ([]morpho.Solution, error)
	SolutionExists(ctx context.Context, inputs map[string]float64) (bool, error)
	ParamKinds(ctx context.Context) (map[string]morpho.ParamKind, error)
}

// Session owns the deterministic random streams used across a sequence of
// generation calls. Streams are keyed by seed: repeated calls with the same
// seed continue the same stream rather than restarting it, so a fixed seed
// yields a reproducible sequence of candidates instead of the same candidate
// forever.
type Session struct {
	mu      sync.Mutex
	streams map[int64]*rand.Rand
	source  SolutionSource
	logger  *logging.Logger
}

// NewSession creates a generation session over the given solution source.
func NewSession(source SolutionSource) *Session {
	return &Session{
		streams: make(map[int64]*rand.Rand),
		source:  source,
		logger:  logging.GetLogger(),
	}
}

// stream returns the random stream for a seed, creating it on first use.
func (s *Session) stream(seed int64) *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	rng, ok := s.streams[seed]
	if !ok {
		rng = rand.New(rand.NewSource(seed))
		s.streams[seed] = rng
	}
	return rng
}

// Reset discards the stream for a seed so the next call restarts it from the
// beginning.
func (s *Session) Reset(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, seed)
}
