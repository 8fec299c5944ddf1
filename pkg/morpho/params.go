package morpho

// AlgorithmParams are the tunables of the generation algorithm itself,
// supplied fresh on each call.
type AlgorithmParams struct {
	// MutationProbability is the chance that a child parameter is freshly
	// sampled instead of derived from parents.
	MutationProbability float64 `json:"probability_mutation"`

	// SpreadFactor controls how far a crossover child may fall outside the
	// segment between two parent values. 0 keeps children strictly between
	// the parents; positive values allow overshoot on both sides.
	SpreadFactor float64 `json:"spread_factor"`
}

// DefaultAlgorithmParams returns the documented defaults: mutation on a coin
// flip, children kept on the segment between parents.
func DefaultAlgorithmParams() AlgorithmParams {
	return AlgorithmParams{
		MutationProbability: 0.5,
		SpreadFactor:        0,
	}
}
