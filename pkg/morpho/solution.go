package morpho

import (
	"sort"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
)

// ParamKind tells whether a named parameter belongs to the input or the
// output side of a project's schema.
type ParamKind int

const (
	Input ParamKind = iota
	Output
)

func (k ParamKind) String() string {
	if k == Input {
		return "input"
	}
	return "output"
}

// Solution is one evaluated candidate as stored and retrieved. Inputs and
// Outputs are flat name→value maps; ordering is irrelevant.
type Solution struct {
	// ID is the store-assigned identity, monotonic across the whole store.
	ID string
	// ScopedID is the per-project sequence number used for human-facing
	// references and asset file naming.
	ScopedID int64
	Project  string
	Inputs   map[string]float64
	Outputs  map[string]float64
}

// AggregatedData bundles everything one evaluation of the design definition
// produced: the input vector it was driven with, the measured outputs, and
// side files keyed by their source tag.
type AggregatedData struct {
	Inputs  map[string]float64 `json:"inputs"`
	Outputs map[string]float64 `json:"outputs"`
	Files   map[string]string  `json:"files"` // tag -> file path
}

// Validate checks that the bundle is complete enough to persist.
func (d AggregatedData) Validate() error {
	if len(d.Inputs) == 0 {
		return errors.New(errors.MissingParameter, "aggregated data has no inputs")
	}
	for name := range d.Inputs {
		if err := ValidateName(name); err != nil {
			return errors.Wrap(err, errors.InvalidInput, "bad input parameter name")
		}
	}
	for name := range d.Outputs {
		if err := ValidateName(name); err != nil {
			return errors.Wrap(err, errors.InvalidInput, "bad output parameter name")
		}
	}
	for tag := range d.Files {
		if err := ValidateName(tag); err != nil {
			return errors.Wrap(err, errors.InvalidInput, "bad asset tag")
		}
	}
	return nil
}

// SortedKeys returns the keys of a name→value map in lexical order. Map
// iteration order is randomized in Go, so every surface that needs a stable
// parameter ordering (CSV headers, emitted gene lists) goes through this.
func SortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
