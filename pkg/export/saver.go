package export

import (
	"context"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/logging"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/morpho"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/store"
)

// Saver runs the full persistence pipeline for one evaluated solution:
// schema negotiation, row insertion, asset archival, and the CSV mirror.
type Saver struct {
	store  *store.Store
	logger *logging.Logger
}

// NewSaver creates a saver over an open store.
func NewSaver(s *store.Store) *Saver {
	return &Saver{store: s, logger: logging.GetLogger()}
}

// Save persists one data bundle. A never-seen project is declared on the
// fly from the bundle's shape; a bundle that does not fit the declared
// schema is rejected before anything is written. Asset archival failures
// abort the pipeline after the row insert, so the row survives while its
// asset records do not.
func (sv *Saver) Save(ctx context.Context, data morpho.AggregatedData) (morpho.Solution, error) {
	if err := data.Validate(); err != nil {
		return morpho.Solution{}, err
	}

	identity := sv.store.Identity()
	ctx = logging.WithProject(logging.WithDirectory(ctx, identity.Directory), identity.Project)

	status, err := sv.store.CheckSchemaCompatibility(ctx, data.Inputs)
	if err != nil {
		return morpho.Solution{}, err
	}
	switch status {
	case store.NoProject:
		if err := sv.store.DeclareProject(ctx, data); err != nil {
			return morpho.Solution{}, err
		}
		sv.logger.Info(ctx, "declared project with %d inputs and %d outputs", len(data.Inputs), len(data.Outputs))
	case store.Invalid:
		return morpho.Solution{}, errors.WithFields(
			errors.New(errors.SchemaMismatch, "solution inputs do not fit the declared schema"),
			errors.Fields{"project": identity.Project},
		)
	}

	solution, err := sv.store.InsertSolution(ctx, data)
	if err != nil {
		return morpho.Solution{}, err
	}
	sv.logger.Debug(ctx, "stored solution %d (%s)", solution.ScopedID, solution.ID)

	archived, err := ArchiveAssets(ctx, identity, solution.ScopedID, data.Files)
	if err != nil {
		return solution, err
	}
	if err := sv.store.InsertAssets(ctx, solution.ID, archived); err != nil {
		return solution, err
	}

	if err := AppendCSV(identity, solution.ScopedID, data, archived); err != nil {
		return solution, err
	}
	return solution, nil
}
