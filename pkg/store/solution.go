package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/fitness"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/logging"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/morpho"
)

// InsertSolution persists one evaluated candidate. The per-project scoped id
// is computed inside the same serializable transaction as the insert, so two
// concurrent writers can never observe the same maximum.
func (s *Store) InsertSolution(ctx context.Context, data morpho.AggregatedData) (morpho.Solution, error) {
	if err := errors.CheckContext(ctx, "insert solution"); err != nil {
		return morpho.Solution{}, err
	}
	if err := data.Validate(); err != nil {
		return morpho.Solution{}, err
	}

	params, err := json.Marshal(data.Inputs)
	if err != nil {
		return morpho.Solution{}, errors.Wrap(err, errors.InvalidInput, "failed to encode inputs")
	}
	outputs, err := json.Marshal(data.Outputs)
	if err != nil {
		return morpho.Solution{}, errors.Wrap(err, errors.InvalidInput, "failed to encode outputs")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return morpho.Solution{}, wrapStoreErr(err, "failed to begin insert")
	}
	defer tx.Rollback()

	id := uuid.NewString()
	var scopedID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO solution (id, parameters, output_parameters, project_name, scoped_id)
		VALUES (?, ?, ?, ?, (SELECT ifnull(max(scoped_id), 0) + 1 FROM solution WHERE project_name = ?))
		RETURNING scoped_id
	`, id, string(params), string(outputs), s.identity.Project, s.identity.Project).Scan(&scopedID)
	if err != nil {
		return morpho.Solution{}, wrapStoreErr(err, "failed to insert solution")
	}

	if err := tx.Commit(); err != nil {
		return morpho.Solution{}, wrapStoreErr(err, "failed to commit solution")
	}

	return morpho.Solution{
		ID:       id,
		ScopedID: scopedID,
		Project:  s.identity.Project,
		Inputs:   data.Inputs,
		Outputs:  data.Outputs,
	}, nil
}

// InsertAssets records archived asset files against a solution. All rows land
// or none do.
func (s *Store) InsertAssets(ctx context.Context, solutionID string, files map[string]string) error {
	if err := errors.CheckContext(ctx, "insert assets"); err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreErr(err, "failed to begin asset insert")
	}
	defer tx.Rollback()

	for tag, file := range files {
		if err := morpho.ValidateName(tag); err != nil {
			return errors.Wrap(err, errors.InvalidInput, "bad asset tag")
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO asset (file, tag, solution_id) VALUES (?, ?, ?)",
			file, tag, solutionID,
		)
		if err != nil {
			return wrapStoreErr(err, "failed to insert asset")
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapStoreErr(err, "failed to commit assets")
	}
	return nil
}

// GetSolutions fetches the project's solutions, optionally narrowed by a
// fitness predicate. A project with no solutions yet returns an empty slice
// without touching the solution table's documents. Rows whose JSON documents
// fail to decode are skipped with a warning rather than failing the fetch.
func (s *Store) GetSolutions(ctx context.Context, pred fitness.Predicate) ([]morpho.Solution, error) {
	if err := errors.CheckContext(ctx, "get solutions"); err != nil {
		return nil, err
	}

	kinds, err := s.ParamKinds(ctx)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return []morpho.Solution{}, nil
	}

	var query strings.Builder
	query.WriteString("SELECT id, scoped_id, parameters, output_parameters FROM solution WHERE project_name = ?")
	args := []any{s.identity.Project}
	if !pred.IsEmpty() {
		query.WriteString(" AND ")
		query.WriteString(pred.Clause)
		args = append(args, pred.Args...)
	}
	query.WriteString(" ORDER BY rowid")

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to query solutions")
	}
	defer rows.Close()

	logger := logging.GetLogger()
	solutions := make([]morpho.Solution, 0)
	for rows.Next() {
		var (
			id       string
			scopedID sql.NullInt64
			params   sql.NullString
			outputs  sql.NullString
		)
		if err := rows.Scan(&id, &scopedID, &params, &outputs); err != nil {
			return nil, wrapStoreErr(err, "failed to scan solution")
		}

		sol := morpho.Solution{
			ID:       id,
			ScopedID: scopedID.Int64,
			Project:  s.identity.Project,
			Inputs:   map[string]float64{},
			Outputs:  map[string]float64{},
		}
		if params.Valid {
			if err := json.Unmarshal([]byte(params.String), &sol.Inputs); err != nil {
				logger.Warn(ctx, "skipping solution %s with corrupt inputs: %v", id, err)
				continue
			}
		}
		if outputs.Valid {
			if err := json.Unmarshal([]byte(outputs.String), &sol.Outputs); err != nil {
				logger.Warn(ctx, "skipping solution %s with corrupt outputs: %v", id, err)
				continue
			}
		}
		solutions = append(solutions, sol)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr(err, "failed while reading solutions")
	}
	return solutions, nil
}

// SolutionExists reports whether a solution with exactly these input values
// has already been stored for the project.
func (s *Store) SolutionExists(ctx context.Context, inputs map[string]float64) (bool, error) {
	if err := errors.CheckContext(ctx, "check solution exists"); err != nil {
		return false, err
	}
	if len(inputs) == 0 {
		return false, errors.New(errors.MissingParameter, "no inputs to match against")
	}

	var query strings.Builder
	query.WriteString("SELECT count(*) FROM solution WHERE project_name = ?")
	args := []any{s.identity.Project}
	for _, name := range morpho.SortedKeys(inputs) {
		if err := morpho.ValidateName(name); err != nil {
			return false, err
		}
		query.WriteString(" AND json_extract(parameters, ?) = ?")
		args = append(args, morpho.JSONPath(name), inputs[name])
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query.String(), args...).Scan(&count); err != nil {
		return false, wrapStoreErr(err, "failed to check for duplicate solution")
	}
	return count > 0, nil
}

// Count returns the number of solutions stored for the project. Unknown
// projects count as zero. Lock contention surfaces as a StoreBusy error so
// the polling loop can fall back to its cached count.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if err := errors.CheckContext(ctx, "count solutions"); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM solution WHERE project_name = ?",
		s.identity.Project,
	).Scan(&count)
	if err != nil {
		return 0, wrapStoreErr(err, "failed to count solutions")
	}
	return count, nil
}
