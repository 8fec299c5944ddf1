package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/morpho"
)

// fieldDescriptors derives declared fields from a name→value map, in lexical
// order so two declarations of the same schema serialize identically.
func fieldDescriptors(values map[string]float64) []FieldDescriptor {
	descriptors := make([]FieldDescriptor, 0, len(values))
	for _, name := range morpho.SortedKeys(values) {
		descriptors = append(descriptors, FieldDescriptor{
			Name: name,
			Type: "DOUBLE",
			Unit: "",
		})
	}
	return descriptors
}

// assetDescriptors derives declared asset slots from the tag→path map of the
// first saved solution.
func assetDescriptors(files map[string]string) []AssetDescriptor {
	tags := make([]string, 0, len(files))
	for tag := range files {
		tags = append(tags, tag)
	}
	descriptors := make([]AssetDescriptor, 0, len(files))
	for _, tag := range sortedStrings(tags) {
		ext := filepath.Ext(files[tag])
		descriptors = append(descriptors, AssetDescriptor{
			Description: tag,
			Extension:   ext,
			MimeType:    mime.TypeByExtension(ext),
			Tag:         tag,
		})
	}
	return descriptors
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}

// slugify lowercases the project name and joins words with hyphens, giving
// downstream galleries a URL-safe handle.
func slugify(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

// DeclareProject registers the project with a schema derived from the given
// data bundle. Declaring an already declared project is a no-op; schemas are
// immutable once written.
func (s *Store) DeclareProject(ctx context.Context, data morpho.AggregatedData) error {
	if err := errors.CheckContext(ctx, "declare project"); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	variableMeta, err := json.Marshal(fieldDescriptors(data.Inputs))
	if err != nil {
		return errors.Wrap(err, errors.InvalidInput, "failed to encode input schema")
	}
	outputMeta, err := json.Marshal(fieldDescriptors(data.Outputs))
	if err != nil {
		return errors.Wrap(err, errors.InvalidInput, "failed to encode output schema")
	}
	assetMeta, err := json.Marshal(assetDescriptors(data.Files))
	if err != nil {
		return errors.Wrap(err, errors.InvalidInput, "failed to encode asset schema")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreErr(err, "failed to begin project declaration")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO project (project_name, creation_date, variable_metadata, output_metadata, assets, deleted)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(project_name) DO NOTHING
	`, s.identity.Project, time.Now().UTC().Format(time.RFC3339), string(variableMeta), string(outputMeta), string(assetMeta))
	if err != nil {
		return wrapStoreErr(err, "failed to declare project")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO metadata (project_name, captions, human_name, slug, text)
		VALUES (?, '', ?, ?, '')
		ON CONFLICT(project_name) DO NOTHING
	`, s.identity.Project, s.identity.Project, slugify(s.identity.Project))
	if err != nil {
		return wrapStoreErr(err, "failed to write project metadata")
	}

	if err := tx.Commit(); err != nil {
		return wrapStoreErr(err, "failed to commit project declaration")
	}
	return nil
}

// GetInputSchema returns the declared input fields of the project.
func (s *Store) GetInputSchema(ctx context.Context) ([]FieldDescriptor, error) {
	if err := errors.CheckContext(ctx, "get input schema"); err != nil {
		return nil, err
	}

	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT variable_metadata FROM project WHERE project_name = ? AND deleted = 0",
		s.identity.Project,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, errors.WithFields(
			errors.New(errors.ProjectNotFound, "project is not declared"),
			errors.Fields{"project": s.identity.Project},
		)
	}
	if err != nil {
		return nil, wrapStoreErr(err, "failed to read input schema")
	}

	var descriptors []FieldDescriptor
	if err := json.Unmarshal([]byte(raw), &descriptors); err != nil {
		return nil, errors.Wrap(err, errors.SchemaMismatch, "stored input schema is corrupt")
	}
	return descriptors, nil
}

// CheckSchemaCompatibility negotiates candidate inputs against the declared
// schema. Candidates using a strict subset of declared fields remain Valid so
// a definition with newly frozen sliders keeps writing into the same project.
func (s *Store) CheckSchemaCompatibility(ctx context.Context, inputs map[string]float64) (SchemaStatus, error) {
	descriptors, err := s.GetInputSchema(ctx)
	if err != nil {
		if errors.HasCode(err, errors.ProjectNotFound) {
			return NoProject, nil
		}
		return Invalid, err
	}

	declared := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		declared[d.Name] = struct{}{}
	}
	for name := range inputs {
		if _, ok := declared[name]; !ok {
			return Invalid, nil
		}
	}
	return Valid, nil
}

// ParamKinds inspects the most recently inserted solution and maps every
// parameter name it carries to its side of the schema. An empty map means the
// project has no solutions yet, which readers treat as "nothing to fetch".
func (s *Store) ParamKinds(ctx context.Context) (map[string]morpho.ParamKind, error) {
	if err := errors.CheckContext(ctx, "inspect schema"); err != nil {
		return nil, err
	}

	var params, outputs sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT parameters, output_parameters FROM solution
		WHERE project_name = ? ORDER BY rowid DESC LIMIT 1
	`, s.identity.Project).Scan(&params, &outputs)
	if err == sql.ErrNoRows {
		return map[string]morpho.ParamKind{}, nil
	}
	if err != nil {
		return nil, wrapStoreErr(err, "failed to inspect latest solution")
	}

	kinds := make(map[string]morpho.ParamKind)
	if params.Valid {
		var doc map[string]float64
		if err := json.Unmarshal([]byte(params.String), &doc); err != nil {
			return nil, errors.Wrap(err, errors.SchemaMismatch, "latest solution inputs are corrupt")
		}
		for name := range doc {
			kinds[name] = morpho.Input
		}
	}
	if outputs.Valid {
		var doc map[string]float64
		if err := json.Unmarshal([]byte(outputs.String), &doc); err != nil {
			return nil, errors.Wrap(err, errors.SchemaMismatch, "latest solution outputs are corrupt")
		}
		for name := range doc {
			kinds[name] = morpho.Output
		}
	}
	return kinds, nil
}
