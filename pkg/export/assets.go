// Package export handles everything that leaves the store: archiving asset
// files into the campaign directory, mirroring solutions into a CSV, and the
// save pipeline that ties declaration, insertion, and archival together.
package export

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/morpho"
)

// ArchiveAssets copies each tagged source file into the campaign directory
// under {directory}/{tag}/{scopedID}{ext} and returns the archived paths,
// relative to the campaign directory, keyed by tag. Copies run in parallel;
// the first failure cancels the rest.
func ArchiveAssets(ctx context.Context, identity morpho.Identity, scopedID int64, files map[string]string) (map[string]string, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return map[string]string{}, nil
	}

	var mu sync.Mutex
	archived := make(map[string]string, len(files))

	p := pool.New().WithErrors().WithContext(ctx)
	for tag, source := range files {
		if err := morpho.ValidateName(tag); err != nil {
			return nil, errors.Wrap(err, errors.InvalidInput, "bad asset tag")
		}
		p.Go(func(ctx context.Context) error {
			relative := filepath.Join(tag, strconv.FormatInt(scopedID, 10)+filepath.Ext(source))
			if err := copyFile(ctx, source, filepath.Join(identity.Directory, relative)); err != nil {
				return errors.WithFields(err, errors.Fields{"tag": tag, "source": source})
			}
			mu.Lock()
			archived[tag] = relative
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return archived, nil
}

func copyFile(ctx context.Context, source, destination string) error {
	if err := errors.CheckContext(ctx, "archive asset"); err != nil {
		return err
	}

	in, err := os.Open(source)
	if err != nil {
		return errors.Wrap(err, errors.InvalidInput, "failed to open asset source")
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return errors.Wrap(err, errors.InsertionError, "failed to create asset directory")
	}

	out, err := os.Create(destination)
	if err != nil {
		return errors.Wrap(err, errors.InsertionError, "failed to create archived asset")
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrap(err, errors.InsertionError, "failed to copy asset")
	}
	return out.Sync()
}
