package morpho

import (
	"path/filepath"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
)

// DatabaseFileName is the conventional store file name inside a campaign
// directory. One directory holds exactly one store.
const DatabaseFileName = "solutions.db"

// Identity locates a design-exploration campaign: a directory holding the
// backing store plus the project name the data is filed under. The core does
// not validate that the directory exists or is writable; that check happens
// once, upstream.
type Identity struct {
	Directory string
	Project   string
}

// Validate reports whether the identity carries both halves of the handle.
func (id Identity) Validate() error {
	if id.Directory == "" {
		return errors.New(errors.MissingParameter, "directory is required")
	}
	if id.Project == "" {
		return errors.New(errors.MissingParameter, "project name is required")
	}
	return ValidateName(id.Project)
}

// DatabasePath returns the path of the backing store file.
func (id Identity) DatabasePath() string {
	return filepath.Join(id.Directory, DatabaseFileName)
}

// CSVPath returns the path of the CSV mirror for this project.
func (id Identity) CSVPath() string {
	return filepath.Join(id.Directory, id.Project+".csv")
}
