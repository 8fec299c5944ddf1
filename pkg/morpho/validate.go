package morpho

import (
	"regexp"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
)

// Project and parameter names end up inside query text (as JSON paths and
// asset directory names), so they are held to an allow-list rather than
// escaped after the fact. Leading/trailing spaces are rejected because slider
// nicknames with stray whitespace silently produce distinct parameters.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_ .-]*$`)

// JSONPath builds the json_extract path for a parameter. The key segment is
// always quoted: names may contain dots, and an unquoted `$.a.b` would be
// read as a nested lookup instead of the single key "a.b". The allow-list
// above rejects quotes, so the name can never close the segment early.
func JSONPath(name string) string {
	return `$."` + name + `"`
}

// ValidateName checks a user-supplied identifier (project name, parameter
// name, asset tag) against the allowed character set.
func ValidateName(name string) error {
	if name == "" {
		return errors.New(errors.InvalidInput, "name must not be empty")
	}
	if len(name) > 128 {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "name exceeds 128 characters"),
			errors.Fields{"name": name},
		)
	}
	if !namePattern.MatchString(name) || name[len(name)-1] == ' ' {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "name contains disallowed characters"),
			errors.Fields{"name": name},
		)
	}
	return nil
}
