package export

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/morpho"
)

// csvHeader builds the mirror's column order: scoped id, inputs, outputs,
// then asset tags, each group lexically sorted.
func csvHeader(data morpho.AggregatedData, tags []string) []string {
	header := []string{"scoped_id"}
	header = append(header, morpho.SortedKeys(data.Inputs)...)
	header = append(header, morpho.SortedKeys(data.Outputs)...)
	header = append(header, tags...)
	return header
}

// AppendCSV mirrors one saved solution into the project's CSV file, creating
// the file with a header row on first use. A header that no longer matches
// the data's shape is an error; the mirror is never silently truncated or
// rewritten.
func AppendCSV(identity morpho.Identity, scopedID int64, data morpho.AggregatedData, archived map[string]string) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	tags := make([]string, 0, len(archived))
	for tag := range archived {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	header := csvHeader(data, tags)

	path := identity.CSVPath()
	existing, err := readCSVHeader(path)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, errors.InsertionError, "failed to open csv mirror")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if existing == nil {
		if err := w.Write(header); err != nil {
			return errors.Wrap(err, errors.InsertionError, "failed to write csv header")
		}
	} else if !equalHeaders(existing, header) {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "csv mirror header does not match solution shape"),
			errors.Fields{"csv": path},
		)
	}

	record := []string{strconv.FormatInt(scopedID, 10)}
	for _, name := range morpho.SortedKeys(data.Inputs) {
		record = append(record, strconv.FormatFloat(data.Inputs[name], 'f', -1, 64))
	}
	for _, name := range morpho.SortedKeys(data.Outputs) {
		record = append(record, strconv.FormatFloat(data.Outputs[name], 'f', -1, 64))
	}
	for _, tag := range tags {
		record = append(record, archived[tag])
	}

	if err := w.Write(record); err != nil {
		return errors.Wrap(err, errors.InsertionError, "failed to append csv record")
	}
	w.Flush()
	return errors.Wrap(w.Error(), errors.InsertionError, "failed to flush csv mirror")
}

// readCSVHeader returns the first record of an existing mirror, or nil when
// the file does not exist yet.
func readCSVHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.InsertionError, "failed to open csv mirror")
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to read csv header")
	}
	return header, nil
}

func equalHeaders(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
