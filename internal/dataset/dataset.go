package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// DataError reports a shard whose data could not be loaded or does not match
// the run's schema. It propagates to the caller; already-recorded round state
// stays intact.
type DataError struct {
	Shard string
	Err   error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("shard %q: %v", e.Shard, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// Dataset holds one shard's samples as named numeric columns.
type Dataset struct {
	Columns []string
	// Rows is sample-major: Rows[i][j] is column j of sample i.
	Rows [][]float64
}

// NumSamples returns the number of samples in the dataset.
func (ds *Dataset) NumSamples() int { return len(ds.Rows) }

// Column returns the index of the named column, or -1.
func (ds *Dataset) Column(name string) int {
	for i, column := range ds.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

// Reachable probes whether a shard's data is currently present. An absent
// shard is not an error: it models a transiently unavailable party and is
// simply retried on a later advancement call.
func Reachable(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load reads a shard's CSV data. The first line is the header; every other
// line must hold one numeric value per column.
func Load(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DataError{Shard: path, Err: err}
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, &DataError{Shard: path, Err: err}
	}

	if len(records) < 2 {
		return nil, &DataError{Shard: path, Err: fmt.Errorf("need a header line and at least one sample")}
	}

	ds := &Dataset{Columns: records[0]}
	for line, record := range records[1:] {
		row := make([]float64, len(record))
		for i, field := range record {
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, &DataError{Shard: path, Err: fmt.Errorf("line %d column %q: %w", line+2, ds.Columns[i], err)}
			}
			row[i] = value
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}
