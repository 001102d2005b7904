package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record doesn't exist in the store
var ErrNotFound = errors.New("record not found")

// Error describes a failed storage operation with enough context to diagnose
// which record and which operation went wrong.
type Error struct {
	Op     string
	Record string
	Err    error
}

func (e *Error) Error() string {
	if e.Record == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Record, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Batch is an atomic set of record writes and deletes. Either every entry is
// applied or, after crash recovery, every entry is re-applied; readers never
// observe a partially applied batch across process restarts.
type Batch struct {
	Put    map[string]interface{}
	Delete []string
}

// Store is the durable record store backing a run. Records are addressed by
// name and hold a single JSON-encodable value.
type Store interface {
	// Get decodes the named record into v.
	// Returns an error wrapping ErrNotFound if the record doesn't exist.
	Get(name string, v interface{}) error

	// Put durably writes the named record, overwriting any previous value.
	Put(name string, v interface{}) error

	// Delete removes the named record. No error if it doesn't exist.
	Delete(name string) error

	// List returns the names of all records. Order is not guaranteed.
	List() ([]string, error)

	// Commit applies a batch of writes and deletes atomically.
	Commit(batch Batch) error
}
