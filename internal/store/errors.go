package store

import "fmt"

// StorageError reports a failed store operation. Callers in the sampling
// loop log it and keep going.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
