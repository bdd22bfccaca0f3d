// Package repository holds the data access layer for the reservation table.
// Every failure coming back from the backing store is reported as a
// *StoreError so higher layers can tell store failures apart from
// validation problems without inspecting driver types.
package repository

import "fmt"

// Store operation names, used in StoreError and in metrics labels.
const (
    OpCreate         = "create"
    OpUpdateState    = "update_state"
    OpGetByID        = "get_by_id"
    OpGetByUserID    = "get_by_user_id"
    OpGetByProximity = "get_by_proximity"
    OpGetAll         = "get_all"
)

// StoreError wraps a backing-store failure (connectivity loss, constraint
// violation, malformed query) with the operation that produced it.  The
// message is the driver's own; callers surface it untranslated.
type StoreError struct {
    Op  string
    Err error
}

func (e *StoreError) Error() string {
    return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
    if err == nil {
        return nil
    }
    return &StoreError{Op: op, Err: err}
}
