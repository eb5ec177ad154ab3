package usecases

import "fmt"

// FetchError reports a failed scrape. The whole cycle aborts with no
// state mutated; the next scheduled cycle retries independently.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch course snapshot: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MalformedRowError reports a scraped row missing required fields.
// The row is skipped; the rest of the cycle continues.
type MalformedRowError struct {
	ClassCode string
	Reason    string
}

func (e *MalformedRowError) Error() string {
	id := e.ClassCode
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("malformed row %s: %s", id, e.Reason)
}

// PersistenceError reports a failed store read or write. Fatal to the
// current cycle from the point of failure; rows written earlier stay
// committed.
type PersistenceError struct {
	ClassCode string
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.ClassCode != "" {
		return fmt.Sprintf("store operation failed for %s: %v", e.ClassCode, e.Err)
	}
	return fmt.Sprintf("store operation failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DispatchError reports a single notification that failed to send.
// It never blocks other payloads or later cycle phases.
type DispatchError struct {
	ClassCode string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("failed to dispatch notification for %s: %v", e.ClassCode, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
