/*
errors.go - Error types for the leave planner

ERROR CATEGORIES:
  1. Persistence errors - Missing or malformed snapshots
  2. Validation errors - Bad months, bad settings
  3. Lookup errors - Entries and overrides that do not exist

POLICY:
  Failures are contained where they happen. Load converts a malformed snapshot
  into a logged warning and keeps the defaults; the projection never fails.
  Nothing here crosses the store/projection boundary.

SEE ALSO:
  - store.go: Load/Save use ErrBlobNotFound and SnapshotError
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBlobNotFound is returned by a BlobStore when the key has never been written.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrMalformedSnapshot is returned when a persisted or imported snapshot cannot be decoded.
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrEntryNotFound is returned when no leave entry has the given id.
	ErrEntryNotFound = errors.New("leave entry not found")

	// ErrOverrideNotFound is returned when no override record exists for a month.
	ErrOverrideNotFound = errors.New("monthly override not found")

	// ErrInvalidMonth is returned for month keys that are not YYYY-MM.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrInvalidSettings is returned when settings fail validation.
	ErrInvalidSettings = errors.New("invalid settings")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// SnapshotError carries the key and decode failure of a bad snapshot.
type SnapshotError struct {
	Key string
	Err error
}

func (e *SnapshotError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("malformed snapshot: %v", e.Err)
	}
	return fmt.Sprintf("malformed snapshot at %q: %v", e.Key, e.Err)
}

func (e *SnapshotError) Unwrap() []error {
	return []error{ErrMalformedSnapshot, e.Err}
}

// SettingsError names the offending field.
type SettingsError struct {
	Field  string
	Reason string
}

func (e *SettingsError) Error() string {
	return fmt.Sprintf("invalid settings: %s %s", e.Field, e.Reason)
}

func (e *SettingsError) Unwrap() error {
	return ErrInvalidSettings
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entry or override.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrOverrideNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrInvalidSettings) ||
		errors.Is(err, ErrMalformedSnapshot)
}
