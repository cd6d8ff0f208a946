package security

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotLoaded           = errors.New("security config not loaded")
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
)

// LoadError means the record could not be fetched for a reason other than
// "not configured yet".
type LoadError struct {
	QuizID string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load security config %s: %v", e.QuizID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ValidationError lists field problems found before any network call.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid security config: " + strings.Join(parts, "; ")
}

// LocationError wraps a failed position query. The configured coordinates
// are left as they were.
type LocationError struct {
	Err error
}

func (e *LocationError) Error() string {
	return "current location: " + e.Err.Error()
}

func (e *LocationError) Unwrap() error { return e.Err }

// SaveError means the backend rejected or never received the save.
type SaveError struct {
	QuizID string
	Err    error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save security config %s: %v", e.QuizID, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
