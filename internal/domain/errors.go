package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// structural
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrUnknownField      = errors.New("unknown mapping field")

	// authorization / state
	ErrNoActiveAssignment    = errors.New("caller has no active territory")
	ErrUnauthorizedTerritory = errors.New("voter is not in the caller's territory")
	ErrEmptyTerritory        = errors.New("territory has no voters")
	ErrAssignmentConflict    = errors.New("concurrent assignment for the same caller or territory")

	// lookups / input
	ErrVoterNotFound     = errors.New("voter not found")
	ErrImportJobNotFound = errors.New("import job not found or expired")
	ErrInvalidFilter     = errors.New("invalid voter filter")
	ErrInvalidOutcome    = errors.New("invalid call outcome")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// EmptyFileError the spreadsheet has no rows at all.
type EmptyFileError struct {
	FileName string
}

func (e *EmptyFileError) Error() string {
	if e.FileName == "" {
		return "spreadsheet is empty"
	}
	return fmt.Sprintf("spreadsheet %q is empty", e.FileName)
}

// MissingMappingError lists every required field absent from the column mapping.
type MissingMappingError struct {
	Fields []string
}

func (e *MissingMappingError) Error() string {
	return "missing column mapping for required fields: " + strings.Join(e.Fields, ", ")
}

// UnknownColumnError a mapping entry points at a column the sheet doesn't have.
type UnknownColumnError struct {
	Field  string
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("mapping for %s refers to unknown column %s", e.Field, e.Column)
}

// IsStructural reports whether err aborts an import before any row is touched.
func IsStructural(err error) bool {
	var empty *EmptyFileError
	var missing *MissingMappingError
	var unknown *UnknownColumnError
	return errors.As(err, &empty) || errors.As(err, &missing) || errors.As(err, &unknown) ||
		errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrUnknownField)
}
