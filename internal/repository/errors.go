package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// isUUID ids are compared against uuid columns directly so the indexes apply;
// anything that doesn't parse can't match a row.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// isConflict unique violation or a lost serialization race.
func isConflict(err error) bool {
	switch pqCode(err) {
	case pqUniqueViolation, pqSerializationFailure, pqDeadlockDetected:
		return true
	}
	return false
}
