package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the postgres error code for unique constraint
// violations; repositories translate it to the matching domain conflict.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
