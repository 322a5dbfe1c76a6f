package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const sqlStateForeignKeyViolation = "23503"

// IsForeignKeyViolation reports whether err is a foreign key violation.
// When constraintName is provided the violation must reference it.
func IsForeignKeyViolation(err error, constraintName string) bool {
	return matchesViolation(err, sqlStateForeignKeyViolation, constraintName, "violates foreign key constraint", "FOREIGN KEY constraint failed")
}

func matchesViolation(err error, sqlState, constraintName string, fallbacks ...string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == sqlState && constraintMatches(pgxErr.ConstraintName, constraintName)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == sqlState && constraintMatches(pqErr.Constraint, constraintName)
	}

	// sqlite and wrapped driver errors only carry text
	msg := err.Error()
	if constraintName != "" && !strings.Contains(msg, constraintName) {
		return false
	}
	for _, fragment := range fallbacks {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func constraintMatches(actual, want string) bool {
	return want == "" || actual == want
}
