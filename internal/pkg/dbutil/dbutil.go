// Package dbutil adapts gendry's mysql flavoured sql to postgres.
package dbutil

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

var limitRegex = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Finalize rewrites `LIMIT ?,?` into `LIMIT ? OFFSET ?` and rebinds to $n placeholders.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	loc := limitRegex.FindStringIndex(query)
	if loc != nil {
		prefix := query[:loc[0]]
		qCount := strings.Count(prefix, "?")
		if qCount+1 < len(args) {
			args[qCount], args[qCount+1] = args[qCount+1], args[qCount]
			query = limitRegex.ReplaceAllString(query, "LIMIT ? OFFSET ?")
		}
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

// IsConflict reports a unique violation, including wrapped driver errors.
func IsConflict(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ClampLimit maps a caller supplied page size into [1, max], using def for non-positive values.
func ClampLimit(limit, def, max int) uint {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return uint(limit)
}
