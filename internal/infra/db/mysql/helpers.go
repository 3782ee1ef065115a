package mysql

import "database/sql"

// nullIfEmpty maps "" to SQL NULL for optional columns
func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
