package utils

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// CreatePgxIdentifier constructs pgx.Identifier out of a table name, optionally including schema.
// The input string can be SCHEMA.TABLE or TABLE (no matter the letter case).
// A wrong input string with more than one "." symbol is wrapped as a single name,
// usually resulting in a wrong identifier that will fail the SQL query.
func CreatePgxIdentifier(tableNameWithOrWithoutSchema string) pgx.Identifier {
	s := tableNameWithOrWithoutSchema
	if strings.Contains(s, ".") {
		parts := strings.Split(s, ".")
		if len(parts) == 2 {
			return pgx.Identifier{parts[0], parts[1]}
		}
	}
	return pgx.Identifier{s}
}

// SanitizeTableName sanitizes a table name, optionally including schema, ensuring the format is valid for SQL queries.
// The input string SCHEMA.TABLE will be returned as "SCHEMA"."TABLE",
// and the input string "TABLE" will be returned as "TABLE".
func SanitizeTableName(tableNameWithOrWithoutSchema string) string {
	return CreatePgxIdentifier(tableNameWithOrWithoutSchema).Sanitize()
}

// ValidateTableName reports an error for table names with more than one "." symbol.
func ValidateTableName(tableNameWithOrWithoutSchema string) error {
	s := tableNameWithOrWithoutSchema
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("empty table name")
	}
	if strings.Count(s, ".") > 1 {
		return fmt.Errorf("invalid identifier format '%s', expected 'schema_name.table_name'", s)
	}
	return nil
}
