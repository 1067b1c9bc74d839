package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ErrInvalidTableName is returned for table names outside the safe identifier set.
var ErrInvalidTableName = errors.New("invalid table name")

// MaxTableNameLength bounds table names.
const MaxTableNameLength = 128

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateTableName checks that name is a plain identifier: a letter or
// underscore followed by letters, digits or underscores.
//
// Table names are embedded in generated view definitions, so every name
// reaching the query engine MUST pass this check.
func ValidateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTableName)
	}
	if len(name) > MaxTableNameLength {
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidTableName, name, MaxTableNameLength)
	}
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q (allowed: letters, digits, underscore; must not start with a digit)", ErrInvalidTableName, name)
	}
	return nil
}

// SanitizeTableName derives a valid table name from arbitrary text, such as a
// file name stem. Disallowed characters become underscores and a leading
// digit is prefixed with "t_".
func SanitizeTableName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	name := b.String()
	switch {
	case name == "":
		name = "table"
	case name[0] >= '0' && name[0] <= '9':
		name = "t_" + name
	}
	if len(name) > MaxTableNameLength {
		name = name[:MaxTableNameLength]
	}
	return name
}

// quoteIdentifier quotes a SQL identifier.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral quotes a SQL string literal.
func quoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
