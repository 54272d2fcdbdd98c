package models

import (
	"fmt"
	"strings"
)

// FieldError describes one rule a record field broke.
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

func (f FieldError) String() string {
	return f.Field + " " + f.Message
}

// ValidationError aggregates every field failure of one rejected record.
type ValidationError struct {
	Entity string
	ID     string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	id := e.ID
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("%s %s: %s", e.Entity, id, strings.Join(parts, "; "))
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
