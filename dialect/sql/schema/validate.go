package schema

import (
	"fmt"
	"strings"

	"ariga.io/atlas/sql/schema"
)

// ValidationError represents a table validation error.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Breaking indicates the change cannot be applied without losing data.
	Breaking bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of table validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err returns the errors of the result joined as one error, or nil.
func (r *ValidationResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("invalid tables: %s", strings.Join(msgs, "; "))
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	write := func(title string, errs []*ValidationError) {
		if len(errs) == 0 {
			return
		}
		sb.WriteString(title)
		sb.WriteString(":\n")
		for _, e := range errs {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			if e.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	write("Errors", r.Errors)
	write("Warnings", r.Warnings)
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateTables validates the table definitions built by Tables.
//
// Example:
//
//	tables, err := schema.Tables(s, schema.WithForeignKeys(true))
//	if err != nil {
//	    return err
//	}
//	if res := schema.ValidateTables(tables); res.HasErrors() {
//	    log.Fatal(res)
//	}
func ValidateTables(tables []*schema.Table) *ValidationResult {
	result := &ValidationResult{}
	names := make(map[string]bool, len(tables))
	for _, t := range tables {
		if names[t.Name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: "duplicate table name",
			})
		}
		names[t.Name] = true
		validateTable(t, result)
	}
	// Validate foreign key references
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			if fk.RefTable == nil || !names[fk.RefTable.Name] {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("foreign key %q references an unknown table", fk.Symbol),
				})
			}
		}
	}
	return result
}

func validateTable(t *schema.Table, result *ValidationResult) {
	if t.PrimaryKey == nil || len(t.PrimaryKey.Parts) == 0 {
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:   t.Name,
			Message: "table has no primary key",
		})
	}
	cols := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if cols[c.Name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Column:  c.Name,
				Message: "duplicate column name",
			})
		}
		cols[c.Name] = true
		if _, ok := c.Type.Type.(*schema.UnsupportedType); ok {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   t.Name,
				Column:  c.Name,
				Message: fmt.Sprintf("storage type %q is passed through unchecked", c.Type.Raw),
			})
		}
	}
	if t.PrimaryKey != nil {
		for _, p := range t.PrimaryKey.Parts {
			switch {
			case p.C == nil || !cols[p.C.Name]:
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: "primary key references a non-existent column",
				})
			case p.C.Type.Null:
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Column:  p.C.Name,
					Message: "primary key column is nullable",
				})
			}
		}
	}
	for _, fk := range t.ForeignKeys {
		for _, c := range fk.Columns {
			if !cols[c.Name] {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("foreign key references non-existent column %q", c.Name),
				})
			}
		}
		if len(fk.Columns) != len(fk.RefColumns) {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: fmt.Sprintf("foreign key %q has %d columns but references %d", fk.Symbol, len(fk.Columns), len(fk.RefColumns)),
			})
		}
	}
}

// ValidateDiff validates the difference between the live tables and the
// desired ones. Migrations only add tables and columns: columns that are no
// longer mapped are reported as warnings and kept, and NOT NULL columns
// added to an existing table are errors.
func ValidateDiff(current, desired []*schema.Table) *ValidationResult {
	result := &ValidationResult{}
	live := make(map[string]*schema.Table, len(current))
	for _, t := range current {
		live[t.Name] = t
	}
	for _, want := range desired {
		have, ok := live[want.Name]
		if !ok {
			continue
		}
		for _, c := range have.Columns {
			if _, ok := want.Column(c.Name); !ok {
				result.Warnings = append(result.Warnings, &ValidationError{
					Table:   want.Name,
					Column:  c.Name,
					Message: "column is not mapped and will be kept",
				})
			}
		}
		for _, c := range want.Columns {
			if _, ok := have.Column(c.Name); ok || c.Type.Null {
				continue
			}
			result.Errors = append(result.Errors, &ValidationError{
				Table:    want.Name,
				Column:   c.Name,
				Message:  "new NOT NULL column on an existing table",
				Breaking: true,
			})
		}
	}
	return result
}
