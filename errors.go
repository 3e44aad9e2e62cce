package relmap

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity (or storage row) does not exist.
	ErrNotFound = errors.New("relmap: entity not found")

	// ErrInvalidSchema indicates a schema or hints definition error, detected at compile time.
	ErrInvalidSchema = errors.New("relmap: invalid schema")

	// ErrInvalidRequest indicates a caller error in a get or insert request.
	ErrInvalidRequest = errors.New("relmap: invalid request")

	// ErrUnknownClass is returned when a class name is not part of the schema.
	ErrUnknownClass = errors.New("relmap: unknown class")

	// ErrPropNotFound is returned when a property name is not defined on its class.
	ErrPropNotFound = errors.New("relmap: property not found")

	// ErrInvalidKeyPath is returned when a link property chain cannot be
	// followed to its scalar leaf in the supplied entity value.
	ErrInvalidKeyPath = errors.New("relmap: invalid key path")

	// ErrMultilinkUnsupported is returned when multilink values are requested.
	// Collection retrieval is not provided by the fetch resolver.
	ErrMultilinkUnsupported = errors.New("relmap: multilink retrieval is not supported")

	// ErrDuplicateKey is reported by adapters when an insert hits an existing key.
	ErrDuplicateKey = errors.New("relmap: duplicate key")
)

// SchemaError represents a schema definition error.
type SchemaError struct {
	Class   string // Class name
	Prop    string // Property name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("relmap: schema error")
	if e.Class != "" {
		b.WriteString(" on class ")
		b.WriteString(e.Class)
	}
	if e.Prop != "" {
		b.WriteString(" property ")
		b.WriteString(e.Prop)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// NewSchemaError creates a new SchemaError.
func NewSchemaError(class, prop, message string) *SchemaError {
	return &SchemaError{Class: class, Prop: prop, Message: message}
}

// IsSchemaError returns true if the error is a SchemaError.
func IsSchemaError(err error) bool {
	if err == nil {
		return false
	}
	var e *SchemaError
	return errors.As(err, &e)
}

// RequestError represents an invalid get or insert request, such as an
// unknown class or property name. It is always reported before any
// storage call is made.
type RequestError struct {
	Class string // Class name
	Prop  string // Property name (if applicable)
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *RequestError) Error() string {
	switch {
	case e.Prop != "":
		return fmt.Sprintf("relmap: %s.%s: %v", e.Class, e.Prop, e.Err)
	case e.Class != "":
		return fmt.Sprintf("relmap: %s: %v", e.Class, e.Err)
	default:
		return fmt.Sprintf("relmap: %v", e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the sentinel error for RequestError.
func (e *RequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// NewRequestError returns a new RequestError.
func NewRequestError(class, prop string, err error) *RequestError {
	return &RequestError{Class: class, Prop: prop, Err: err}
}

// IsRequestError returns true if the error is a RequestError.
func IsRequestError(err error) bool {
	if err == nil {
		return false
	}
	var e *RequestError
	return errors.As(err, &e)
}

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	class string
	key   Entity // Optional: the key that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.key != nil {
		return fmt.Sprintf("relmap: %s not found (key=%v)", e.class, map[string]any(e.key))
	}
	return fmt.Sprintf("relmap: %s not found", e.class)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Class returns the class name.
func (e *NotFoundError) Class() string {
	return e.class
}

// Key returns the key that was searched for, if available.
func (e *NotFoundError) Key() Entity {
	return e.key
}

// NewNotFoundError returns a new NotFoundError for the given class.
func NewNotFoundError(class string) *NotFoundError {
	return &NotFoundError{class: class}
}

// NewNotFoundErrorWithKey returns a new NotFoundError with the key that was searched for.
func NewNotFoundErrorWithKey(class string, key Entity) *NotFoundError {
	return &NotFoundError{class: class, key: key}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ConstraintError represents a storage constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("relmap: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// NewDuplicateKeyError returns a ConstraintError for an insert into table
// that collided with an existing key. The cause, if any, is the storage
// specific error.
func NewDuplicateKeyError(table string, cause error) error {
	wrap := ErrDuplicateKey
	if cause != nil {
		wrap = fmt.Errorf("%w: %w", ErrDuplicateKey, cause)
	}
	return ConstraintError{msg: fmt.Sprintf("duplicate key in %q", table), wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// IsDuplicateKey returns true if the error reports an insert over an existing key.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// QueryError wraps a storage error raised while fetching an entity.
type QueryError struct {
	Entity string // Class being fetched
	Op     string // Operation (e.g., "get")
	Prop   string // Link property that triggered a nested fetch, if any
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	entity := e.Entity
	if e.Prop != "" {
		entity = e.Prop + " -> " + entity
	}
	if e.Op != "" {
		return fmt.Sprintf("relmap: querying %s (%s): %v", entity, e.Op, e.Err)
	}
	return fmt.Sprintf("relmap: querying %s: %v", entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a storage error raised while writing an entity.
type MutationError struct {
	Entity string // Class being written
	Op     string // Operation (e.g., "insert")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("relmap: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}

// PrivacyError represents a privacy policy violation.
type PrivacyError struct {
	Entity string // Class name
	Op     string // Operation (get or insert)
	Rule   string // Rule that denied the operation
}

// Error returns the error string.
func (e *PrivacyError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("relmap: privacy denied %s on %s (rule: %s)", e.Op, e.Entity, e.Rule)
	}
	return fmt.Sprintf("relmap: privacy denied %s on %s", e.Op, e.Entity)
}

// NewPrivacyError returns a new PrivacyError.
func NewPrivacyError(entity, op, rule string) *PrivacyError {
	return &PrivacyError{Entity: entity, Op: op, Rule: rule}
}

// IsPrivacyError returns true if the error is a PrivacyError.
func IsPrivacyError(err error) bool {
	if err == nil {
		return false
	}
	var e *PrivacyError
	return errors.As(err, &e)
}
