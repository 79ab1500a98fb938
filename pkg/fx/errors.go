package fx

import (
	"fmt"

	"github.com/stripe/pg-schema-fx/pkg/schema"
)

// ObjectAlreadyExistsError is returned when Postgres refuses to create an object because one with the same name exists.
type ObjectAlreadyExistsError struct {
	Operation string
	Name      string
	Err       error
}

func (e *ObjectAlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %s: object already exists: %s", e.Operation, e.Name, e.Err)
}

func (e *ObjectAlreadyExistsError) Unwrap() error {
	return e.Err
}

// ObjectDoesNotExistError is returned when the object an operation targets is missing.
type ObjectDoesNotExistError struct {
	Operation string
	Name      string
	Err       error
}

func (e *ObjectDoesNotExistError) Error() string {
	return fmt.Sprintf("%s %s: object does not exist: %s", e.Operation, e.Name, e.Err)
}

func (e *ObjectDoesNotExistError) Unwrap() error {
	return e.Err
}

// InvalidArgumentOrderError is returned before any SQL is issued when an argument without a default follows one
// with a default.
type InvalidArgumentOrderError struct {
	Function string
	// Argument is the argument without a default
	Argument string
	// AfterDefaulted is the preceding argument that has a default
	AfterDefaulted string
}

func (e *InvalidArgumentOrderError) Error() string {
	return fmt.Sprintf(
		"function %s: argument %q has no default but follows argument %q, which has one",
		e.Function, e.Argument, e.AfterDefaulted,
	)
}

// InvalidArgumentError is returned before any SQL is issued when an argument is malformed, e.g., its name is reused.
type InvalidArgumentError struct {
	Function string
	Argument string
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("function %s: argument %q: %s", e.Function, e.Argument, e.Reason)
}

// IntrospectionError is returned when the catalog could not be read. When it comes out of WithIndexReapplication, the
// operation was never run.
type IntrospectionError struct {
	// Target describes what was being read, e.g., "indexes on public.active_users"
	Target string
	Err    error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("introspecting %s: %s", e.Target, e.Err)
}

func (e *IntrospectionError) Unwrap() error {
	return e.Err
}

// IndexReapplicationError identifies the index that could not be rebuilt once the operation completed. Indexes
// replayed before it are left in place.
type IndexReapplicationError struct {
	Relation string
	Index    schema.Index
	// Collision is the kind of the relation already holding the index's name. It is empty unless the replay was
	// refused because of a name collision.
	Collision schema.RelationKind
	Err       error
}

func (e *IndexReapplicationError) Error() string {
	if e.Collision.Exists() {
		return fmt.Sprintf("reapplying index %s on %s: name is taken by a %s: %s", e.Index.Name, e.Relation, e.Collision, e.Err)
	}
	return fmt.Sprintf("reapplying index %s on %s: %s", e.Index.Name, e.Relation, e.Err)
}

func (e *IndexReapplicationError) Unwrap() error {
	return e.Err
}
