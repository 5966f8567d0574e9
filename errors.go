package upsert

import (
	"errors"
	"fmt"
)

// Errors returned while registering columns or building a statement.
// Registration errors are stored on the builder and reported by Build and Execute.
var (
	// ErrNoTableGiven is returned when Execute is called before ForTable.
	ErrNoTableGiven = errors.New("upsert: no table name has been set")

	// ErrEmptyUpsert is returned when there are no identifiers or no fields.
	ErrEmptyUpsert = errors.New("upsert: no columns have been specified")

	// ErrFieldAlreadyInUse is returned when a field column is registered twice.
	ErrFieldAlreadyInUse = errors.New("upsert: field has already been set")

	// ErrIdentifierAlreadyInUse is returned when an identifier column is registered twice.
	ErrIdentifierAlreadyInUse = errors.New("upsert: identifier has already been set")

	// ErrFieldRegisteredAsIdentifier is returned when a registered field is registered again as identifier.
	// It matches ErrFieldAlreadyInUse as well.
	ErrFieldRegisteredAsIdentifier = fmt.Errorf("%w as field, cannot register it as identifier", ErrFieldAlreadyInUse)

	// ErrIdentifierRegisteredAsField is returned when a registered identifier is registered again as field.
	// It matches ErrIdentifierAlreadyInUse as well.
	ErrIdentifierRegisteredAsField = fmt.Errorf("%w, cannot register it as field", ErrIdentifierAlreadyInUse)

	// ErrInvalidColumn is returned for an empty column name.
	ErrInvalidColumn = errors.New("upsert: invalid column name")

	// ErrUnsupportedDialect is returned when the connection's dialect has no upsert rendering rule.
	ErrUnsupportedDialect = errors.New("upsert: unsupported database dialect")

	// ErrUnbindableValue is returned when a value cannot be reduced to a scalar.
	ErrUnbindableValue = errors.New("upsert: value cannot be bound")

	// ErrInvalidParameter is returned when a value cannot be converted to its parameter type.
	ErrInvalidParameter = errors.New("upsert: invalid parameter")
)

func columnError(err error, column string) error {
	return fmt.Errorf("%w: %q", err, column)
}
