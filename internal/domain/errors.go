package domain

import (
	"errors"
	"fmt"
)

// ErrNoScenarios se devuelve cuando el generador no produjo ningún escenario.
// Es el único fallo del pipeline a nivel de generación.
var ErrNoScenarios = errors.New("no scenarios generated")

// InputError describes a malformed or out-of-range request field.
// Requests failing validation are rejected before any simulation starts.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// DataUnavailableError means a required price could not be obtained from the
// market data provider. Only a missing crop price is fatal.
type DataUnavailableError struct {
	Product string
	Region  string
}

func (e *DataUnavailableError) Error() string {
	if e.Region == "" {
		return fmt.Sprintf("price unavailable for %q", e.Product)
	}
	return fmt.Sprintf("price unavailable for %q in region %q", e.Product, e.Region)
}

// IsInputError reports whether err (or anything it wraps) is an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// IsDataUnavailable reports whether err (or anything it wraps) is a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var de *DataUnavailableError
	return errors.As(err, &de)
}
