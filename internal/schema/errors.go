package schema

import "fmt"

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
)

// LoadError is a structured error with optional location and JSON Pointer.
type LoadError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path
	JSONPointer string // e.g. "#/properties/value"
	Cause       error
}

func (e *LoadError) Error() string { return e.Message }
func (e *LoadError) Unwrap() error { return e.Cause }

// InvalidSchemaIdentifierError is returned for documents without an `id`.
type InvalidSchemaIdentifierError struct {
	Source string
}

func (e *InvalidSchemaIdentifierError) Error() string {
	if e.Source == "" {
		return "invalid schema identifier, missing id"
	}
	return fmt.Sprintf("invalid schema identifier, missing id in %s", e.Source)
}

// InvalidServiceDefinitionError is returned when a document cannot be turned
// into a service.
type InvalidServiceDefinitionError struct {
	ID     string
	Detail string
}

func (e *InvalidServiceDefinitionError) Error() string {
	return fmt.Sprintf("invalid service definition for %q: %s", e.ID, e.Detail)
}
