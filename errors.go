package xmlvalidator

import "errors"

// Sentinels matched with errors.Is.
var (
	ErrInvalidSchema = errors.New("invalid schema")
	ErrConfiguration = errors.New("configuration error")
)

// Reasons carried by InvalidSchemaError.
const (
	ReasonNotAFile      = "Schema is not a file, make sure the Schema File is valid"
	ReasonSchemaMissing = "Schema is Missing, Please call the method to set schema before validating"
)

// InvalidSchemaError reports a schema reference that is absent or does not
// name a regular file.
type InvalidSchemaError struct {
	Path   string
	Reason string
}

func (e *InvalidSchemaError) Error() string {
	return e.Reason
}

// Is matches ErrInvalidSchema.
func (e *InvalidSchemaError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// ConfigurationError reports a validator capability missing from the
// runtime.
type ConfigurationError struct {
	Capability string
}

func (e *ConfigurationError) Error() string {
	return e.Capability + " capability not found"
}

// Is matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
