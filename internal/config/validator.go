// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, ensuring the binary never
// runs with partial, malformed, or missing configuration.
//
// Field tags cover single-field rules (`required`, `oneof`, `url`,
// `required_if`).  Rules that span sections, such as "the sql backend needs
// a database DSN", are registered here as struct-level validations.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import "github.com/go-playground/validator/v10"

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterStructValidation(crossSection, Config{})
	return val
}

// crossSection enforces rules that involve more than one section.
func crossSection(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if c.Auth.Backend == "sql" && c.Database.DSN == "" {
		sl.ReportError(c.Database.DSN, "Database.DSN", "DSN", "required_with_sql", "")
	}
}

//
// public API
//

// validateStruct returns the validation errors, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
