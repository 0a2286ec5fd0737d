// internal/login/schema.go
//
// Adept – Login: credential validation schema.
//
// Context
//   The schema is the single rulebook for well-formed credentials.  Each
//   field carries a label, a required flag, and a minimum length.  Rules are
//   evaluated independently per field and the first failing rule wins, so a
//   blank username reports "required" and never "too short".
//
//   Validate is pure.  It touches no network, no clock, and no globals, so
//   the controller may call it on every keystroke or only on submit.  Adept
//   validates on submit and re-validates a single field on demand through
//   ValidateField.
//
// Notes
//   •  Length counts characters (runes), not bytes.  Input is not trimmed;
//      "   " is a three-character username.
//   •  SchemaFromForm lets the YAML form definition drive the rules so the
//      HTML5 hints and the server checks never drift apart.
//
//------------------------------------------------------------------------------

package login

import (
	"fmt"
	"unicode/utf8"

	"github.com/yanizio/adept-login/internal/form"
)

// Field names a credential input.
type Field string

const (
	FieldUsername Field = "username"
	FieldPassword Field = "password"
)

// Minimum lengths for the default schema.
const (
	MinUsernameLen = 3
	MinPasswordLen = 6
)

// Credentials is the username/password pair submitted by the user.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Get returns the raw value for f, or "" for an unknown field.
func (c Credentials) Get(f Field) string {
	switch f {
	case FieldUsername:
		return c.Username
	case FieldPassword:
		return c.Password
	}
	return ""
}

// Rule describes one field of the schema.
type Rule struct {
	Field     Field
	Label     string
	Required  bool
	MinLength int
}

// Schema is an ordered rule set.  The zero value accepts anything.
type Schema struct {
	rules []Rule
}

// NewSchema returns a schema evaluating rules in the given order.
func NewSchema(rules ...Rule) *Schema {
	return &Schema{rules: append([]Rule(nil), rules...)}
}

// DefaultSchema returns the stock login rules: username ≥ 3, password ≥ 6,
// both required.
func DefaultSchema() *Schema {
	return NewSchema(
		Rule{Field: FieldUsername, Label: "Username", Required: true, MinLength: MinUsernameLen},
		Rule{Field: FieldPassword, Label: "Password", Required: true, MinLength: MinPasswordLen},
	)
}

// SchemaFromForm builds a schema from the credential fields of a form
// definition.  Fields other than username and password are ignored.  It
// fails when either credential field is missing so a broken YAML file is
// caught at boot instead of silently accepting everything.
func SchemaFromForm(fd *form.FormDef) (*Schema, error) {
	byName := make(map[string]form.FieldDef)
	for _, f := range fd.AllFields() {
		byName[f.Name] = f
	}

	var rules []Rule
	for _, name := range []Field{FieldUsername, FieldPassword} {
		f, ok := byName[string(name)]
		if !ok {
			return nil, fmt.Errorf("form %s: missing %q field", fd.ID, name)
		}
		rules = append(rules, Rule{
			Field:     name,
			Label:     f.Label,
			Required:  f.Required,
			MinLength: f.MinLength,
		})
	}
	return NewSchema(rules...), nil
}

// Rules returns a copy of the schema's rules in evaluation order.
func (s *Schema) Rules() []Rule { return append([]Rule(nil), s.rules...) }

// Rule returns the rule for f.
func (s *Schema) Rule(f Field) (Rule, bool) {
	for _, r := range s.rules {
		if r.Field == f {
			return r, true
		}
	}
	return Rule{}, false
}

// ValidateField checks one raw value.  It returns nil when the value passes
// or when the schema has no rule for f.
func (s *Schema) ValidateField(f Field, value string) *FieldError {
	r, ok := s.Rule(f)
	if !ok {
		return nil
	}
	return r.check(value)
}

// Validate checks every field and reports all failures together.
func (s *Schema) Validate(c Credentials) ValidationResult {
	var errs map[Field]*FieldError
	for _, r := range s.rules {
		if fe := r.check(c.Get(r.Field)); fe != nil {
			if errs == nil {
				errs = make(map[Field]*FieldError, len(s.rules))
			}
			errs[r.Field] = fe
		}
	}
	if errs != nil {
		return ValidationResult{Errors: errs}
	}
	return ValidationResult{Credentials: c}
}

func (r Rule) check(v string) *FieldError {
	n := utf8.RuneCountInString(v)
	if n == 0 {
		if r.Required {
			return &FieldError{Field: r.Field, Label: r.Label, Kind: KindRequired}
		}
		return nil
	}
	if r.MinLength > 0 && n < r.MinLength {
		return &FieldError{Field: r.Field, Label: r.Label, Kind: KindTooShort, Min: r.MinLength}
	}
	return nil
}

// ValidationResult holds either validated credentials or per-field errors,
// never both.
type ValidationResult struct {
	Credentials Credentials
	Errors      map[Field]*FieldError
}

// Valid reports whether no field failed.
func (v ValidationResult) Valid() bool { return len(v.Errors) == 0 }

// Err returns a *ValidationError for an invalid result, nil otherwise.
func (v ValidationResult) Err() error {
	if v.Valid() {
		return nil
	}
	return &ValidationError{Fields: v.Errors}
}

// Messages flattens the errors into field → user-facing message.
func (v ValidationResult) Messages() map[Field]string {
	if v.Valid() {
		return nil
	}
	out := make(map[Field]string, len(v.Errors))
	for f, fe := range v.Errors {
		out[f] = fe.Message()
	}
	return out
}
