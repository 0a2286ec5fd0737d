// internal/form/definition.go
//
// Adept – Forms subsystem: YAML definition loader.
//
// Context
//   Each HTML form in Adept is declared in a YAML file.  The file defines the
//   form's identifier, title, button labels, and fields.  Components ship
//   their definitions embedded (components/<comp>/forms/*.yaml) and register
//   them at boot; an operator may drop an override directory on disk with
//   the same relative layout, which wins over the embedded copy.
//
// Workflow
//   •  Structs mirror the YAML schema: FormDef → FieldDef.
//   •  Parse validates structural rules for one document.
//   •  RegisterFS walks a filesystem (embed.FS or os.DirFS), parses every
//      “*.yaml”, and adds the result to the registry.  Later calls override
//      earlier ones, so register defaults first and overrides second.
//   •  Get offers read-only access to a parsed form by ID.
//
// Style
//   Comments follow Adept's guide: full sentences, two spaces after periods,
//   Oxford commas.  Helper comments use short noun phrases.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FormDef represents one form definition loaded from YAML.
//
// ID should be namespaced by component, e.g. “auth/login”.
type FormDef struct {
	ID          string     `yaml:"id"`           // Component-scoped identifier.
	Title       string     `yaml:"title"`        // Card heading.
	SubmitLabel string     `yaml:"submit_label"` // Button text when idle.
	BusyLabel   string     `yaml:"busy_label"`   // Button text while submitting.
	Fields      []FieldDef `yaml:"fields"`
}

// FieldDef describes a single input control.  Validation metadata lives
// inline so the server enforces the same rules the browser hints at.
type FieldDef struct {
	Name         string `yaml:"name"`         // Submission key.  Required.
	Label        string `yaml:"label"`        // Human-readable label.  Required.
	Type         string `yaml:"type"`         // text, email, password, checkbox.
	Placeholder  string `yaml:"placeholder"`  // Optional placeholder text.
	Autocomplete string `yaml:"autocomplete"` // Browser autofill hint.
	Required     bool   `yaml:"required"`     // True if input is mandatory.
	MinLength    int    `yaml:"minlength"`    // ≥ 0, 0 means unset.
	MaxLength    int    `yaml:"maxlength"`    // ≥ 0, 0 means unset.
}

// AllFields returns the fields in declaration order.
func (fd *FormDef) AllFields() []FieldDef { return fd.Fields }

// Field returns the named field.
func (fd *FormDef) Field(name string) (FieldDef, bool) {
	for _, f := range fd.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*FormDef)
)

// Get returns a parsed FormDef by ID.  The boolean is false when the ID is
// unknown.
func Get(id string) (*FormDef, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fd, ok := registry[id]
	return fd, ok
}

// Register inserts or overrides fd.  Caller must ensure fd passed Parse.
func Register(fd *FormDef) {
	registryMu.Lock()
	registry[fd.ID] = fd
	registryMu.Unlock()
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// Parse decodes one YAML document and validates its structure.  name is
// used in error messages only.  It never touches the registry.
func Parse(name string, raw []byte) (*FormDef, error) {
	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", name, err)
	}
	if err := validateFormDef(&fd, name); err != nil {
		return nil, err
	}
	return &fd, nil
}

// RegisterFS parses every “*.yaml” below root in fsys and registers the
// results.  A missing root is not an error so optional override
// directories can be passed unconditionally.
//
// Example:
//
//	_ = form.RegisterFS(auth.Forms, "forms")                  // embedded defaults
//	_ = form.RegisterFS(os.DirFS("/var/adept/theme"), "forms") // overrides
func RegisterFS(fsys fs.FS, root string) error {
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || path.Ext(d.Name()) != ".yaml" {
			return nil
		}
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read form file %s: %w", p, err)
		}
		fd, err := Parse(p, raw)
		if err != nil {
			return err // fail fast so issues surface loudly.
		}
		Register(fd)
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

var fieldTypes = map[string]bool{
	"text":     true,
	"email":    true,
	"password": true,
	"checkbox": true,
}

// validateFormDef enforces structural rules that YAML tags cannot express.
func validateFormDef(fd *FormDef, name string) error {
	if fd.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", name)
	}
	if len(fd.Fields) == 0 {
		return fmt.Errorf("form definition %s: must have 'fields'", name)
	}
	if strings.TrimSpace(fd.SubmitLabel) == "" {
		fd.SubmitLabel = "Submit"
	}
	if strings.TrimSpace(fd.BusyLabel) == "" {
		fd.BusyLabel = fd.SubmitLabel
	}

	seen := make(map[string]struct{}, len(fd.Fields))
	for i := range fd.Fields {
		if err := validateField(&fd.Fields[i], name); err != nil {
			return err
		}
		if _, dup := seen[fd.Fields[i].Name]; dup {
			return fmt.Errorf("form %s: duplicate field name '%s'", name, fd.Fields[i].Name)
		}
		seen[fd.Fields[i].Name] = struct{}{}
	}
	return nil
}

// validateField confirms that essential attributes are present and sane.
func validateField(f *FieldDef, name string) error {
	if f.Name == "" {
		return fmt.Errorf("form %s: field missing 'name'", name)
	}
	if f.Label == "" {
		return fmt.Errorf("form %s: field '%s' missing 'label'", name, f.Name)
	}
	if !fieldTypes[f.Type] {
		return fmt.Errorf("form %s: field '%s' has unsupported type %q", name, f.Name, f.Type)
	}
	if f.MinLength < 0 || f.MaxLength < 0 {
		return fmt.Errorf("form %s: field '%s' minlength/maxlength cannot be negative", name, f.Name)
	}
	if f.MaxLength > 0 && f.MinLength > f.MaxLength {
		return fmt.Errorf("form %s: field '%s' minlength greater than maxlength", name, f.Name)
	}
	return nil
}
