// internal/form/renderer.go
//
// Adept – Forms subsystem: HTML renderer.
//
// Context
//   Given a parsed FormDef this file converts the definition into safe,
//   accessible HTML markup for the inputs.  The surrounding <form>, heading,
//   server-error line, and submit button belong to the page template, so
//   themes can restyle them without touching Go.
//
// Workflow
//   •  Render writes each field via writeField in definition order.
//   •  Required, minlength, maxlength, placeholder, and autocomplete
//      attributes are attached where set.
//   •  A field with an error gets aria-invalid and its message in the
//      <span class="error"> slot, tied together with aria-describedby.
//   •  The CSRF token and a render timestamp (microseconds since Unix epoch)
//      are emitted as hidden inputs.
//   •  The caller receives template.HTML so the page does not double-escape.
//
// Style
//   Output HTML is deliberately plain so themes can style via element
//   selectors or class hooks.  Each input gets id="fld-{name}" and is wrapped
//   in <div class="form-field">.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"
	"time"
)

// RenderOptions bundles optional parameters influencing HTML output.
type RenderOptions struct {
	// Prefill provides field values keyed by name.  Password fields are
	// never prefilled.
	Prefill map[string]string
	// Errors holds inline messages keyed by field name.
	Errors map[string]string
	// Token is the CSRF token for this render.  Empty omits the input.
	Token string
	// Now stamps render_ts.  Zero uses time.Now.
	Now time.Time
}

// Render returns the input markup for fd.
func Render(fd *FormDef, opts RenderOptions) (template.HTML, error) {
	var buf bytes.Buffer
	buf.WriteString(`<div class="adept-form">` + "\n")

	for i := range fd.Fields {
		if err := writeField(&buf, &fd.Fields[i], opts); err != nil {
			return "", err
		}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	if opts.Token != "" {
		fmt.Fprintf(&buf, `<input type="hidden" name="%s" value="%s">`+"\n", CSRFField, html.EscapeString(opts.Token))
	}
	fmt.Fprintf(&buf, `<input type="hidden" name="%s" value="%d">`+"\n", RenderTSField, now.UnixMicro())

	buf.WriteString(`</div>`)
	return template.HTML(buf.String()), nil
}

// RenderByID looks fd up in the registry and renders it.
func RenderByID(formID string, opts RenderOptions) (template.HTML, error) {
	fd, ok := Get(formID)
	if !ok {
		return "", fmt.Errorf("form.Render: unknown form %q", formID)
	}
	return Render(fd, opts)
}

// writeField emits HTML for an individual field.
func writeField(buf *bytes.Buffer, f *FieldDef, opts RenderOptions) error {
	name := html.EscapeString(f.Name)
	id := "fld-" + name
	errID := id + "-error"
	msg := opts.Errors[f.Name]

	buf.WriteString(`<div class="form-field">` + "\n")
	buf.WriteString(`<label for="` + id + `">` + html.EscapeString(f.Label) + `</label>` + "\n")

	switch f.Type {
	case "text", "email", "password":
		buf.WriteString(`<input id="` + id + `" name="` + name + `" type="` + f.Type + `"`)
		if f.Placeholder != "" {
			buf.WriteString(` placeholder="` + html.EscapeString(f.Placeholder) + `"`)
		}
		if f.Autocomplete != "" {
			buf.WriteString(` autocomplete="` + html.EscapeString(f.Autocomplete) + `"`)
		}
		if f.Required {
			buf.WriteString(` required`)
		}
		if f.MinLength > 0 {
			buf.WriteString(` minlength="` + strconv.Itoa(f.MinLength) + `"`)
		}
		if f.MaxLength > 0 {
			buf.WriteString(` maxlength="` + strconv.Itoa(f.MaxLength) + `"`)
		}
		if val := opts.Prefill[f.Name]; val != "" && f.Type != "password" {
			buf.WriteString(` value="` + html.EscapeString(val) + `"`)
		}

	case "checkbox":
		buf.WriteString(`<input id="` + id + `" name="` + name + `" type="checkbox"`)
		if v := opts.Prefill[f.Name]; v != "" && v != "false" {
			buf.WriteString(` checked`)
		}

	default:
		return fmt.Errorf("writeField: unsupported field type %q in form field %s", f.Type, f.Name)
	}

	if msg != "" {
		buf.WriteString(` aria-invalid="true" aria-describedby="` + errID + `"`)
	}
	buf.WriteString(`>` + "\n")

	// Error slot, always present so client-side hints have a target.
	buf.WriteString(`<span id="` + errID + `" class="error" aria-live="polite">` + html.EscapeString(msg) + `</span>` + "\n")
	buf.WriteString(`</div>` + "\n")
	return nil
}
