// internal/view/render.go
//
// Central view engine: template lookup, override chain, func-map injection,
// and an LRU of parsed *template.Template* sets.
//
// Public helpers
// --------------
//   - Render         – buffer, then write rendered HTML with a status code.
//   - RenderToString – return template.HTML (fragments, tests).
//
// Lookup precedence (first hit wins), per file:
//  1. <theme_dir>/<name>.html      (operator override on disk)
//  2. <embedded FS>/<name>.html    (shipped with the component)
//
// A page set is the page file plus every partial listed in Options.Shared
// (typically "layout"), each resolved through the same chain, so a theme
// may override only the layout and keep the stock page.
//
// execName() chooses the template to execute:
//   – If the set contains "<name>.html", we run that.
//   – Else we fall back to "<name>" (root template defined via {{ define }}).
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrNotFound is returned when neither the theme dir nor the embedded FS
// holds the requested template.
var ErrNotFound = errors.New("view: template not found")

// Options configures an Engine.
type Options struct {
	ThemeDir   string           // optional on-disk override directory
	ThemeClass string           // extra CSS class exposed as {{ themeClass }}
	CacheSize  int              // parsed sets kept; < 1 means 64
	Shared     []string         // partials parsed into every set
	Funcs      template.FuncMap // merged over the built-ins
}

// Engine renders named templates.  Safe for concurrent use.
type Engine struct {
	base     fs.FS
	override fs.FS
	opts     Options
	sets     *lru.Cache[string, *template.Template]
}

// New builds an Engine over base (usually an embed.FS sub-tree).
func New(base fs.FS, opts Options) (*Engine, error) {
	size := opts.CacheSize
	if size < 1 {
		size = 64
	}
	sets, err := lru.New[string, *template.Template](size)
	if err != nil {
		return nil, err
	}

	e := &Engine{base: base, opts: opts, sets: sets}
	if opts.ThemeDir != "" {
		if st, err := os.Stat(opts.ThemeDir); err != nil || !st.IsDir() {
			return nil, fmt.Errorf("view: theme dir %q is not a directory", opts.ThemeDir)
		}
		e.override = os.DirFS(opts.ThemeDir)
	}
	return e, nil
}

//
// public helpers
//

// Render executes the named set into a buffer and, on success, writes it
// with the given status.  Nothing is written on error so the caller can
// still send a 500.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := e.execute(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// RenderToString executes and returns HTML.
func (e *Engine) RenderToString(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := e.execute(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Purge drops every parsed set; the next render re-reads the theme dir.
func (e *Engine) Purge() { e.sets.Purge() }

//
// internal: load
//

func (e *Engine) execute(buf *bytes.Buffer, name string, data any) error {
	t, err := e.load(name)
	if err != nil {
		return err
	}
	return t.ExecuteTemplate(buf, execName(t, name), data)
}

// load returns the cached set for name or parses it.
func (e *Engine) load(name string) (*template.Template, error) {
	if t, ok := e.sets.Get(name); ok {
		return t, nil
	}

	t := template.New(name).Funcs(e.funcMap())
	for _, n := range append([]string{name}, e.opts.Shared...) {
		src, err := e.read(n + ".html")
		if err != nil {
			return nil, fmt.Errorf("view %s: %w", n, err)
		}
		if _, err := t.New(n + ".html").Parse(string(src)); err != nil {
			return nil, fmt.Errorf("view %s: %w", n, err)
		}
	}

	e.sets.Add(name, t)
	return t, nil
}

// read resolves file through the override chain.
func (e *Engine) read(file string) ([]byte, error) {
	file = path.Clean(file)
	if e.override != nil {
		if b, err := fs.ReadFile(e.override, file); err == nil {
			return b, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	b, err := fs.ReadFile(e.base, file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

//
// func-map builders
//

func (e *Engine) funcMap() template.FuncMap {
	themeClass := e.opts.ThemeClass
	fm := template.FuncMap{
		"dict":       dict,
		"themeClass": func() string { return themeClass },
	}
	for k, v := range e.opts.Funcs {
		fm[k] = v
	}
	return fm
}

//
// helpers
//

// execName picks the template name to execute.
//
// Priority:
//  1. If the set has "<name>.html" (file-based template), run that.
//  2. Otherwise, fall back to "<name>" (root template defined in code).
func execName(t *template.Template, name string) string {
	if tmpl := t.Lookup(name + ".html"); tmpl != nil {
		return name + ".html"
	}
	return name
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
