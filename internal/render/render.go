// Package render executes the embedded html/template set. Pages are rendered into the
// "base" layout; fragments are rendered on their own for htmx swaps.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ch-Arham/NFT-Drop/internal/format"
)

//go:embed templates
var embedded embed.FS

// ErrUnknownTemplate is returned when a page or fragment name is not defined.
var ErrUnknownTemplate = errors.New("render: unknown template")

// Options configures template loading.
type Options struct {
	// Dir reads templates from disk instead of the embedded copy.
	Dir string
	// Dev reparses templates on every render.
	Dev bool
}

// Renderer renders pages and fragments.
type Renderer struct {
	fsys   fs.FS
	dev    bool
	md     goldmark.Markdown
	policy *bluemonday.Policy
	strict *bluemonday.Policy

	mu  sync.RWMutex
	set *templateSet
}

type templateSet struct {
	pages    map[string]*template.Template
	partials *template.Template
}

// New parses the template set once.
func New(opts Options) (*Renderer, error) {
	var fsys fs.FS
	if dir := strings.TrimSpace(opts.Dir); dir != "" {
		fsys = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	}
	r := &Renderer{
		fsys:   fsys,
		dev:    opts.Dev,
		md:     goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
		policy: bluemonday.UGCPolicy(),
		strict: bluemonday.StrictPolicy(),
	}
	set, err := r.parse()
	if err != nil {
		return nil, err
	}
	r.set = set
	return r, nil
}

// Page renders the named page inside the base layout with the given status.
func (r *Renderer) Page(w http.ResponseWriter, status int, name string, data any) error {
	set, err := r.templates()
	if err != nil {
		return err
	}
	tmpl, ok := set.pages[name]
	if !ok {
		return fmt.Errorf("%w: page %q", ErrUnknownTemplate, name)
	}
	return write(w, status, tmpl, "base", data)
}

// Fragment renders a single partial template, for htmx responses.
func (r *Renderer) Fragment(w http.ResponseWriter, status int, name string, data any) error {
	set, err := r.templates()
	if err != nil {
		return err
	}
	if set.partials.Lookup(name) == nil {
		return fmt.Errorf("%w: fragment %q", ErrUnknownTemplate, name)
	}
	return write(w, status, set.partials, name, data)
}

// Markdown converts CMS markdown to sanitised HTML.
func (r *Renderer) Markdown(src string) template.HTML {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes()))
}

// PlainText renders CMS markdown as a single line of text for card summaries.
func (r *Renderer) PlainText(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return src
	}
	text := html.UnescapeString(r.strict.Sanitize(buf.String()))
	return strings.Join(strings.Fields(text), " ")
}

func (r *Renderer) templates() (*templateSet, error) {
	if r.dev {
		return r.parse()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set, nil
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"markdown":        r.Markdown,
		"plainText":       r.PlainText,
		"shortAddress":    format.ShortAddress,
		"walletBanner":    format.WalletBanner,
		"marketplaceName": format.MarketplaceName,
		"sessionToggle":   format.SessionToggle,
	}
}

func (r *Renderer) parse() (*templateSet, error) {
	partials, err := template.New("_root").Funcs(r.funcs()).ParseFS(r.fsys, "layouts/*.tmpl", "partials/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse partials: %w", err)
	}
	pageFiles, err := fs.Glob(r.fsys, "pages/*.tmpl")
	if err != nil {
		return nil, err
	}
	if len(pageFiles) == 0 {
		return nil, fmt.Errorf("render: no page templates found")
	}
	set := &templateSet{pages: make(map[string]*template.Template, len(pageFiles)), partials: partials}
	for _, file := range pageFiles {
		clone, err := partials.Clone()
		if err != nil {
			return nil, err
		}
		page, err := clone.ParseFS(r.fsys, file)
		if err != nil {
			return nil, fmt.Errorf("render: parse %s: %w", file, err)
		}
		set.pages[strings.TrimSuffix(path.Base(file), ".tmpl")] = page
	}
	return set, nil
}

func write(w http.ResponseWriter, status int, tmpl *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render: execute %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
