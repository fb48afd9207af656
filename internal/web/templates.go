// ABOUTME: Template loading and rendering for the editor UI.
// ABOUTME: Embeds page layouts, the out-of-band fragment bundle, and static assets.

package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/2389/dic/internal/schema"
)

//go:embed templates/* static/*
var assetFS embed.FS

var (
	layoutTmpl    *template.Template
	pageTmpls     map[string]*template.Template
	fragmentTmpls *template.Template
)

// panelPaths holds the panel templates shared by full pages and fragment pushes.
var panelPaths = []string{
	"templates/panels.html",
}

func getPageDefinitions() map[string]string {
	return map[string]string{
		"editor": "templates/editor.html",
		"logs":   "templates/logs.html",
	}
}

var funcs = template.FuncMap{
	"fields": func(d schema.Descriptor) []schema.Field { return d.Props.Fields() },
	"prop": func(d schema.Descriptor, key string) string {
		v, ok := d.Props[key]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	},
	"flag": func(d schema.Descriptor, key string) bool { return d.Props.Bool(key) },
	"kind": func(d schema.Descriptor) string { return string(d.Kind) },
}

func parsePageTemplates() map[string]*template.Template {
	templates := make(map[string]*template.Template)
	for name, path := range getPageDefinitions() {
		tmpl := template.Must(layoutTmpl.Clone())
		tmpl = template.Must(tmpl.ParseFS(assetFS, path))
		tmpl = template.Must(tmpl.ParseFS(assetFS, panelPaths...))
		templates[name] = tmpl
	}
	return templates
}

func init() {
	layoutTmpl = template.Must(template.New("layout.html").Funcs(funcs).ParseFS(assetFS, "templates/layout.html"))
	fragmentTmpls = template.Must(template.New("fragments.html").Funcs(funcs).ParseFS(assetFS, append([]string{"templates/fragments.html"}, panelPaths...)...))
	pageTmpls = parsePageTemplates()
}

func renderPage(w io.Writer, page string, data any) error {
	tmpl, ok := pageTmpls[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// renderFragments writes every editor panel marked for out-of-band swapping.
func renderFragments(w io.Writer, data any) error {
	return fragmentTmpls.ExecuteTemplate(w, "fragments", data)
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(assetFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
