// Package handler contains the HTTP handlers of streambox: HTML pages
// rendered from web/templates and the JSON API under /api.
//
// Handlers parse the request, call a service and write the response. They
// hold no business rules of their own; authorization is decided by the
// guards in internal/auth before a handler runs.
package handler

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"path/filepath"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/session"
)

// pageNames lists the page templates. Each is parsed together with
// base.html and fills its "content" block.
var pageNames = []string{"login", "signup", "browse", "watch", "admin"}

// pageData is what every page template receives.
type pageData struct {
	Title   string
	Session session.Snapshot
	GitHub  bool   // show the "Sign in with GitHub" button
	Flash   string // error banner
	Notice  string // info banner
	Page    any    // page-specific data
}

// Renderer holds the parsed page templates. Parsing happens once at startup.
type Renderer struct {
	pages  map[string]*template.Template
	github bool
	logger *slog.Logger
}

// NewRenderer parses base.html with every page template found in dir.
func NewRenderer(dir string, githubEnabled bool, logger *slog.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		"percent": func(f float64) int { return int(math.Round(f * 100)) },
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFiles(
			filepath.Join(dir, "base.html"),
			filepath.Join(dir, name+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Renderer{pages: pages, github: githubEnabled, logger: logger}, nil
}

// Render executes the named page into a buffer first, so a template error
// turns into a clean 500 instead of half a page.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	tmpl, ok := v.pages[name]
	if !ok {
		v.logger.Error("unknown template", slog.String("template", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data.Session = session.FromContext(r.Context()).Snapshot()
	data.GitHub = v.github

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		v.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// formError turns a service error into a status and a message fit for a
// form banner. Unexpected errors are logged and shown generically.
func formError(err error, logger *slog.Logger) (int, string) {
	status, _ := statusFor(err)

	var appErr *apperror.AppError
	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		logger.Error("request failed", slog.String("error", err.Error()))
		return http.StatusInternalServerError, "Something went wrong. Please try again."
	}
	return status, appErr.Message
}
