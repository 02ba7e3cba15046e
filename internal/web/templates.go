package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/justestif/moodtube/internal/mood"
	"github.com/justestif/moodtube/internal/recommend"
	"github.com/justestif/moodtube/internal/session"
)

// Templates manages HTML template rendering.
type Templates struct {
	templates map[string]*template.Template
	partials  map[string]*template.Template
	funcs     template.FuncMap
}

// NewTemplates creates a new template manager by loading templates from the given filesystem.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{
		templates: make(map[string]*template.Template),
		partials:  make(map[string]*template.Template),
		funcs:     defaultFuncs(),
	}

	if err := t.load(templatesFS); err != nil {
		return nil, err
	}

	return t, nil
}

// Render renders a page template inside the base layout.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderPartial renders a partial template (without base layout) with the given data.
func (t *Templates) RenderPartial(w io.Writer, partial string, data any) error {
	tmpl, ok := t.partials[partial]
	if !ok {
		return fmt.Errorf("partial %q not found", partial)
	}
	return tmpl.ExecuteTemplate(w, partial, data)
}

// load parses layouts/*.html, partials/*.html and pages/*.html.
// Every page is parsed together with all layouts and partials.
func (t *Templates) load(templatesFS fs.FS) error {
	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return fmt.Errorf("finding layouts: %w", err)
	}

	partials, err := fs.Glob(templatesFS, "partials/*.html")
	if err != nil {
		return fmt.Errorf("finding partials: %w", err)
	}

	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return fmt.Errorf("finding pages: %w", err)
	}

	common := append(append([]string{}, layouts...), partials...)

	for _, page := range pages {
		name := templateName(page)
		files := append([]string{page}, common...)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		t.templates[name] = tmpl
	}

	// Partials are also served alone as fragments for fetch requests.
	for _, partial := range partials {
		name := templateName(partial)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, partials...)
		if err != nil {
			return fmt.Errorf("parsing partial %s: %w", name, err)
		}
		t.partials[name] = tmpl
	}

	return nil
}

// templateName strips the directory and .html extension.
func templateName(file string) string {
	return strings.TrimSuffix(path.Base(file), ".html")
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// moodEmoji decorates the status line.
		"moodEmoji": func(l mood.Label) string {
			switch l {
			case mood.Happy:
				return "😄"
			case mood.Sad:
				return "😢"
			case mood.Angry:
				return "😠"
			case mood.Fearful:
				return "😨"
			case mood.Disgusted:
				return "🤢"
			case mood.Surprised:
				return "😲"
			case mood.Neutral:
				return "😐"
			default:
				return "🎵"
			}
		},

		// add adds two integers (for 1-based indexing in loops)
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// PageData contains common data passed to all page templates.
type PageData struct {
	Title       string
	CurrentPath string
}

// ResultsData is rendered by the results partial.
type ResultsData struct {
	State      session.State
	Status     string
	Active     *recommend.Item
	DetectURL  string
	ResetURL   string
	SelectBase string
	OpenLabel  string
}

// HomePageData contains data for the home page template.
type HomePageData struct {
	PageData
	ResultsData
	DetectorEnabled bool
	Provider        string
}

// newResultsData builds the view of a session state.
func newResultsData(state session.State, provider string) ResultsData {
	data := ResultsData{
		State:      state,
		Status:     state.StatusLine(),
		DetectURL:  "/api/detect",
		ResetURL:   "/api/reset",
		SelectBase: "/api/select/",
		OpenLabel:  openLabel(provider),
	}
	if item, ok := state.ActiveItem(); ok {
		data.Active = &item
	}
	return data
}

// openLabel names the link to the item on the provider's site.
func openLabel(provider string) string {
	switch provider {
	case "spotify":
		return "Open in Spotify"
	default:
		return "Open in YouTube"
	}
}
