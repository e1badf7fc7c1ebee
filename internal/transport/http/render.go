package http

import (
	"embed"
	"html/template"

	"bloom-client/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

// page is the data every full page template receives.
type page struct {
	Title    string
	CSRF     string
	Username string
	Error    string
	Next     string
	Form     struct {
		Username string
	}
	Survey   surveyView
	Progress domain.Progress
	Overview *overviewView
}
