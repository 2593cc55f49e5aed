package http

import (
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type challengePageData struct {
	ShortCode string
	SiteKey   string
}

func renderIndexPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := pageTemplates.ExecuteTemplate(w, "index.html", nil); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func renderChallengePage(w http.ResponseWriter, shortCode, siteKey string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	data := challengePageData{
		ShortCode: shortCode,
		SiteKey:   siteKey,
	}

	if err := pageTemplates.ExecuteTemplate(w, "challenge.html", data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// handleIndexPage handles GET requests to the root path with the shorten form.
func handleIndexPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderIndexPage(w)
	}
}
