package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"lessonchat/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"inList":       func(value string, list []string) bool { return lo.Contains(list, value) },
	"languageName": models.LanguageName,
}).ParseFS(templateFS, "templates/*.html"))

// renderHTML executes into a buffer first so a template failure still yields a
// clean 500.
func renderHTML(w http.ResponseWriter, statusCode int, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Errorf("Failed to render template %s: %v", name, err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	w.Write(buf.Bytes())
}
