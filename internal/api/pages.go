package api

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

type loginPage struct {
	Error    string
	Username string
}

type chatPage struct {
	Conversation       *ConversationView
	Models             []string
	DefaultModel       string
	DefaultTemperature float64
	MinTemperature     float64
	MaxTemperature     float64
	TemperatureStep    float64
}

func parsePages() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

func (h *APIHandler) renderPage(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
