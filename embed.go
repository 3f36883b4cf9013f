package chatwidget

import (
	"embed"
	"html/template"
)

// TemplateFS contains the embedded HTML templates used for rendering the widget page. These templates
// are organized in a directory structure that separates layouts, pages, and partial views.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS contains the embedded static assets, the stylesheet and the script that replays document
// patches in the browser.
//
//go:embed static/*
var StaticFS embed.FS

// ParseTemplates parses every template of TemplateFS into one set.
func ParseTemplates() (*template.Template, error) {
	return template.ParseFS(
		TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
}
