package handlers

import (
	"io/fs"
	"net/http"
	"time"

	chatwidget "github.com/MegaGrindStone/chat-widget"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
)

// Routes returns the HTTP handler serving the widget page, its assets, the event endpoints and the
// SSE stream.
func (m *Main) Routes() (http.Handler, error) {
	staticFS, err := fs.Sub(chatwidget.StaticFS, "static")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open static assets")
	}
	fileServer := http.FileServer(http.FS(staticFS))

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(m.logRequests)

	r.Get("/", m.HandleHome)
	r.Get("/sse", m.HandleSSE)
	r.Get("/healthz", m.HandleHealth)
	r.Get("/highlight.css", m.HandleHighlightCSS)
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Route("/events", func(r chi.Router) {
		r.Post("/key", m.HandleKey)
		r.Post("/click", m.HandleClick)
		r.Post("/input", m.HandleInput)
	})

	return r, nil
}

func (m *Main) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		m.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}
