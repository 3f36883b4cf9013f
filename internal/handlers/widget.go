package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/pkg/errors"
)

type eventResponse struct {
	// Handled tells the browser whether the event was consumed, for key presses whether the default
	// action must be prevented.
	Handled bool `json:"handled"`
}

// HandleHome serves the widget page of the browser's session, creating the session on the first
// visit.
func (m *Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	s, ok := m.sessionFromRequest(r)
	if !ok {
		var err error
		s, err = m.newSession()
		if errors.Is(err, errTooManySessions) {
			m.logger.Warn().Msg("Session limit reached")
			http.Error(w, "Too many sessions", http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			m.logger.Error().Str(errLoggerKey, err.Error()).Msg("Failed to create session")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    s.id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	page, err := s.doc.HTML()
	if err != nil {
		m.logger.Error().Str("session", s.id).Str(errLoggerKey, err.Error()).Msg("Failed to render document")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

// HandleSSE streams the document patches of the browser's session.
func (m *Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := m.sessionFromRequest(r); !ok {
		http.Error(w, "Unknown session", http.StatusNotFound)
		return
	}
	m.sseSrv.ServeHTTP(w, r)
}

// HandleKey handles a key press in the prompt. The form carries "key", "shift" and the current
// prompt "value".
func (m *Main) HandleKey(w http.ResponseWriter, r *http.Request) {
	s, ok := m.sessionFromRequest(r)
	if !ok {
		http.Error(w, "Unknown session", http.StatusNotFound)
		return
	}

	key := r.FormValue("key")
	if key == "" {
		http.Error(w, "Key is required", http.StatusBadRequest)
		return
	}
	shift, _ := strconv.ParseBool(r.FormValue("shift"))

	m.syncValue(s, r)
	handled := s.widget.HandleKey(m.ctx, widget.KeyEvent{Key: key, Shift: shift})
	m.writeEventResponse(w, handled)
}

// HandleClick handles a click. The form carries the "target" element ID and the current prompt
// "value".
func (m *Main) HandleClick(w http.ResponseWriter, r *http.Request) {
	s, ok := m.sessionFromRequest(r)
	if !ok {
		http.Error(w, "Unknown session", http.StatusNotFound)
		return
	}

	target := r.FormValue("target")
	if target == "" {
		http.Error(w, "Target is required", http.StatusBadRequest)
		return
	}

	m.syncValue(s, r)
	handled := s.widget.HandleClick(m.ctx, target)
	m.writeEventResponse(w, handled)
}

// HandleInput mirrors the prompt value after the user typed.
func (m *Main) HandleInput(w http.ResponseWriter, r *http.Request) {
	s, ok := m.sessionFromRequest(r)
	if !ok {
		http.Error(w, "Unknown session", http.StatusNotFound)
		return
	}

	s.widget.Input(r.FormValue("value"))
	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth reports that the host is up.
func (m *Main) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

// HandleHighlightCSS serves the stylesheet of the code highlighting style.
func (m *Main) HandleHighlightCSS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	if err := m.renderer.WriteHighlightCSS(w); err != nil {
		m.logger.Error().Str(errLoggerKey, err.Error()).Msg("Failed to write highlight css")
	}
}

// syncValue copies the prompt value sent with an event into the session document, so the widget
// sees what the browser shows even when the input event has not arrived yet.
func (m *Main) syncValue(s *session, r *http.Request) {
	if _, ok := r.PostForm["value"]; !ok {
		return
	}
	s.widget.Input(r.PostForm.Get("value"))
}

func (m *Main) writeEventResponse(w http.ResponseWriter, handled bool) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(eventResponse{Handled: handled}); err != nil {
		m.logger.Error().Str(errLoggerKey, err.Error()).Msg("Failed to write event response")
	}
}
