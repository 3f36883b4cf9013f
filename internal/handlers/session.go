package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MegaGrindStone/chat-widget/internal/dom"
	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tmaxmax/go-sse"
)

type session struct {
	id     string
	doc    *dom.Document
	widget *widget.Widget

	// lastSeen is guarded by Main.mu.
	lastSeen time.Time
}

var errTooManySessions = errors.New("too many sessions")

type homePageData struct {
	Title        string
	NewChatLabel string
	Placeholder  string
	SendLabel    string
	ConfirmLabel string
	Highlight    bool
}

func sessionTopic(id string) string {
	return fmt.Sprintf("session-%s", id)
}

// newSession renders a fresh page, builds its widget and shows the welcome message.
func (m *Main) newSession() (*session, error) {
	var page bytes.Buffer
	data := homePageData{
		Title:        m.cfg.Title,
		NewChatLabel: m.cfg.NewChatLabel,
		Placeholder:  m.cfg.Placeholder,
		SendLabel:    m.cfg.SendLabel,
		ConfirmLabel: m.cfg.ConfirmLabel,
		Highlight:    m.renderer.HighlightStyle() != "",
	}
	if err := m.templates.ExecuteTemplate(&page, "home.html", data); err != nil {
		return nil, errors.Wrap(err, "failed to render page")
	}

	doc, err := dom.New(&page, m.templates)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}

	id := uuid.New().String()
	logger := m.logger.With().Str("session", id).Logger()

	opts := append([]widget.Option{
		widget.WithRenderer(m.renderer),
		widget.WithLogger(logger),
	}, m.cfg.WidgetOptions...)
	w, err := widget.New(doc.Elements(), m.asker, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create widget")
	}

	s := &session{id: id, doc: doc, widget: w}
	w.Start()
	doc.OnPatch(func(p dom.Patch) {
		m.publishPatch(s.id, p)
	})

	if err := m.register(s); err != nil {
		w.Close()
		return nil, err
	}

	logger.Info().Msg("Created widget session")
	return s, nil
}

// register adds s after dropping expired sessions. When the host is still full, the least recently
// used idle session makes room; sessions waiting for a reply are never dropped.
func (m *Main) register(s *session) error {
	now := m.cfg.Clock()

	m.mu.Lock()
	var dropped []*session
	for id, old := range m.sessions {
		if now.Sub(old.lastSeen) > m.cfg.SessionTTL && !old.widget.Pending() {
			delete(m.sessions, id)
			dropped = append(dropped, old)
		}
	}
	for len(m.sessions) >= m.cfg.MaxSessions {
		oldest := m.oldestIdle()
		if oldest == nil {
			break
		}
		delete(m.sessions, oldest.id)
		dropped = append(dropped, oldest)
	}

	full := len(m.sessions) >= m.cfg.MaxSessions
	if !full {
		s.lastSeen = now
		m.sessions[s.id] = s
	}
	m.mu.Unlock()

	for _, old := range dropped {
		m.closeSession(old)
	}
	if full {
		return errTooManySessions
	}
	return nil
}

// oldestIdle must be called with m.mu held.
func (m *Main) oldestIdle() *session {
	var oldest *session
	for _, s := range m.sessions {
		if s.widget.Pending() {
			continue
		}
		if oldest == nil || s.lastSeen.Before(oldest.lastSeen) {
			oldest = s
		}
	}
	return oldest
}

func (m *Main) closeSession(s *session) {
	e := &sse.Message{Type: closeSSEType}
	e.AppendData("bye")
	if err := m.sseSrv.Publish(e, sessionTopic(s.id)); err != nil {
		m.logger.Warn().Str("session", s.id).Str(errLoggerKey, err.Error()).Msg("Failed to close session stream")
	}

	s.widget.Close()
	m.logger.Info().Str("session", s.id).Msg("Dropped widget session")
}

func (m *Main) sessionFromRequest(r *http.Request) (*session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[c.Value]
	if ok {
		s.lastSeen = m.cfg.Clock()
	}
	return s, ok
}

func (m *Main) publishPatch(sessionID string, p dom.Patch) {
	data, err := json.Marshal(p)
	if err != nil {
		m.logger.Error().Str(errLoggerKey, err.Error()).Str("op", p.Op).Msg("Failed to marshal patch")
		return
	}

	msg := sse.Message{
		Type: patchSSEType,
	}
	msg.AppendData(string(data))

	if err := m.sseSrv.Publish(&msg, sessionTopic(sessionID)); err != nil {
		m.logger.Error().
			Str("session", sessionID).
			Str(errLoggerKey, err.Error()).
			Msg("Failed to publish patch")
	}
}
