package handlers

import (
	"context"
	"html/template"
	"sync"
	"time"

	chatwidget "github.com/MegaGrindStone/chat-widget"
	"github.com/MegaGrindStone/chat-widget/internal/render"
	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tmaxmax/go-sse"
)

// Config holds the page labels and the options every widget is created with.
type Config struct {
	Title        string
	NewChatLabel string
	Placeholder  string
	SendLabel    string
	ConfirmLabel string

	WidgetOptions []widget.Option

	// SessionTTL is how long a session may stay unused before it is dropped. Zero means
	// DefaultSessionTTL.
	SessionTTL time.Duration
	// MaxSessions caps the number of live sessions. Zero means DefaultMaxSessions.
	MaxSessions int
	// Clock is used for session expiry; nil means time.Now.
	Clock func() time.Time

	Logger zerolog.Logger
}

// Session limits used when Config leaves them unset.
const (
	DefaultSessionTTL  = 30 * time.Minute
	DefaultMaxSessions = 1000
)

// Main hosts chat widgets for browsers. Each browser session owns a server side document and a
// widget working on it; document patches are streamed to the browser through server-sent events
// and browser events are posted back.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template

	asker    widget.Asker
	renderer *render.Renderer
	cfg      Config

	mu       sync.Mutex
	sessions map[string]*session

	// ctx outlives single requests so sends started by an event keep running after the event
	// request returned. It is canceled on shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	logger zerolog.Logger
}

const (
	sessionCookie = "widget_session"
	errLoggerKey  = "err"
)

// SSE event types.
var (
	patchSSEType = sse.Type("patch")
	closeSSEType = sse.Type("closeChat")
)

// NewMain creates a new Main serving widgets that send messages with asker and render answers with
// renderer. It parses the page templates from the embedded filesystem and configures the SSE server
// so every browser only subscribes to the topic of its own session.
func NewMain(asker widget.Asker, renderer *render.Renderer, cfg Config) (*Main, error) {
	if asker == nil {
		return nil, errors.New("asker is required")
	}

	tmpl, err := chatwidget.ParseTemplates()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse templates")
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Main{
		templates: tmpl,
		asker:     asker,
		renderer:  renderer,
		cfg:       cfg,
		sessions:  make(map[string]*session),
		ctx:       ctx,
		cancel:    cancel,
		logger:    cfg.Logger,
	}

	m.sseSrv = &sse.Server{
		OnSession: func(s *sse.Session) (sse.Subscription, bool) {
			sess, ok := m.sessionFromRequest(s.Req)
			if !ok {
				return sse.Subscription{}, false
			}

			return sse.Subscription{
				Client:      s,
				LastEventID: s.LastEventID,
				Topics:      []string{sse.DefaultTopic, sessionTopic(sess.id)},
			}, true
		},
	}

	return m, nil
}

// Wait blocks until every background send of every session has finished.
func (m *Main) Wait() {
	for _, s := range m.allSessions() {
		s.widget.Wait()
	}
}

// Shutdown gracefully terminates the Main instance. It tells connected browsers to stop listening,
// cancels outstanding sends, waits for them and shuts the SSE server down, forcefully closing
// connections still open after 5 seconds.
func (m *Main) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: closeSSEType}
	// An SSE event without data is never dispatched by browsers
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	m.cancel()
	for _, s := range m.allSessions() {
		s.widget.Close()
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}

func (m *Main) allSessions() []*session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}
