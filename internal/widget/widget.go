// Package widget implements the chat widget: it keeps the conversation rows, the prompt and the
// modal of a page in sync with the messages exchanged with the chat backend.
package widget

import (
	"context"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	"github.com/MegaGrindStone/chat-widget/internal/render"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultMaxPromptHeight caps the auto-growing prompt.
const DefaultMaxPromptHeight = 160

// Widget coordinates one chat page. All DOM mutations happen while holding mu; the lock is released
// while a request is outstanding so other events keep being handled.
type Widget struct {
	mu sync.Mutex

	conv   Conversation
	prompt Prompt
	send   Control
	modal  Modal

	asker    Asker
	renderer *render.Renderer
	texts    Texts
	now      func() time.Time

	maxPromptHeight int

	// history mirrors the rows shown in the conversation, without the typing indicator.
	history []models.Message

	// generation identifies the current conversation; a reply is only applied when the
	// generation it was sent in is still current.
	generation uint64
	pending    bool
	cancel     context.CancelFunc

	wg sync.WaitGroup

	logger zerolog.Logger
}

// Option configures a Widget.
type Option func(*Widget)

// KeyEvent is a key press in the prompt.
type KeyEvent struct {
	Key   string
	Shift bool
}

// WithRenderer sets the markdown renderer. Without one, AI messages are shown as escaped text.
func WithRenderer(r *render.Renderer) Option {
	return func(w *Widget) {
		w.renderer = r
	}
}

// WithTexts sets the user visible texts. Empty fields keep their defaults.
func WithTexts(t Texts) Option {
	return func(w *Widget) {
		w.texts = t.Merge(DefaultTexts())
	}
}

// WithClock sets the clock used for the time labels.
func WithClock(now func() time.Time) Option {
	return func(w *Widget) {
		w.now = now
	}
}

// WithMaxPromptHeight sets the height the prompt stops growing at.
func WithMaxPromptHeight(height int) Option {
	return func(w *Widget) {
		if height > 0 {
			w.maxPromptHeight = height
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Widget) {
		w.logger = logger
	}
}

// New creates a Widget working on the given elements. Every element and the asker are required.
func New(el Elements, asker Asker, opts ...Option) (*Widget, error) {
	switch {
	case el.Conversation == nil:
		return nil, errors.New("conversation element is required")
	case el.Prompt == nil:
		return nil, errors.New("prompt element is required")
	case el.SendButton == nil:
		return nil, errors.New("send button element is required")
	case el.Modal == nil:
		return nil, errors.New("modal element is required")
	case asker == nil:
		return nil, errors.New("asker is required")
	}

	w := &Widget{
		conv:            el.Conversation,
		prompt:          el.Prompt,
		send:            el.SendButton,
		modal:           el.Modal,
		asker:           asker,
		texts:           DefaultTexts(),
		now:             time.Now,
		maxPromptHeight: DefaultMaxPromptHeight,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start shows the welcome message and focuses the prompt.
func (w *Widget) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prompt.SetMaxHeight(w.maxPromptHeight)
	w.addMessage(models.RoleAI, w.texts.Welcome, w.texts.HintMeta)
	w.autoGrow()
	w.prompt.Focus()
}

// Send sends the prompt content to the backend and waits for the outcome. It does nothing when the
// prompt is blank or another send is outstanding. Failures are shown in the conversation.
func (w *Widget) Send(ctx context.Context) {
	w.mu.Lock()
	if w.pending {
		w.mu.Unlock()
		return
	}

	msg := Normalize(w.prompt.Value())
	if msg == "" {
		w.mu.Unlock()
		return
	}

	if msg == w.texts.HumanKeyword {
		w.modal.Open(w.texts.HumanTitle, w.texts.KeywordContact)
		w.prompt.SetValue("")
		w.autoGrow()
		w.prompt.Focus()
		w.mu.Unlock()
		return
	}

	w.addMessage(models.RoleUser, msg, w.label(w.texts.SentPrefix))
	w.prompt.SetValue("")
	w.autoGrow()
	w.setSending(true)
	w.addTyping()

	ctx, cancel := context.WithCancel(ctx)
	w.generation++
	gen := w.generation
	w.pending = true
	w.cancel = cancel
	w.mu.Unlock()

	reply, err := w.asker.Ask(ctx, msg)
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.generation {
		w.logger.Debug().Uint64("generation", gen).Msg("Dropping reply of a finished conversation")
		return
	}

	w.conv.RemoveRow(IDTyping)
	w.settle(reply, err)

	w.pending = false
	w.cancel = nil
	w.setSending(false)
	w.prompt.Focus()
}

func (w *Widget) settle(reply models.Reply, err error) {
	if err != nil {
		w.logger.Error().Err(err).Msg("Chat request failed")
		w.addMessage(models.RoleAI, w.texts.RequestFailed+err.Error(), w.label(w.texts.ErroredPrefix))
		return
	}

	switch r := reply.(type) {
	case models.HumanHandoff:
		w.modal.Open(w.texts.HumanTitle, r.Contact)
	case models.AnswerReceived:
		w.addMessage(models.RoleAI, r.Answer, w.label(w.texts.AnsweredPrefix))
	default:
		w.addMessage(models.RoleAI, w.texts.EmptyAnswer, w.label(w.texts.AnsweredPrefix))
	}
}

// NewChat clears the conversation and shows a fresh greeting. A reply still outstanding is
// canceled and will not be shown.
func (w *Widget) NewChat() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.generation++
	if w.pending {
		w.cancel()
		w.pending = false
		w.cancel = nil
		w.setSending(false)
	}

	w.conv.Clear()
	w.history = nil
	w.addMessage(models.RoleAI, w.texts.NewChat, w.texts.HintMeta)
	w.prompt.SetValue("")
	w.autoGrow()
	w.prompt.Focus()
}

// Input records the prompt value typed by the user and resizes the prompt. The value is not sent
// back to the page, which already shows it.
func (w *Widget) Input(value string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prompt.Sync(value)
	w.autoGrow()
}

// CloseModal hides the modal.
func (w *Widget) CloseModal() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.modal.Close()
}

// Messages returns the messages currently shown, oldest first.
func (w *Widget) Messages() []models.Message {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]models.Message(nil), w.history...)
}

// Pending reports whether a send is outstanding.
func (w *Widget) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.pending
}

// IsSendKey reports whether ev submits the prompt. Shift+Enter inserts a newline instead.
func IsSendKey(ev KeyEvent) bool {
	return ev.Key == "Enter" && !ev.Shift
}

// HandleKey handles a key press in the prompt. It returns true when the default action, inserting
// a newline, must be prevented. The send itself runs in the background.
func (w *Widget) HandleKey(ctx context.Context, ev KeyEvent) bool {
	if !IsSendKey(ev) {
		return false
	}
	w.dispatch(ctx, w.Send)
	return true
}

// HandleClick handles a click on the element with the given ID. Clicks on the modal content
// bubble up with the content's ID and do not close it; only the backdrop itself does.
func (w *Widget) HandleClick(ctx context.Context, target string) bool {
	switch target {
	case IDSendButton:
		w.dispatch(ctx, w.Send)
	case IDNewChat:
		w.NewChat()
	case IDModalClose, IDModalConfirm, IDModal:
		w.CloseModal()
	default:
		return false
	}
	return true
}

// Wait blocks until every send started by HandleKey or HandleClick has finished.
func (w *Widget) Wait() {
	w.wg.Wait()
}

// Close cancels an outstanding send and waits for background work to finish.
func (w *Widget) Close() {
	w.mu.Lock()
	if w.pending {
		w.cancel()
	}
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Widget) dispatch(ctx context.Context, fn func(context.Context)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn(ctx)
	}()
}

func (w *Widget) label(prefix string) string {
	return fmt.Sprintf("%s %s", prefix, w.now().Format("15:04"))
}

func (w *Widget) addMessage(role models.Role, text, meta string) {
	msg := models.Message{
		ID:        "msg-" + uuid.New().String(),
		Role:      role,
		Text:      text,
		Meta:      meta,
		Timestamp: w.now(),
	}

	if err := w.conv.AppendRow(w.row(msg)); err != nil {
		w.logger.Error().Err(err).Str("role", string(role)).Msg("Failed to append message row")
		return
	}
	w.history = append(w.history, msg)
	w.conv.ScrollToBottom()
}

func (w *Widget) row(msg models.Message) Row {
	row := Row{
		ID:   msg.ID,
		Role: msg.Role,
		Meta: msg.Meta,
	}
	if msg.Role == models.RoleUser {
		row.Avatar = w.texts.UserAvatar
		// User text is never interpreted as markup.
		row.Body = template.HTML(render.PlainText(msg.Text))
		return row
	}
	row.Avatar = w.texts.AIAvatar
	row.Body = template.HTML(w.renderer.Markdown(msg.Text))
	return row
}

func (w *Widget) addTyping() {
	row := Row{
		ID:     IDTyping,
		Role:   models.RoleAI,
		Avatar: w.texts.AIAvatar,
		Typing: true,
	}
	if err := w.conv.AppendRow(row); err != nil {
		w.logger.Error().Err(err).Msg("Failed to append typing row")
		return
	}
	w.conv.ScrollToBottom()
}

func (w *Widget) setSending(sending bool) {
	w.send.SetDisabled(sending)
	w.prompt.SetDisabled(sending)
}

func (w *Widget) autoGrow() {
	w.prompt.SetHeight(0)
	w.prompt.SetHeight(min(w.prompt.ScrollHeight(), w.maxPromptHeight))
}
