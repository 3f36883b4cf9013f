package widget_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	"github.com/MegaGrindStone/chat-widget/internal/widget"
)

type fakeConversation struct {
	rows    []widget.Row
	scrolls int
}

type fakePrompt struct {
	value     string
	disabled  bool
	focused   int
	heights   []int
	maxHeight int
	// sets counts SetValue calls; Sync does not count.
	sets int
}

type fakeControl struct {
	disabled bool
}

type fakeModal struct {
	title string
	body  string
	open  bool
}

type fakeAsker struct {
	mu       sync.Mutex
	messages []string

	reply models.Reply
	err   error
	// release, when set, holds the reply until closed or the context ends.
	release chan struct{}
	started chan struct{}
}

type fakePage struct {
	conv   *fakeConversation
	prompt *fakePrompt
	send   *fakeControl
	modal  *fakeModal
}

func newFakePage() fakePage {
	return fakePage{
		conv:   &fakeConversation{},
		prompt: &fakePrompt{},
		send:   &fakeControl{},
		modal:  &fakeModal{},
	}
}

func (p fakePage) elements() widget.Elements {
	return widget.Elements{
		Conversation: p.conv,
		Prompt:       p.prompt,
		SendButton:   p.send,
		Modal:        p.modal,
	}
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 9, 5, 0, 0, time.Local)
}

func (c *fakeConversation) AppendRow(row widget.Row) error {
	c.rows = append(c.rows, row)
	return nil
}

func (c *fakeConversation) RemoveRow(id string) {
	kept := c.rows[:0]
	for _, r := range c.rows {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	c.rows = kept
}

func (c *fakeConversation) Clear()          { c.rows = nil }
func (c *fakeConversation) ScrollToBottom() { c.scrolls++ }

func (c *fakeConversation) typing() bool {
	for _, r := range c.rows {
		if r.ID == widget.IDTyping {
			return true
		}
	}
	return false
}

func (p *fakePrompt) Value() string              { return p.value }
func (p *fakePrompt) SetValue(value string)      { p.value = value; p.sets++ }
func (p *fakePrompt) Sync(value string)          { p.value = value }
func (p *fakePrompt) Focus()                     { p.focused++ }
func (p *fakePrompt) SetDisabled(disabled bool)  { p.disabled = disabled }
func (p *fakePrompt) SetHeight(height int)       { p.heights = append(p.heights, height) }
func (p *fakePrompt) SetMaxHeight(height int)    { p.maxHeight = height }
func (p *fakePrompt) ScrollHeight() int          { return 20 + 22*(strings.Count(p.value, "\n")+1) }
func (c *fakeControl) SetDisabled(disabled bool) { c.disabled = disabled }
func (m *fakeModal) Open(title, body string)     { m.title, m.body, m.open = title, body, true }
func (m *fakeModal) Close()                      { m.open = false }

func (a *fakeAsker) Ask(ctx context.Context, message string) (models.Reply, error) {
	a.mu.Lock()
	a.messages = append(a.messages, message)
	a.mu.Unlock()

	if a.started != nil {
		close(a.started)
	}
	if a.release != nil {
		select {
		case <-a.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return a.reply, a.err
}

func (a *fakeAsker) calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.messages...)
}
