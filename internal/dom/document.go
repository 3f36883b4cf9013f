// Package dom holds a server side copy of the widget page. It implements the element interfaces of
// package widget on top of a goquery document and reports every mutation as a Patch, so the same
// changes can be replayed in a browser.
package dom

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// RowTemplate is the name of the template rendering a conversation row.
const RowTemplate = "message_row"

// Patch operations.
const (
	OpAppend    = "append"
	OpRemove    = "remove"
	OpClear     = "clear"
	OpScroll    = "scroll"
	OpValue     = "value"
	OpDisabled  = "disabled"
	OpFocus     = "focus"
	OpHeight    = "height"
	OpMaxHeight = "maxHeight"
	OpModal     = "modal"
)

// MaxHeightAttr holds the prompt's height cap on the page.
const MaxHeightAttr = "data-max-height"

// Patch is a single mutation of the document.
type Patch struct {
	Op     string `json:"op"`
	Target string `json:"target"`
	HTML   string `json:"html,omitempty"`
	Text   string `json:"text,omitempty"`
	Title  string `json:"title,omitempty"`
	Value  string `json:"value,omitempty"`
	Flag   bool   `json:"flag,omitempty"`
	Number int    `json:"number,omitempty"`
}

// Document is a parsed widget page. It is safe for concurrent use.
type Document struct {
	mu sync.Mutex

	doc  *goquery.Document
	rows *template.Template

	focused  string
	listener func(Patch)

	lineHeight int
	padding    int
}

// Option configures a Document.
type Option func(*Document)

// WithLineMetrics sets the line height and vertical padding used to estimate the prompt's scroll
// height.
func WithLineMetrics(lineHeight, padding int) Option {
	return func(d *Document) {
		d.lineHeight = lineHeight
		d.padding = padding
	}
}

// New parses page and checks that it contains every element of the widget contract. rows must define
// the RowTemplate template.
func New(page io.Reader, rows *template.Template, opts ...Option) (*Document, error) {
	if rows == nil || rows.Lookup(RowTemplate) == nil {
		return nil, errors.Errorf("template %s is not defined", RowTemplate)
	}

	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse page")
	}

	var missing []string
	for _, id := range widget.ContractIDs {
		if doc.Find("#"+id).Length() == 0 {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("page is missing elements: %s", strings.Join(missing, ", "))
	}

	d := &Document{
		doc:        doc,
		rows:       rows,
		lineHeight: 22,
		padding:    20,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// OnPatch registers fn to be called, in order, with every mutation. Only one listener is kept.
func (d *Document) OnPatch(fn func(Patch)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listener = fn
}

// Elements returns the widget handles backed by this document.
func (d *Document) Elements() widget.Elements {
	return widget.Elements{
		Conversation: conversation{d: d},
		Prompt:       prompt{d: d},
		SendButton:   control{d: d, id: widget.IDSendButton},
		Modal:        modal{d: d},
	}
}

// HTML serializes the current document.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.doc.Html()
}

// Focused returns the ID of the element that last received focus.
func (d *Document) Focused() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.focused
}

// Find runs a CSS selector against a copy of the current document.
func (d *Document) Find(selector string) *goquery.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.doc.Clone().Find(selector)
}

// RowCount returns the number of rows in the conversation.
func (d *Document) RowCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.byID(widget.IDChatInner).Children().Length()
}

// Disabled reports whether the element with the given ID is disabled.
func (d *Document) Disabled(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.byID(id).Attr("disabled")
	return ok
}

// ModalOpen reports whether the modal is shown.
func (d *Document) ModalOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.byID(widget.IDModal).HasClass("show")
}

func (d *Document) byID(id string) *goquery.Selection {
	return d.doc.Find("#" + id)
}

func (d *Document) emit(p Patch) {
	if d.listener != nil {
		d.listener(p)
	}
}

type conversation struct{ d *Document }

func (c conversation) AppendRow(row widget.Row) error {
	var buf bytes.Buffer
	if err := c.d.rows.ExecuteTemplate(&buf, RowTemplate, row); err != nil {
		return errors.Wrap(err, "failed to render row")
	}

	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	html := buf.String()
	c.d.byID(widget.IDChatInner).AppendHtml(html)
	c.d.emit(Patch{Op: OpAppend, Target: widget.IDChatInner, HTML: html})
	return nil
}

func (c conversation) RemoveRow(id string) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	sel := c.d.byID(widget.IDChatInner).ChildrenFiltered("#" + id)
	if sel.Length() == 0 {
		return
	}
	sel.Remove()
	c.d.emit(Patch{Op: OpRemove, Target: id})
}

func (c conversation) Clear() {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	c.d.byID(widget.IDChatInner).Empty()
	c.d.emit(Patch{Op: OpClear, Target: widget.IDChatInner})
}

func (c conversation) ScrollToBottom() {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	c.d.emit(Patch{Op: OpScroll, Target: widget.IDChat})
}

type prompt struct{ d *Document }

func (p prompt) Value() string {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	return p.d.byID(widget.IDPrompt).Text()
}

func (p prompt) SetValue(value string) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	p.d.byID(widget.IDPrompt).SetText(value)
	p.d.emit(Patch{Op: OpValue, Target: widget.IDPrompt, Value: value})
}

func (p prompt) Sync(value string) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	p.d.byID(widget.IDPrompt).SetText(value)
}

func (p prompt) Focus() {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	p.d.focused = widget.IDPrompt
	p.d.emit(Patch{Op: OpFocus, Target: widget.IDPrompt})
}

func (p prompt) SetDisabled(disabled bool) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	setDisabled(p.d, widget.IDPrompt, disabled)
}

// ScrollHeight estimates the height the prompt content needs. There is no layout engine, so every
// line counts as one line height.
func (p prompt) ScrollHeight() int {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	lines := strings.Count(p.d.byID(widget.IDPrompt).Text(), "\n") + 1
	return lines*p.d.lineHeight + p.d.padding
}

func (p prompt) SetHeight(height int) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	p.d.byID(widget.IDPrompt).SetAttr("style", fmt.Sprintf("height: %dpx", height))
	p.d.emit(Patch{Op: OpHeight, Target: widget.IDPrompt, Number: height})
}

func (p prompt) SetMaxHeight(height int) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	p.d.byID(widget.IDPrompt).SetAttr(MaxHeightAttr, strconv.Itoa(height))
	p.d.emit(Patch{Op: OpMaxHeight, Target: widget.IDPrompt, Number: height})
}

type control struct {
	d  *Document
	id string
}

func (c control) SetDisabled(disabled bool) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	setDisabled(c.d, c.id, disabled)
}

func setDisabled(d *Document, id string, disabled bool) {
	sel := d.byID(id)
	if disabled {
		sel.SetAttr("disabled", "")
	} else {
		sel.RemoveAttr("disabled")
	}
	d.emit(Patch{Op: OpDisabled, Target: id, Flag: disabled})
}

type modal struct{ d *Document }

func (m modal) Open(title, body string) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()

	m.d.byID(widget.IDModalTitle).SetText(title)
	m.d.byID(widget.IDModalBody).SetText(body)
	m.d.byID(widget.IDModal).AddClass("show")
	m.d.emit(Patch{Op: OpModal, Target: widget.IDModal, Title: title, Text: body, Flag: true})
}

func (m modal) Close() {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()

	m.d.byID(widget.IDModal).RemoveClass("show")
	m.d.emit(Patch{Op: OpModal, Target: widget.IDModal})
}
