package widget

import (
	"context"
	"html/template"

	"github.com/MegaGrindStone/chat-widget/internal/models"
)

// Element IDs the page has to provide.
const (
	IDChat         = "chat"
	IDChatInner    = "chatInner"
	IDPrompt       = "prompt"
	IDSendButton   = "sendBtn"
	IDNewChat      = "newChatBtn"
	IDModal        = "modal"
	IDModalTitle   = "modalTitle"
	IDModalBody    = "modalBody"
	IDModalClose   = "modalClose"
	IDModalConfirm = "modalOk"

	// IDTyping is the ID of the typing indicator row.
	IDTyping = "typingRow"
)

// ContractIDs lists every element ID a page must contain for the widget to work.
var ContractIDs = []string{
	IDChat, IDChatInner, IDPrompt, IDSendButton, IDNewChat,
	IDModal, IDModalTitle, IDModalBody, IDModalClose, IDModalConfirm,
}

// Row is what a conversation row is rendered from.
type Row struct {
	ID     string
	Role   models.Role
	Avatar string
	// Body is already escaped or sanitized.
	Body   template.HTML
	Meta   string
	Typing bool
}

// Conversation is the scrollable list of message rows.
type Conversation interface {
	AppendRow(row Row) error
	RemoveRow(id string)
	Clear()
	ScrollToBottom()
}

// Prompt is the auto-growing text input.
type Prompt interface {
	Value() string
	// SetValue replaces the shown value.
	SetValue(value string)
	// Sync records a value the user already sees, typed in the browser. It must not echo it back.
	Sync(value string)
	Focus()
	SetDisabled(disabled bool)
	ScrollHeight() int
	SetHeight(height int)
	// SetMaxHeight sets the height the prompt stops growing at.
	SetMaxHeight(height int)
}

// Control is a button that can be disabled.
type Control interface {
	SetDisabled(disabled bool)
}

// Modal is the single informational overlay. Its body is plain text.
type Modal interface {
	Open(title, body string)
	Close()
}

// Elements groups the DOM handles a Widget works on.
type Elements struct {
	Conversation Conversation
	Prompt       Prompt
	SendButton   Control
	Modal        Modal
}

// Asker sends a normalized user message to the chat backend.
type Asker interface {
	Ask(ctx context.Context, message string) (models.Reply, error)
}
