package models

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Reply is the decoded answer of the chat backend. It is either HumanHandoff or AnswerReceived.
type Reply interface {
	// Text returns the text that should be shown to the user.
	Text() string

	isReply()
}

// HumanHandoff asks the widget to show contact details of a human operator instead of an answer.
type HumanHandoff struct {
	Contact string
}

// AnswerReceived carries an automated answer in markdown.
type AnswerReceived struct {
	Answer string
}

// ReplyDefaults holds the texts used when the backend leaves the answer out.
type ReplyDefaults struct {
	// Handoff is shown in the modal when a human handoff reply carries no text.
	Handoff string
	// EmptyAnswer replaces a missing or empty answer.
	EmptyAnswer string
}

// ReplyTypeHuman is the wire value of the "type" field that marks a human handoff.
const ReplyTypeHuman = "human"

func (h HumanHandoff) Text() string   { return h.Contact }
func (a AnswerReceived) Text() string { return a.Answer }

func (HumanHandoff) isReply()   {}
func (AnswerReceived) isReply() {}

// DecodeReply decodes a backend response body. Any body that is not marked as a human handoff is an
// answer; missing or empty answers are replaced with the matching default. A valid JSON body that is
// not an object is treated as an object without fields. Only invalid JSON is an error.
func DecodeReply(data []byte, defaults ReplyDefaults) (Reply, error) {
	if !json.Valid(data) {
		return nil, errors.New("failed to decode reply: invalid JSON")
	}

	var fields map[string]json.RawMessage
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, errors.Wrap(err, "failed to decode reply")
		}
	}

	text, err := answerText(fields["answer"])
	if err != nil {
		return nil, err
	}

	if isHuman(fields["type"]) {
		if text == "" {
			text = defaults.Handoff
		}
		return HumanHandoff{Contact: text}, nil
	}

	if text == "" {
		text = defaults.EmptyAnswer
	}
	return AnswerReceived{Answer: text}, nil
}

// isHuman reports whether the raw type field is the string "human". Any other value, including
// non-strings, is not a handoff.
func isHuman(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var s string
	return json.Unmarshal(raw, &s) == nil && s == ReplyTypeHuman
}

// answerText turns the raw answer field into display text. Strings are used as is, falsy values
// (null, false, 0, "") count as missing, anything else is shown as its JSON text.
func answerText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", errors.Wrap(err, "failed to decode answer")
	}

	switch a := v.(type) {
	case nil:
		return "", nil
	case string:
		return a, nil
	case bool:
		if !a {
			return "", nil
		}
	case float64:
		if a == 0 {
			return "", nil
		}
	}
	return string(raw), nil
}
