package models_test

import (
	"testing"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDefaults = models.ReplyDefaults{
	Handoff:     "call the desk",
	EmptyAnswer: "(no answer)",
}

func TestDecodeReply(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.Reply
	}{
		{
			name: "human handoff with text",
			body: `{"type":"human","answer":"X"}`,
			want: models.HumanHandoff{Contact: "X"},
		},
		{
			name: "human handoff without text",
			body: `{"type":"human"}`,
			want: models.HumanHandoff{Contact: "call the desk"},
		},
		{
			name: "human handoff with empty text",
			body: `{"type":"human","answer":""}`,
			want: models.HumanHandoff{Contact: "call the desk"},
		},
		{
			name: "plain answer",
			body: `{"answer":"Hello"}`,
			want: models.AnswerReceived{Answer: "Hello"},
		},
		{
			name: "explicit answer type",
			body: `{"type":"answer","answer":"**bold**"}`,
			want: models.AnswerReceived{Answer: "**bold**"},
		},
		{
			name: "empty object",
			body: `{}`,
			want: models.AnswerReceived{Answer: "(no answer)"},
		},
		{
			name: "null body",
			body: `null`,
			want: models.AnswerReceived{Answer: "(no answer)"},
		},
		{
			name: "null answer",
			body: `{"answer":null}`,
			want: models.AnswerReceived{Answer: "(no answer)"},
		},
		{
			name: "numeric answer",
			body: `{"answer":42}`,
			want: models.AnswerReceived{Answer: "42"},
		},
		{
			name: "false answer",
			body: `{"answer":false}`,
			want: models.AnswerReceived{Answer: "(no answer)"},
		},
		{
			name: "zero answer",
			body: `{"answer":0.0}`,
			want: models.AnswerReceived{Answer: "(no answer)"},
		},
		{
			name: "object answer",
			body: `{"answer":{"text":"hi"}}`,
			want: models.AnswerReceived{Answer: `{"text":"hi"}`},
		},
		{
			name: "string body",
			body: `"hello"`,
			want: models.AnswerReceived{Answer: "(no answer)"},
		},
		{
			name: "array body",
			body: `[]`,
			want: models.AnswerReceived{Answer: "(no answer)"},
		},
		{
			name: "number body",
			body: `42`,
			want: models.AnswerReceived{Answer: "(no answer)"},
		},
		{
			name: "non string type",
			body: `{"type":1,"answer":"x"}`,
			want: models.AnswerReceived{Answer: "x"},
		},
		{
			name: "human type in other case",
			body: `{"type":"Human","answer":"x"}`,
			want: models.AnswerReceived{Answer: "x"},
		},
		{
			name: "unknown fields are ignored",
			body: `{"answer":"ok","sources":["a.md"]}`,
			want: models.AnswerReceived{Answer: "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := models.DecodeReply([]byte(tt.body), testDefaults)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeReplyInvalid(t *testing.T) {
	for _, body := range []string{``, `   `, `<html>502</html>`, `{"answer":`, `{"answer":"x"} trailing`} {
		_, err := models.DecodeReply([]byte(body), testDefaults)
		assert.Error(t, err, "body %q", body)
	}
}

func TestReplyText(t *testing.T) {
	assert.Equal(t, "X", models.HumanHandoff{Contact: "X"}.Text())
	assert.Equal(t, "Y", models.AnswerReceived{Answer: "Y"}.Text())
}
