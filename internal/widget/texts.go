package widget

import "github.com/MegaGrindStone/chat-widget/internal/models"

// Texts holds every user visible literal of the widget.
type Texts struct {
	// HumanKeyword, typed alone, opens the contact modal without contacting the backend.
	HumanKeyword   string
	HumanTitle     string
	KeywordContact string
	HandoffContact string

	EmptyAnswer   string
	RequestFailed string

	SentPrefix     string
	AnsweredPrefix string
	ErroredPrefix  string
	HintMeta       string

	Welcome    string
	NewChat    string
	AIAvatar   string
	UserAvatar string
}

// DefaultTexts returns the texts of the campus assistant.
func DefaultTexts() Texts {
	return Texts{
		HumanKeyword:   "人工",
		HumanTitle:     "人工客服",
		KeywordContact: "请联系百事通同学：zhangdreamer@126.com",
		HandoffContact: "请联系学长：zhangdreamer@126.com",

		EmptyAnswer:   "（未获取到答案）",
		RequestFailed: "请求失败：",

		SentPrefix:     "发送于",
		AnsweredPrefix: "回答于",
		ErroredPrefix:  "错误于",
		HintMeta:       "提示",

		Welcome: "你好！我是**上海大学校园百事通**。\n\n" +
			"- 你可以问我：图书借阅与期限、医保报销、研究生学分、VPN等任意与在校生活有关的问题～\n" +
			"- 当问题与 `docs/*.md` 有关时，我会自动附带内容用于更准确回答\n\n" +
			"输入“人工”可获取人工联系方式。",
		NewChat:    "新的对话已开始。你想咨询什么问题？",
		AIAvatar:   "AI",
		UserAvatar: "我",
	}
}

// ReplyDefaults returns the defaults used when decoding backend replies.
func (t Texts) ReplyDefaults() models.ReplyDefaults {
	return models.ReplyDefaults{
		Handoff:     t.HandoffContact,
		EmptyAnswer: t.EmptyAnswer,
	}
}

// Merge returns t with every empty field taken from fallback.
func (t Texts) Merge(fallback Texts) Texts {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&t.HumanKeyword, fallback.HumanKeyword)
	fill(&t.HumanTitle, fallback.HumanTitle)
	fill(&t.KeywordContact, fallback.KeywordContact)
	fill(&t.HandoffContact, fallback.HandoffContact)
	fill(&t.EmptyAnswer, fallback.EmptyAnswer)
	fill(&t.RequestFailed, fallback.RequestFailed)
	fill(&t.SentPrefix, fallback.SentPrefix)
	fill(&t.AnsweredPrefix, fallback.AnsweredPrefix)
	fill(&t.ErroredPrefix, fallback.ErroredPrefix)
	fill(&t.HintMeta, fallback.HintMeta)
	fill(&t.Welcome, fallback.Welcome)
	fill(&t.NewChat, fallback.NewChat)
	fill(&t.AIAvatar, fallback.AIAvatar)
	fill(&t.UserAvatar, fallback.UserAvatar)
	return t
}
