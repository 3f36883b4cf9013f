package main

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/MegaGrindStone/chat-widget/internal/handlers"
	"github.com/MegaGrindStone/chat-widget/internal/services"
	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type config struct {
	Port           string        `yaml:"port"`
	BackendURL     string        `yaml:"backendURL"`
	ChatPath       string        `yaml:"chatPath"`
	HighlightStyle string        `yaml:"highlightStyle"`
	LogLevel       string        `yaml:"logLevel"`
	MaxInputHeight int           `yaml:"maxInputHeight"`
	SessionTTL     time.Duration `yaml:"sessionTTL"`
	MaxSessions    int           `yaml:"maxSessions"`
	Page           pageConfig    `yaml:"page"`
	Texts          textsConfig   `yaml:"texts"`
}

type pageConfig struct {
	Title        string `yaml:"title"`
	NewChatLabel string `yaml:"newChatLabel"`
	Placeholder  string `yaml:"placeholder"`
	SendLabel    string `yaml:"sendLabel"`
	ConfirmLabel string `yaml:"confirmLabel"`
}

type textsConfig struct {
	HumanKeyword   string `yaml:"humanKeyword"`
	HumanTitle     string `yaml:"humanTitle"`
	KeywordContact string `yaml:"keywordContact"`
	HandoffContact string `yaml:"handoffContact"`
	EmptyAnswer    string `yaml:"emptyAnswer"`
	RequestFailed  string `yaml:"requestFailed"`
	SentPrefix     string `yaml:"sentPrefix"`
	AnsweredPrefix string `yaml:"answeredPrefix"`
	ErroredPrefix  string `yaml:"erroredPrefix"`
	HintMeta       string `yaml:"hintMeta"`
	Welcome        string `yaml:"welcome"`
	NewChat        string `yaml:"newChat"`
	AIAvatar       string `yaml:"aiAvatar"`
	UserAvatar     string `yaml:"userAvatar"`
}

// cliFlags are applied last and win over the file and the environment.
type cliFlags struct {
	configPath string
	port       string
	backendURL string
	logLevel   string
}

func defaultConfig() config {
	return config{
		Port:           "8080",
		BackendURL:     "http://localhost:8000",
		ChatPath:       services.DefaultChatPath,
		HighlightStyle: "github",
		LogLevel:       "info",
		MaxInputHeight: widget.DefaultMaxPromptHeight,
		SessionTTL:     handlers.DefaultSessionTTL,
		MaxSessions:    handlers.DefaultMaxSessions,
		Page: pageConfig{
			Title:        "上海大学校园百事通",
			NewChatLabel: "新对话",
			Placeholder:  "输入你的问题，Enter 发送，Shift+Enter 换行",
			SendLabel:    "发送",
			ConfirmLabel: "知道了",
		},
	}
}

// defaultConfigPath is used when no --config flag is given. A missing file there is not an error.
func defaultConfigPath() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "error getting user config dir")
	}
	return filepath.Join(cfgDir, "chatwidget", "config.yaml"), nil
}

// loadConfig builds the configuration from defaults, the YAML file, a .env file, the environment
// and finally the command line flags.
func loadConfig(flags cliFlags) (config, error) {
	cfg := defaultConfig()

	path := flags.configPath
	optional := false
	if path == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return config{}, err
		}
		path, optional = p, true
	}

	if err := cfg.loadFile(path); err != nil {
		if !(optional && errors.Is(err, os.ErrNotExist)) {
			return config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config{}, errors.Wrap(err, "error loading .env")
	}
	if err := cfg.applyEnv(); err != nil {
		return config{}, err
	}

	if flags.port != "" {
		cfg.Port = flags.port
	}
	if flags.backendURL != "" {
		cfg.BackendURL = flags.backendURL
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	if _, err := cfg.endpoint(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c *config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "error opening config file")
	}
	defer f.Close()

	// An empty file keeps the defaults.
	if err := yaml.NewDecoder(f).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrapf(err, "error decoding config file %s", path)
	}
	return nil
}

func (c *config) applyEnv() error {
	if v := os.Getenv("CHAT_WIDGET_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("CHAT_WIDGET_BACKEND_URL"); v != "" {
		c.BackendURL = v
	}
	if v, ok := os.LookupEnv("CHAT_WIDGET_HIGHLIGHT_STYLE"); ok {
		c.HighlightStyle = v
	}
	if v := os.Getenv("CHAT_WIDGET_MAX_INPUT_HEIGHT"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "invalid CHAT_WIDGET_MAX_INPUT_HEIGHT")
		}
		c.MaxInputHeight = h
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// endpoint returns the full URL of the backend chat endpoint.
func (c config) endpoint() (string, error) {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return "", errors.Wrap(err, "invalid backend url")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.Errorf("backend url %q must be absolute", c.BackendURL)
	}
	return u.JoinPath(c.ChatPath).String(), nil
}

func (c config) handlersConfig(texts widget.Texts) handlers.Config {
	return handlers.Config{
		Title:        c.Page.Title,
		NewChatLabel: c.Page.NewChatLabel,
		Placeholder:  c.Page.Placeholder,
		SendLabel:    c.Page.SendLabel,
		ConfirmLabel: c.Page.ConfirmLabel,
		WidgetOptions: []widget.Option{
			widget.WithTexts(texts),
			widget.WithMaxPromptHeight(c.MaxInputHeight),
		},
		SessionTTL:  c.SessionTTL,
		MaxSessions: c.MaxSessions,
	}
}

// texts returns the configured texts, falling back to the defaults for every empty field.
func (t textsConfig) texts() widget.Texts {
	return widget.Texts{
		HumanKeyword:   t.HumanKeyword,
		HumanTitle:     t.HumanTitle,
		KeywordContact: t.KeywordContact,
		HandoffContact: t.HandoffContact,
		EmptyAnswer:    t.EmptyAnswer,
		RequestFailed:  t.RequestFailed,
		SentPrefix:     t.SentPrefix,
		AnsweredPrefix: t.AnsweredPrefix,
		ErroredPrefix:  t.ErroredPrefix,
		HintMeta:       t.HintMeta,
		Welcome:        t.Welcome,
		NewChat:        t.NewChat,
		AIAvatar:       t.AIAvatar,
		UserAvatar:     t.UserAvatar,
	}.Merge(widget.DefaultTexts())
}
