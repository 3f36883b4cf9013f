package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MegaGrindStone/chat-widget/internal/handlers"
	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"CHAT_WIDGET_PORT",
		"CHAT_WIDGET_BACKEND_URL",
		"CHAT_WIDGET_MAX_INPUT_HEIGHT",
		"LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadConfig(cliFlags{})
	require.NoError(t, err)

	assert.Equal(t, defaultConfig(), cfg)

	endpoint, err := cfg.endpoint()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/chat", endpoint)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port: "9000"
backendURL: http://backend:8000/
chatPath: /v1/chat
highlightStyle: monokai
maxInputHeight: 200
sessionTTL: 10m
maxSessions: 50
page:
  title: Campus helper
texts:
  humanKeyword: human
  aiAvatar: Bot
`)

	cfg, err := loadConfig(cliFlags{configPath: path})
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "monokai", cfg.HighlightStyle)
	assert.Equal(t, 200, cfg.MaxInputHeight)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 50, cfg.MaxSessions)
	assert.Equal(t, "Campus helper", cfg.Page.Title)
	assert.Equal(t, "发送", cfg.Page.SendLabel)

	endpoint, err := cfg.endpoint()
	require.NoError(t, err)
	assert.Equal(t, "http://backend:8000/v1/chat", endpoint)

	texts := cfg.Texts.texts()
	defaults := widget.DefaultTexts()
	assert.Equal(t, "human", texts.HumanKeyword)
	assert.Equal(t, "Bot", texts.AIAvatar)
	assert.Equal(t, defaults.HandoffContact, texts.HandoffContact)
	assert.Equal(t, defaults.Welcome, texts.Welcome)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "port: \"9000\"\nlogLevel: warn\n")

	t.Setenv("CHAT_WIDGET_PORT", "9100")
	t.Setenv("CHAT_WIDGET_BACKEND_URL", "http://env:8000")
	t.Setenv("CHAT_WIDGET_MAX_INPUT_HEIGHT", "120")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := loadConfig(cliFlags{configPath: path})
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "http://env:8000", cfg.BackendURL)
	assert.Equal(t, 120, cfg.MaxInputHeight)
	assert.Equal(t, "debug", cfg.LogLevel)

	cfg, err = loadConfig(cliFlags{
		configPath: path,
		port:       "9200",
		backendURL: "https://flag.example",
		logLevel:   "error",
	})
	require.NoError(t, err)
	assert.Equal(t, "9200", cfg.Port)
	assert.Equal(t, "https://flag.example", cfg.BackendURL)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoadConfigErrors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name  string
		flags func(t *testing.T) cliFlags
		env   map[string]string
	}{
		{
			name: "Missing explicit file",
			flags: func(t *testing.T) cliFlags {
				return cliFlags{configPath: filepath.Join(t.TempDir(), "missing.yaml")}
			},
		},
		{
			name: "Invalid YAML",
			flags: func(t *testing.T) cliFlags {
				return cliFlags{configPath: writeConfig(t, "port: [\n")}
			},
		},
		{
			name: "Relative backend url",
			flags: func(t *testing.T) cliFlags {
				return cliFlags{configPath: writeConfig(t, "backendURL: localhost\n")}
			},
		},
		{
			name: "Invalid max input height",
			flags: func(t *testing.T) cliFlags {
				return cliFlags{configPath: writeConfig(t, "port: \"1\"\n")}
			},
			env: map[string]string{"CHAT_WIDGET_MAX_INPUT_HEIGHT": "tall"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(tt.flags(t))
			assert.Error(t, err)
		})
	}
}

func TestHandlersConfig(t *testing.T) {
	cfg := defaultConfig()

	hCfg := cfg.handlersConfig(widget.DefaultTexts())
	assert.Equal(t, cfg.Page.Title, hCfg.Title)
	assert.Equal(t, cfg.Page.ConfirmLabel, hCfg.ConfirmLabel)
	assert.Len(t, hCfg.WidgetOptions, 2)
	assert.Equal(t, handlers.DefaultSessionTTL, hCfg.SessionTTL)
	assert.Equal(t, handlers.DefaultMaxSessions, hCfg.MaxSessions)
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, "debug", newLogger("debug").GetLevel().String())
	assert.Equal(t, "info", newLogger("nonsense").GetLevel().String())
	assert.Equal(t, "info", newLogger("").GetLevel().String())
}
