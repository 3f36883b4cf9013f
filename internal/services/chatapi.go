package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultChatPath is the path of the chat endpoint on the backend.
const DefaultChatPath = "/api/chat"

// ChatAPI sends user messages to the chat backend. Each call is a single JSON POST; there are no
// retries and no timeout besides the one carried by the caller's context.
type ChatAPI struct {
	endpoint string
	defaults models.ReplyDefaults

	client *http.Client

	logger zerolog.Logger
}

// ChatAPIOption configures a ChatAPI.
type ChatAPIOption func(*ChatAPI)

type chatRequest struct {
	Message string `json:"message"`
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) ChatAPIOption {
	return func(c *ChatAPI) {
		c.client = client
	}
}

// WithReplyDefaults sets the texts substituted for missing answers.
func WithReplyDefaults(defaults models.ReplyDefaults) ChatAPIOption {
	return func(c *ChatAPI) {
		c.defaults = defaults
	}
}

// WithLogger sets the logger used to report backend anomalies.
func WithLogger(logger zerolog.Logger) ChatAPIOption {
	return func(c *ChatAPI) {
		c.logger = logger
	}
}

// NewChatAPI creates a ChatAPI posting to endpoint, which is the full URL of the chat endpoint.
func NewChatAPI(endpoint string, opts ...ChatAPIOption) ChatAPI {
	c := ChatAPI{
		endpoint: endpoint,
		client:   &http.Client{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Ask posts message and decodes the backend reply. The body is decoded whatever the status code is,
// the backend reports its own failures inside the answer. Transport failures and undecodable bodies
// are returned as errors.
func (c ChatAPI) Ask(ctx context.Context, message string) (models.Reply, error) {
	body, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("endpoint", c.endpoint).
			Msg("Chat backend returned non-success status")
	}

	reply, err := models.DecodeReply(data, c.defaults)
	if err != nil {
		return nil, errors.Wrapf(err, "unexpected response (status %d)", resp.StatusCode)
	}

	c.logger.Debug().
		Str("endpoint", c.endpoint).
		Str("reply", reply.Text()).
		Msg("Chat backend replied")

	return reply, nil
}
