package creative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"rhythmdb/internal/logging"
	"rhythmdb/internal/services"
)

const (
	defaultBaseURL     = "http://localhost:11434"
	defaultHTTPTimeout = 120 * time.Second
	defaultTopP        = 0.9

	largeModelTemperature = 0.3
	smallModelTemperature = 0.7
	largeModelParamsB     = 7.0
)

// Config captures the runtime settings for the Ollama endpoint.
type Config struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client speaks the Ollama chat API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	modelSeen bool
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a creative client using the supplied configuration.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "creative"),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Analyze classifies one track. It never returns an error: failures come
// back as defaulted facts plus the status string naming the cause.
func (c *Client) Analyze(ctx context.Context, req Request) (Facts, string) {
	if err := c.CheckModel(ctx); err != nil {
		status := StatusOffline
		if errors.Is(err, services.ErrLLMModelMissing) {
			status = StatusModelMissing
		}
		logging.WarnWithContext(ctx, c.logger, "creative analysis skipped",
			logging.String("status", status),
			logging.Error(err))
		return Defaults(), status
	}

	content, err := c.chat(ctx, systemPrompt(), userPrompt(req))
	if err != nil {
		status := StatusOffline
		if errors.Is(err, services.ErrLLMBadPayload) {
			status = StatusParseError
		}
		logging.WarnWithContext(ctx, c.logger, "creative analysis skipped",
			logging.String("status", status),
			logging.Error(err))
		return Defaults(), status
	}

	payload, err := decodePayload(content)
	if err != nil {
		logging.WarnWithContext(ctx, c.logger, "creative payload rejected",
			logging.String(logging.FieldErrorHint, "model returned malformed JSON"),
			logging.Error(err))
		return Defaults(), StatusParseError
	}
	return factsFromPayload(payload), StatusOK
}

// CheckModel verifies the configured model is installed on the server. A
// successful check is cached for the client's lifetime; failures are
// re-checked on the next call so a late `ollama pull` recovers.
func (c *Client) CheckModel(ctx context.Context) error {
	c.mu.Lock()
	seen := c.modelSeen
	c.mu.Unlock()
	if seen {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return services.Wrap(services.ErrLLMUnavailable, "creative", "check model", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrLLMUnavailable, "creative", "check model", "ollama unreachable", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrLLMUnavailable, "creative", "check model", "read model listing", err)
	}
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrLLMUnavailable, "creative", "check model",
			fmt.Sprintf("http %d from model listing", resp.StatusCode), nil)
	}

	var listing struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return services.Wrap(services.ErrLLMUnavailable, "creative", "check model", "decode model listing", err)
	}
	for _, m := range listing.Models {
		if modelNamesMatch(m.Name, c.cfg.Model) {
			c.mu.Lock()
			c.modelSeen = true
			c.mu.Unlock()
			return nil
		}
	}
	return services.Wrap(services.ErrLLMModelMissing, "creative", "check model",
		fmt.Sprintf("model %q not in ollama listing", c.cfg.Model), nil)
}

// modelNamesMatch treats a bare model name and its ":latest" tag as equal.
func modelNamesMatch(have, want string) bool {
	have = strings.TrimSpace(have)
	want = strings.TrimSpace(want)
	if have == "" || want == "" {
		return false
	}
	if strings.EqualFold(have, want) {
		return true
	}
	return strings.EqualFold(strings.TrimSuffix(have, ":latest"), strings.TrimSuffix(want, ":latest"))
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

// chatResponse tolerates the chat, generate, and legacy response schemas;
// content is read in that preference order.
type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Response string `json:"response"`
	Content  string `json:"content"`
	Error    string `json:"error"`
}

func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: false,
		Format: "json",
		Options: chatOptions{
			Temperature: temperatureForModel(c.cfg.Model),
			TopP:        defaultTopP,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrLLMUnavailable, "creative", "chat", "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrLLMUnavailable, "creative", "chat", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrLLMUnavailable, "creative", "chat", "ollama unreachable", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrLLMUnavailable, "creative", "chat", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrLLMUnavailable, "creative", "chat",
			fmt.Sprintf("http %d: %s", resp.StatusCode, summarizePayloadSnippet(string(body))), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", services.Wrap(services.ErrLLMBadPayload, "creative", "chat", "decode response envelope", err)
	}
	if parsed.Error != "" {
		return "", services.Wrap(services.ErrLLMUnavailable, "creative", "chat", parsed.Error, nil)
	}
	content := firstNonEmpty(parsed.Message.Content, parsed.Response, parsed.Content)
	if content == "" {
		return "", services.Wrap(services.ErrLLMBadPayload, "creative", "chat", "empty completion content", nil)
	}
	return content, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

var modelSizeRE = regexp.MustCompile(`(\d+(?:\.\d+)?)[bB]\b`)

// temperatureForModel runs larger models cooler: 0.3 at or above 7B
// parameters, 0.7 otherwise or when the name carries no size.
func temperatureForModel(model string) float64 {
	match := modelSizeRE.FindStringSubmatch(model)
	if match == nil {
		return smallModelTemperature
	}
	size, err := strconv.ParseFloat(match[1], 64)
	if err != nil || size < largeModelParamsB {
		return smallModelTemperature
	}
	return largeModelTemperature
}
