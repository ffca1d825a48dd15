package reasoning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
	domsvc "CryptoEdge/internal/domain/service"
	"CryptoEdge/internal/service/metrics"
	xhttp "CryptoEdge/pkg/http"
	"CryptoEdge/pkg/logger"
)

const (
	DefaultAPIURL = "https://api.moonshot.ai/v1/chat/completions"
	DefaultModel  = "kimi-k2.5-preview"
)

// LearningSource supplies the digest injected ahead of the market snapshot.
type LearningSource interface {
	Context() string
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []Message      `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens int64 `json:"total_tokens"`
	} `json:"usage"`
}

type Option func(*Client)

func WithAPIURL(u string) Option             { return func(c *Client) { c.apiURL = u } }
func WithAPIKey(k string) Option             { return func(c *Client) { c.apiKey = k } }
func WithModel(m string) Option              { return func(c *Client) { c.model = m } }
func WithTimeout(d time.Duration) Option     { return func(c *Client) { c.timeout = d } }
func WithTemperature(t float64) Option       { return func(c *Client) { c.temperature = t } }
func WithMaxTokens(n int) Option             { return func(c *Client) { c.maxTokens = n } }
func WithMaxLearningChars(n int) Option      { return func(c *Client) { c.maxLearning = n } }
func WithDisabled(d bool) Option             { return func(c *Client) { c.disabled = d } }
func WithLearning(src LearningSource) Option { return func(c *Client) { c.learning = src } }

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	http        *xhttp.Client
	apiURL      string
	apiKey      string
	model       string
	timeout     time.Duration
	temperature float64
	maxTokens   int
	maxLearning int
	disabled    bool
	learning    LearningSource
	log         *logger.Logger
}

var _ domsvc.Reasoner = (*Client)(nil)

func NewClient(log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		apiURL:      DefaultAPIURL,
		model:       DefaultModel,
		timeout:     15 * time.Second,
		temperature: 0.6,
		maxTokens:   800,
		maxLearning: defaultMaxLearned,
		log:         log.With(logger.Category("REASONING")),
	}
	for _, opt := range opts {
		opt(c)
	}
	// The per-call context carries the deadline; the transport bound is a
	// backstop only.
	c.http = xhttp.NewClient(xhttp.WithTimeout(c.timeout + 5*time.Second))
	return c
}

// Available reports whether a credential is configured and the feature is on.
func (c *Client) Available() bool {
	return !c.disabled && c.apiKey != ""
}

// Analyze asks the model for a recommendation on pair and returns the
// validated result.
func (c *Client) Analyze(ctx context.Context, pair string, data *models.MarketData) (*models.Analysis, error) {
	if !c.Available() {
		return nil, domain.ErrReasoningUnavailable
	}

	var learning string
	if c.learning != nil {
		learning = c.learning.Context()
	}

	req := chatRequest{
		Model:          c.model,
		Messages:       BuildMessages(pair, data, learning, c.maxLearning),
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var body []byte
	err := c.http.SendAndParse(callCtx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.apiURL,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + c.apiKey,
		},
		Body: req,
	}, &body)
	if err != nil {
		err = c.classify(callCtx, err)
		metrics.ReasoningLatency.WithLabelValues(outcome(err)).Observe(time.Since(start).Seconds())
		return nil, err
	}

	analysis, err := c.decode(body)
	metrics.ReasoningLatency.WithLabelValues(outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if analysis.Overridden {
		metrics.ReasoningOverrides.Inc()
		c.log.Info("direction overridden by scores",
			logger.String("pair", pair),
			logger.String("direction", string(analysis.Direction)))
	}
	return analysis, nil
}

func (c *Client) decode(body []byte) (*models.Analysis, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: response envelope: %w", domain.ErrInvalidReasoningOutput, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: empty response", domain.ErrInvalidReasoningOutput)
	}

	analysis, err := ParseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	analysis.ModelVersion = c.model
	if resp.Usage != nil && resp.Usage.TotalTokens > 0 {
		tokens := resp.Usage.TotalTokens
		analysis.TokenUsage = &tokens
		metrics.ReasoningTokens.WithLabelValues(c.model).Add(float64(tokens))
	}
	return analysis, nil
}

// classify separates our own deadline from other transport failures.
func (c *Client) classify(callCtx context.Context, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", domain.ErrReasoningTimeout, c.timeout)
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return fmt.Errorf("%w: reasoning api status %d: %s", domain.ErrUpstreamFetch, se.Code, truncate(se.Body, 200))
	}
	return fmt.Errorf("%w: reasoning request: %w", domain.ErrUpstreamFetch, err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrReasoningTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrInvalidReasoningOutput):
		return "invalid"
	default:
		return "error"
	}
}
