// Package llamacpp implements inference.Backend against the llama.cpp HTTP
// server's native /completion endpoint, which accepts GBNF grammars.
package llamacpp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/samcharles93/cascade/internal/inference"
	"github.com/samcharles93/cascade/internal/logger"
	"github.com/samcharles93/cascade/internal/prompt"
	"github.com/samcharles93/cascade/internal/version"
)

const DefaultBaseURL = "http://127.0.0.1:8080"

// StatusError is a non-2xx reply from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llama.cpp server: HTTP %d", e.Code)
	}
	return fmt.Sprintf("llama.cpp server: HTTP %d: %s", e.Code, e.Message)
}

// Client talks to a single llama.cpp server.
type Client struct {
	baseURL string
	apiKey  string
	format  prompt.Format
	omitBOS bool
	http    *http.Client
	limiter *rate.Limiter
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithFormat selects the chat template used to flatten the transcript.
func WithFormat(f prompt.Format) Option {
	return func(c *Client) { c.format = f }
}

// WithOmitBOS leaves the begin-of-sequence marker to the server.
func WithOmitBOS(omit bool) Option {
	return func(c *Client) { c.omitBOS = omit }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRateLimit paces outgoing requests. A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		format:  prompt.FormatChatML,
		http:    &http.Client{Timeout: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Complete renders the transcript, asks the server for a completion and
// checks it against the request's stop sequences. Retryable failures are
// attempted up to req.Config.MaxAttempts times.
func (c *Client) Complete(ctx context.Context, req *inference.Request) (*inference.Completion, error) {
	log := logger.FromContext(ctx)
	attempts := max(req.Config.MaxAttempts, 1)

	var errs []error
	for attempt := 1; attempt <= attempts; attempt++ {
		completion, err := c.complete(ctx, req)
		if err == nil {
			return completion, nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return nil, err
		}
		errs = append(errs, err)
		log.Warn("completion attempt failed", "attempt", attempt, "max_attempts", attempts, "error", err)
	}
	return nil, &inference.AttemptsError{Attempts: attempts, Errs: errs}
}

func (c *Client) complete(ctx context.Context, req *inference.Request) (*inference.Completion, error) {
	body, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}

	var res completionResponse
	if err := c.post(ctx, "/completion", body, &res); err != nil {
		return nil, err
	}

	completion, err := toCompletion(&res)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("completion",
		"finish", completion.Finish.String(),
		"stop_word", completion.StopWord,
		"prompt_tokens", completion.Stats.PromptTokens,
		"cached_tokens", completion.Stats.CachedTokens,
		"generated", completion.Stats.TokensGenerated,
		"tps", completion.Stats.TPS,
	)

	if err := inference.CheckFinish(req, completion); err != nil {
		return nil, err
	}
	if completion.Text == "" {
		if seq, ok := completion.MatchedStop(req.Stops); !ok || seq.Kind != inference.SequenceNoResult {
			return nil, inference.ErrEmptyContent
		}
	}
	return completion, nil
}

// PrimeCache evaluates the prompt up to the generation prefix so the next
// completion can reuse the server's KV cache.
func (c *Client) PrimeCache(ctx context.Context, req *inference.Request) error {
	body, err := c.buildRequest(req)
	if err != nil {
		return err
	}
	zero := 0
	body.NPredict = &zero
	body.CachePrompt = true
	body.Grammar = ""
	body.Stop = nil

	var res completionResponse
	if err := c.post(ctx, "/completion", body, &res); err != nil {
		return err
	}
	logger.FromContext(ctx).Debug("prompt cached", "prompt_tokens", res.TokensEvaluated, "cached_tokens", res.TokensCached)
	return nil
}

// Health reports whether the server has a model loaded and is accepting
// requests.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	c.setHeaders(httpReq)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return decodeStatusError(resp)
	}
	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode health: %w", err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("llama.cpp server status %q", health.Status)
	}
	return nil
}

func (c *Client) buildRequest(req *inference.Request) (*completionRequest, error) {
	text, err := prompt.Render(prompt.RenderOptions{
		Format:           c.format,
		Messages:         req.Transcript.Messages(),
		GenerationPrefix: req.GenerationPrefix,
		OmitBOS:          c.omitBOS,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}
	cfg := req.Config
	return &completionRequest{
		Prompt:        text,
		Grammar:       req.Grammar,
		CachePrompt:   req.CachePrompt,
		NPredict:      req.MaxTokens,
		Stop:          req.Stops.Words(),
		Temperature:   cfg.Temperature,
		TopK:          cfg.TopK,
		TopP:          cfg.TopP,
		MinP:          cfg.MinP,
		RepeatPenalty: cfg.RepeatPenalty,
		RepeatLastN:   cfg.RepeatLastN,
		Seed:          cfg.Seed,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeStatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(r *http.Request) {
	r.Header.Set("User-Agent", version.UserAgent())
	if c.apiKey != "" {
		r.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func decodeStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload errorResponse
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error.Message != "" {
		msg = payload.Error.Message
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

func toCompletion(res *completionResponse) (*inference.Completion, error) {
	c := &inference.Completion{
		Text: inference.SanitizeCompletion(res.Content),
		Stats: inference.Stats{
			PromptTokens:    res.TokensEvaluated,
			CachedTokens:    res.TokensCached,
			TokensGenerated: res.Timings.PredictedN,
			PromptDuration:  millis(res.Timings.PromptMS),
			Duration:        millis(res.Timings.PredictedMS),
			TPS:             res.Timings.PredictedPerSecond,
		},
	}
	switch res.StopType {
	case stopTypeEOS:
		c.Finish = inference.FinishEOS
	case stopTypeLimit:
		c.Finish = inference.FinishLimit
	case stopTypeWord:
		c.Finish = inference.FinishStop
		c.StopWord = res.StoppingWord
	default:
		return nil, fmt.Errorf("%w: %q", inference.ErrUnsupportedStop, res.StopType)
	}
	return c, nil
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func retryable(err error) bool {
	if inference.Retryable(err) {
		return true
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code >= 500
	}
	return false
}
