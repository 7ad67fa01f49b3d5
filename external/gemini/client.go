package gemini

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/riskibarqy/matchboard/internal/platform/resilience"
	"github.com/riskibarqy/matchboard/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"

	apiKeyHeader = "x-goog-api-key"
)

var (
	errGeminiTransient = crerr.New("gemini transient failure")
	// ErrMissingAPIKey is returned by Generate when no key is configured.
	ErrMissingAPIKey = crerr.New("gemini api key is not configured")
)

type ClientConfig struct {
	HTTPClient *fasthttp.Client
	BaseURL    string
	APIKey     string
	Model      string
	// Timeout bounds one request. Zero leaves only the caller's context
	// deadline in effect.
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client calls the generateContent endpoint. Every call is a single request
// with no retry.
type Client struct {
	httpClient *fasthttp.Client
	endpoint   string
	apiKey     string
	model      string
	timeout    time.Duration
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                "matchboard",
			MaxConnsPerHost:     32,
			MaxIdleConnDuration: time.Minute,
		}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   baseURL + "/v1beta/models/" + url.PathEscape(model) + ":generateContent",
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      model,
		timeout:    cfg.Timeout,
		logger:     logger.With("component", "gemini", "model", model),
		breaker:    resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker),
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	var text string
	err := c.breaker.Execute(func() error {
		resp, err := c.generateContent(ctx, prompt)
		if err != nil {
			return err
		}
		text = resp.Text()
		if text == "" {
			return crerr.Newf("empty response finish_reason=%s", resp.finishReason())
		}
		return nil
	}, isGeminiCircuitFailure)
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "gemini circuit breaker rejected request", "state", c.breaker.State())
		return "", fmt.Errorf("%w: summary provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *Client) generateContent(ctx context.Context, prompt string) (generateContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return generateContentResponse{}, err
	}

	body := bytebufferpool.Get()
	defer bytebufferpool.Put(body)

	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	if err := sonic.ConfigDefault.NewEncoder(body).Encode(payload); err != nil {
		return generateContentResponse{}, crerr.Wrap(err, "encode request")
	}

	req := fasthttp.AcquireRequest()
	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("accept", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.SetBody(body.B)

	started := time.Now()
	status, raw, err := c.do(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return generateContentResponse{}, crerr.Wrap(ctxErr, "send request")
		}
		return generateContentResponse{}, crerr.Mark(crerr.Wrap(err, "send request"), errGeminiTransient)
	}

	if status < 200 || status >= 300 {
		statusErr := crerr.Newf("gemini status=%d %s", status, describeError(raw))
		if isRetryableStatus(status) {
			statusErr = crerr.Mark(statusErr, errGeminiTransient)
		}
		c.logger.WarnContext(ctx, "gemini request failed", "status", status, "duration", time.Since(started))
		return generateContentResponse{}, statusErr
	}

	var out generateContentResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return generateContentResponse{}, crerr.Wrapf(err, "decode response body=%s", abbreviateBody(raw))
	}

	c.logger.DebugContext(ctx, "gemini request done",
		"status", status,
		"candidates", len(out.Candidates),
		"duration", time.Since(started),
	)
	return out, nil
}

type doResult struct {
	status int
	body   []byte
	err    error
}

// do sends req and takes ownership of it. The exchange runs on its own
// goroutine so that ctx cancellation returns immediately; the goroutine
// releases req and resp once fasthttp is done with them. The tighter of the
// client timeout and the context deadline bounds the exchange.
func (c *Client) do(ctx context.Context, req *fasthttp.Request) (int, []byte, error) {
	deadline, ok := ctx.Deadline()
	if c.timeout > 0 {
		byTimeout := time.Now().Add(c.timeout)
		if !ok || byTimeout.Before(deadline) {
			deadline, ok = byTimeout, true
		}
	}

	done := make(chan doResult, 1)
	go func() {
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		var err error
		if ok {
			err = c.httpClient.DoDeadline(req, resp, deadline)
		} else {
			err = c.httpClient.Do(req, resp)
		}
		if err != nil {
			done <- doResult{err: err}
			return
		}
		done <- doResult{status: resp.StatusCode(), body: append([]byte(nil), resp.Body()...)}
	}()

	select {
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	case result := <-done:
		return result.status, result.body, result.err
	}
}

func isGeminiCircuitFailure(err error) bool {
	return crerr.Is(err, errGeminiTransient)
}

func isRetryableStatus(code int) bool {
	return code == fasthttp.StatusTooManyRequests || code >= fasthttp.StatusInternalServerError
}

func describeError(raw []byte) string {
	var envelope errorEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return fmt.Sprintf("code=%d status=%s message=%s", envelope.Error.Code, envelope.Error.Status, envelope.Error.Message)
	}
	return "body=" + abbreviateBody(raw)
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
